package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/mqttbus"
	"github.com/banshee-data/rtls/internal/ranging"
	"github.com/banshee-data/rtls/internal/tdoa"
	"github.com/banshee-data/rtls/internal/timeutil"
)

func TestAttachMountsRangingRoutesWithoutDB(t *testing.T) {
	srv := ranging.NewServer("site1", ranging.DefaultConfig(), mqttbus.NewInProcBus(), timeutil.NewMockClock(time.Unix(0, 0)))
	t.Cleanup(srv.Stop)

	addr, err := eui64.Parse("0011223344556677")
	require.NoError(t, err)
	srv.AddAnchor(ranging.NewAnchor("a1", addr, tdoa.Point{X: 1, Y: 2, Z: 0}))

	mux := http.NewServeMux()
	require.NoError(t, Surface{Server: srv}.Attach(mux))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/anchors", nil)
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var got []anchorView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].Name)
}

func TestAttachMountsTimerWheelRoute(t *testing.T) {
	srv := ranging.NewServer("site1", ranging.DefaultConfig(), mqttbus.NewInProcBus(), timeutil.NewMockClock(time.Unix(0, 0)))
	t.Cleanup(srv.Stop)

	mux := http.NewServeMux()
	require.NoError(t, Surface{Server: srv}.Attach(mux))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/timerwheel", nil)
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var got timerWheelView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.GreaterOrEqual(t, got.ArmedCount, 0)
}
