package serialmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPayload(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`FINFO:0a1b2c3d`, EventTypeDiag},
		{`{"channel":5,"tx_power":0}`, EventTypeConfig},
		{`plain text line`, EventTypeUnknown},
		{``, EventTypeUnknown},
		{`[1,2,3]`, EventTypeUnknown},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, ClassifyPayload(c.in), "ClassifyPayload(%q)", c.in)
	}
}

func TestHandleConfigResponse_ValidAndInvalid(t *testing.T) {
	CurrentState = nil

	require.NoError(t, HandleConfigResponse(`{"channel":5,"pcode":"9"}`))
	require.NotNil(t, CurrentState)
	assert.EqualValues(t, 5, CurrentState["channel"])

	err := HandleConfigResponse("not-json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config response")
}

func TestHandleConfigResponse_UpdatesExistingState(t *testing.T) {
	CurrentState = nil

	require.NoError(t, HandleConfigResponse(`{"channel":5}`))
	require.NoError(t, HandleConfigResponse(`{"tx_power":0}`))
	require.NoError(t, HandleConfigResponse(`{"channel":7}`))

	assert.EqualValues(t, 7, CurrentState["channel"])
	assert.EqualValues(t, 0, CurrentState["tx_power"])
}

func TestHandleDiagLine(t *testing.T) {
	require.NoError(t, HandleDiagLine("FINFO:deadbeef"))
	assert.EqualValues(t, 0xefbeadde, LastDiag.RawTS)

	err := HandleDiagLine("FINFO:zz")
	assert.Error(t, err)
}

func TestHandleEvent_Dispatch(t *testing.T) {
	CurrentState = nil

	require.NoError(t, HandleEvent(`{"channel":5}`))
	assert.EqualValues(t, 5, CurrentState["channel"])

	require.NoError(t, HandleEvent("FINFO:0011223344"))

	require.NoError(t, HandleEvent("unrecognised text"))
}

func TestHandleEvent_ConfigError(t *testing.T) {
	err := HandleEvent(`{invalid json here`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config response")
}
