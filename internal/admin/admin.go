// Package admin mounts rtls-server's /debug/ HTTP surface (cmd/anchord
// mounts serialmux's admin routes instead), the same way the teacher's internal/db.AttachAdminRoutes
// and internal/serialmux.AttachAdminRoutes mount theirs: tsweb.Debugger
// registers each handler on the standard debug index, and a tailsql
// server gives a read-only SQL browser over the local sqlite database.
package admin

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/rtls/internal/ranging"
	"github.com/banshee-data/rtls/internal/store"
)

// Surface bundles the state the admin routes report on: the ranging
// server's live registries and timer wheel, and the persisted history in
// store.DB. DB may be nil, in which case the tailsql route is not
// mounted.
type Surface struct {
	Server *ranging.Server
	DB     *store.DB
}

// Attach mounts the debug routes on mux, mirroring the teacher's
// AttachAdminRoutes call sites in internal/db and internal/serialmux.
func (s Surface) Attach(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	debug.Handle("anchors", "Registered anchors and their active state", http.HandlerFunc(s.handleAnchors))
	debug.Handle("tags", "Registered tags (name and EUI-64)", http.HandlerFunc(s.handleTags))
	debug.Handle("sessions", "In-flight ranging sessions", http.HandlerFunc(s.handleSessions))
	debug.Handle("timerwheel", "Timer wheel armed-timer count and next expiry", http.HandlerFunc(s.handleTimerWheel))

	if s.DB != nil {
		tsql, err := tailsql.NewServer(tailsql.Options{
			RoutePrefix: "/debug/tailsql/",
		})
		if err != nil {
			return fmt.Errorf("admin: create tailsql server: %w", err)
		}
		tsql.SetDB("sqlite://rtls.db", s.DB.DB, &tailsql.DBOptions{
			Label: "RTLS store",
		})
		debug.Handle("tailsql/", "SQL live debugging over the RTLS store", tsql.NewMux())
	}

	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type anchorView struct {
	Name   string  `json:"name"`
	EUI64  string  `json:"eui64"`
	Active bool    `json:"active"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
}

func (s Surface) handleAnchors(w http.ResponseWriter, r *http.Request) {
	anchors := s.Server.Anchors()
	out := make([]anchorView, 0, len(anchors))
	for _, a := range anchors {
		out = append(out, anchorView{Name: a.Name, EUI64: a.EUI64.String(), Active: a.Active(), X: a.Coord.X, Y: a.Coord.Y, Z: a.Coord.Z})
	}
	writeJSON(w, out)
}

type tagView struct {
	Name  string `json:"name"`
	EUI64 string `json:"eui64"`
}

func (s Surface) handleTags(w http.ResponseWriter, r *http.Request) {
	tags := s.Server.Tags()
	out := make([]tagView, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagView{Name: t.Name, EUI64: t.EUI64.String()})
	}
	writeJSON(w, out)
}

func (s Surface) handleSessions(w http.ResponseWriter, r *http.Request) {
	refs := s.Server.ActiveSessions()
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.String())
	}
	writeJSON(w, out)
}

type timerWheelView struct {
	ArmedCount int    `json:"armed_count"`
	NextExpiry string `json:"next_expiry,omitempty"`
}

func (s Surface) handleTimerWheel(w http.ResponseWriter, r *http.Request) {
	wheel := s.Server.Wheel()
	v := timerWheelView{ArmedCount: wheel.ArmedCount()}
	if next, ok := wheel.NextExpiry(); ok {
		v.NextExpiry = next.Format("2006-01-02T15:04:05.000Z07:00")
	}
	writeJSON(w, v)
}
