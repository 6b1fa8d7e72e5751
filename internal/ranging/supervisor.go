package ranging

import (
	"sync"
	"time"

	"github.com/banshee-data/rtls/internal/monitoring"
	"github.com/banshee-data/rtls/internal/timerwheel"
)

// pingPeriod and pingTimeout are the anchor health cadence: every anchor
// is PINGed every ten seconds, and a reply is expected within five.
const (
	pingPeriod  = 10 * time.Second
	pingTimeout = 5 * time.Second
)

// AnchorSupervisor runs the PING health check against every registered
// anchor from a periodic timer per anchor on the server's timer wheel,
// toggling Anchor.active on success or failure. Each ping runs on its own
// goroutine, so a blocked RPC call never holds up the wheel.
type AnchorSupervisor struct {
	srv *Server

	mu     sync.Mutex
	timers map[string]*timerwheel.Timer
}

func newAnchorSupervisor(srv *Server) *AnchorSupervisor {
	return &AnchorSupervisor{srv: srv, timers: make(map[string]*timerwheel.Timer)}
}

// Watch arms a periodic ping timer for a single anchor, replacing any
// timer already watching it.
func (sup *AnchorSupervisor) Watch(a *Anchor) {
	t := sup.srv.wheel.NewTimer(func(*timerwheel.Timer) { go sup.pingOne(a) })
	sup.mu.Lock()
	if old, ok := sup.timers[a.EUI64.String()]; ok {
		sup.srv.wheel.Unarm(old)
	}
	sup.timers[a.EUI64.String()] = t
	sup.mu.Unlock()
	sup.srv.wheel.ArmPeriodic(t, sup.srv.clock.Now().Add(pingPeriod), pingPeriod)
}

func (sup *AnchorSupervisor) pingOne(a *Anchor) {
	_, err := sup.srv.rpc.CallTimeout(a.EUI64.String(), "PING", nil, pingTimeout)
	wasActive := a.Active()
	if err != nil {
		if wasActive {
			monitoring.Logf("ranging: anchor %s deactivated: %v", a.Name, err)
		}
		a.SetActive(false)
		return
	}
	if !wasActive {
		monitoring.Logf("ranging: anchor %s activated", a.Name)
	}
	a.SetActive(true)
}

// stop disarms every watched anchor's ping timer.
func (sup *AnchorSupervisor) stop() {
	sup.mu.Lock()
	defer sup.mu.Unlock()
	for _, t := range sup.timers {
		sup.srv.wheel.Unarm(t)
	}
}
