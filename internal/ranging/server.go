package ranging

import (
	"fmt"
	"sync"

	"github.com/banshee-data/rtls/internal/coordfilter"
	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/monitoring"
	"github.com/banshee-data/rtls/internal/mqttbus"
	"github.com/banshee-data/rtls/internal/rpc"
	"github.com/banshee-data/rtls/internal/tdoa"
	"github.com/banshee-data/rtls/internal/timerwheel"
	"github.com/banshee-data/rtls/internal/timeutil"
)

// Server owns the anchor and tag registries, the in-flight ranging
// sessions keyed by Ref, and the MQTT wiring that feeds it RF events and
// publishes solved coordinates. Every registry lookup here uses the
// ranging-reference as the session key consistently, in both directions
// of the session lifecycle.
type Server struct {
	Domain string
	cfg    Config
	bus    mqttbus.Bus
	rpc    *rpc.Client
	wheel  *timerwheel.Wheel
	clock  timeutil.Clock

	mu            sync.RWMutex
	anchors       map[eui64.Addr]*Anchor
	anchorsByName map[string]*Anchor
	tags          map[eui64.Addr]*Tag
	rangings      map[Ref]*Session

	sup *AnchorSupervisor
}

// NewServer creates a Server bound to domain's MQTT topic tree, using
// clk to drive its ranging/timeout/supervisor timers (a real clock in
// production, a mock clock in tests).
func NewServer(domain string, cfg Config, bus mqttbus.Bus, clk timeutil.Clock) *Server {
	s := &Server{
		Domain:        domain,
		cfg:           cfg,
		bus:           bus,
		wheel:         timerwheel.New(clk),
		clock:         clk,
		anchors:       make(map[eui64.Addr]*Anchor),
		anchorsByName: make(map[string]*Anchor),
		tags:          make(map[eui64.Addr]*Tag),
		rangings:      make(map[Ref]*Session),
	}
	rpcClient, err := rpc.NewClient(bus, "server")
	if err != nil {
		// Subscribing to this peer's own RPC topics cannot fail for any
		// Bus implementation in this package; a live broker failure would
		// surface later, on Start.
		panic(fmt.Sprintf("ranging: rpc client: %v", err))
	}
	s.rpc = rpcClient
	s.sup = newAnchorSupervisor(s)
	return s
}

// Start subscribes to the domain's RF event topic. It does not block.
// Anchor health pings are armed per anchor when the anchor is added.
func (s *Server) Start() error {
	if err := s.bus.Subscribe(mqttbus.RFTopic(s.Domain, "+"), s.handleRF); err != nil {
		return fmt.Errorf("ranging: subscribe RF topic: %w", err)
	}
	return nil
}

// Stop halts the supervisor and the timer wheel. In-flight sessions are
// abandoned, matching a process exit.
func (s *Server) Stop() {
	s.sup.stop()
	s.wheel.Stop()
}

// AddAnchor registers a fixed anchor at a known coordinate and arms its
// health-check ping timer.
func (s *Server) AddAnchor(a *Anchor) {
	s.mu.Lock()
	s.anchors[a.EUI64] = a
	s.anchorsByName[a.Name] = a
	s.mu.Unlock()
	s.sup.Watch(a)
}

// GetAnchor looks up a registered anchor by EUI64.
func (s *Server) GetAnchor(addr eui64.Addr) (*Anchor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.anchors[addr]
	return a, ok
}

// GetAnchorByName looks up a registered anchor by its configured name.
func (s *Server) GetAnchorByName(name string) (*Anchor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.anchorsByName[name]
	return a, ok
}

// Anchors returns a snapshot of every registered anchor.
func (s *Server) Anchors() []*Anchor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Anchor, 0, len(s.anchors))
	for _, a := range s.anchors {
		out = append(out, a)
	}
	return out
}

// AddTag registers a tag with the configured filter shape already
// attached.
func (s *Server) AddTag(t *Tag) {
	s.mu.Lock()
	s.tags[t.EUI64] = t
	s.mu.Unlock()
}

// Tags returns a snapshot of every registered tag.
func (s *Server) Tags() []*Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, t)
	}
	return out
}

// ActiveSessions returns the ranging-references of every in-flight
// session, for the admin debug surface.
func (s *Server) ActiveSessions() []Ref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Ref, 0, len(s.rangings))
	for ref := range s.rangings {
		out = append(out, ref)
	}
	return out
}

// Wheel exposes the server's timer wheel, for the admin debug surface's
// armed-timer count.
func (s *Server) Wheel() *timerwheel.Wheel {
	return s.wheel
}

// GetTag looks up a registered tag by EUI64.
func (s *Server) GetTag(addr eui64.Addr) (*Tag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tags[addr]
	return t, ok
}

// getOrCreateTag returns the registered tag for addr, creating one with
// a freshly constructed coordinate filter on first sight, per §4.5's
// per-tag filter instancing.
func (s *Server) getOrCreateTag(addr eui64.Addr) *Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tags[addr]; ok {
		return t
	}
	t := NewTag(addr.String(), addr, s.newFilter())
	s.tags[addr] = t
	return t
}

func (s *Server) newFilter() coordfilter.Filter {
	coord := coordfilter.NewWindowMean(s.cfg.FilterLen)
	qual := coordfilter.NewGeometricMean(s.cfg.QCFilterLen)
	return coordfilter.NewQualityGated(coord, qual, s.cfg.QCFilterDev)
}

// getOrCreateSession returns the in-flight session for ref, creating and
// starting one with the server's configured algorithm on first sight.
func (s *Server) getOrCreateSession(ref Ref) *Session {
	s.mu.Lock()
	if sess, ok := s.rangings[ref]; ok {
		s.mu.Unlock()
		return sess
	}
	sess := newSession(s, ref, s.cfg.Algorithm)
	s.rangings[ref] = sess
	s.mu.Unlock()
	sess.start()
	return sess
}

// finishRanging removes ref's session from the registry. Called by
// Session.finish, keyed the same way the session was stored: by
// ranging-reference, never by any other identifier.
func (s *Server) finishRanging(ref Ref) {
	s.mu.Lock()
	delete(s.rangings, ref)
	s.mu.Unlock()
}

// handleRF is the MQTT handler for TAIL/RF/<domain>/<anchor> events: it
// decodes the payload, resolves the ranging-reference, and routes the
// event into the correct phase bucket of that reference's session.
func (s *Server) handleRF(topic string, payload []byte) {
	msg, err := mqttbus.DecodeRFEvent(payload)
	if err != nil {
		monitoring.Logf("ranging: decode RF event on %s: %v", topic, err)
		return
	}
	anchorAddr, err := eui64.Parse(msg.Anchor)
	if err != nil {
		monitoring.Logf("ranging: bad anchor address %q: %v", msg.Anchor, err)
		return
	}
	if _, ok := s.GetAnchor(anchorAddr); !ok {
		monitoring.Logf("ranging: RF event from unregistered anchor %s", msg.Anchor)
		return
	}

	evt, err := DecodeEvent(anchorAddr, msg)
	if err != nil {
		monitoring.Logf("ranging: decode frame from %s: %v", msg.Anchor, err)
		return
	}

	ref, ok := evt.RangingRef()
	if !ok {
		return
	}
	sess := s.getOrCreateSession(ref)

	switch evt.Frame.FrmType {
	case 0: // FrmTagBlink
		sess.addBlink(evt)
	case 1: // FrmAnchorBeacon
		sess.addBeacon(evt)
	case 2: // FrmRangingRequest
		sess.addRequest(evt)
	case 3: // FrmRangingResp
		sess.addResponse(evt)
	}
}

// publishCoord publishes a tag's raw and filtered coordinate to
// TAIL/TAG/<domain>/<eui64>/COORD.
func (s *Server) publishCoord(t *Tag, coord, filtered tdoa.Point) {
	msg := mqttbus.CoordMessage{
		Tag:      t.EUI64.String(),
		Name:     t.Name,
		Coord:    [3]float64{coord.X, coord.Y, coord.Z},
		Filtered: [3]float64{filtered.X, filtered.Y, filtered.Z},
	}
	payload, err := mqttbus.EncodeCoordMessage(msg)
	if err != nil {
		monitoring.Logf("ranging: encode coord message for %s: %v", t.Name, err)
		return
	}
	if err := s.bus.Publish(mqttbus.CoordTopic(s.Domain, t.EUI64.String()), payload); err != nil {
		monitoring.Logf("ranging: publish coord for %s: %v", t.Name, err)
	}
}
