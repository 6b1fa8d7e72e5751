package ranging

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/monitoring"
	"github.com/banshee-data/rtls/internal/rtlserr"
	"github.com/banshee-data/rtls/internal/tdoa"
	"github.com/banshee-data/rtls/internal/timerwheel"
)

// Method is the ranging method a session runs, carried in the data model
// alongside NONE for a session that has not yet classified itself (never
// actually constructed in this codec — every session is created with a
// method already chosen by the configured Algorithm).
type Method int

const (
	MethodNone Method = iota
	MethodOneWay
	MethodTwoWay
)

// Every algorithm this server can select (wls2d, wls3d, swls) runs
// one-way ranging: the tag blinks, an elected beacon anchor re-broadcasts,
// and every anchor times the response. Two-way ranging is modeled by the
// data model (§3) but has no selectable algorithm in this codec, matching
// the original implementation's TWR class (present, never wired into
// get_lat_algo).

// Session is the per-blink three-phase event collector: bucket[0] holds
// blinks, bucket[1] holds the beacon rebroadcast (or, for two-way, the
// ranging request — never populated by any implemented algorithm here),
// bucket[2] holds ranging responses. A session is created on the first
// event for a ranging reference and destroyed exactly once, either by its
// ranging timer (then solve) or its timeout timer (then drop silently).
type Session struct {
	Ref       Ref
	Method    Method
	Algorithm Algorithm

	srv *Server

	mu        sync.Mutex
	buckets   [3]map[eui64.Addr]Event
	device    *Tag
	beacon    *Anchor
	common    *Anchor
	active    bool
	finished  bool
	startTime time.Time

	rangingTimer *timerwheel.Timer
	timeoutTimer *timerwheel.Timer
}

func newSession(srv *Server, ref Ref, algo Algorithm) *Session {
	s := &Session{
		Ref:       ref,
		Method:    MethodOneWay,
		Algorithm: algo.normalize(),
		srv:       srv,
	}
	s.rangingTimer = srv.wheel.NewTimer(func(*timerwheel.Timer) { s.onRangingExpire() })
	s.timeoutTimer = srv.wheel.NewTimer(func(*timerwheel.Timer) { s.onTimeoutExpire() })
	return s
}

// start arms the timeout timer and opens the three phase buckets.
func (s *Session) start() {
	s.mu.Lock()
	s.startTime = s.srv.clock.Now()
	s.buckets = [3]map[eui64.Addr]Event{make(map[eui64.Addr]Event), make(map[eui64.Addr]Event), make(map[eui64.Addr]Event)}
	s.active = true
	s.mu.Unlock()

	s.srv.wheel.Arm(s.timeoutTimer, s.srv.clock.Now().Add(s.srv.cfg.TimeoutTimer))
	monitoring.Logf("ranging: session %s started", s.Ref)
}

// finish releases the session from the registry. Idempotent: a session
// can be finished once by whichever timer fires first.
func (s *Session) finish() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.active = false
	elapsed := s.srv.clock.Since(s.startTime)
	s.mu.Unlock()

	s.srv.wheel.Unarm(s.rangingTimer)
	s.srv.wheel.Unarm(s.timeoutTimer)
	s.srv.finishRanging(s.Ref)
	monitoring.Logf("ranging: session %s finished after %s", s.Ref, elapsed)
}

func (s *Session) onRangingExpire() {
	s.srv.wheel.Unarm(s.timeoutTimer)
	go s.solve()
}

func (s *Session) onTimeoutExpire() {
	s.finish()
}

// addBlink stores the source anchor's blink observation in bucket[0] and
// resolves the tag device on first sight.
func (s *Session) addBlink(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.buckets[0][evt.AnchorKey] = evt
	if s.device == nil {
		s.device = s.srv.getOrCreateTag(evt.SrcAddr())
	}
}

// addBeacon stores a one-way beacon rebroadcast observation in bucket[1].
func (s *Session) addBeacon(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.Method != MethodOneWay {
		return
	}
	s.buckets[1][evt.AnchorKey] = evt
}

// addRequest stores a two-way ranging request in bucket[1]. No
// implemented algorithm runs two-way ranging, so this never actually
// arms a session to completion; it exists to satisfy the data model.
func (s *Session) addRequest(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.Method != MethodTwoWay {
		return
	}
	s.buckets[1][evt.AnchorKey] = evt
}

// addResponse stores a ranging response in bucket[2] and arms the
// ranging timer: once a response has arrived the session has everything
// it needs and will solve shortly, rather than waiting out the full
// timeout.
func (s *Session) addResponse(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.buckets[2][evt.AnchorKey] = evt
	s.srv.wheel.Arm(s.rangingTimer, s.srv.clock.Now().Add(s.srv.cfg.RangingTimer))
}

// findBeacon elects the anchor that appears most often as the source EUI
// in bucket[1] observations — the anchor every other anchor most
// reliably overheard rebroadcasting.
func (s *Session) findBeacon() (*Anchor, error) {
	counts := make(map[eui64.Addr]int)
	for _, evt := range s.buckets[1] {
		counts[evt.SrcAddr()]++
	}
	var best eui64.Addr
	bestN := -1
	for k, n := range counts {
		if n > bestN {
			best, bestN = k, n
		}
	}
	if bestN < 0 {
		return nil, fmt.Errorf("ranging: no beacon observations in session %s", s.Ref)
	}
	anchor, ok := s.srv.GetAnchor(best)
	if !ok {
		return nil, fmt.Errorf("ranging: beacon anchor %s not registered", best)
	}
	return anchor, nil
}

// selectBeacon picks the beacon anchor used for pseudo-range geometry: a
// forced name or RANDOM override, falling back to the blink bucket's
// strongest RX level when no override is configured.
func (s *Session) selectBeacon() (*Anchor, error) {
	switch {
	case s.srv.cfg.ForceBeacon == "RANDOM":
		anchors := s.srv.Anchors()
		if len(anchors) == 0 {
			return nil, fmt.Errorf("ranging: no anchors registered")
		}
		return anchors[rand.Intn(len(anchors))], nil
	case s.srv.cfg.ForceBeacon != "":
		a, ok := s.srv.GetAnchorByName(s.srv.cfg.ForceBeacon)
		if !ok {
			return nil, fmt.Errorf("ranging: force_beacon %q not found", s.srv.cfg.ForceBeacon)
		}
		return a, nil
	default:
		s.mu.Lock()
		defer s.mu.Unlock()
		var best *Anchor
		bestLevel := math.Inf(-1)
		for key, evt := range s.buckets[0] {
			a, ok := s.srv.GetAnchor(key)
			if !ok {
				continue
			}
			lvl := evt.RxLevel(s.srv.cfg.PRF)
			if lvl > bestLevel {
				best, bestLevel = a, lvl
			}
		}
		if best == nil {
			return nil, fmt.Errorf("ranging: beacon anchor selection not possible")
		}
		return best, nil
	}
}

// selectCommon picks the SWLS variant's common anchor: among anchors
// distinct from the beacon with observations in all three buckets, the
// one with the greatest summed RX level wins.
func (s *Session) selectCommon(beacon *Anchor) (*Anchor, error) {
	switch {
	case s.srv.cfg.ForceCommon == "RANDOM":
		anchors := s.srv.Anchors()
		if len(anchors) == 0 {
			return nil, fmt.Errorf("ranging: no anchors registered")
		}
		return anchors[rand.Intn(len(anchors))], nil
	case s.srv.cfg.ForceCommon != "":
		a, ok := s.srv.GetAnchorByName(s.srv.cfg.ForceCommon)
		if !ok {
			return nil, fmt.Errorf("ranging: force_common %q not found", s.srv.cfg.ForceCommon)
		}
		return a, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var best *Anchor
	bestLevel := math.Inf(-1)
	for _, a := range s.srv.Anchors() {
		key := a.EUI64
		if beacon != nil && key == beacon.EUI64 {
			continue
		}
		e0, ok0 := s.buckets[0][key]
		e1, ok1 := s.buckets[1][key]
		e2, ok2 := s.buckets[2][key]
		if !ok0 || !ok1 || !ok2 {
			continue
		}
		lvl := e0.RxLevel(s.srv.cfg.PRF) + e1.RxLevel(s.srv.cfg.PRF) + e2.RxLevel(s.srv.cfg.PRF)
		if lvl > bestLevel {
			best, bestLevel = a, lvl
		}
	}
	if best == nil {
		return nil, fmt.Errorf("ranging: common anchor selection not possible")
	}
	return best, nil
}

// tdoaTimes draws T0..T5 for anchor akey against reference key rkey (the
// beacon for wls2d/wls3d, the common anchor for swls) from the three
// phase buckets, per event.py's timestamp ordering in LatWLS2D.laterate.
func (s *Session) tdoaTimes(akey, rkey eui64.Addr) ([6]float64, bool) {
	var t [6]float64
	b0a, ok := s.buckets[0][akey]
	if !ok {
		return t, false
	}
	b0r, ok := s.buckets[0][rkey]
	if !ok {
		return t, false
	}
	b1r, ok := s.buckets[1][rkey]
	if !ok {
		return t, false
	}
	b1a, ok := s.buckets[1][akey]
	if !ok {
		return t, false
	}
	b2a, ok := s.buckets[2][akey]
	if !ok {
		return t, false
	}
	b2r, ok := s.buckets[2][rkey]
	if !ok {
		return t, false
	}
	t[0], t[1], t[2] = b0a.Timestamp(), b0r.Timestamp(), b1r.Timestamp()
	t[3], t[4], t[5] = b1a.Timestamp(), b2a.Timestamp(), b2r.Timestamp()
	return t, true
}

// solve runs on its own goroutine (never the dispatch thread): it elects
// beacon/common anchors, builds the per-anchor TDOA pseudo-ranges,
// dispatches to the configured hyperlateration solver, and always
// finishes the session whether or not a solve was possible.
func (s *Session) solve() {
	defer s.finish()

	s.mu.Lock()
	device := s.device
	s.mu.Unlock()
	if device == nil {
		return
	}

	beacon, err := s.findBeacon()
	if err != nil {
		monitoring.Logf("ranging: session %s: %v", s.Ref, err)
		return
	}
	s.mu.Lock()
	s.beacon = beacon
	s.mu.Unlock()

	var result tdoa.Result
	var solveErr error
	switch s.Algorithm {
	case AlgoWLS2D:
		result, solveErr = s.solveWLS(beacon, 2)
	case AlgoWLS3D:
		result, solveErr = s.solveWLS(beacon, 3)
	case AlgoSWLS:
		result, solveErr = s.solveSWLS(beacon)
	default:
		solveErr = fmt.Errorf("ranging: unknown algorithm %q", s.Algorithm)
	}

	if solveErr != nil {
		monitoring.Logf("ranging: session %s solve failed: %v", s.Ref, solveErr)
	} else {
		coord, filtered := device.UpdateCoord(result.Position)
		s.srv.publishCoord(device, coord, filtered)
	}

	elected, err := s.selectBeacon()
	if err == nil {
		device.UpdateBeacon(elected)
	}
}

// solveWLS runs the single-beacon wls2d/wls3d algorithm (LatWLS2D /
// LatWLS3D in the original): every anchor but the beacon contributes a
// pseudo-range D = C - 2*woodoo(T), where C is the beacon-to-anchor
// geometric distance.
func (s *Session) solveWLS(beacon *Anchor, dim int) (tdoa.Result, error) {
	var coords []tdoa.Point
	var ranges, sigmas []float64

	for _, a := range s.srv.Anchors() {
		if a.EUI64 == beacon.EUI64 {
			continue
		}
		t, ok := s.tdoaTimes(a.EUI64, beacon.EUI64)
		if !ok {
			continue
		}
		dof, err := tdoa.Woodoo(t)
		if err != nil {
			continue
		}
		c := beacon.DistanceTo(a)
		d := c - 2*dof
		if d <= -s.srv.cfg.MaxDist || d >= s.srv.cfg.MaxDist {
			continue
		}
		coords = append(coords, a.Coord)
		ranges = append(ranges, d)
		sigmas = append(sigmas, 0.1)
	}

	if dim == 2 {
		if len(ranges) < 3 {
			return tdoa.Result{}, fmt.Errorf("ranging: %w: %d usable anchors, need 3", rtlserr.ErrSolveUnderdetermined, len(ranges))
		}
		return tdoa.Hyperlater2D(beacon.Coord, coords, ranges, sigmas, tdoa.Theta)
	}
	if len(ranges) < 5 {
		return tdoa.Result{}, fmt.Errorf("ranging: %w: %d usable anchors, need 5", rtlserr.ErrSolveUnderdetermined, len(ranges))
	}
	return tdoa.Hyperlater3D(beacon.Coord, coords, ranges, sigmas, tdoa.Theta)
}

// solveSWLS runs the common-anchor-relative algorithm (LatSWLS): ranges
// are relative to the common anchor rather than the beacon directly,
// D = (C - B) - 2*woodoo(T), where B is the beacon-to-common distance.
func (s *Session) solveSWLS(beacon *Anchor) (tdoa.Result, error) {
	common, err := s.selectCommon(beacon)
	if err != nil {
		return tdoa.Result{}, err
	}
	s.mu.Lock()
	s.common = common
	s.mu.Unlock()

	b := beacon.DistanceTo(common)

	var coords []tdoa.Point
	var ranges, sigmas []float64
	for _, a := range s.srv.Anchors() {
		if a.EUI64 == beacon.EUI64 || a.EUI64 == common.EUI64 {
			continue
		}
		t, ok := s.tdoaTimes(a.EUI64, common.EUI64)
		if !ok {
			continue
		}
		dof, err := tdoa.Woodoo(t)
		if err != nil {
			continue
		}
		c := beacon.DistanceTo(a)
		d := (c - b) - 2*dof
		if d <= -s.srv.cfg.MaxDist || d >= s.srv.cfg.MaxDist {
			continue
		}
		coords = append(coords, a.Coord)
		ranges = append(ranges, d)
		sigmas = append(sigmas, 0.1)
	}

	if len(ranges) < 5 {
		return tdoa.Result{}, fmt.Errorf("ranging: %w: %d usable anchors, need 5", rtlserr.ErrSolveUnderdetermined, len(ranges))
	}
	return tdoa.Hyperlater3D(beacon.Coord, coords, ranges, sigmas, tdoa.Theta)
}
