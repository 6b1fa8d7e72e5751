package timerwheel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtls/internal/timeutil"
)

// waitForSignal blocks briefly on a channel, returning whether it fired.
func waitForSignal(t *testing.T, ch <-chan time.Time) bool {
	t.Helper()
	select {
	case <-ch:
		return true
	case <-time.After(time.Second):
		return false
	}
}

func TestArmFiresOnce(t *testing.T) {
	clk := timeutil.NewMockClock(time.Unix(0, 0))
	w := New(clk)
	defer w.Stop()

	fired := make(chan time.Time, 1)
	tm := w.NewTimer(func(t *Timer) { fired <- clk.Now() })
	w.Arm(tm, clk.Now().Add(50*time.Millisecond))

	// Let the dispatch goroutine register its sleep timer against the mock
	// clock before advancing it.
	time.Sleep(10 * time.Millisecond)
	clk.Advance(50 * time.Millisecond)

	require.True(t, waitForSignal(t, fired))
	assert.False(t, tm.Armed())
}

func TestUnarmPreventsFire(t *testing.T) {
	clk := timeutil.NewMockClock(time.Unix(0, 0))
	w := New(clk)
	defer w.Stop()

	var fires int32
	tm := w.NewTimer(func(t *Timer) { atomic.AddInt32(&fires, 1) })
	w.Arm(tm, clk.Now().Add(50*time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	w.Unarm(tm)
	clk.Advance(100 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, atomic.LoadInt32(&fires))
	assert.False(t, tm.Armed())
}

func TestArmPeriodicFiresRepeatedlyAndStaysArmed(t *testing.T) {
	clk := timeutil.NewMockClock(time.Unix(0, 0))
	w := New(clk)
	defer w.Stop()

	fired := make(chan time.Time, 8)
	tm := w.NewTimer(func(t *Timer) { fired <- t.Expiry() })
	start := clk.Now()
	w.ArmPeriodic(tm, start.Add(10*time.Millisecond), 10*time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	for i := 1; i <= 3; i++ {
		clk.Advance(10 * time.Millisecond)
		require.True(t, waitForSignal(t, fired))
		time.Sleep(5 * time.Millisecond)
	}

	assert.True(t, tm.Armed(), "periodic timer stays armed after firing")
}

func TestEarliestOfMultipleTimersFiresFirst(t *testing.T) {
	clk := timeutil.NewMockClock(time.Unix(0, 0))
	w := New(clk)
	defer w.Stop()

	order := make(chan string, 2)
	late := w.NewTimer(func(t *Timer) { order <- "late" })
	early := w.NewTimer(func(t *Timer) { order <- "early" })

	w.Arm(late, clk.Now().Add(100*time.Millisecond))
	w.Arm(early, clk.Now().Add(20*time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	clk.Advance(20 * time.Millisecond)
	require.Equal(t, "early", <-order)

	clk.Advance(80 * time.Millisecond)
	require.Equal(t, "late", <-order)
}

func TestStopPreventsFurtherFires(t *testing.T) {
	clk := timeutil.NewMockClock(time.Unix(0, 0))
	w := New(clk)

	var fires int32
	tm := w.NewTimer(func(t *Timer) { atomic.AddInt32(&fires, 1) })
	w.Arm(tm, clk.Now().Add(10*time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	w.Stop()
	clk.Advance(50 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	assert.Zero(t, atomic.LoadInt32(&fires))
}

func TestRealClockArmFires(t *testing.T) {
	w := New(timeutil.RealClock{})
	defer w.Stop()

	fired := make(chan struct{}, 1)
	tm := w.NewTimer(func(t *Timer) { close(fired) })
	w.Arm(tm, time.Now().Add(20*time.Millisecond))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire against RealClock")
	}
}
