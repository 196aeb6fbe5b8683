package timeutil

import (
	"testing"
	"time"
)

func drained(tc <-chan time.Time) bool {
	select {
	case <-tc:
		return false
	default:
		return true
	}
}

func TestRealClock_NewTicker(t *testing.T) {
	ticker := RealClock{}.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Error("ticker did not fire")
	}
}

func TestMockClock_SetDoesNotTick(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)
	ticker := clock.NewTicker(time.Second)

	clock.Set(start.Add(time.Hour))
	if got := clock.Now(); !got.Equal(start.Add(time.Hour)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(time.Hour))
	}
	if !drained(ticker.C()) {
		t.Error("Set must not fire tickers")
	}

	// The passed deadline fires on the next Advance.
	clock.Advance(0)
	if drained(ticker.C()) {
		t.Error("expected a tick after Advance")
	}
}

func TestMockClock_AdvanceFiresOnDeadline(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(100 * time.Millisecond)

	clock.Advance(50 * time.Millisecond)
	if !drained(ticker.C()) {
		t.Fatal("ticker fired before its interval elapsed")
	}
	clock.Advance(50 * time.Millisecond)
	if drained(ticker.C()) {
		t.Fatal("ticker did not fire at its deadline")
	}
	clock.Advance(99 * time.Millisecond)
	if !drained(ticker.C()) {
		t.Fatal("ticker fired before the next deadline")
	}
}

func TestMockTicker_DropsUnreadTicks(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(10 * time.Millisecond)

	clock.Advance(10 * time.Millisecond)
	clock.Advance(10 * time.Millisecond)
	clock.Advance(35 * time.Millisecond)

	got := <-ticker.C()
	if want := time.Unix(0, 0).Add(10 * time.Millisecond); !got.Equal(want) {
		t.Errorf("pending tick = %v, want %v", got, want)
	}
	if !drained(ticker.C()) {
		t.Error("channel should hold only one tick")
	}

	// Skipped intervals do not queue; the next deadline is 60ms.
	clock.Advance(4 * time.Millisecond)
	if !drained(ticker.C()) {
		t.Error("ticker fired before 60ms")
	}
	clock.Advance(time.Millisecond)
	if drained(ticker.C()) {
		t.Error("ticker did not fire at 60ms")
	}
}

func TestMockTicker_Stop(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(time.Millisecond)
	ticker.Stop()

	clock.Advance(time.Second)
	if !drained(ticker.C()) {
		t.Fatal("stopped ticker fired on Advance")
	}
	if n := len(clock.tickers); n != 0 {
		t.Errorf("stopped ticker still registered: %d", n)
	}
}
