package engine

import (
	"testing"
	"time"
)

// TestFakeClockAdvanceDeliversTicks verifies one tick is queued per
// elapsed interval, in order.
func TestFakeClockAdvanceDeliversTicks(t *testing.T) {
	fc := NewFakeClock()
	ticker := fc.NewTicker(time.Second)

	fc.Advance(3 * time.Second)
	for i := 0; i < 3; i++ {
		select {
		case <-ticker.C():
		default:
			t.Fatalf("tick %d not delivered", i)
		}
	}
	select {
	case <-ticker.C():
		t.Fatal("extra tick delivered")
	default:
	}
}

// TestFakeClockSince verifies Now and Since track Advance.
func TestFakeClockSince(t *testing.T) {
	fc := NewFakeClock()
	start := fc.Now()

	fc.Advance(90 * time.Second)
	if got := fc.Since(start); got != 90*time.Second {
		t.Errorf("Since = %v, want 90s", got)
	}
}

// TestFakeClockStoppedTickerIsSilent verifies a stopped ticker receives
// nothing from later advances.
func TestFakeClockStoppedTickerIsSilent(t *testing.T) {
	fc := NewFakeClock()
	ticker := fc.NewTicker(time.Second)
	ticker.Stop()

	fc.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker delivered a tick")
	default:
	}
}
