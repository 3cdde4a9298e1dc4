package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Run("zero start uses the reference time", func(t *testing.T) {
		if got := NewClock(time.Time{}).Now(); !got.Equal(ReferenceTime()) {
			t.Fatalf("Now = %v, want %v", got, ReferenceTime())
		}
	})

	t.Run("advance and set", func(t *testing.T) {
		friday := time.Date(2026, time.March, 6, 19, 0, 0, 0, time.UTC)
		clock := NewClock(friday)

		if got := clock.Advance(90 * time.Minute); !got.Equal(friday.Add(90 * time.Minute)) {
			t.Fatalf("Advance = %v", got)
		}
		clock.Set(friday.AddDate(0, 0, 1))
		if got := clock.Current(); got.Weekday() != time.Saturday {
			t.Fatalf("Set moved the clock to %v", got)
		}
	})

	t.Run("injected func follows the clock", func(t *testing.T) {
		clock := NewClock(time.Time{})
		now := clock.NowFunc()
		clock.Advance(time.Hour)
		if !now().Equal(ReferenceTime().Add(time.Hour)) {
			t.Fatalf("NowFunc lagged: %v", now())
		}

		var missing *Clock
		if missing.NowFunc()().IsZero() {
			t.Fatal("nil clock should fall back to wall time")
		}
	})

	t.Run("past expiry lands on the boundary", func(t *testing.T) {
		clock := NewClock(time.Time{})
		created := clock.Now()
		ttl := 7 * 24 * time.Hour
		if got := clock.PastExpiry(created, ttl); !got.Equal(created.Add(ttl)) {
			t.Fatalf("PastExpiry = %v", got)
		}
	})
}
