package clock

import (
	"testing"
	"time"
)

func TestDelayFrom(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := DelayFrom(base, 0); !got.Equal(base) {
		t.Errorf("DelayFrom(base, 0) = %v, want %v", got, base)
	}
	if got := DelayFrom(base, -1); !got.Equal(base) {
		t.Errorf("DelayFrom(base, -1) = %v, want %v", got, base)
	}

	want := base.Add(3 * time.Second)
	if got := DelayFrom(base, 3); !got.Equal(want) {
		t.Errorf("DelayFrom(base, 3) = %v, want %v", got, want)
	}
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := NewFake(start)

	if !fc.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", fc.Now(), start)
	}

	fc.Advance(5 * time.Second)
	want := start.Add(5 * time.Second)
	if !fc.Now().Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", fc.Now(), want)
	}

	later := start.Add(time.Hour)
	fc.Set(later)
	if !fc.Now().Equal(later) {
		t.Errorf("after Set, Now() = %v, want %v", fc.Now(), later)
	}
}
