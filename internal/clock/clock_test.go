package clock_test

import (
	"testing"
	"time"

	"github.com/micro-nova/periphd/internal/clock"
)

func TestFakeRecordsSleeps(t *testing.T) {
	f := clock.NewFake()
	start := time.Now()
	f.Sleep(10 * time.Millisecond)
	f.Sleep(time.Hour)

	if time.Since(start) > time.Second {
		t.Fatal("fake clock should not block")
	}
	if got, want := f.Elapsed(), time.Hour+10*time.Millisecond; got != want {
		t.Errorf("Elapsed = %v, want %v", got, want)
	}
	if n := len(f.Sleeps()); n != 2 {
		t.Errorf("recorded %d sleeps, want 2", n)
	}

	f.Reset()
	if f.Elapsed() != 0 || len(f.Sleeps()) != 0 {
		t.Error("Reset should clear recorded delays")
	}
}
