package irq

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSource implements EdgeSource; fire delivers synchronously.
type fakeSource struct {
	cb      func()
	trigger Trigger
	err     error
	closed  bool
}

func (s *fakeSource) Watch(_ context.Context, t Trigger, fire func()) error {
	if s.err != nil {
		return s.err
	}
	s.cb = fire
	s.trigger = t
	return nil
}

func (s *fakeSource) Close() error { s.closed = true; return nil }

func (s *fakeSource) fire() {
	if s.cb != nil {
		s.cb()
	}
}

func TestRequestValidation(t *testing.T) {
	if _, err := Request("x", nil, TriggerBoth, func() Result { return Handled }); !errors.Is(err, ErrNoSource) {
		t.Errorf("nil source: err = %v, want ErrNoSource", err)
	}
	if _, err := Request("x", &fakeSource{}, TriggerBoth, nil); !errors.Is(err, ErrNoHandler) {
		t.Errorf("nil handler: err = %v, want ErrNoHandler", err)
	}
	watchErr := errors.New("line busy")
	if _, err := Request("x", &fakeSource{err: watchErr}, TriggerBoth, func() Result { return Handled }); !errors.Is(err, watchErr) {
		t.Errorf("watch failure: err = %v, want wrapped %v", err, watchErr)
	}
}

func TestDispatchAndMask(t *testing.T) {
	src := &fakeSource{}
	calls := 0
	l, err := Request("hp", src, TriggerBoth, func() Result { calls++; return Handled })
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if src.trigger != TriggerBoth {
		t.Errorf("trigger = %v, want both", src.trigger)
	}
	if l.Masked() {
		t.Fatal("line should start unmasked")
	}

	src.fire()
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}

	l.Mask()
	src.fire()
	src.fire()
	if calls != 1 {
		t.Fatalf("masked line dispatched: calls = %d", calls)
	}
	st := l.Stats()
	if st.Coalesced != 2 {
		t.Errorf("Coalesced = %d, want 2", st.Coalesced)
	}

	l.Unmask()
	if calls != 2 {
		t.Errorf("unmask should replay one coalesced edge: calls = %d, want 2", calls)
	}
	if l.Stats().Replayed != 1 {
		t.Errorf("Replayed = %d, want 1", l.Stats().Replayed)
	}

	l.Unmask()
	if calls != 2 {
		t.Error("second unmask with nothing pending should not dispatch")
	}
}

func TestHandlerMaskingItself(t *testing.T) {
	src := &fakeSource{}
	var l *Line
	calls := 0
	l, err := Request("hp", src, TriggerBoth, func() Result {
		calls++
		l.Mask()
		return Handled
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	src.fire()
	src.fire()
	if calls != 1 || !l.Masked() {
		t.Errorf("calls = %d masked = %v, want 1 true", calls, l.Masked())
	}
}

func TestFree(t *testing.T) {
	src := &fakeSource{}
	calls := 0
	l, _ := Request("hp", src, TriggerBoth, func() Result { calls++; return Handled })
	if err := l.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if !src.closed {
		t.Error("Free should close the source")
	}
	src.fire()
	if calls != 0 {
		t.Error("freed line should not dispatch")
	}
	if err := l.Free(); err != nil {
		t.Errorf("second Free = %v, want nil", err)
	}
}

func TestUnmaskWaitsForInflightDispatch(t *testing.T) {
	src := &fakeSource{}
	var calls atomic.Int32
	l, err := Request("hp", src, TriggerBoth, func() Result { calls.Add(1); return Handled })
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	l.Mask()

	// Another CPU is inside dispatch and has already seen the mask.
	l.hmu.Lock()
	done := make(chan struct{})
	go func() {
		l.Unmask()
		close(done)
	}()
	select {
	case <-done:
		l.hmu.Unlock()
		t.Fatal("Unmask returned while a dispatch held the line")
	case <-time.After(50 * time.Millisecond):
	}
	l.pending.Store(true)
	l.coalesced.Add(1)
	l.hmu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Unmask never returned")
	}
	if calls.Load() != 1 {
		t.Errorf("handler calls = %d, want the coalesced edge replayed once", calls.Load())
	}
	if l.Masked() || l.pending.Load() {
		t.Errorf("masked=%v pending=%v, want an armed line with nothing pending", l.Masked(), l.pending.Load())
	}
}

func TestConcurrentUnmaskNeverStrandsEdge(t *testing.T) {
	src := &fakeSource{}
	l, err := Request("hp", src, TriggerBoth, func() Result { return Handled })
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	for i := 0; i < 2000; i++ {
		l.Mask()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); src.fire() }()
		go func() { defer wg.Done(); l.Unmask() }()
		wg.Wait()
		if !l.Masked() && l.pending.Load() {
			t.Fatalf("iteration %d: armed line left with a pending edge", i)
		}
	}
}
