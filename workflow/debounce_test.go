package workflow

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var runs int32

	for i := 0; i < 5; i++ {
		d.Trigger(func() { atomic.AddInt32(&runs, 1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("burst of 5 triggers ran %d times, want 1", got)
	}
}

func TestDebouncerTrailingEdge(t *testing.T) {
	d := NewDebouncer(40 * time.Millisecond)
	var ran int32

	d.Trigger(func() { atomic.StoreInt32(&ran, 1) })

	time.Sleep(15 * time.Millisecond)
	if atomic.LoadInt32(&ran) != 0 {
		t.Fatal("callback ran before the interval elapsed")
	}

	time.Sleep(80 * time.Millisecond)
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("callback did not run after the interval")
	}
}

func TestDebouncerSeparatedTriggersRunSeparately(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var runs int32

	d.Trigger(func() { atomic.AddInt32(&runs, 1) })
	time.Sleep(60 * time.Millisecond)
	d.Trigger(func() { atomic.AddInt32(&runs, 1) })
	time.Sleep(60 * time.Millisecond)

	if got := atomic.LoadInt32(&runs); got != 2 {
		t.Fatalf("two quiet-separated triggers ran %d times, want 2", got)
	}
}

func TestDebouncerCancelDropsPendingRun(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var runs int32

	d.Trigger(func() { atomic.AddInt32(&runs, 1) })
	d.Cancel()

	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 0 {
		t.Fatalf("cancelled trigger still ran %d times", got)
	}

	// Cancel with nothing pending must not panic.
	d.Cancel()
}

func TestDebouncerLastCallbackWins(t *testing.T) {
	d := NewDebouncer(25 * time.Millisecond)
	var got int32

	d.Trigger(func() { atomic.StoreInt32(&got, 1) })
	d.Trigger(func() { atomic.StoreInt32(&got, 2) })

	time.Sleep(80 * time.Millisecond)
	if atomic.LoadInt32(&got) != 2 {
		t.Fatalf("expected the last trigger's callback, got marker %d", got)
	}
}
