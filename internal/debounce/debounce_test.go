package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	b := New(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 10; i++ {
		b.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected one coalesced call, got %d", got)
	}
}

func TestSeparateBurstsFireSeparately(t *testing.T) {
	var calls atomic.Int32
	b := New(20*time.Millisecond, func() { calls.Add(1) })

	b.Trigger()
	time.Sleep(100 * time.Millisecond)
	b.Trigger()
	time.Sleep(100 * time.Millisecond)

	if got := calls.Load(); got != 2 {
		t.Errorf("Expected two calls, got %d", got)
	}
}

func TestFlushRunsPendingImmediately(t *testing.T) {
	var calls atomic.Int32
	b := New(time.Hour, func() { calls.Add(1) })

	b.Trigger()
	b.Flush()
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected flush to run the pending call, got %d", got)
	}

	// Nothing pending now; flush is a no-op.
	b.Flush()
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected no extra call from idle flush, got %d", got)
	}
}

func TestStopCancelsAndIgnoresTriggers(t *testing.T) {
	var calls atomic.Int32
	b := New(10*time.Millisecond, func() { calls.Add(1) })

	b.Trigger()
	b.Stop()
	b.Trigger()

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("Expected no calls after Stop, got %d", got)
	}
}
