package utils

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeySetNoDuplicates(t *testing.T) {
	s := NewKeySet()

	if !s.Add("mobile fix|75011") {
		t.Error("first Add should return true")
	}
	if s.Add("mobile fix|75011") {
		t.Error("second Add of same key should return false")
	}
	if !s.Contains("mobile fix|75011") {
		t.Error("Contains should report an added key")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestKeySetConcurrency(t *testing.T) {
	s := NewKeySet()
	var added int64
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("same") {
				atomic.AddInt64(&added, 1)
			}
		}()
	}
	wg.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestThrottleSpacing(t *testing.T) {
	interval := 50 * time.Millisecond
	th := NewThrottle(interval)

	var timestamps []time.Time
	for i := 0; i < 3; i++ {
		if err := th.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		timestamps = append(timestamps, time.Now())
	}

	// allow a little scheduler slack below the nominal interval
	min := interval - 5*time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap < min {
			t.Errorf("gap between call %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestThrottleInterval(t *testing.T) {
	if got := NewThrottle(250 * time.Millisecond).Interval(); got != 250*time.Millisecond {
		t.Errorf("Interval: got %v, want 250ms", got)
	}
	if got := NewThrottle(0).Interval(); got != 0 {
		t.Errorf("Interval: got %v, want 0", got)
	}
}

func TestThrottleZeroIntervalDoesNotWait(t *testing.T) {
	th := NewThrottle(0)
	start := time.Now()
	for i := 0; i < 20; i++ {
		_ = th.Wait(context.Background())
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("zero interval throttle took %v", elapsed)
	}
}

func TestThrottleStopsOnCancel(t *testing.T) {
	th := NewThrottle(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	if err := th.Wait(ctx); err != nil {
		t.Fatalf("first Wait should pass immediately: %v", err)
	}
	cancel()
	if err := th.Wait(ctx); err == nil {
		t.Fatal("expected an error after cancellation")
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: Discard()}
	attempts := 0
	err := r.Do(context.Background(), "flaky", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts: got %d, want 3", attempts)
	}
}

func TestRetryWrapsLastError(t *testing.T) {
	sentinel := errors.New("still down")
	r := &RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}
	err := r.Do(context.Background(), "down", func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("expected wrapped sentinel, got %v", err)
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerTo(&out, &errOut, ParseLevel("warn"))

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("shown %d", 3)
	l.Error("shown %d", 4)

	if strings.Contains(out.String(), "hidden") {
		t.Errorf("debug/info should be filtered, got %q", out.String())
	}
	if !strings.Contains(out.String(), "shown 3") {
		t.Errorf("warn missing from output: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "shown 4") {
		t.Errorf("error missing from stderr output: %q", errOut.String())
	}
}
