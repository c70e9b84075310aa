package main

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %d, want 5", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %d, want 10", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty percentile = %d, want 0", got)
	}
}

func TestRunPhaseCountsFailures(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	stats := runPhase(20, 1, func(*rand.Rand) error {
		calls++
		if calls%4 == 0 {
			return boom
		}
		return nil
	})
	if stats.ops != 20 {
		t.Fatalf("ops = %d, want 20", stats.ops)
	}
	if stats.failures != 5 {
		t.Fatalf("failures = %d, want 5", stats.failures)
	}
}
