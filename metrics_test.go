package credgate

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)
	if m.Value(MetricLoginSuccess) != 0 || m.Enabled() {
		t.Fatal("nil metrics must record nothing")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricResetCodeSent)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricResetCodeSent); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		500 * time.Microsecond,
		2 * time.Millisecond,
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		time.Second,
	}
	for _, d := range observations {
		m.Observe(MetricValidateLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricValidateLatency]
	if len(buckets) != len(HistogramBounds())+1 {
		t.Fatalf("expected %d buckets, got %d", len(HistogramBounds())+1, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestEngineCountsWorkflowOutcomes(t *testing.T) {
	te := newTestEngine(t, func(b *Builder) {
		b.WithCodeSource(fixedCodes("101010", "202020"))
		b.WithLatencyHistograms(true)
	})
	ctx := context.Background()
	te.register(t, "erin@example.com", "correct-password")

	_ = te.SendVerificationCode(ctx, "erin@example.com")
	_ = te.ConfirmVerification(ctx, "erin@example.com", "000000")
	_ = te.SendResetCode(ctx, "erin@example.com")
	_ = te.CheckResetCode(ctx, "erin@example.com", "202020")
	_ = te.CompleteReset(ctx, "erin@example.com", "202020", "fresh-password")
	_, _ = te.ValidateToken(ctx, "garbage")

	snap := te.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricAccountCreated:       1,
		MetricVerificationCodeSent: 1,
		MetricVerificationFailure:  1,
		MetricResetCodeSent:        1,
		MetricResetCheckSuccess:    1,
		MetricResetSuccess:         1,
		MetricTokenInvalid:         1,
	}
	for id, v := range want {
		if snap.Counters[id] != v {
			t.Fatalf("metric %d expected %d, got %d", id, v, snap.Counters[id])
		}
	}

	var total uint64
	for _, v := range snap.Histograms[MetricValidateLatency] {
		total += v
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
}

func TestValidateLatencyUsesEngineClock(t *testing.T) {
	var (
		mu  sync.Mutex
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	)
	step := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(40 * time.Millisecond)
		return now
	}

	te := newTestEngine(t, func(b *Builder) {
		b.WithClock(step)
		b.WithLatencyHistograms(true)
	})
	_, _ = te.ValidateToken(context.Background(), "garbage")

	buckets := te.MetricsSnapshot().Histograms[MetricValidateLatency]
	if len(buckets) == 0 {
		t.Fatal("expected latency buckets")
	}
	if buckets[0] != 0 {
		t.Fatalf("expected latency from the engine clock, got %d fast observations", buckets[0])
	}
	var total uint64
	for _, v := range buckets {
		total += v
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
}
