package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []Event
}

func (s *blockingSink) Emit(_ context.Context, e Event) {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, e)
	s.mu.Unlock()
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{Type: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherStampsAndDelivers(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, sink)
	d.Emit(context.Background(), Event{Type: "login_success", Email: "a@x.com", Success: true})
	d.Close()

	select {
	case ev := <-sink.Events():
		if ev.ID == "" || ev.Timestamp.IsZero() {
			t.Fatalf("expected id and timestamp to be stamped: %+v", ev)
		}
		if ev.Type != "login_success" {
			t.Fatalf("unexpected event type %q", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{Type: "e"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected some events to be dropped")
	}

	close(sink.release)
	d.Close()
}

func TestCloseFlushesBuffer(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)
	for i := 0; i < 8; i++ {
		d.Emit(context.Background(), Event{Type: "e"})
	}
	d.Close()
	d.Close()

	if got := len(sink.Events()); got != 8 {
		t.Fatalf("expected 8 flushed events, got %d", got)
	}

	d.Emit(context.Background(), Event{Type: "late"})
	if got := len(sink.Events()); got != 8 {
		t.Fatalf("emit after close must be ignored, got %d events", got)
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	s.Emit(context.Background(), Event{ID: "01", Type: "reset_code_sent", Success: true})

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Type != "reset_code_sent" {
		t.Fatalf("unexpected type %q", decoded.Type)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewSlogSink(logger)

	s.Emit(context.Background(), Event{Type: "login_failure", Email: "a@x.com", Error: "credentials_invalid"})
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "error=credentials_invalid") {
		t.Fatalf("unexpected slog output: %s", out)
	}
}
