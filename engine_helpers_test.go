package credgate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/credgate/store/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentCode struct {
	email   string
	code    string
	purpose ChallengeKind
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (n *recordingNotifier) SendChallengeCode(_ context.Context, email, code string, purpose ChallengeKind) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentCode{email: email, code: code, purpose: purpose})
	return nil
}

func (n *recordingNotifier) failWith(err error) {
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *recordingNotifier) last(t *testing.T) sentCode {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("expected a delivered code")
	}
	return n.sent[len(n.sent)-1]
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.PrivateKey = testSecret
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type testEngine struct {
	*Engine
	store    *memory.Store
	notifier *recordingNotifier
	clock    *testClock
}

func newTestEngine(t *testing.T, configure ...func(*Builder)) testEngine {
	t.Helper()

	te := testEngine{
		store:    memory.New(),
		notifier: &recordingNotifier{},
		clock:    newTestClock(),
	}
	b := New().
		WithConfig(testConfig()).
		WithStore(te.store).
		WithNotifier(te.notifier).
		WithClock(te.clock.Now)
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	te.Engine = engine
	return te
}

func fixedCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return "", errors.New("no codes left")
		}
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
}

func (te testEngine) register(t *testing.T, email, password string) Profile {
	t.Helper()
	p, err := te.Register(context.Background(), RegisterRequest{Name: "Test User", Email: email, Password: password})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return p
}
