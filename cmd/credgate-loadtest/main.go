package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	credgate "github.com/MrEthical07/credgate"
	"github.com/MrEthical07/credgate/account"
	storeredis "github.com/MrEthical07/credgate/store/redis"
)

const loadSecret = "loadtest-secret-0123456789abcdef"

func main() {
	var (
		accounts    = flag.Int("accounts", 10000, "number of verified accounts to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "cg", "account key prefix")
		sharedLock  = flag.Bool("shared-lock", true, "serialize sends through the redis lock instead of in-process")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := storeredis.New(client, storeredis.Config{Prefix: *prefix})

	cfg := credgate.DefaultConfig()
	cfg.Session.PrivateKey = []byte(loadSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	var delivered atomic.Int64
	b := credgate.New().
		WithConfig(cfg).
		WithStore(store).
		WithNotifier(credgate.NotifierFunc(func(context.Context, string, string, credgate.ChallengeKind) error {
			delivered.Add(1)
			return nil
		}))
	if *sharedLock {
		b.WithSendLocker(storeredis.NewLocker(client, storeredis.LockerConfig{Prefix: *prefix}))
	}
	engine, err := b.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	emails := make([]string, *accounts)
	for i := range emails {
		emails[i] = fmt.Sprintf("user-%d@load.test", i)
		_, err := store.Create(ctx, account.Record{
			ID:              fmt.Sprintf("id-%d", i),
			Email:           emails[i],
			Name:            "load",
			PasswordHash:    "unused",
			AccountVerified: true,
		})
		if err != nil && !errors.Is(err, account.ErrDuplicateEmail) {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	// A handful of real logins supplies tokens for the validate phase.
	tokens, err := issueTokens(ctx, engine, 16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	validateStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := engine.ValidateToken(ctx, tokens[r.Intn(len(tokens))])
		return err
	})
	sendStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		return engine.SendResetCode(ctx, emails[r.Intn(len(emails))])
	})
	hot := emails[0]
	contentionStats := runPhase(*ops/10+1, *concurrency, func(*rand.Rand) error {
		return engine.SendResetCode(ctx, hot)
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("reset-send", sendStats)
	printStats("reset-send-hot-key", contentionStats)
	fmt.Printf("delivered=%d\n", delivered.Load())
}

func issueTokens(ctx context.Context, engine *credgate.Engine, n int) ([]string, error) {
	tokens := make([]string, 0, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("login-%d@load.test", i)
		_, err := engine.Register(ctx, credgate.RegisterRequest{Name: "load", Email: email, Password: "load-password"})
		if err != nil && !errors.Is(err, credgate.ErrDuplicateEmail) {
			return nil, err
		}
		token, err := engine.Authenticate(ctx, email, "load-password")
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
