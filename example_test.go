package credgate_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	credgate "github.com/MrEthical07/credgate"
	"github.com/MrEthical07/credgate/store/memory"
)

func exampleConfig() credgate.Config {
	cfg := credgate.DefaultConfig()
	cfg.Session.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

// Example walks one account through registration, email verification and
// login.
func Example() {
	ctx := context.Background()

	var delivered string
	engine, err := credgate.New().
		WithConfig(exampleConfig()).
		WithStore(memory.New()).
		WithNotifier(credgate.NotifierFunc(func(_ context.Context, email, code string, purpose credgate.ChallengeKind) error {
			delivered = code
			fmt.Printf("%s code for %s\n", purpose, email)
			return nil
		})).
		WithCodeSource(func() (string, error) { return "119933", nil }).
		Build()
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	if _, err := engine.Register(ctx, credgate.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "correct-password"}); err != nil {
		panic(err)
	}
	if err := engine.SendVerificationCode(ctx, "ann@example.com"); err != nil {
		panic(err)
	}
	if err := engine.ConfirmVerification(ctx, "ann@example.com", delivered); err != nil {
		panic(err)
	}

	token, err := engine.Authenticate(ctx, "ann@example.com", "correct-password")
	if err != nil {
		panic(err)
	}
	email, err := engine.ValidateToken(ctx, token)
	if err != nil {
		panic(err)
	}
	fmt.Println("token for", email)
	// Output:
	// verify code for ann@example.com
	// token for ann@example.com
}

// ExampleEngine_CompleteReset shows an expired reset code being rejected.
func ExampleEngine_CompleteReset() {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store := memory.New()
	engine, err := credgate.New().
		WithConfig(exampleConfig()).
		WithStore(store).
		WithNotifier(credgate.NotifierFunc(func(context.Context, string, string, credgate.ChallengeKind) error { return nil })).
		WithClock(func() time.Time { return now }).
		WithCodeSource(func() (string, error) { return "482913", nil }).
		Build()
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	if _, err := engine.Register(ctx, credgate.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "correct-password"}); err != nil {
		panic(err)
	}
	if _, err := store.Update(ctx, "ann@example.com", func(rec *credgate.UserRecord) error {
		rec.AccountVerified = true
		return nil
	}); err != nil {
		panic(err)
	}
	if err := engine.SendResetCode(ctx, "ann@example.com"); err != nil {
		panic(err)
	}

	now = now.Add(16 * time.Minute)
	err = engine.CompleteReset(ctx, "ann@example.com", "482913", "another-password")
	fmt.Println(errors.Is(err, credgate.ErrChallengeExpired))
	// Output: true
}
