package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/credgate/account"
	"github.com/MrEthical07/credgate/store/storetest"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func newClientAt(t *testing.T, addr string) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) account.Store {
		_, rdb := newTestRedis(t)
		return New(rdb, Config{})
	})
}

func TestKeyLayout(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := New(rdb, Config{Prefix: "test"})

	_, err := s.Create(context.Background(), account.Record{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:acct:a@example.com"))
	assert.Zero(t, mr.TTL("test:acct:a@example.com"), "account records must not expire")
}

func TestCodecRoundTrip(t *testing.T) {
	in := account.Record{
		ID:              "u1",
		Email:           "a@example.com",
		Name:            "Ä Person",
		PasswordHash:    "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$a2V5",
		AccountVerified: true,
		ResetChallenge:  &account.Challenge{Code: "482913", ExpiresAtMillis: 42},
	}
	data, err := encodeRecord(in)
	require.NoError(t, err)

	out, err := decodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.PasswordHash, out.PasswordHash)
	assert.True(t, out.AccountVerified)
	assert.Equal(t, in.ResetChallenge, out.ResetChallenge)
	assert.Nil(t, out.VerifyChallenge)
}

func TestCorruptRecord(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := New(rdb, Config{})
	require.NoError(t, mr.Set("cg:acct:a@example.com", "\x09garbage"))

	_, err := s.FindByEmail(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, errCorruptRecord)

	_, err = s.Update(context.Background(), "a@example.com", func(*account.Record) error { return nil })
	assert.ErrorIs(t, err, errCorruptRecord)
}

func TestUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := New(rdb, Config{})
	mr.Close()

	_, err := s.FindByEmail(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.Update(context.Background(), "a@example.com", func(*account.Record) error { return nil })
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCanceledContext(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := New(rdb, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FindByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}
