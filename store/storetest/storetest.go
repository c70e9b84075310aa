// Package storetest holds the behavior every account.Store adapter must
// share. Adapter tests call Run with a factory returning an empty store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/credgate/account"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) account.Store

// Run exercises create, lookup, upsert and the atomic update contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateFindExists", func(t *testing.T) { testCreateFindExists(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("ChallengesRoundTrip", func(t *testing.T) { testChallengesRoundTrip(t, newStore(t)) })
	t.Run("SaveUpserts", func(t *testing.T) { testSaveUpserts(t, newStore(t)) })
	t.Run("SaveKeepsIdentity", func(t *testing.T) { testSaveKeepsIdentity(t, newStore(t)) })
	t.Run("UpdateAbortKeepsRecord", func(t *testing.T) { testUpdateAbort(t, newStore(t)) })
	t.Run("UpdateKeepsIdentity", func(t *testing.T) { testUpdateKeepsIdentity(t, newStore(t)) })
	t.Run("ConcurrentUpdatesSerialize", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
}

func seed(t *testing.T, s account.Store, email string) account.Record {
	t.Helper()
	rec, err := s.Create(context.Background(), account.Record{
		ID:           "id-" + email,
		Email:        email,
		Name:         "Test",
		PasswordHash: "hash-0",
	})
	require.NoError(t, err)
	return rec
}

func testCreateFindExists(t *testing.T, s account.Store) {
	ctx := context.Background()
	created := seed(t, s, "a@example.com")
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-a@example.com", got.ID)
	assert.Equal(t, "Test", got.Name)
	assert.Equal(t, "hash-0", got.PasswordHash)
	assert.False(t, got.AccountVerified)
	assert.Nil(t, got.ResetChallenge)
	assert.Nil(t, got.VerifyChallenge)

	ok, err := s.ExistsByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ExistsByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testDuplicateEmail(t *testing.T, s account.Store) {
	seed(t, s, "a@example.com")
	_, err := s.Create(context.Background(), account.Record{ID: "other", Email: "a@example.com"})
	assert.ErrorIs(t, err, account.ErrDuplicateEmail)
}

func testNotFound(t *testing.T, s account.Store) {
	ctx := context.Background()
	_, err := s.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, account.ErrNotFound)

	called := false
	_, err = s.Update(ctx, "ghost@example.com", func(*account.Record) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, account.ErrNotFound)
	assert.False(t, called)
}

func testChallengesRoundTrip(t *testing.T, s account.Store) {
	ctx := context.Background()
	seed(t, s, "a@example.com")

	_, err := s.Update(ctx, "a@example.com", func(r *account.Record) error {
		r.ResetChallenge = &account.Challenge{Code: "482913", ExpiresAtMillis: 1_700_000_900_000}
		r.VerifyChallenge = &account.Challenge{Code: "119933", ExpiresAtMillis: 1_700_086_400_000}
		return nil
	})
	require.NoError(t, err)

	got, err := s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, got.ResetChallenge)
	require.NotNil(t, got.VerifyChallenge)
	assert.Equal(t, account.Challenge{Code: "482913", ExpiresAtMillis: 1_700_000_900_000}, *got.ResetChallenge)
	assert.Equal(t, account.Challenge{Code: "119933", ExpiresAtMillis: 1_700_086_400_000}, *got.VerifyChallenge)

	_, err = s.Update(ctx, "a@example.com", func(r *account.Record) error {
		r.VerifyChallenge = nil
		r.AccountVerified = true
		return nil
	})
	require.NoError(t, err)

	got, err = s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, got.AccountVerified)
	assert.Nil(t, got.VerifyChallenge)
	assert.NotNil(t, got.ResetChallenge)
}

func testSaveUpserts(t *testing.T, s account.Store) {
	ctx := context.Background()
	_, err := s.Save(ctx, account.Record{ID: "u1", Email: "a@example.com", Name: "First", PasswordHash: "h1"})
	require.NoError(t, err)

	_, err = s.Save(ctx, account.Record{ID: "u1", Email: "a@example.com", Name: "Second", PasswordHash: "h2", AccountVerified: true})
	require.NoError(t, err)

	got, err := s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Name)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.True(t, got.AccountVerified)
}

func testSaveKeepsIdentity(t *testing.T, s account.Store) {
	ctx := context.Background()
	created, err := s.Create(ctx, account.Record{ID: "u1", Email: "a@example.com", Name: "First", PasswordHash: "h1"})
	require.NoError(t, err)

	saved, err := s.Save(ctx, account.Record{
		ID:           "u2",
		Email:        "a@example.com",
		Name:         "Second",
		PasswordHash: "h2",
		CreatedAt:    created.CreatedAt.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", saved.ID)
	assert.Equal(t, "Second", saved.Name)
	assert.WithinDuration(t, created.CreatedAt, saved.CreatedAt, time.Millisecond)

	got, err := s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
}

func testUpdateAbort(t *testing.T, s account.Store) {
	ctx := context.Background()
	seed(t, s, "a@example.com")

	boom := errors.New("boom")
	_, err := s.Update(ctx, "a@example.com", func(r *account.Record) error {
		r.PasswordHash = "changed"
		r.ResetChallenge = &account.Challenge{Code: "123456", ExpiresAtMillis: 1}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-0", got.PasswordHash)
	assert.Nil(t, got.ResetChallenge)
}

func testUpdateKeepsIdentity(t *testing.T, s account.Store) {
	ctx := context.Background()
	seed(t, s, "a@example.com")

	out, err := s.Update(ctx, "a@example.com", func(r *account.Record) error {
		r.ID = "hijacked"
		r.Email = "b@example.com"
		r.Name = "Renamed"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "id-a@example.com", out.ID)
	assert.Equal(t, "a@example.com", out.Email)
	assert.Equal(t, "Renamed", out.Name)

	ok, err := s.ExistsByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testConcurrentUpdates(t *testing.T, s account.Store) {
	ctx := context.Background()
	seed(t, s, "a@example.com")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "a@example.com", func(r *account.Record) error {
				var n int
				if _, err := fmt.Sscanf(r.PasswordHash, "hash-%d", &n); err != nil {
					return err
				}
				r.PasswordHash = fmt.Sprintf("hash-%d", n+1)
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("hash-%d", workers), got.PasswordHash)
}
