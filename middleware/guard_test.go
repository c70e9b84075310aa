package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credgate "github.com/MrEthical07/credgate"
	"github.com/MrEthical07/credgate/store/memory"
)

func newEngine(t *testing.T) *credgate.Engine {
	t.Helper()
	cfg := credgate.DefaultConfig()
	cfg.Session.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := credgate.New().
		WithConfig(cfg).
		WithStore(memory.New()).
		WithNotifier(credgate.NotifierFunc(func(context.Context, string, string, credgate.ChallengeKind) error { return nil })).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func echoEmail() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := EmailFromContext(r.Context())
		if !ok {
			http.Error(w, "no identity", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(email))
	})
}

func TestGuardAcceptsValidToken(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()
	_, err := engine.Register(ctx, credgate.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "correct-password"})
	require.NoError(t, err)
	token, err := engine.Authenticate(ctx, "ann@example.com", "correct-password")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Guard(engine)(echoEmail()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ann@example.com", rec.Body.String())
}

func TestGuardRejects(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty token", header: "Bearer "},
		{name: "garbage token", header: "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Guard(engine)(echoEmail()).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

type staticValidator struct {
	email string
	err   error
}

func (v staticValidator) ValidateToken(context.Context, string) (string, error) {
	return v.email, v.err
}

func TestGuardRejectsExpiredToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	Guard(staticValidator{err: credgate.ErrTokenExpired})(echoEmail()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardNilValidator(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	Guard(nil)(echoEmail()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEmailFromContextEmpty(t *testing.T) {
	_, ok := EmailFromContext(context.Background())
	assert.False(t, ok)

	ctx := context.WithValue(context.Background(), emailContextKey{}, "")
	_, ok = EmailFromContext(ctx)
	assert.False(t, ok)
}
