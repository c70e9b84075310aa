package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var hsSecret = []byte("0123456789abcdef0123456789abcdef")

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newHSManager(t *testing.T, c *clock) *Manager {
	t.Helper()
	m, err := NewManager(Config{TTL: 24 * time.Hour, SigningMethod: MethodHS256, PrivateKey: hsSecret, Now: c.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueParseRoundTrip(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newHSManager(t, c)

	tok, err := m.Issue("a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Identity() != "a@x.com" {
		t.Fatalf("unexpected identity %q", claims.Identity())
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 24*time.Hour {
		t.Fatalf("expected 24h window, got %v", got)
	}
}

func TestExpiryWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &clock{now: start}
	m := newHSManager(t, c)

	tok, err := m.Issue("a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	c.now = start.Add(23*time.Hour + 59*time.Minute)
	if _, err := m.Parse(tok); err != nil {
		t.Fatalf("expected token valid at T+23h59m: %v", err)
	}

	c.now = start.Add(24*time.Hour + time.Minute)
	if _, err := m.Parse(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired at T+24h01m, got %v", err)
	}
}

func TestTamperedSignature(t *testing.T) {
	c := &clock{now: time.Now()}
	m := newHSManager(t, c)

	tok, err := m.Issue("a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := m.Parse(tampered); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestWrongKey(t *testing.T) {
	c := &clock{now: time.Now()}
	m := newHSManager(t, c)
	other, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("ffffffffffffffffffffffffffffffff"), Now: c.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok, err := other.Issue("a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(tok); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "a@x.com",
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(hsSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Parse(token); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for wrong algorithm, got %v", err)
	}
}

func TestMalformedInputs(t *testing.T) {
	m := newHSManager(t, &clock{now: time.Now()})
	for _, in := range []string{"", "abc", "a.b.c", "....", "eyJhbGciOiJIUzI1NiJ9.e30"} {
		if _, err := m.Parse(in); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed for %q, got %v", in, err)
		}
	}
}

func TestMissingExpiryIsMalformed(t *testing.T) {
	m := newHSManager(t, &clock{now: time.Now()})
	claims := Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "a@x.com"}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(hsSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed without exp, got %v", err)
	}
}

func TestEd25519IssuerAudience(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "credgate",
		Audience:      "api",
		KeyID:         "k1",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok, err := m.Issue("a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(tok); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	wrongIssuer := Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "a@x.com",
		Issuer:    "other",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	tk := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, wrongIssuer)
	tk.Header["kid"] = "k1"
	bad, _ := tk.SignedString(priv)
	if _, err := m.Parse(bad); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong issuer to be rejected as malformed, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: hsSecret},
		{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		{TTL: time.Hour, SigningMethod: MethodEd25519},
		{TTL: time.Hour, SigningMethod: "rs256", PrivateKey: hsSecret},
		{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: hsSecret, Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}

func TestIssueRejectsEmptyIdentity(t *testing.T) {
	m := newHSManager(t, &clock{now: time.Now()})
	if _, err := m.Issue(""); err == nil {
		t.Fatal("expected empty identity to fail")
	}
}
