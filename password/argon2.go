package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// ErrMalformedHash is returned when a stored hash is not an argon2id PHC string
// this package can verify.
var ErrMalformedHash = errors.New("malformed password hash")

var b64 = base64.RawStdEncoding

// Config holds the Argon2id cost parameters used for new hashes.
type Config struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the parameters recommended for interactive logins.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies passwords. It is safe for concurrent use.
type Argon2 struct {
	config Config
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg against the minimum cost floor and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("password memory must be >= %d KiB", minMemoryKB)
	case cfg.Time < minTimeCost:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, fmt.Errorf("password key length must be >= %d", minKeyLength)
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC encoded argon2id hash of plaintext with a fresh salt.
// Plaintext bytes are used exactly as given.
func (a *Argon2) Hash(plaintext string) (string, error) {
	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		a.config.Memory, a.config.Time, a.config.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches encoded. The comparison runs in
// constant time. A hash this package cannot decode yields ErrMalformedHash.
func (a *Argon2) Verify(plaintext, encoded string) (bool, error) {
	p, err := decode(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(plaintext), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(got, p.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the hasher's current configuration.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	p, err := decode(encoded)
	if err != nil {
		return false, err
	}
	return a.config.Memory > p.memory ||
		a.config.Time > p.time ||
		a.config.Parallelism > p.parallelism ||
		a.config.KeyLength != uint32(len(p.key)), nil
}

func decode(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version", ErrMalformedHash)
	}

	var (
		p           phc
		parallelism uint32
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &parallelism); err != nil {
		return nil, fmt.Errorf("%w: bad parameters", ErrMalformedHash)
	}
	if p.memory < minMemoryKB || p.time < minTimeCost || parallelism < uint32(minParallelism) || parallelism > 255 {
		return nil, fmt.Errorf("%w: parameters below floor", ErrMalformedHash)
	}
	p.parallelism = uint8(parallelism)

	var err error
	if p.salt, err = decodeSegment(parts[4]); err != nil || len(p.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	if p.key, err = decodeSegment(parts[5]); err != nil || len(p.key) == 0 {
		return nil, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	return &p, nil
}

// decodeSegment accepts both unpadded (PHC) and padded base64.
func decodeSegment(s string) ([]byte, error) {
	return b64.DecodeString(strings.TrimRight(s, "="))
}
