package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credgate "github.com/MrEthical07/credgate"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addConfigFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(parseFlags(t))
	require.NoError(t, err)

	defaults := credgate.DefaultConfig()
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "credgate.db", cfg.Store.DSN)
	assert.True(t, cfg.Store.AutoMigrate)
	assert.Equal(t, "log", cfg.Notifier.Kind)
	assert.Equal(t, defaults.Session.TTL, cfg.Session.TTL)
	assert.Equal(t, defaults.Password.Memory, cfg.Password.Memory)
	assert.Equal(t, defaults.Password.MinLength, cfg.Password.MinLength)
	assert.False(t, cfg.Security.MaskUnknownUser)
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: memory
log:
  level: debug
  format: text
session:
  secret: from-file-0123456789abcdef012345
  ttl: 2h
security:
  mask_unknown_user: true
`), 0o600))

	cfg, err := loadConfig(parseFlags(t, "--config", path, "--log-level", "warn"))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver, "file beats flag default")
	assert.Equal(t, "warn", cfg.Log.Level, "explicit flag beats file")
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "from-file-0123456789abcdef012345", cfg.Session.Secret)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Security.MaskUnknownUser)
	assert.Equal(t, "log", cfg.Notifier.Kind, "flag default fills what the file omits")
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown store", args: []string{"--store", "mongo"}},
		{name: "empty dsn", args: []string{"--store", "sqlite", "--dsn", ""}},
		{name: "unknown notifier", args: []string{"--notifier", "smtp"}},
		{name: "missing file", args: []string{"--config", "/nonexistent/credgate.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(parseFlags(t, tt.args...))
			require.Error(t, err)

			oopsErr, ok := oops.AsOops(err)
			require.True(t, ok)
			assert.Equal(t, "CONFIG_INVALID", oopsErr.Code())
		})
	}
}

func TestEngineConfigMapping(t *testing.T) {
	cfg, err := loadConfig(parseFlags(t,
		"--session-secret", "0123456789abcdef0123456789abcdef",
		"--session-ttl", "1h",
		"--issuer", "acme",
		"--min-password-length", "12",
		"--argon2-memory", "8192",
		"--argon2-time", "1",
		"--mask-unknown-user",
	))
	require.NoError(t, err)

	ec := cfg.engineConfig()
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), ec.Session.PrivateKey)
	assert.Equal(t, time.Hour, ec.Session.TTL)
	assert.Equal(t, "acme", ec.Session.Issuer)
	assert.Equal(t, 12, ec.Password.MinLength)
	assert.Equal(t, uint32(8192), ec.Password.Memory)
	assert.Equal(t, uint32(1), ec.Password.Time)
	assert.True(t, ec.Security.MaskUnknownUser)
	assert.True(t, ec.Audit.Enabled)
	require.NoError(t, ec.Validate())
}
