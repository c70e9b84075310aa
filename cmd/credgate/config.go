package main

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	credgate "github.com/MrEthical07/credgate"
)

type fileConfig struct {
	Store    storeConfig    `koanf:"store"`
	Redis    redisConfig    `koanf:"redis"`
	Notifier notifierConfig `koanf:"notifier"`
	Log      logConfig      `koanf:"log"`
	Session  sessionConfig  `koanf:"session"`
	Password passwordConfig `koanf:"password"`
	Security securityConfig `koanf:"security"`
	Metrics  metricsConfig  `koanf:"metrics"`
}

type storeConfig struct {
	Driver      string `koanf:"driver"`
	DSN         string `koanf:"dsn"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

type redisConfig struct {
	Addr   string `koanf:"addr"`
	Prefix string `koanf:"prefix"`
}

type notifierConfig struct {
	Kind  string `koanf:"kind"`
	Topic string `koanf:"topic"`
}

type logConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type sessionConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
	Issuer string        `koanf:"issuer"`
}

type passwordConfig struct {
	MinLength int    `koanf:"min_length"`
	Memory    uint32 `koanf:"memory"`
	Time      uint32 `koanf:"time"`
}

type securityConfig struct {
	MaskUnknownUser bool `koanf:"mask_unknown_user"`
}

type metricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// flagKeys maps each configuration flag to its koanf key. Flags missing
// here, such as --email, are command arguments and never reach the config.
var flagKeys = map[string]string{
	"store":               "store.driver",
	"dsn":                 "store.dsn",
	"auto-migrate":        "store.auto_migrate",
	"redis-addr":          "redis.addr",
	"redis-prefix":        "redis.prefix",
	"notifier":            "notifier.kind",
	"topic":               "notifier.topic",
	"log-level":           "log.level",
	"log-format":          "log.format",
	"session-secret":      "session.secret",
	"session-ttl":         "session.ttl",
	"issuer":              "session.issuer",
	"min-password-length": "password.min_length",
	"argon2-memory":       "password.memory",
	"argon2-time":         "password.time",
	"mask-unknown-user":   "security.mask_unknown_user",
	"metrics-textfile":    "metrics.textfile",
}

func addConfigFlags(fs *pflag.FlagSet) {
	defaults := credgate.DefaultConfig()

	fs.String("config", "", "YAML config file")
	fs.String("store", "sqlite", "credential store: memory, sqlite, postgres or redis")
	fs.String("dsn", "credgate.db", "sqlite path or postgres connection string")
	fs.Bool("auto-migrate", true, "apply schema migrations when the store is opened")
	fs.String("redis-addr", "localhost:6379", "redis address for the redis store and notifier")
	fs.String("redis-prefix", "cg", "redis key prefix")
	fs.String("notifier", "log", "code delivery: log or redisstream")
	fs.String("topic", "", "redis stream the redisstream notifier publishes to")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("log-format", "json", "log format: json or text")
	fs.String("session-secret", "", "HS256 session token secret, at least 32 bytes")
	fs.Duration("session-ttl", defaults.Session.TTL, "session token lifetime")
	fs.String("issuer", "credgate", "session token issuer")
	fs.Int("min-password-length", defaults.Password.MinLength, "minimum password length")
	fs.Uint32("argon2-memory", defaults.Password.Memory, "argon2id memory in KiB")
	fs.Uint32("argon2-time", defaults.Password.Time, "argon2id iterations")
	fs.Bool("mask-unknown-user", defaults.Security.MaskUnknownUser, "report unknown emails on login as invalid credentials")
	fs.String("metrics-textfile", "", "write Prometheus metrics to this file after each command")
}

// loadConfig layers the YAML file named by --config and then the flags.
// Flag defaults apply only where the file is silent.
func loadConfig(fs *pflag.FlagSet) (fileConfig, error) {
	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fileConfig{}, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
	}

	flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(flags, nil); err != nil {
		return fileConfig{}, oops.Code("CONFIG_INVALID").With("operation", "load flags").Wrap(err)
	}

	var cfg fileConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fileConfig{}, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}
	return cfg, cfg.validate()
}

func (c fileConfig) validate() error {
	switch c.Store.Driver {
	case "memory", "redis":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return oops.Code("CONFIG_INVALID").With("driver", c.Store.Driver).Errorf("store dsn is required")
		}
	default:
		return oops.Code("CONFIG_INVALID").Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Notifier.Kind {
	case "log", "redisstream":
	default:
		return oops.Code("CONFIG_INVALID").Errorf("unknown notifier %q", c.Notifier.Kind)
	}
	return nil
}

// engineConfig maps the CLI settings onto the engine defaults.
func (c fileConfig) engineConfig() credgate.Config {
	cfg := credgate.DefaultConfig()
	cfg.Session.PrivateKey = []byte(c.Session.Secret)
	cfg.Session.TTL = c.Session.TTL
	cfg.Session.Issuer = c.Session.Issuer
	cfg.Password.MinLength = c.Password.MinLength
	cfg.Password.Memory = c.Password.Memory
	cfg.Password.Time = c.Password.Time
	cfg.Security.MaskUnknownUser = c.Security.MaskUnknownUser
	cfg.Audit.Enabled = true
	return cfg
}
