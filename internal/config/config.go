// Package config resolves the service configuration once at startup.
//
// Precedence, lowest first: defaults, YAML file, .env file, process
// environment, command-line flags (applied by the caller).
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/GL1KK/redisfirstapp/codec"
)

const (
	BackendRedis     = "redis"
	BackendBigCache  = "bigcache"
	BackendRistretto = "ristretto"
)

// Duration accepts str2duration strings ("30s", "1m", "1d") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := parseDuration(n.Value)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	HTTP  HTTP  `yaml:"http"`
	Store Store `yaml:"store"`
	Cache Cache `yaml:"cache"`
	Log   Log   `yaml:"log"`

	Telemetry Telemetry `yaml:"telemetry"`
}

type HTTP struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Store struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Cache struct {
	Backend      string   `yaml:"backend"`
	Codec        string   `yaml:"codec"`
	MaxPayload   int      `yaml:"max_payload"` // bytes; 0 disables the decode limit
	NumberTTL    Duration `yaml:"number_ttl"`
	UserTTL      Duration `yaml:"user_ttl"`
	SingleFlight bool     `yaml:"single_flight"`
	Disabled     bool     `yaml:"disabled"`
}

type Log struct {
	Backend string `yaml:"backend"` // zap, logrus, slog
	Level   string `yaml:"level"`
	// RedactKeys logs cache keys as xxhash digests.
	RedactKeys bool `yaml:"redact_keys"`
}

type Telemetry struct {
	// Endpoint is an OTLP/HTTP collector URL; empty disables tracing.
	Endpoint string `yaml:"endpoint"`
}

func Default() Config {
	return Config{
		HTTP:  HTTP{Host: "0.0.0.0", Port: 8000},
		Store: Store{Host: "localhost", Port: 6379},
		Cache: Cache{
			Backend:    BackendRedis,
			Codec:      codec.NameJSON,
			MaxPayload: 1 << 20,
			NumberTTL:  Duration(30 * time.Second),
			UserTTL:    Duration(60 * time.Second),
		},
		Log: Log{Backend: "zap", Level: "info"},
	}
}

// Load layers the YAML file at path (optional, "" skips it), the dotenv
// files (missing ones are ignored) and the environment over Default.
func Load(path string, dotenv ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "config: read %s", path)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "config: parse %s", path)
		}
	}
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, fn := range dotenv {
		// godotenv.Load never overrides variables already set in the process.
		if err := godotenv.Load(fn); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, errors.Wrapf(err, "config: load %s", fn)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, errors.Newf("%s: %q is not an integer", name, v))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(name); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, errors.Newf("%s: %q is not a boolean", name, v))
				return
			}
			*dst = b
		}
	}
	dur := func(name string, dst *Duration) {
		if v, ok := lookup(name); ok && v != "" {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "%s", name))
				return
			}
			*dst = Duration(d)
		}
	}

	str("HOST", &c.HTTP.Host)
	num("PORT", &c.HTTP.Port)

	str("REDIS_HOST", &c.Store.Host)
	num("REDIS_PORT", &c.Store.Port)
	str("REDIS_PASSWORD", &c.Store.Password)
	num("REDIS_DB", &c.Store.DB)

	str("CACHE_BACKEND", &c.Cache.Backend)
	str("CACHE_CODEC", &c.Cache.Codec)
	num("CACHE_MAX_PAYLOAD", &c.Cache.MaxPayload)
	dur("CACHE_NUMBER_TTL", &c.Cache.NumberTTL)
	dur("CACHE_USER_TTL", &c.Cache.UserTTL)
	flag("CACHE_SINGLE_FLIGHT", &c.Cache.SingleFlight)
	flag("CACHE_DISABLED", &c.Cache.Disabled)

	str("LOG_BACKEND", &c.Log.Backend)
	str("LOG_LEVEL", &c.Log.Level)
	flag("LOG_REDACT_KEYS", &c.Log.RedactKeys)

	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.Endpoint)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, errors.Newf("http port %d out of range", c.HTTP.Port))
	}
	switch c.Cache.Backend {
	case BackendRedis:
		if c.Store.Host == "" {
			errs = append(errs, errors.New("store host is required"))
		}
		if c.Store.Port <= 0 || c.Store.Port > 65535 {
			errs = append(errs, errors.Newf("store port %d out of range", c.Store.Port))
		}
		if c.Store.DB < 0 {
			errs = append(errs, errors.Newf("store db %d is negative", c.Store.DB))
		}
	case BackendBigCache, BackendRistretto:
	default:
		errs = append(errs, errors.Newf("unknown cache backend %q", c.Cache.Backend))
	}
	if _, err := codec.ByName[struct{}](c.Cache.Codec, 0); err != nil {
		errs = append(errs, err)
	}
	if c.Cache.NumberTTL <= 0 || c.Cache.UserTTL <= 0 {
		errs = append(errs, errors.New("cache ttls must be positive"))
	}
	switch strings.ToLower(c.Log.Backend) {
	case "zap", "logrus", "slog":
	default:
		errs = append(errs, errors.Newf("unknown log backend %q", c.Log.Backend))
	}
	if ep := c.Telemetry.Endpoint; ep != "" {
		if u, err := url.Parse(ep); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, errors.Newf("telemetry endpoint %q must be an http(s) URL", ep))
		}
	}
	return errors.Join(errs...)
}

// parseDuration accepts str2duration strings; a bare integer is seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration %q", s)
	}
	return d, nil
}
