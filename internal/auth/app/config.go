package app

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"

	"github.com/aussiebroadwan/chambers/pkg/httpx"
	"github.com/aussiebroadwan/chambers/pkg/jwtx"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("app: invalid configuration")

// Config is read once at startup and not mutated afterwards. Services receive
// the values they need explicitly.
type Config struct {
	SecretKey             string `env:"AUTH_SECRET_KEY"`
	Algorithm             string `env:"AUTH_ALGORITHM"                envDefault:"HS256"`
	AccessTokenTTLMinutes int    `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES" envDefault:"15"`
	Issuer                string `env:"AUTH_ISSUER"                   envDefault:"chambers-auth"`
	PasswordCost          int    `env:"AUTH_PASSWORD_COST"            envDefault:"12"`
	BootstrapToken        string `env:"BOOTSTRAP_TOKEN"` // empty disables /v1/bootstrap

	DatabaseDriver string `env:"AUTH_DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseFile   string `env:"AUTH_DATABASE_FILE"   envDefault:"auth.db"`
	DatabaseURL    string `env:"AUTH_DATABASE_URL"`

	// RedisAddr switches rate limiting to a shared Redis counter.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	Env                  string        `env:"ENV"                   envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL"             envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT"            envDefault:"json"`
	Port                 int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
	CORSAllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS"  envDefault:"http://localhost:3000,http://localhost:3001" envSeparator:","`

	// ExpiredInviteRetention is how long an expired invite keeps answering
	// "expired" before housekeeping closes it.
	ExpiredInviteRetention time.Duration `env:"HOUSEKEEPING_EXPIRED_RETENTION" envDefault:"720h"`

	RateLimits RateLimits `envPrefix:"RATELIMIT_"`
}

// RateLimits overrides the built-in limit profiles, read from
// RATELIMIT_{STRICT,MODERATE,LENIENT,PUBLIC}_{REQUESTS,WINDOW_SEC,BURST}.
type RateLimits struct {
	Strict   RateLimitOverride `envPrefix:"STRICT_"`
	Moderate RateLimitOverride `envPrefix:"MODERATE_"`
	Lenient  RateLimitOverride `envPrefix:"LENIENT_"`
	Public   RateLimitOverride `envPrefix:"PUBLIC_"`
}

// RateLimitOverride replaces the non-zero fields of one profile.
type RateLimitOverride struct {
	Requests  int `env:"REQUESTS"`
	WindowSec int `env:"WINDOW_SEC"`
	Burst     int `env:"BURST"`
}

func (o RateLimitOverride) apply(base httpx.RateLimitConfig) httpx.RateLimitConfig {
	if o.Requests > 0 {
		base.RequestsPerWindow = o.Requests
	}
	if o.WindowSec > 0 {
		base.Window = time.Duration(o.WindowSec) * time.Second
	}
	if o.Burst > 0 {
		base.Burst = o.Burst
	}
	return base
}

// Profiles applies the overrides to httpx.DefaultRateLimitProfiles.
func (r RateLimits) Profiles() httpx.RateLimitProfiles {
	p := httpx.DefaultRateLimitProfiles()
	p.Strict = r.Strict.apply(p.Strict)
	p.Moderate = r.Moderate.apply(p.Moderate)
	p.Lenient = r.Lenient.apply(p.Lenient)
	p.Public = r.Public.apply(p.Public)
	return p
}

// LoadConfig reads the process environment and validates the result.
func LoadConfig() (Config, error) {
	return parseConfig(env.Options{})
}

// LoadConfigFrom reads configuration from vars instead of the process
// environment.
func LoadConfigFrom(vars map[string]string) (Config, error) {
	return parseConfig(env.Options{Environment: vars})
}

func parseConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AccessTokenTTL is the session lifetime as a duration.
func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// Validate reports every problem at once, each wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch {
	case c.SecretKey == "":
		bad("AUTH_SECRET_KEY is required")
	case len(c.SecretKey) < jwtx.MinSecretLength:
		bad("AUTH_SECRET_KEY must be at least %d bytes", jwtx.MinSecretLength)
	}
	if !slices.Contains([]string{"HS256", "HS384", "HS512"}, c.Algorithm) {
		bad("AUTH_ALGORITHM %q is not supported", c.Algorithm)
	}
	if c.AccessTokenTTLMinutes <= 0 {
		bad("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive")
	}
	if c.Issuer == "" {
		bad("AUTH_ISSUER must not be empty")
	}
	if c.PasswordCost < bcrypt.MinCost || c.PasswordCost > bcrypt.MaxCost {
		bad("AUTH_PASSWORD_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			bad("AUTH_DATABASE_FILE is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			bad("AUTH_DATABASE_URL is required for the postgres driver")
		}
	default:
		bad("AUTH_DATABASE_DRIVER must be %q or %q", DriverSQLite, DriverPostgres)
	}

	if c.Port <= 0 || c.Port > 65535 {
		bad("PORT %d is out of range", c.Port)
	}
	if c.ShutdownGracePeriod <= 0 {
		bad("SHUTDOWN_GRACE_PERIOD must be positive")
	}
	if c.HousekeepingInterval <= 0 {
		bad("HOUSEKEEPING_INTERVAL must be positive")
	}
	if c.ExpiredInviteRetention < 0 {
		bad("HOUSEKEEPING_EXPIRED_RETENTION must not be negative")
	}

	for name, o := range map[string]RateLimitOverride{
		"STRICT":   c.RateLimits.Strict,
		"MODERATE": c.RateLimits.Moderate,
		"LENIENT":  c.RateLimits.Lenient,
		"PUBLIC":   c.RateLimits.Public,
	} {
		if o.Requests < 0 || o.WindowSec < 0 || o.Burst < 0 {
			bad("RATELIMIT_%s_* values must not be negative", name)
		}
	}

	return errors.Join(errs...)
}
