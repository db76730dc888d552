package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	SessionStoreCookie = "cookie"
	SessionStoreRedis  = "redis"

	minSessionSecretLen = 32
)

type Config struct {
	AppPort   string `env:"APP_PORT" envDefault:"5000"`
	PublicURL string `env:"PUBLIC_URL"`
	GinMode   string `env:"GIN_MODE" envDefault:"release"`

	GitHubClientID     string `env:"GITHUB_KEY,required"`
	GitHubClientSecret string `env:"GITHUB_SECRET,required"`

	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionStore  string        `env:"SESSION_STORE" envDefault:"cookie"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"true"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	ScriptPath string `env:"STRAP_SCRIPT_PATH" envDefault:"bin/strap.sh"`

	MetricsAddr string `env:"METRICS_ADDR"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads the configuration from the process environment.
// Missing required variables are reported as a single error.
func Load() (Config, error) {
	return LoadFrom(env.ToMap(os.Environ()))
}

// LoadFrom parses and validates the configuration from environ.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("config: SESSION_SECRET must be at least %d bytes", minSessionSecretLen)
	}

	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: unknown GIN_MODE %q", c.GinMode)
	}

	switch c.SessionStore {
	case SessionStoreCookie:
	case SessionStoreRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR is required when SESSION_STORE=redis")
		}
		if c.SessionTTL <= 0 {
			return errors.New("config: SESSION_TTL must be positive")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.SessionStore)
	}

	return nil
}

// CallbackURL is the redirect URL registered with GitHub. When PUBLIC_URL is
// unset the provider falls back to the OAuth app's configured callback.
func (c Config) CallbackURL() string {
	if c.PublicURL == "" {
		return ""
	}
	return strings.TrimRight(c.PublicURL, "/") + "/auth/github/callback"
}
