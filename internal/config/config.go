// Package config loads runtime configuration from an optional config file and
// the environment.
//
// Precedence (highest first): environment variables, config.yaml, defaults.
// A .env file, if present, is loaded into the environment by the caller
// (cmd/server) before Load runs.
package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppEnv   string         `mapstructure:"appEnv"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowedOrigins"` // comma separated
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	Path   string `mapstructure:"path"`   // sqlite file or ":memory:"
	URL    string `mapstructure:"url"`    // postgres connection string
}

// JWTConfig holds the token binding. ExpiresIn accepts a Go duration
// ("90m"), a day count ("7d") or a number of seconds ("3600").
type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	Audience  string `mapstructure:"audience"`
	Issuer    string `mapstructure:"issuer"`
	ExpiresIn string `mapstructure:"expiresIn"`
}

type AuthConfig struct {
	BcryptCost     int `mapstructure:"bcryptCost"`
	LoginRateLimit int `mapstructure:"loginRateLimit"` // attempts per minute per IP
}

type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	From string `mapstructure:"from"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"appEnv":                "APP_ENV",
	"server.port":           "PORT",
	"server.allowedOrigins": "ALLOWED_ORIGINS",
	"database.driver":       "DATABASE_DRIVER",
	"database.path":         "DB_PATH",
	"database.url":          "DATABASE_URL",
	"jwt.secret":            "JWT_SECRET",
	"jwt.audience":          "JWT_TOKEN_AUDIENCE",
	"jwt.issuer":            "JWT_TOKEN_ISSUER",
	"jwt.expiresIn":         "JWT_TOKEN_EXPIRES_IN",
	"auth.bcryptCost":       "BCRYPT_COST",
	"auth.loginRateLimit":   "LOGIN_RATE_LIMIT",
	"smtp.host":             "SMTP_HOST",
	"smtp.port":             "SMTP_PORT",
	"smtp.user":             "SMTP_USER",
	"smtp.pass":             "SMTP_PASS",
	"smtp.from":             "SMTP_FROM",
}

// Load reads configuration and validates it. A missing config file is not
// an error; a missing JWT setting is.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("appEnv", "development")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.allowedOrigins", "*")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/contacts.db")
	v.SetDefault("auth.bcryptCost", 12)
	v.SetDefault("auth.loginRateLimit", 10)
	v.SetDefault("smtp.port", 587)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("config: binding %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	var missing []string
	if c.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.JWT.Audience == "" {
		missing = append(missing, "JWT_TOKEN_AUDIENCE")
	}
	if c.JWT.Issuer == "" {
		missing = append(missing, "JWT_TOKEN_ISSUER")
	}
	if c.JWT.ExpiresIn == "" {
		missing = append(missing, "JWT_TOKEN_EXPIRES_IN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}

	if _, err := ParseExpiresIn(c.JWT.ExpiresIn); err != nil {
		return err
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("config: DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	return nil
}

// TokenTTL returns the parsed token lifetime. Validate guarantees it parses.
func (c Config) TokenTTL() time.Duration {
	d, _ := ParseExpiresIn(c.JWT.ExpiresIn)
	return d
}

// IsDevelopment reports whether the app runs in a local/dev environment.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "" || c.AppEnv == "development" || c.AppEnv == "dev"
}

// Origins splits the allowed CORS origins list.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Largest second and day counts that still fit in a time.Duration.
const (
	maxLifetimeSeconds = math.MaxInt64 / int64(time.Second)
	maxLifetimeDays    = math.MaxInt64 / int64(24*time.Hour)
)

// ParseExpiresIn converts a token lifetime setting into a duration.
//
//	"3600" -> 1h (plain integers are seconds)
//	"15m"  -> 15m
//	"7d"   -> 168h
func ParseExpiresIn(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("config: token lifetime is empty")
	}

	var d time.Duration
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if secs > maxLifetimeSeconds {
			return 0, fmt.Errorf("config: token lifetime %q is too large", raw)
		}
		d = time.Duration(secs) * time.Second
	} else if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("config: invalid token lifetime %q", raw)
		}
		if n > maxLifetimeDays {
			return 0, fmt.Errorf("config: token lifetime %q is too large", raw)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else {
		d, err = time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("config: invalid token lifetime %q: %w", raw, err)
		}
	}

	if d <= 0 {
		return 0, fmt.Errorf("config: token lifetime must be positive, got %q", raw)
	}
	return d, nil
}
