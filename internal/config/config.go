// internal/config/config.go
//
// Runtime configuration for the CLI and the HTTP server.
// Resolution order (later wins):
//   1. Built-in defaults.
//   2. Optional YAML file (path from --config or GUESS_CONFIG).
//   3. Environment variables (a .env file is loaded into the environment by main).
//
// Environment variables:
//   LOG_LEVEL, PORT, DB_PATH, JWT_SECRET, JWT_EXPIRES_DAYS, COOKIE_NAME,
//   CLIENT_ORIGIN, DAILY_SALT, APP_ENV, GUESS_LOW, GUESS_HIGH

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jtsiddons/guessing-game/internal/game"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel       string     `yaml:"log_level"`
	Port           string     `yaml:"port"`
	DBPath         string     `yaml:"db_path"`
	JWTSecret      string     `yaml:"jwt_secret"`
	JWTExpiresDays int        `yaml:"jwt_expires_days"`
	CookieName     string     `yaml:"cookie_name"`
	ClientOrigin   string     `yaml:"client_origin"`
	DailySalt      string     `yaml:"daily_salt"`
	Env            string     `yaml:"env"`
	Range          game.Range `yaml:"range"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		LogLevel:       "info",
		Port:           "5175",
		DBPath:         "./data/guess.db",
		JWTSecret:      "dev_secret_change_me",
		JWTExpiresDays: 14,
		CookieName:     "guess_token",
		ClientOrigin:   "http://localhost:5173",
		DailySalt:      "local_dev_salt",
		Env:            "development",
		Range:          game.DefaultRange,
	}
}

// Production reports whether cookies should be Secure/SameSite=None.
func (c Config) Production() bool { return c.Env == "production" }

// Load resolves defaults, then path (if non-empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("GUESS_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if err := c.Range.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.JWTExpiresDays <= 0 {
		return fmt.Errorf("%w: jwt_expires_days must be positive", ErrInvalidConfig)
	}
	if c.Production() {
		def := Default()
		if c.JWTSecret == "" || c.JWTSecret == def.JWTSecret {
			return fmt.Errorf("%w: JWT_SECRET must be set in production", ErrInvalidConfig)
		}
		// the daily secret is derivable from a known salt
		if c.DailySalt == "" || c.DailySalt == def.DailySalt {
			return fmt.Errorf("%w: DAILY_SALT must be set in production", ErrInvalidConfig)
		}
	}
	return nil
}

func applyEnv(c *Config) error {
	setStr(&c.LogLevel, "LOG_LEVEL")
	setStr(&c.Port, "PORT")
	setStr(&c.DBPath, "DB_PATH")
	setStr(&c.JWTSecret, "JWT_SECRET")
	setStr(&c.CookieName, "COOKIE_NAME")
	setStr(&c.ClientOrigin, "CLIENT_ORIGIN")
	setStr(&c.DailySalt, "DAILY_SALT")
	setStr(&c.Env, "APP_ENV")

	if v := os.Getenv("JWT_EXPIRES_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: JWT_EXPIRES_DAYS=%q", ErrInvalidConfig, v)
		}
		c.JWTExpiresDays = n
	}
	if err := setUint32(&c.Range.Low, "GUESS_LOW"); err != nil {
		return err
	}
	return setUint32(&c.Range.High, "GUESS_HIGH")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setUint32(dst *uint32, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v)
	}
	*dst = uint32(n)
	return nil
}
