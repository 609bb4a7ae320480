// Package config loads the server configuration.
//
// PRECEDENCE (lowest to highest):
//  1. Defaults (Default)
//  2. A YAML file, if a path is given. ${VAR} references in the file are
//     expanded from the environment before parsing, so secrets can stay out
//     of the file.
//  3. Environment variables (PORT, LOG_LEVEL, DB_*, JWT_SECRET, GITHUB_*)
//
// The result is validated before it is returned, so a bad value fails at
// start-up instead of on the first request that needs it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sakif/awesome-blog/internal/db"
)

type Config struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	DB db.Config `yaml:"db"`
	// AutoMigrate applies the generated schema at start-up.
	AutoMigrate bool `yaml:"auto_migrate"`

	// JWTSecret signs session tokens. Empty disables sign-in: the blog is
	// then read-only.
	JWTSecret string `yaml:"jwt_secret"`

	GitHub GitHubConfig `yaml:"github"`
}

// GitHubConfig enables "Sign in with GitHub" when ClientID is set.
type GitHubConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

func (g GitHubConfig) Enabled() bool { return g.ClientID != "" }

// Default returns a development configuration: port 8080 and a SQLite file
// under data/.
func Default() Config {
	dbCfg := db.DefaultConfig()
	dbCfg.Driver = db.DriverSQLite
	dbCfg.Database = "data/awesome-blog.db"
	return Config{
		Port:        8080,
		LogLevel:    "info",
		DB:          dbCfg,
		AutoMigrate: true,
	}
}

// Load reads the configuration from path (optional) and the process
// environment.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		expanded := os.Expand(string(data), getenv)
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if cfg.GitHub.Enabled() && cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not a number", key, v)
		}
		*dst = n
		return nil
	}

	if err := num("PORT", &cfg.Port); err != nil {
		return err
	}
	str("LOG_LEVEL", &cfg.LogLevel)
	str("DB_DRIVER", &cfg.DB.Driver)
	str("DB_HOST", &cfg.DB.Host)
	if err := num("DB_PORT", &cfg.DB.Port); err != nil {
		return err
	}
	str("DB_USER", &cfg.DB.User)
	str("DB_PASSWORD", &cfg.DB.Password)
	str("DB_NAME", &cfg.DB.Database)
	if v := getenv("DB_AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DB_AUTO_MIGRATE=%q is not a boolean", v)
		}
		cfg.AutoMigrate = b
	}
	str("JWT_SECRET", &cfg.JWTSecret)
	str("GITHUB_CLIENT_ID", &cfg.GitHub.ClientID)
	str("GITHUB_CLIENT_SECRET", &cfg.GitHub.ClientSecret)
	str("GITHUB_CALLBACK_URL", &cfg.GitHub.CallbackURL)
	return nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: port %d out of range", c.Port))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.DB.Driver {
	case db.DriverMySQL, db.DriverPostgres, db.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("config: unsupported db driver %q", c.DB.Driver))
	}
	if c.DB.Database == "" {
		errs = append(errs, errors.New("config: db name is required"))
	}
	if c.GitHub.Enabled() && c.GitHub.ClientSecret == "" {
		errs = append(errs, errors.New("config: github client secret is required when client id is set"))
	}
	if c.GitHub.Enabled() && c.JWTSecret == "" {
		errs = append(errs, errors.New("config: github sign-in needs a jwt secret"))
	}
	return errors.Join(errs...)
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
}
