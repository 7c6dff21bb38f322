package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	MigrationsDir string   `mapstructure:"MIGRATIONS_DIR"`

	// LockTimeoutMS bounds per-entity lock acquisition; expired waits are
	// surfaced to callers as retryable contention errors.
	LockTimeoutMS int `mapstructure:"LOCK_TIMEOUT_MS"`

	// OrderNumberPrefix is the human-readable prefix of generated order
	// numbers, e.g. LAB-20260830-000042.
	OrderNumberPrefix string `mapstructure:"ORDER_NUMBER_PREFIX"`

	// BOMFile points at the YAML bill-of-materials mapping sample types to
	// consumed inventory items. Empty means the built-in default mapping.
	BOMFile string `mapstructure:"BOM_FILE"`

	// RequireDistinctReviewer enforces that the reviewer of a test result is
	// not the actor who entered it. Policy, off by default.
	RequireDistinctReviewer bool `mapstructure:"RESULTS_REQUIRE_DISTINCT_REVIEWER"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("LOCK_TIMEOUT_MS", 5000)
	v.SetDefault("ORDER_NUMBER_PREFIX", "LAB")
	v.SetDefault("RESULTS_REQUIRE_DISTINCT_REVIEWER", false)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("LOCK_TIMEOUT_MS")
	v.BindEnv("ORDER_NUMBER_PREFIX")
	v.BindEnv("BOM_FILE")
	v.BindEnv("RESULTS_REQUIRE_DISTINCT_REVIEWER")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// LockTimeout returns LOCK_TIMEOUT_MS as a duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMS) * time.Millisecond
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.LockTimeoutMS <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT_MS must be positive, got %d", c.LockTimeoutMS)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.OrderNumberPrefix == "" {
		return fmt.Errorf("ORDER_NUMBER_PREFIX must not be empty")
	}
	if strings.ContainsAny(c.OrderNumberPrefix, "-0123456789") {
		return fmt.Errorf("ORDER_NUMBER_PREFIX must not contain digits or dashes, got %q", c.OrderNumberPrefix)
	}
	return nil
}
