package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cross-mapper strategies selectable via CROSSMAP_MODE.
const (
	CrossMapSimulated = "simulated"
	CrossMapWHO       = "who"
)

type Config struct {
	Port          string        `mapstructure:"PORT"`
	Env           string        `mapstructure:"ENV"`
	ESHost        string        `mapstructure:"ES_HOST"`
	ESIndex       string        `mapstructure:"ES_INDEX"`
	DataDir       string        `mapstructure:"DATA_DIR"`
	DatabaseURL   string        `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins   []string      `mapstructure:"CORS_ORIGINS"`
	NamasteSystem string        `mapstructure:"NAMASTE_SYSTEM"`
	TM2System     string        `mapstructure:"TM2_SYSTEM"`
	WHOBaseURL    string        `mapstructure:"WHO_BASE_URL"`
	CrossMapMode  string        `mapstructure:"CROSSMAP_MODE"`
	CrossMapLimit int           `mapstructure:"CROSSMAP_LIMIT"`
	SearchTimeout time.Duration `mapstructure:"SEARCH_TIMEOUT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("ES_HOST", "http://localhost:9200")
	v.SetDefault("ES_INDEX", "namaste_terms")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("NAMASTE_SYSTEM", "https://namaste.ayush.gov.in/codesystem/NAMASTE")
	v.SetDefault("TM2_SYSTEM", "https://icd.who.int/tm2")
	v.SetDefault("WHO_BASE_URL", "https://id.who.int/icd/release/11")
	v.SetDefault("CROSSMAP_MODE", CrossMapSimulated)
	v.SetDefault("CROSSMAP_LIMIT", 200)
	v.SetDefault("SEARCH_TIMEOUT", "5s")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("ES_HOST")
	v.BindEnv("ES_INDEX")
	v.BindEnv("DATA_DIR")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("NAMASTE_SYSTEM")
	v.BindEnv("TM2_SYSTEM")
	v.BindEnv("WHO_BASE_URL")
	v.BindEnv("CROSSMAP_MODE")
	v.BindEnv("CROSSMAP_LIMIT")
	v.BindEnv("SEARCH_TIMEOUT")

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

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// HasDatabase reports whether a Postgres provenance store is configured.
// The service runs index-only when DATABASE_URL is unset.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.ESHost == "" {
		return fmt.Errorf("ES_HOST is required")
	}
	if c.ESIndex == "" {
		return fmt.Errorf("ES_INDEX is required")
	}
	if c.NamasteSystem == "" {
		return fmt.Errorf("NAMASTE_SYSTEM is required")
	}
	switch c.CrossMapMode {
	case CrossMapSimulated:
	case CrossMapWHO:
		if c.WHOBaseURL == "" {
			return fmt.Errorf("WHO_BASE_URL is required when CROSSMAP_MODE is %q", CrossMapWHO)
		}
	default:
		return fmt.Errorf("CROSSMAP_MODE must be %q or %q, got %q", CrossMapSimulated, CrossMapWHO, c.CrossMapMode)
	}
	if c.CrossMapLimit <= 0 || c.CrossMapLimit > 200 {
		return fmt.Errorf("CROSSMAP_LIMIT must be in [1,200], got %d", c.CrossMapLimit)
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("SEARCH_TIMEOUT must be positive")
	}
	return nil
}
