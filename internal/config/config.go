// Package config loads runtime settings from flags, environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. IZPOSOJA_ADDR.
const EnvPrefix = "IZPOSOJA"

// Keys.
const (
	KeyDB             = "db"
	KeyAddr           = "addr"
	KeyLog            = "log"
	KeyAdminUser      = "admin_user"
	KeyLoanPeriodDays = "loan_period_days"
	KeyJWTSecret      = "jwt_secret"
)

// Config holds the resolved settings.
type Config struct {
	DB             string `mapstructure:"db"`
	Addr           string `mapstructure:"addr"`
	Log            string `mapstructure:"log"`
	AdminUser      string `mapstructure:"admin_user"`
	LoanPeriodDays int    `mapstructure:"loan_period_days"`

	// JWTSecret overrides the secret stored in the database settings.
	JWTSecret string `mapstructure:"jwt_secret"`
}

// New returns a viper instance with defaults and environment binding.
// Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDB, "izposoja.sqlite3")
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyLog, "")
	v.SetDefault(KeyAdminUser, "admin")
	v.SetDefault(KeyLoanPeriodDays, 14)
	v.SetDefault(KeyJWTSecret, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path, if given, and returns the validated
// settings. A missing file is an error only if path was set explicitly.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable fallback.
func (c *Config) Validate() error {
	if c.LoanPeriodDays <= 0 {
		return fmt.Errorf("loan_period_days must be positive, got %d", c.LoanPeriodDays)
	}
	if strings.TrimSpace(c.DB) == "" {
		return fmt.Errorf("db path is required")
	}
	if strings.TrimSpace(c.AdminUser) == "" {
		return fmt.Errorf("admin_user is required")
	}
	return nil
}
