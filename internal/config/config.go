// Package config provides configuration management for the advisor application.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"stock-advisor/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Advisor  AdvisorConfig  `mapstructure:"advisor"`
	Market   MarketConfig   `mapstructure:"market"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig holds persistence configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AdvisorConfig holds scoring and ledger configuration.
type AdvisorConfig struct {
	RiskProfile       string  `mapstructure:"risk_profile"`       // conservative, moderate, aggressive
	IndicatorProvider string  `mapstructure:"indicator_provider"` // manual, talib
	CashBalance       float64 `mapstructure:"cash_balance"`
	CacheTTLMinutes   int     `mapstructure:"cache_ttl_minutes"`
}

// MarketConfig holds market data configuration.
type MarketConfig struct {
	Period         string `mapstructure:"period"` // 1mo, 3mo, 6mo, 1y, 2y
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stock-advisor"
	}
	return filepath.Join(home, ".config", "stock-advisor")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		// First run: write a template so the defaults are discoverable.
		if err := createTemplateConfig(configDir); err != nil {
			return nil, fmt.Errorf("creating template config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("database.path", filepath.Join(configDir, "portfolio.db"))
	v.SetDefault("advisor.risk_profile", "moderate")
	v.SetDefault("advisor.indicator_provider", "manual")
	v.SetDefault("advisor.cash_balance", 50000.0)
	v.SetDefault("advisor.cache_ttl_minutes", 5)
	v.SetDefault("market.period", "3mo")
	v.SetDefault("market.timeout_seconds", 15)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ADVISOR_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ADVISOR_RISK_PROFILE"); v != "" {
		cfg.Advisor.RiskProfile = v
	}
	if v := os.Getenv("ADVISOR_INDICATOR_PROVIDER"); v != "" {
		cfg.Advisor.IndicatorProvider = v
	}
	if v := os.Getenv("ADVISOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Advisor.RiskProfile {
	case "conservative", "moderate", "aggressive":
	default:
		return errors.NewValidationError("advisor.risk_profile", c.Advisor.RiskProfile,
			"must be 'conservative', 'moderate' or 'aggressive'")
	}

	switch c.Advisor.IndicatorProvider {
	case "manual", "talib":
	default:
		return errors.NewValidationError("advisor.indicator_provider", c.Advisor.IndicatorProvider,
			"must be 'manual' or 'talib'")
	}

	if c.Advisor.CashBalance < 0 {
		return errors.NewValidationError("advisor.cash_balance", c.Advisor.CashBalance,
			"must be non-negative")
	}
	if c.Advisor.CacheTTLMinutes <= 0 {
		return errors.NewValidationError("advisor.cache_ttl_minutes", c.Advisor.CacheTTLMinutes,
			"must be positive")
	}

	switch c.Market.Period {
	case "1mo", "3mo", "6mo", "1y", "2y":
	default:
		return errors.NewValidationError("market.period", c.Market.Period,
			"must be one of 1mo, 3mo, 6mo, 1y, 2y")
	}

	return nil
}
