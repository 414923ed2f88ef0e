package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-advisor/internal/errors"
)

func validConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: "portfolio.db"},
		Advisor: AdvisorConfig{
			RiskProfile:       "moderate",
			IndicatorProvider: "manual",
			CashBalance:       50000,
			CacheTTLMinutes:   5,
		},
		Market:  MarketConfig{Period: "3mo", TimeoutSeconds: 15},
		Logging: LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad risk profile", func(c *Config) { c.Advisor.RiskProfile = "yolo" }, "advisor.risk_profile"},
		{"bad provider", func(c *Config) { c.Advisor.IndicatorProvider = "pandas" }, "advisor.indicator_provider"},
		{"negative cash", func(c *Config) { c.Advisor.CashBalance = -1 }, "advisor.cash_balance"},
		{"zero cache ttl", func(c *Config) { c.Advisor.CacheTTLMinutes = 0 }, "advisor.cache_ttl_minutes"},
		{"bad period", func(c *Config) { c.Market.Period = "5d" }, "market.period"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}
