package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# stock-advisor configuration

[database]
# path = "~/.config/stock-advisor/portfolio.db"

[advisor]
risk_profile = "moderate"       # conservative, moderate, aggressive
indicator_provider = "manual"   # manual, talib
cash_balance = 50000.0
cache_ttl_minutes = 5

[market]
period = "3mo"                  # 1mo, 3mo, 6mo, 1y, 2y
timeout_seconds = 15

[logging]
level = "info"                  # debug, info, warn, error
console = true
file = true
`

// createTemplateConfig writes the default config.toml when none exists.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.WriteFile(path, []byte(configTemplate), 0644)
}
