package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stock-advisor/internal/analysis/indicators"
	"stock-advisor/internal/analysis/scoring"
	"stock-advisor/internal/config"
	"stock-advisor/internal/holdings"
	"stock-advisor/internal/marketdata"
	"stock-advisor/internal/portfolio"
	"stock-advisor/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.Store
	Ledger   *portfolio.Ledger
	Source   marketdata.Source
	Provider indicators.Provider
	Engine   *scoring.Engine
	Analyzer *holdings.Analyzer
	Params   indicators.Params
}

// MarketPeriod returns the configured price history period.
func (a *App) MarketPeriod() marketdata.Period {
	return marketdata.Period(a.Config.Market.Period)
}

// NewRootCmd wires the application and creates the root command.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) (*cobra.Command, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
		Params: indicators.DefaultParams(),
	}

	dataStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	app.Store = dataStore

	cacheTTL := time.Duration(cfg.Advisor.CacheTTLMinutes) * time.Minute
	if cacheTTL <= 0 {
		cacheTTL = portfolio.DefaultCacheTTL
	}
	app.Ledger, err = portfolio.NewLedger(context.Background(), dataStore,
		cfg.Advisor.CashBalance, logger, portfolio.WithCacheTTL(cacheTTL))
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Market.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	app.Source = marketdata.NewYahooSource(timeout, logger)

	app.Provider, err = indicators.NewProvider(indicators.ProviderKind(cfg.Advisor.IndicatorProvider))
	if err != nil {
		return nil, err
	}

	profile, err := scoring.ParseRiskProfile(cfg.Advisor.RiskProfile)
	if err != nil {
		return nil, err
	}
	app.Engine, err = scoring.NewEngine(profile)
	if err != nil {
		return nil, err
	}

	app.Analyzer = holdings.NewAnalyzer(app.Ledger, app.Source, app.Engine,
		app.Provider, app.MarketPeriod(), logger)

	rootCmd := &cobra.Command{
		Use:   "advisor",
		Short: "Stock Advisor - technical analysis and portfolio tracking CLI",
		Long: `Stock Advisor analyzes stocks with technical indicators, generates
rule-based buy/sell/hold recommendations under a configurable risk profile,
and tracks a paper portfolio with full transaction history.

Use 'advisor help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stock-advisor)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addTradingCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)

	return rootCmd, nil
}

func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Stock Advisor v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			output.Bold("Configuration")
			output.Printf("  Database:           %s\n", app.Config.Database.Path)
			output.Printf("  Risk profile:       %s\n", app.Config.Advisor.RiskProfile)
			output.Printf("  Indicator provider: %s\n", app.Config.Advisor.IndicatorProvider)
			output.Printf("  Cash balance:       %.2f\n", app.Config.Advisor.CashBalance)
			output.Printf("  Market period:      %s\n", app.Config.Market.Period)
			output.Printf("  Log level:          %s\n", app.Config.Logging.Level)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}
