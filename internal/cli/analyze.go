package cli

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stock-advisor/internal/analysis/indicators"
	"stock-advisor/internal/logging"
	"stock-advisor/internal/marketdata"
)

func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newRecommendCmd(app))
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Compute technical indicators for a symbol",
		Long: `Fetch price history and compute the full indicator set:
RSI, SMA/EMA (20/50/200), MACD with signal line, Bollinger Bands,
Stochastic Oscillator, and the volume moving average.`,
		Example: `  advisor analyze AAPL
  advisor analyze MSFT --period 6mo --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			period := app.MarketPeriod()
			if p, _ := cmd.Flags().GetString("period"); p != "" {
				period = marketdata.Period(p)
			}

			logger := logging.WithSymbol(app.Logger, symbol)
			logger.Info().Str("period", string(period)).Msg("analyzing symbol")

			bars, err := app.Source.PriceSeries(ctx, symbol, period)
			if err != nil {
				output.Error("Failed to fetch price data: %v", err)
				return err
			}

			frame := indicators.CalculateAll(app.Provider, bars, app.Params)
			snap := frame.LatestSnapshot(symbol)

			if output.IsJSON() {
				return output.JSON(snap)
			}

			output.Bold("%s  close %.2f  (%d bars, %s)", symbol, snap.Close, len(bars), period)
			output.Println()

			names := make([]string, 0, len(snap.Values))
			for name := range snap.Values {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				output.Printf("  %-16s %12.4f\n", name, snap.Values[name])
			}
			if len(names) == 0 {
				output.Warning("No indicators defined yet; not enough history (%d bars)", len(bars))
			}
			return nil
		},
	}

	cmd.Flags().String("period", "", "price history period (1mo, 3mo, 6mo, 1y, 2y)")
	return cmd
}

func newRecommendCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <symbol>",
		Short: "Generate a buy/sell/hold recommendation",
		Long: `Run the full analysis pipeline for a symbol and score the result under
the configured risk profile. The recommendation is saved to the ledger so a
later buy/sell can reference it.`,
		Example: `  advisor recommend AAPL
  advisor recommend NVDA --no-save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			noSave, _ := cmd.Flags().GetBool("no-save")

			bars, err := app.Source.PriceSeries(ctx, symbol, app.MarketPeriod())
			if err != nil {
				output.Error("Failed to fetch price data: %v", err)
				return err
			}

			info, err := app.Source.SymbolInfo(ctx, symbol)
			if err != nil {
				app.Logger.Warn().Err(err).Str("symbol", symbol).Msg("symbol info unavailable")
				info = nil
			}

			frame := indicators.CalculateAll(app.Provider, bars, app.Params)
			result := app.Engine.Score(symbol, frame, info)
			logging.LogRecommendation(app.Logger, symbol, string(result.Action),
				result.Confidence, result.Reasoning)

			rec := result.Recommendation()
			if !noSave {
				if err := app.Ledger.RecordRecommendation(ctx, &rec); err != nil {
					output.Warning("Recommendation not saved: %v", err)
				}
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"recommendation_id": rec.ID,
					"symbol":            result.Symbol,
					"action":            result.Action,
					"score":             result.Score,
					"confidence":        result.Confidence,
					"current_price":     result.CurrentPrice,
					"position_size_pct": result.PositionSizePct,
					"reasoning":         result.Reasoning,
					"details":           result.Details,
					"scores":            result.Scores,
					"risk_profile":      result.RiskProfile,
				})
			}

			output.Bold("%s @ %.2f", symbol, result.CurrentPrice)
			output.Printf("  Action:      %s\n", output.Signal(string(result.Action)))
			output.Printf("  Score:       %.2f\n", result.Score)
			output.Printf("  Confidence:  %.0f%%\n", result.Confidence)
			output.Printf("  Size:        %.1f%% of portfolio (%s profile)\n",
				result.PositionSizePct, result.RiskProfile)
			output.Println()
			for _, line := range result.Details {
				output.Dim("  %s", line)
			}
			if rec.ID != "" {
				output.Println()
				output.Dim("  recommendation id: %s", rec.ID)
			}
			return nil
		},
	}

	cmd.Flags().Bool("no-save", false, "do not persist the recommendation")
	return cmd
}
