package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stock-advisor/internal/portfolio"
	"stock-advisor/internal/store"
)

func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPortfolioCmd(app))
	rootCmd.AddCommand(newHoldingsCmd(app))
	rootCmd.AddCommand(newSnapshotCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newPerformanceCmd(app))
}

// currentPrices fetches live prices for the held symbols. A symbol whose
// quote fails is simply absent; the ledger falls back to its average cost.
func currentPrices(ctx context.Context, app *App) map[string]float64 {
	prices := make(map[string]float64)
	positions, err := app.Store.GetPositions(ctx)
	if err != nil {
		return prices
	}
	for _, p := range positions {
		info, err := app.Source.SymbolInfo(ctx, p.Symbol)
		if err != nil {
			app.Logger.Warn().Err(err).Str("symbol", p.Symbol).Msg("quote unavailable")
			continue
		}
		if info.CurrentPrice > 0 {
			prices[p.Symbol] = info.CurrentPrice
		}
	}
	return prices
}

func newPortfolioCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show portfolio summary with live prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
			defer cancel()

			summary, err := app.Ledger.Summarize(ctx, currentPrices(ctx, app))
			if err != nil {
				output.Error("Failed to load portfolio: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Bold("Portfolio")
			output.Printf("  Total value:     %12.2f\n", summary.TotalValue)
			output.Printf("  Cash:            %12.2f\n", summary.CashBalance)
			output.Printf("  Positions value: %12.2f\n", summary.PositionsValue)
			output.Printf("  Unrealized PnL:  %s\n",
				output.PnL(summary.TotalPnL, pnlString(summary.TotalPnL, summary.TotalPnLPct)))
			output.Println()

			if len(summary.Positions) == 0 {
				output.Dim("  no open positions")
				return nil
			}

			output.Printf("  %-8s %10s %10s %10s %12s %10s\n",
				"SYMBOL", "QTY", "AVG COST", "PRICE", "VALUE", "PNL%")
			for _, p := range summary.Positions {
				output.Printf("  %-8s %10.2f %10.2f %10.2f %12.2f %s\n",
					p.Symbol, p.Quantity, p.AvgCost, p.CurrentPrice, p.MarketValue,
					output.PnL(p.UnrealizedPnL, formatPct(p.UnrealizedPnLPct)))
			}

			risk := portfolio.ConcentrationRisk(summary.Positions)
			if risk > 1 {
				output.Println()
				output.Warning("  concentration risk %.1f: largest position exceeds 20%% of portfolio", risk)
			}
			return nil
		},
	}
}

func newHoldingsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings",
		Short: "Analyze every open position and suggest adjustments",
		Long: `Run each held symbol through the full analysis pipeline and merge the
result with its ledger state: technical summary, action, confidence, and a
position-specific add/reduce suggestion. A failure on one symbol never
stops the rest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Second)
			defer cancel()

			report, err := app.Analyzer.AnalyzeAll(ctx, currentPrices(ctx, app))
			if err != nil {
				output.Error("Holdings analysis failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}

			if report.Summary.TotalHoldings == 0 {
				output.Dim("no open positions to analyze")
				return nil
			}

			for _, h := range report.Holdings {
				output.Bold("%s  %.2f shares @ %.2f (now %.2f)",
					h.Symbol, h.Quantity, h.AvgCost, h.CurrentPrice)
				output.Printf("  PnL:        %s\n", output.PnL(h.UnrealizedPnL, pnlString(h.UnrealizedPnL, h.PnLPct)))
				output.Printf("  Signal:     %s (%.0f%% confidence)\n",
					output.Signal(string(h.Action)), h.Confidence)
				output.Printf("  Advice:     %s\n", h.PositionAdvice)
				output.Printf("  Technicals: RSI %.1f  SMA20 %.2f  SMA50 %.2f  MACD %.3f  bands %s  trend %s\n",
					h.Technical.RSI, h.Technical.SMA20, h.Technical.SMA50,
					h.Technical.MACD, h.Technical.BollingerPosition, h.Technical.Trend)
				output.Println()
			}

			for symbol, msg := range report.Errors {
				output.Warning("  %s: analysis failed: %s", symbol, msg)
			}

			s := report.Summary
			output.Bold("Summary")
			output.Printf("  analyzed %d/%d  buy %d  sell %d  hold %d  avg confidence %.0f%%\n",
				s.Analyzed, s.TotalHoldings, s.BuySignals, s.SellSignals, s.HoldSignals, s.AvgConfidence)
			if s.StrongestBuy != nil {
				output.Printf("  strongest buy:  %s (%.0f%%)\n", s.StrongestBuy.Symbol, s.StrongestBuy.Confidence)
			}
			if s.StrongestSell != nil {
				output.Printf("  strongest sell: %s (%.0f%%)\n", s.StrongestSell.Symbol, s.StrongestSell.Confidence)
			}
			return nil
		},
	}
}

func newSnapshotCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Save a portfolio value snapshot",
		Long: `Reprice all positions and persist an immutable snapshot of portfolio
value, cash, and unrealized PnL. Snapshots feed the daily/weekly return and
performance calculations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
			defer cancel()

			snap, err := app.Ledger.SaveSnapshot(ctx, currentPrices(ctx, app))
			if err != nil {
				output.Error("Snapshot failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(snap)
			}
			output.Success("Snapshot saved: total %.2f (positions %.2f, cash %.2f)",
				snap.TotalValue, snap.PositionsValue, snap.CashBalance)
			if snap.DailyReturn != 0 {
				output.Printf("  daily return: %s\n", output.PnL(snap.DailyReturn, formatPct(snap.DailyReturn*100)))
			}
			return nil
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show transaction and recommendation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol, _ := cmd.Flags().GetString("symbol")
			limit, _ := cmd.Flags().GetInt("limit")
			symbol = strings.ToUpper(symbol)

			txns, err := app.Ledger.Transactions(ctx, store.TransactionFilter{
				Symbol: symbol,
				Limit:  limit,
			})
			if err != nil {
				output.Error("Failed to load transactions: %v", err)
				return err
			}
			recs, err := app.Ledger.Recommendations(ctx, store.RecommendationFilter{
				Symbol: symbol,
				Limit:  limit,
			})
			if err != nil {
				output.Error("Failed to load recommendations: %v", err)
				return err
			}
			stats, err := app.Ledger.RecommendationStats(ctx)
			if err != nil {
				output.Error("Failed to load stats: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"transactions":    txns,
					"recommendations": recs,
					"stats":           stats,
				})
			}

			output.Bold("Transactions")
			if len(txns) == 0 {
				output.Dim("  none")
			}
			for _, t := range txns {
				output.Printf("  %s  %s %8.2f %-8s @ %9.2f  total %10.2f\n",
					t.Timestamp.Format("2006-01-02 15:04"), output.Signal(string(t.Action)),
					t.Quantity, t.Symbol, t.Price, t.TotalCost)
			}

			output.Println()
			output.Bold("Recommendations")
			if len(recs) == 0 {
				output.Dim("  none")
			}
			for _, r := range recs {
				executed := ""
				if r.Executed {
					executed = "  [executed]"
				}
				output.Printf("  %s  %s %-8s score %+.2f  %3.0f%%%s\n",
					r.Timestamp.Format("2006-01-02 15:04"), output.Signal(string(r.Action)),
					r.Symbol, r.Score, r.Confidence, executed)
			}

			output.Println()
			output.Dim("  %d recommendations, %d executed, avg confidence %.0f%%",
				stats.Total, stats.Executed, stats.AvgConfidence)
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().Int("limit", 20, "maximum entries per section")
	return cmd
}

func newPerformanceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Show return and risk metrics from snapshot history",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			days, _ := cmd.Flags().GetInt("days")
			metrics, err := app.Ledger.Performance(ctx, days)
			if err != nil {
				output.Error("Performance unavailable: %v", err)
				return err
			}

			var weekly *portfolio.WeeklyPerformance
			if w, err := app.Ledger.Weekly(ctx, metrics.EndValue); err == nil {
				weekly = w
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"metrics": metrics,
					"weekly":  weekly,
				})
			}

			output.Bold("Performance (%d days, %d snapshots)", metrics.PeriodDays, metrics.SnapshotCount)
			output.Printf("  Total return:   %s\n", output.PnL(metrics.TotalReturn, formatPct(metrics.TotalReturn*100)))
			output.Printf("  Avg daily:      %s\n", output.PnL(metrics.AvgDailyReturn, formatPct(metrics.AvgDailyReturn*100)))
			output.Printf("  Volatility:     %.4f\n", metrics.Volatility)
			output.Printf("  Sharpe ratio:   %.2f\n", metrics.SharpeRatio)
			output.Printf("  Max drawdown:   %.2f%%\n", metrics.MaxDrawdown*100)
			if weekly != nil {
				output.Printf("  Weekly return:  %s (volatility %.4f)\n",
					output.PnL(weekly.WeeklyReturn, formatPct(weekly.WeeklyReturn*100)), weekly.WeeklyVolatility)
			}
			return nil
		},
	}

	cmd.Flags().Int("days", 30, "lookback window in days")
	return cmd
}

func pnlString(pnl, pct float64) string {
	return fmt.Sprintf("%+.2f (%s)", pnl, formatPct(pct))
}

func formatPct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}
