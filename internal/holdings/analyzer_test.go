package holdings

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-advisor/internal/analysis/indicators"
	"stock-advisor/internal/analysis/scoring"
	"stock-advisor/internal/marketdata"
	"stock-advisor/internal/models"
	"stock-advisor/internal/portfolio"
	"stock-advisor/internal/store"
)

func newTestAnalyzer(t *testing.T) (*Analyzer, *portfolio.Ledger, *marketdata.StaticSource) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ledger, err := portfolio.NewLedger(context.Background(), st, 100000, zerolog.Nop())
	require.NoError(t, err)
	source := marketdata.NewStaticSource()
	engine, err := scoring.NewEngine(scoring.RiskModerate)
	require.NoError(t, err)

	analyzer := NewAnalyzer(ledger, source, engine, &indicators.ManualProvider{},
		marketdata.PeriodQuarter, zerolog.Nop())
	return analyzer, ledger, source
}

func risingCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return closes
}

func TestAnalyzeAllContinuesPastFailures(t *testing.T) {
	analyzer, ledger, source := newTestAnalyzer(t)
	ctx := context.Background()

	_, err := ledger.Buy(ctx, "GOOD", 100, 95, 0, "", "")
	require.NoError(t, err)
	_, err = ledger.Buy(ctx, "NODATA", 50, 40, 0, "", "")
	require.NoError(t, err)

	source.SetBars("GOOD", marketdata.GenerateBars(risingCloses(60, 80, 0.5), 100000))
	source.SetInfo("GOOD", models.SymbolInfo{Beta: 1.0, CurrentPrice: 109.5})
	// NODATA gets no bars: its analysis fails per-symbol.

	report, err := analyzer.AnalyzeAll(ctx, map[string]float64{"GOOD": 109.5, "NODATA": 40})
	require.NoError(t, err)

	assert.Len(t, report.Holdings, 1)
	assert.Equal(t, "GOOD", report.Holdings[0].Symbol)
	assert.Contains(t, report.Errors, "NODATA")
	assert.Equal(t, 2, report.Summary.TotalHoldings)
	assert.Equal(t, 1, report.Summary.Analyzed)
}

func TestAnalyzeHoldingMergesLedgerState(t *testing.T) {
	analyzer, ledger, source := newTestAnalyzer(t)
	ctx := context.Background()

	_, err := ledger.Buy(ctx, "AAPL", 100, 100, 0, "", "")
	require.NoError(t, err)

	closes := risingCloses(60, 90, 0.5) // ends at 119.5
	source.SetBars("AAPL", marketdata.GenerateBars(closes, 500000))
	source.SetInfo("AAPL", models.SymbolInfo{Beta: 1.1, CurrentPrice: 119.5})

	positions, err := ledger.Positions(ctx, map[string]float64{"AAPL": 119.5})
	require.NoError(t, err)
	require.Len(t, positions, 1)

	h, err := analyzer.AnalyzeHolding(ctx, positions[0])
	require.NoError(t, err)

	assert.Equal(t, "AAPL", h.Symbol)
	assert.Equal(t, 100.0, h.Quantity)
	assert.Equal(t, 100.0, h.AvgCost)
	assert.InDelta(t, 119.5, h.CurrentPrice, 1e-9)
	assert.InDelta(t, 19.5, h.PnLPct, 1e-9)
	assert.NotEmpty(t, h.PositionAdvice)
	assert.Equal(t, "bullish", h.Technical.Trend, "rising series closes above its 20-day average")
	assert.NotZero(t, h.Technical.RSI)
}

func TestPositionAdviceTiers(t *testing.T) {
	tests := []struct {
		name       string
		action     models.Action
		confidence float64
		pnlPct     float64
		quantity   float64
		contains   string
	}{
		{"strong buy scales by quarter", models.ActionBuy, 80, 5, 100, "~25 shares"},
		{"strong buy small position floors at 10", models.ActionBuy, 80, 5, 20, "~10 shares"},
		{"moderate buy", models.ActionBuy, 65, 5, 100, "~15 shares"},
		{"weak buy", models.ActionBuy, 55, 5, 100, "hold current position"},
		{"strong sell in profit", models.ActionSell, 80, 15, 100, "taking profits"},
		{"strong sell at a loss", models.ActionSell, 80, -5, 100, "limit losses"},
		{"moderate sell", models.ActionSell, 65, 5, 100, "~30 shares"},
		{"weak sell", models.ActionSell, 55, 5, 100, "monitor closely"},
		{"hold big winner", models.ActionHold, 60, 25, 100, "taking some profits"},
		{"hold underwater", models.ActionHold, 60, -20, 100, "underwater"},
		{"hold neutral", models.ActionHold, 60, 2, 100, "maintain current position"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advice := positionAdvice(tt.action, tt.confidence, tt.pnlPct, tt.quantity)
			assert.Contains(t, advice, tt.contains)
		})
	}
}

func TestSummaryStrongestSignals(t *testing.T) {
	report := &Report{
		Holdings: []HoldingAnalysis{
			{Symbol: "A", Action: models.ActionBuy, Confidence: 70},
			{Symbol: "B", Action: models.ActionBuy, Confidence: 90},
			{Symbol: "C", Action: models.ActionSell, Confidence: 65},
			{Symbol: "D", Action: models.ActionHold, Confidence: 60},
		},
		Errors:  map[string]string{},
		Summary: Summary{TotalHoldings: 4},
	}
	summarize(report)

	s := report.Summary
	assert.Equal(t, 2, s.BuySignals)
	assert.Equal(t, 1, s.SellSignals)
	assert.Equal(t, 1, s.HoldSignals)
	require.NotNil(t, s.StrongestBuy)
	assert.Equal(t, "B", s.StrongestBuy.Symbol)
	require.NotNil(t, s.StrongestSell)
	assert.Equal(t, "C", s.StrongestSell.Symbol)
	assert.InDelta(t, 71.25, s.AvgConfidence, 1e-9)
}
