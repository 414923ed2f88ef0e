package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-advisor/internal/errors"
	"stock-advisor/internal/models"
	"stock-advisor/internal/store"
)

func newTestLedger(t *testing.T, cash float64) (*Ledger, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ledger, err := NewLedger(context.Background(), s, cash, zerolog.Nop())
	require.NoError(t, err)
	return ledger, s
}

func TestWeightedAverageCost(t *testing.T) {
	ledger, _ := newTestLedger(t, 100000)
	ctx := context.Background()

	_, err := ledger.Buy(ctx, "AAPL", 100, 150, 0, "", "")
	require.NoError(t, err)
	_, err = ledger.Buy(ctx, "AAPL", 50, 180, 0, "", "")
	require.NoError(t, err)

	positions, err := ledger.Positions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	// (100*150 + 50*180) / 150 = 160.00
	assert.InDelta(t, 160.0, positions[0].AvgCost, 1e-9)
	assert.Equal(t, 150.0, positions[0].Quantity)
}

func TestSellNeverChangesAvgCost(t *testing.T) {
	ledger, _ := newTestLedger(t, 100000)
	ctx := context.Background()

	_, err := ledger.Buy(ctx, "AAPL", 100, 150, 0, "", "")
	require.NoError(t, err)
	_, err = ledger.Sell(ctx, "AAPL", 40, 200, 0, "", "")
	require.NoError(t, err)

	positions, err := ledger.Positions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 150.0, positions[0].AvgCost)
	assert.Equal(t, 60.0, positions[0].Quantity)
}

func TestOversellRejectedUnchanged(t *testing.T) {
	ledger, _ := newTestLedger(t, 100000)
	ctx := context.Background()

	_, err := ledger.Buy(ctx, "AAPL", 100, 150, 0, "", "")
	require.NoError(t, err)
	cashBefore := ledger.CashBalance()

	_, err = ledger.Sell(ctx, "AAPL", 120, 160, 0, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidTransaction)

	positions, err := ledger.Positions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 100.0, positions[0].Quantity, "failed sell must not mutate the position")
	assert.Equal(t, cashBefore, ledger.CashBalance(), "failed sell must not move cash")

	txns, err := ledger.Transactions(ctx, store.TransactionFilter{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Len(t, txns, 1, "only the buy is recorded")
}

func TestSellAllRemovesPosition(t *testing.T) {
	ledger, st := newTestLedger(t, 100000)
	ctx := context.Background()

	_, err := ledger.Buy(ctx, "AAPL", 100, 150, 0, "", "")
	require.NoError(t, err)
	_, err = ledger.Buy(ctx, "AAPL", 50, 180, 0, "", "")
	require.NoError(t, err)

	_, err = ledger.Sell(ctx, "AAPL", 150, 170, 0, "", "")
	require.NoError(t, err)

	positions, err := ledger.Positions(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, positions, "fully closed position is removed, not zeroed")

	_, err = st.GetPosition(ctx, "AAPL")
	assert.ErrorIs(t, err, errors.ErrPositionNotFound)
}

func TestTradeValidation(t *testing.T) {
	ledger, _ := newTestLedger(t, 100000)
	ctx := context.Background()

	cases := []struct {
		name            string
		qty, price, com float64
	}{
		{"zero quantity", 0, 100, 0},
		{"negative quantity", -5, 100, 0},
		{"zero price", 10, 0, 0},
		{"negative commission", 10, 100, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.Buy(ctx, "AAPL", tc.qty, tc.price, tc.com, "", "")
			assert.ErrorIs(t, err, errors.ErrInvalidTransaction)
		})
	}

	_, err := ledger.Sell(ctx, "GHOST", 10, 100, 0, "", "")
	assert.ErrorIs(t, err, errors.ErrInvalidTransaction, "selling without a position is invalid")
}

func TestCashEffects(t *testing.T) {
	ledger, _ := newTestLedger(t, 10000)
	ctx := context.Background()

	_, err := ledger.Buy(ctx, "AAPL", 10, 100, 5, "", "")
	require.NoError(t, err)
	assert.InDelta(t, 10000-1005, ledger.CashBalance(), 1e-9)

	_, err = ledger.Sell(ctx, "AAPL", 10, 110, 5, "", "")
	require.NoError(t, err)
	assert.InDelta(t, 10000-1005+1095, ledger.CashBalance(), 1e-9)
}

func TestCashBalanceSurvivesRestart(t *testing.T) {
	first, st := newTestLedger(t, 10000)
	ctx := context.Background()

	_, err := first.Buy(ctx, "AAPL", 10, 100, 5, "", "")
	require.NoError(t, err)
	_, err = first.Sell(ctx, "AAPL", 4, 110, 5, "", "")
	require.NoError(t, err)
	require.InDelta(t, 10000-1005+435, first.CashBalance(), 1e-9)

	// A fresh ledger over the same store must replay the transaction log
	// instead of resetting cash to the configured starting balance.
	second, err := NewLedger(ctx, st, 10000, zerolog.Nop())
	require.NoError(t, err)
	assert.InDelta(t, first.CashBalance(), second.CashBalance(), 1e-9)

	snap, err := second.SaveSnapshot(ctx, map[string]float64{"AAPL": 110})
	require.NoError(t, err)
	assert.InDelta(t, 9430, snap.CashBalance, 1e-9)
	assert.InDelta(t, 9430+6*110, snap.TotalValue, 1e-9)
}

func TestPositionsCacheInvalidatedOnWrite(t *testing.T) {
	ledger, _ := newTestLedger(t, 100000)
	ctx := context.Background()

	_, err := ledger.Buy(ctx, "AAPL", 10, 100, 0, "", "")
	require.NoError(t, err)

	first, err := ledger.Positions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A write between reads must be visible immediately, TTL or not.
	_, err = ledger.Buy(ctx, "MSFT", 5, 400, 0, "", "")
	require.NoError(t, err)

	second, err := ledger.Positions(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestPositionsRepricing(t *testing.T) {
	ledger, _ := newTestLedger(t, 100000)
	ctx := context.Background()

	_, err := ledger.Buy(ctx, "AAPL", 10, 100, 0, "", "")
	require.NoError(t, err)

	positions, err := ledger.Positions(ctx, map[string]float64{"AAPL": 120})
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 1200.0, positions[0].MarketValue)
	assert.Equal(t, 200.0, positions[0].UnrealizedPnL)
	assert.InDelta(t, 20.0, positions[0].UnrealizedPnLPct, 1e-9)

	// Missing price falls back to avg cost: zero PnL.
	positions, err = ledger.Positions(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, positions[0].UnrealizedPnL)
}

func TestBuyLinksRecommendation(t *testing.T) {
	ledger, st := newTestLedger(t, 100000)
	ctx := context.Background()

	rec := &models.Recommendation{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 85}
	require.NoError(t, ledger.RecordRecommendation(ctx, rec))

	_, err := ledger.Buy(ctx, "AAPL", 10, 150, 0, rec.ID, "")
	require.NoError(t, err)

	got, err := st.GetRecommendation(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Executed)
	assert.Equal(t, 150.0, got.ExecutionPrice)
}

func TestSnapshotAndSummary(t *testing.T) {
	ledger, _ := newTestLedger(t, 50000)
	ctx := context.Background()

	_, err := ledger.Buy(ctx, "AAPL", 100, 150, 0, "", "")
	require.NoError(t, err)

	prices := map[string]float64{"AAPL": 165}
	snap, err := ledger.SaveSnapshot(ctx, prices)
	require.NoError(t, err)
	assert.InDelta(t, 16500, snap.PositionsValue, 1e-9)
	assert.InDelta(t, 50000-15000, snap.CashBalance, 1e-9)
	assert.InDelta(t, 16500+35000, snap.TotalValue, 1e-9)
	assert.InDelta(t, 1500, snap.TotalPnL, 1e-9)

	summary, err := ledger.Summarize(ctx, prices)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PositionCount)
	assert.InDelta(t, snap.TotalValue, summary.TotalValue, 1e-9)
	assert.InDelta(t, 10.0, summary.TotalPnLPct, 1e-9)
}

func TestConcentrationRisk(t *testing.T) {
	positions := []models.Position{
		{Symbol: "A", MarketValue: 8000},
		{Symbol: "B", MarketValue: 1000},
		{Symbol: "C", MarketValue: 1000},
	}
	// Largest is 80% of total; 80/20 = 4.
	assert.InDelta(t, 4.0, ConcentrationRisk(positions), 1e-9)

	// A single position is 100%; 100/20 = 5, the cap.
	assert.Equal(t, 5.0, ConcentrationRisk(positions[:1]))

	assert.Equal(t, 0.0, ConcentrationRisk(nil))
}

func TestMaxDrawdown(t *testing.T) {
	snaps := []models.PortfolioSnapshot{
		{TotalValue: 100}, {TotalValue: 120}, {TotalValue: 90},
		{TotalValue: 110}, {TotalValue: 105},
	}
	// Peak 120 to trough 90 is a 25% drawdown.
	assert.InDelta(t, 0.25, maxDrawdown(snaps), 1e-9)
}

func TestPerformanceMetrics(t *testing.T) {
	ledger, st := newTestLedger(t, 0)
	ctx := context.Background()

	now := time.Now()
	values := []float64{10000, 10100, 10200, 10100, 10300}
	for i, v := range values {
		snap := &models.PortfolioSnapshot{
			Timestamp:  now.AddDate(0, 0, -len(values)+i+1),
			TotalValue: v,
		}
		require.NoError(t, st.SaveSnapshot(ctx, snap))
	}

	m, err := ledger.Performance(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 5, m.SnapshotCount)
	assert.InDelta(t, 0.03, m.TotalReturn, 1e-9)
	assert.Greater(t, m.Volatility, 0.0)
	assert.Greater(t, m.MaxDrawdown, 0.0)

	_, err = ledger.Performance(ctx, 0)
	assert.ErrorIs(t, err, errors.ErrInsufficientHistory, "no history in an empty window")
}

func TestWeeklyLookbackRule(t *testing.T) {
	ledger, st := newTestLedger(t, 0)
	ctx := context.Background()
	now := time.Now()

	// Snapshots at 10 and 8 days ago; the week-ago lookup must pick the
	// most recent one at or before now-7d, which is the 8-day-old one.
	require.NoError(t, st.SaveSnapshot(ctx, &models.PortfolioSnapshot{
		Timestamp: now.AddDate(0, 0, -10), TotalValue: 9000,
	}))
	require.NoError(t, st.SaveSnapshot(ctx, &models.PortfolioSnapshot{
		Timestamp: now.AddDate(0, 0, -8), TotalValue: 10000,
	}))
	require.NoError(t, st.SaveSnapshot(ctx, &models.PortfolioSnapshot{
		Timestamp: now.AddDate(0, 0, -2), TotalValue: 10500,
	}))

	perf, err := ledger.Weekly(ctx, 11000)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, perf.WeekAgoValue)
	assert.InDelta(t, 0.10, perf.WeeklyReturn, 1e-9)
}
