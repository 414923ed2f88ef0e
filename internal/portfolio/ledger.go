// Package portfolio implements the bookkeeping core: positions,
// transactions, recommendations, and value snapshots. The ledger owns all
// mutation and cost-basis arithmetic; every write is atomic with respect to
// its paired position update and recommendation link.
package portfolio

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stock-advisor/internal/errors"
	"stock-advisor/internal/models"
	"stock-advisor/internal/store"
)

// DefaultCacheTTL bounds how long repriced positions are served from cache.
const DefaultCacheTTL = 5 * time.Minute

// Ledger is the stateful portfolio bookkeeper. Safe for concurrent use.
type Ledger struct {
	store  store.Store
	logger zerolog.Logger

	mu        sync.Mutex
	cash      float64
	cacheTTL  time.Duration
	cached    []models.Position
	cachedAt  time.Time
	cacheGood bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithCacheTTL overrides the position cache lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(l *Ledger) { l.cacheTTL = ttl }
}

// NewLedger builds a ledger over the given store. The cash balance is
// reconstructed as the starting cash plus the net cash flow of every
// recorded transaction, so it stays consistent with the persisted positions
// across process restarts.
func NewLedger(ctx context.Context, st store.Store, startingCash float64, logger zerolog.Logger, opts ...Option) (*Ledger, error) {
	flow, err := st.CashFlow(ctx)
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		store:    st,
		logger:   logger.With().Str("component", "ledger").Logger(),
		cash:     startingCash + flow,
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// CashBalance returns the current cash balance.
func (l *Ledger) CashBalance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// Buy records a purchase. A new position starts at avgCost = price; an
// existing one gets a quantity-weighted blend of old and new cost. Cash is
// debited by quantity*price + commission.
func (l *Ledger) Buy(ctx context.Context, symbol string, qty, price, commission float64, recommendationID, notes string) (*models.Transaction, error) {
	if err := validateTrade(symbol, models.ActionBuy, qty, price, commission); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	pos, err := l.store.GetPosition(ctx, symbol)
	switch {
	case err == nil:
		// Weighted-average cost is recomputed only on buys.
		totalQty := pos.Quantity + qty
		pos.AvgCost = (pos.Quantity*pos.AvgCost + qty*price) / totalQty
		pos.Quantity = totalQty
		pos.LastUpdated = now
	case errors.Is(err, errors.ErrPositionNotFound):
		pos = &models.Position{
			Symbol:      symbol,
			Quantity:    qty,
			AvgCost:     price,
			EntryDate:   now,
			LastUpdated: now,
		}
	default:
		return nil, err
	}

	txn := &models.Transaction{
		Symbol:           symbol,
		Action:           models.ActionBuy,
		Quantity:         qty,
		Price:            price,
		TotalCost:        qty*price + commission,
		Commission:       commission,
		Timestamp:        now,
		RecommendationID: recommendationID,
		Notes:            notes,
	}

	if err := l.store.ApplyTransaction(ctx, txn, pos, store.PositionUpsert); err != nil {
		return nil, err
	}

	l.cash -= txn.TotalCost
	l.invalidateCacheLocked()
	l.logger.Info().
		Str("symbol", symbol).
		Float64("quantity", qty).
		Float64("price", price).
		Float64("avg_cost", pos.AvgCost).
		Msg("buy recorded")
	return txn, nil
}

// Sell records a sale. Selling more than held fails before any mutation;
// selling the full quantity removes the position. Average cost never changes
// on a sell. Cash is credited by quantity*price - commission.
func (l *Ledger) Sell(ctx context.Context, symbol string, qty, price, commission float64, recommendationID, notes string) (*models.Transaction, error) {
	if err := validateTrade(symbol, models.ActionSell, qty, price, commission); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, err := l.store.GetPosition(ctx, symbol)
	if err != nil {
		if errors.Is(err, errors.ErrPositionNotFound) {
			return nil, errors.NewTransactionError(symbol, string(models.ActionSell), "no open position")
		}
		return nil, err
	}
	if qty > pos.Quantity {
		return nil, errors.NewTransactionError(symbol, string(models.ActionSell),
			"sell quantity exceeds held quantity")
	}

	now := time.Now()
	pos.Quantity -= qty
	pos.LastUpdated = now

	change := store.PositionUpsert
	if pos.Quantity == 0 {
		change = store.PositionRemove
	}

	txn := &models.Transaction{
		Symbol:           symbol,
		Action:           models.ActionSell,
		Quantity:         qty,
		Price:            price,
		TotalCost:        qty*price - commission,
		Commission:       commission,
		Timestamp:        now,
		RecommendationID: recommendationID,
		Notes:            notes,
	}

	if err := l.store.ApplyTransaction(ctx, txn, pos, change); err != nil {
		return nil, err
	}

	l.cash += txn.TotalCost
	l.invalidateCacheLocked()
	l.logger.Info().
		Str("symbol", symbol).
		Float64("quantity", qty).
		Float64("price", price).
		Bool("closed", change == store.PositionRemove).
		Msg("sell recorded")
	return txn, nil
}

func validateTrade(symbol string, action models.Action, qty, price, commission float64) error {
	if symbol == "" {
		return errors.NewTransactionError(symbol, string(action), "empty symbol")
	}
	if qty <= 0 {
		return errors.NewTransactionError(symbol, string(action), "quantity must be positive")
	}
	if price <= 0 {
		return errors.NewTransactionError(symbol, string(action), "price must be positive")
	}
	if commission < 0 {
		return errors.NewTransactionError(symbol, string(action), "commission must be non-negative")
	}
	return nil
}

// Positions returns open positions repriced against the supplied current
// prices. Results are served from a short-lived cache that every write
// invalidates; a symbol missing from currentPrices falls back to its
// average cost.
func (l *Ledger) Positions(ctx context.Context, currentPrices map[string]float64) ([]models.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	positions := l.cached
	if !l.cacheGood || now.Sub(l.cachedAt) > l.cacheTTL {
		fresh, err := l.store.GetPositions(ctx)
		if err != nil {
			return nil, err
		}
		l.cached = fresh
		l.cachedAt = now
		l.cacheGood = true
		positions = fresh
	}

	out := make([]models.Position, len(positions))
	copy(out, positions)
	for i := range out {
		price, ok := currentPrices[out[i].Symbol]
		if !ok || price <= 0 {
			price = out[i].AvgCost
		}
		out[i].Reprice(price, now)
	}
	return out, nil
}

// Transactions returns filtered transaction history.
func (l *Ledger) Transactions(ctx context.Context, filter store.TransactionFilter) ([]models.Transaction, error) {
	return l.store.GetTransactions(ctx, filter)
}

// RecordRecommendation appends a recommendation to the log.
func (l *Ledger) RecordRecommendation(ctx context.Context, rec *models.Recommendation) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if err := l.store.SaveRecommendation(ctx, rec); err != nil {
		return err
	}
	l.logger.Info().
		Str("symbol", rec.Symbol).
		Str("action", string(rec.Action)).
		Float64("confidence", rec.Confidence).
		Msg("recommendation recorded")
	return nil
}

// Recommendations returns filtered recommendation history.
func (l *Ledger) Recommendations(ctx context.Context, filter store.RecommendationFilter) ([]models.Recommendation, error) {
	return l.store.GetRecommendations(ctx, filter)
}

// MarkExecuted flips a recommendation's one-way executed flag.
func (l *Ledger) MarkExecuted(ctx context.Context, id string, price float64, date time.Time) error {
	return l.store.MarkRecommendationExecuted(ctx, id, price, date)
}

// SaveSnapshot computes aggregate totals against current prices and
// persists an immutable snapshot. The daily return compares against the
// most recent snapshot from at least a day earlier.
func (l *Ledger) SaveSnapshot(ctx context.Context, currentPrices map[string]float64) (*models.PortfolioSnapshot, error) {
	positions, err := l.Positions(ctx, currentPrices)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	cash := l.cash
	l.mu.Unlock()

	var positionsValue, totalPnL float64
	for _, p := range positions {
		positionsValue += p.MarketValue
		totalPnL += p.UnrealizedPnL
	}

	now := time.Now()
	snap := &models.PortfolioSnapshot{
		Timestamp:      now,
		TotalValue:     positionsValue + cash,
		CashBalance:    cash,
		PositionsValue: positionsValue,
		TotalPnL:       totalPnL,
	}

	if prior, err := l.store.GetLatestSnapshotBefore(ctx, now.AddDate(0, 0, -1)); err == nil && prior.TotalValue > 0 {
		snap.DailyReturn = (snap.TotalValue - prior.TotalValue) / prior.TotalValue
	}

	if data, err := json.Marshal(positions); err == nil {
		snap.PositionsJSON = string(data)
	}

	if err := l.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	l.logger.Info().
		Float64("total_value", snap.TotalValue).
		Float64("positions_value", positionsValue).
		Int("positions", len(positions)).
		Msg("snapshot saved")
	return snap, nil
}

// Summary aggregates the current portfolio state.
type Summary struct {
	TotalValue     float64
	CashBalance    float64
	PositionsValue float64
	TotalPnL       float64
	TotalPnLPct    float64
	PositionCount  int
	Positions      []models.Position
}

// Summarize reprices all positions and rolls them up into totals.
func (l *Ledger) Summarize(ctx context.Context, currentPrices map[string]float64) (*Summary, error) {
	positions, err := l.Positions(ctx, currentPrices)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		CashBalance:   l.CashBalance(),
		PositionCount: len(positions),
		Positions:     positions,
	}

	var costBasis float64
	for _, p := range positions {
		s.PositionsValue += p.MarketValue
		s.TotalPnL += p.UnrealizedPnL
		costBasis += p.Quantity * p.AvgCost
	}
	s.TotalValue = s.PositionsValue + s.CashBalance
	if costBasis > 0 {
		s.TotalPnLPct = s.TotalPnL / costBasis * 100
	}
	return s, nil
}

func (l *Ledger) invalidateCacheLocked() {
	l.cacheGood = false
	l.cached = nil
}
