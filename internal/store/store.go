// Package store provides the persistence layer for positions, transactions,
// recommendations, and portfolio snapshots.
package store

import (
	"context"
	"time"

	"stock-advisor/internal/models"
)

// PositionChange describes how a transaction affects its symbol's position.
type PositionChange int

const (
	// PositionUpsert writes the updated position row.
	PositionUpsert PositionChange = iota
	// PositionRemove deletes the position row (quantity reached zero).
	PositionRemove
)

// Store defines the persistence interface for the portfolio ledger.
type Store interface {
	// Positions
	GetPosition(ctx context.Context, symbol string) (*models.Position, error)
	GetPositions(ctx context.Context) ([]models.Position, error)

	// ApplyTransaction writes the transaction, applies the position change,
	// and when the transaction carries a recommendation id, marks that
	// recommendation executed. All three happen atomically or not at all.
	ApplyTransaction(ctx context.Context, txn *models.Transaction, pos *models.Position, change PositionChange) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)

	// CashFlow returns the net signed cash effect of every recorded
	// transaction: sells credit total_cost, buys debit it.
	CashFlow(ctx context.Context) (float64, error)

	// Recommendations
	SaveRecommendation(ctx context.Context, rec *models.Recommendation) error
	GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error)
	GetRecommendations(ctx context.Context, filter RecommendationFilter) ([]models.Recommendation, error)
	MarkRecommendationExecuted(ctx context.Context, id string, price float64, date time.Time) error
	GetRecommendationStats(ctx context.Context) (*RecommendationStats, error)

	// Snapshots
	SaveSnapshot(ctx context.Context, snap *models.PortfolioSnapshot) error
	GetLatestSnapshotBefore(ctx context.Context, t time.Time) (*models.PortfolioSnapshot, error)
	GetSnapshots(ctx context.Context, from, to time.Time) ([]models.PortfolioSnapshot, error)

	// Lifecycle
	Close() error
}

// TransactionFilter narrows transaction history queries. Zero values mean
// no constraint.
type TransactionFilter struct {
	Symbol    string
	Action    models.Action
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// RecommendationFilter narrows recommendation queries.
type RecommendationFilter struct {
	Symbol   string
	Action   models.Action
	Executed *bool
	Limit    int
}

// RecommendationStats aggregates recommendation history.
type RecommendationStats struct {
	Total         int
	Executed      int
	BuyCount      int
	SellCount     int
	HoldCount     int
	AvgConfidence float64
}
