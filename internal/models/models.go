// Package models provides domain models for the advisor application.
package models

import (
	"time"
)

// Action represents a recommended or executed trade direction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// PriceBar represents OHLCV data for a time period.
// Sequences are time-ordered with ascending, unique timestamps.
type PriceBar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// SymbolInfo holds company metadata and metrics for a symbol.
type SymbolInfo struct {
	Symbol       string
	CompanyName  string
	Sector       string
	Industry     string
	MarketCap    float64
	PERatio      float64
	Beta         float64
	CurrentPrice float64
}

// Position represents a holding of a symbol with quantity and cost basis.
// A position with quantity 0 does not exist; it is removed, never retained
// as a zero row.
type Position struct {
	Symbol           string
	Quantity         float64
	AvgCost          float64
	CurrentPrice     float64
	MarketValue      float64
	UnrealizedPnL    float64
	UnrealizedPnLPct float64
	EntryDate        time.Time
	LastUpdated      time.Time
}

// Reprice recalculates the market-value fields against a current price.
// The PnL percentage is 0 when the cost basis is 0.
func (p *Position) Reprice(currentPrice float64, now time.Time) {
	p.CurrentPrice = currentPrice
	p.MarketValue = p.Quantity * currentPrice
	costBasis := p.Quantity * p.AvgCost
	p.UnrealizedPnL = p.MarketValue - costBasis
	if costBasis > 0 {
		p.UnrealizedPnLPct = p.UnrealizedPnL / costBasis * 100
	} else {
		p.UnrealizedPnLPct = 0
	}
	p.LastUpdated = now
}

// Transaction represents a completed buy/sell entry in the ledger.
// Transactions are append-only.
type Transaction struct {
	ID               string
	Symbol           string
	Action           Action
	Quantity         float64
	Price            float64
	TotalCost        float64
	Commission       float64
	Timestamp        time.Time
	RecommendationID string
	Notes            string
}

// Recommendation represents a generated recommendation and its outcome.
// The executed flag is one-way: it is set only through an associated
// transaction, and the execution link is immutable once set.
type Recommendation struct {
	ID             string
	Symbol         string
	Action         Action
	Score          float64
	Confidence     float64
	Reasoning      string
	Scores         map[string]float64
	TargetPrice    float64
	StopLoss       float64
	Timestamp      time.Time
	Executed       bool
	ExecutionPrice float64
	ExecutionDate  time.Time
	OutcomeScore   float64
}

// PortfolioSnapshot captures the portfolio state at one point in time.
// Snapshots are immutable once written and are used only for historical
// performance queries.
type PortfolioSnapshot struct {
	ID             string
	Timestamp      time.Time
	TotalValue     float64
	CashBalance    float64
	PositionsValue float64
	TotalPnL       float64
	DailyReturn    float64
	PositionsJSON  string
}
