// Package holdings analyzes the portfolio's open positions: each one is
// run through the indicator and scoring engines and merged with its ledger
// state into position-specific advice plus a portfolio-level summary.
package holdings

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"stock-advisor/internal/analysis/indicators"
	"stock-advisor/internal/analysis/scoring"
	"stock-advisor/internal/marketdata"
	"stock-advisor/internal/models"
	"stock-advisor/internal/portfolio"
)

// TechnicalSummary is the latest indicator readout for one holding.
type TechnicalSummary struct {
	RSI               float64
	SMA20             float64
	SMA50             float64
	MACD              float64
	BollingerPosition string // overbought, oversold, normal
	Trend             string // bullish or bearish vs the 20-day average
}

// HoldingAnalysis is the full result for one position.
type HoldingAnalysis struct {
	Symbol         string
	Quantity       float64
	AvgCost        float64
	CurrentPrice   float64
	MarketValue    float64
	UnrealizedPnL  float64
	PnLPct         float64
	Action         models.Action
	Confidence     float64
	Score          float64
	Reasoning      string
	PositionAdvice string
	Technical      TechnicalSummary
	AnalyzedAt     time.Time
}

// SignalRef points at one holding's recommendation strength.
type SignalRef struct {
	Symbol     string
	Confidence float64
	PnLPct     float64
}

// Summary aggregates the per-holding results.
type Summary struct {
	TotalHoldings int
	Analyzed      int
	BuySignals    int
	SellSignals   int
	HoldSignals   int
	AvgConfidence float64
	StrongestBuy  *SignalRef
	StrongestSell *SignalRef
}

// Report is the outcome of analyzing every open position. Failures are
// recorded per symbol and never abort the batch.
type Report struct {
	Holdings []HoldingAnalysis
	Errors   map[string]string
	Summary  Summary
}

// Analyzer orchestrates market data, indicators, and scoring across the
// ledger's positions.
type Analyzer struct {
	ledger *portfolio.Ledger
	source marketdata.Source
	engine *scoring.Engine
	prov   indicators.Provider
	params indicators.Params
	period marketdata.Period
	logger zerolog.Logger
}

// NewAnalyzer wires an analyzer over the given collaborators.
func NewAnalyzer(ledger *portfolio.Ledger, source marketdata.Source, engine *scoring.Engine,
	prov indicators.Provider, period marketdata.Period, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		ledger: ledger,
		source: source,
		engine: engine,
		prov:   prov,
		params: indicators.DefaultParams(),
		period: period,
		logger: logger.With().Str("component", "holdings").Logger(),
	}
}

// AnalyzeAll runs every open position through the analysis pipeline. A
// failure on one symbol is recorded and the rest continue.
func (a *Analyzer) AnalyzeAll(ctx context.Context, currentPrices map[string]float64) (*Report, error) {
	positions, err := a.ledger.Positions(ctx, currentPrices)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Errors:  make(map[string]string),
		Summary: Summary{TotalHoldings: len(positions)},
	}

	for _, pos := range positions {
		analysis, err := a.AnalyzeHolding(ctx, pos)
		if err != nil {
			a.logger.Warn().Err(err).Str("symbol", pos.Symbol).Msg("holding analysis failed")
			report.Errors[pos.Symbol] = err.Error()
			continue
		}
		report.Holdings = append(report.Holdings, *analysis)
	}

	summarize(report)
	return report, nil
}

// AnalyzeHolding analyzes one position against fresh market data.
func (a *Analyzer) AnalyzeHolding(ctx context.Context, pos models.Position) (*HoldingAnalysis, error) {
	bars, err := a.source.PriceSeries(ctx, pos.Symbol, a.period)
	if err != nil {
		return nil, err
	}

	var info *models.SymbolInfo
	if si, err := a.source.SymbolInfo(ctx, pos.Symbol); err == nil {
		info = si
	}

	frame := indicators.CalculateAll(a.prov, bars, a.params)
	result := a.engine.Score(pos.Symbol, frame, info)

	price := result.CurrentPrice
	if price <= 0 {
		price = pos.AvgCost
	}
	pos.Reprice(price, time.Now())

	analysis := &HoldingAnalysis{
		Symbol:         pos.Symbol,
		Quantity:       pos.Quantity,
		AvgCost:        pos.AvgCost,
		CurrentPrice:   price,
		MarketValue:    pos.MarketValue,
		UnrealizedPnL:  pos.UnrealizedPnL,
		PnLPct:         pos.UnrealizedPnLPct,
		Action:         result.Action,
		Confidence:     result.Confidence,
		Score:          result.Score,
		Reasoning:      result.Reasoning,
		PositionAdvice: positionAdvice(result.Action, result.Confidence, pos.UnrealizedPnLPct, pos.Quantity),
		Technical:      technicalSummary(frame, price),
		AnalyzedAt:     time.Now(),
	}
	return analysis, nil
}

// positionAdvice scales add/reduce suggestions by confidence tier and the
// position's unrealized PnL.
func positionAdvice(action models.Action, confidence, pnlPct, quantity float64) string {
	switch action {
	case models.ActionBuy:
		switch {
		case confidence > 75:
			add := math.Max(math.Floor(quantity*0.25), 10)
			return fmt.Sprintf("strong BUY signal, consider adding ~%.0f shares to position", add)
		case confidence > 60:
			add := math.Max(math.Floor(quantity*0.15), 5)
			return fmt.Sprintf("moderate BUY signal, consider adding ~%.0f shares", add)
		default:
			return "weak BUY signal, hold current position and monitor for stronger signals"
		}
	case models.ActionSell:
		switch {
		case confidence > 75:
			if pnlPct > 10 {
				return "strong SELL signal, consider taking profits and reducing position by 50-75%"
			}
			return "strong SELL signal, consider reducing position to limit losses"
		case confidence > 60:
			reduce := math.Max(math.Floor(quantity*0.3), 10)
			return fmt.Sprintf("moderate SELL signal, consider reducing by ~%.0f shares", reduce)
		default:
			return "weak SELL signal, monitor closely and consider partial profit-taking if profitable"
		}
	default:
		switch {
		case pnlPct > 20:
			return "HOLD, strong position, consider taking some profits at these levels"
		case pnlPct < -15:
			return "HOLD, position underwater, monitor for recovery or consider a stop-loss"
		default:
			return "HOLD, maintain current position and await clearer signals"
		}
	}
}

func technicalSummary(frame *indicators.Frame, price float64) TechnicalSummary {
	var ts TechnicalSummary
	if v, ok := frame.Get(indicators.SeriesRSI).Last(); ok {
		ts.RSI = v
	}
	if v, ok := frame.Get(indicators.SMAName(20)).Last(); ok {
		ts.SMA20 = v
		if price > v {
			ts.Trend = "bullish"
		} else {
			ts.Trend = "bearish"
		}
	}
	if v, ok := frame.Get(indicators.SMAName(50)).Last(); ok {
		ts.SMA50 = v
	}
	if v, ok := frame.Get(indicators.SeriesMACD).Last(); ok {
		ts.MACD = v
	}

	upper, okU := frame.Get(indicators.SeriesBBUpper).Last()
	lower, okL := frame.Get(indicators.SeriesBBLower).Last()
	switch {
	case okU && price > upper:
		ts.BollingerPosition = "overbought"
	case okL && price < lower:
		ts.BollingerPosition = "oversold"
	case okU && okL:
		ts.BollingerPosition = "normal"
	}
	return ts
}

func summarize(report *Report) {
	s := &report.Summary
	s.Analyzed = len(report.Holdings)

	var totalConfidence float64
	for i := range report.Holdings {
		h := &report.Holdings[i]
		totalConfidence += h.Confidence
		ref := SignalRef{Symbol: h.Symbol, Confidence: h.Confidence, PnLPct: h.PnLPct}

		switch h.Action {
		case models.ActionBuy:
			s.BuySignals++
			if s.StrongestBuy == nil || ref.Confidence > s.StrongestBuy.Confidence {
				r := ref
				s.StrongestBuy = &r
			}
		case models.ActionSell:
			s.SellSignals++
			if s.StrongestSell == nil || ref.Confidence > s.StrongestSell.Confidence {
				r := ref
				s.StrongestSell = &r
			}
		default:
			s.HoldSignals++
		}
	}
	if s.Analyzed > 0 {
		s.AvgConfidence = totalConfidence / float64(s.Analyzed)
	}
}
