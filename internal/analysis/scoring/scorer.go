// Package scoring turns the latest indicator values for a symbol into a
// bounded composite score, an action, a confidence level, and a suggested
// position size. All scoring is deterministic: the same frame, symbol info,
// and risk profile always produce the same recommendation.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"stock-advisor/internal/analysis/indicators"
	"stock-advisor/internal/models"
)

// Indicator category names used as keys in score maps and weight lookups.
const (
	CategoryRSI       = "rsi"
	CategoryMACD      = "macd"
	CategoryMA        = "moving_averages"
	CategoryBollinger = "bollinger_bands"
	CategoryVolume    = "volume"
)

// Action decision thresholds. Composite scores at exactly the threshold
// stay HOLD.
const (
	buyThreshold  = 0.15
	sellThreshold = -0.15
)

// IndicatorScore is one category's bounded score in [-1, 1] with the
// human-readable reason behind it.
type IndicatorScore struct {
	Score  float64
	Reason string
}

// Result is a full recommendation for one symbol.
type Result struct {
	Symbol          string
	Action          models.Action
	Score           float64
	Confidence      float64
	CurrentPrice    float64
	PositionSizePct float64
	Reasoning       string
	Details         []string
	Scores          map[string]IndicatorScore
	RiskProfile     RiskProfile
	Timestamp       time.Time
}

// Recommendation converts the result into the persistable model.
func (r *Result) Recommendation() models.Recommendation {
	scores := make(map[string]float64, len(r.Scores))
	for name, s := range r.Scores {
		scores[name] = s.Score
	}
	return models.Recommendation{
		Symbol:     r.Symbol,
		Action:     r.Action,
		Score:      r.Score,
		Confidence: r.Confidence,
		Reasoning:  r.Reasoning,
		Scores:     scores,
		Timestamp:  r.Timestamp,
	}
}

// Engine scores indicator frames under a fixed risk profile.
type Engine struct {
	profile RiskProfile
	weights Weights
	sizing  Sizing
}

// NewEngine validates the profile and returns a ready scorer.
func NewEngine(profile RiskProfile) (*Engine, error) {
	weights, err := ProfileWeights(profile)
	if err != nil {
		return nil, err
	}
	sizing, err := ProfileSizing(profile)
	if err != nil {
		return nil, err
	}
	return &Engine{profile: profile, weights: weights, sizing: sizing}, nil
}

// Profile returns the risk profile the engine was built with.
func (e *Engine) Profile() RiskProfile { return e.profile }

// Score evaluates the frame's latest bar. info may be nil; it is only used
// for the beta-based volatility adjustment of the position size. An empty
// frame yields a HOLD with zero confidence, never an error.
func (e *Engine) Score(symbol string, frame *indicators.Frame, info *models.SymbolInfo) Result {
	result := Result{
		Symbol:      symbol,
		Scores:      make(map[string]IndicatorScore),
		RiskProfile: e.profile,
		Timestamp:   time.Now(),
	}

	price, ok := frame.LastClose()
	if !ok {
		result.Action = models.ActionHold
		result.Reasoning = "no price data available"
		return result
	}
	result.CurrentPrice = price
	result.Timestamp = frame.Bars[len(frame.Bars)-1].Timestamp

	if rsi, ok := frame.Get(indicators.SeriesRSI).Last(); ok {
		score, reason := scoreRSI(rsi)
		result.Scores[CategoryRSI] = IndicatorScore{Score: score, Reason: reason}
	}
	if score, reason, ok := scoreMACD(frame); ok {
		result.Scores[CategoryMACD] = IndicatorScore{Score: score, Reason: reason}
	}
	if score, reason, ok := scoreMovingAverages(price, frame); ok {
		result.Scores[CategoryMA] = IndicatorScore{Score: score, Reason: reason}
	}
	if score, reason, ok := scoreBollinger(price, frame); ok {
		result.Scores[CategoryBollinger] = IndicatorScore{Score: score, Reason: reason}
	}
	if score, reason, ok := scoreVolume(frame); ok {
		result.Scores[CategoryVolume] = IndicatorScore{Score: score, Reason: reason}
	}

	result.Score = e.composite(result.Scores)
	result.Action, result.Confidence = decide(result.Score)
	result.PositionSizePct = e.positionSize(result.Confidence, info)
	result.Reasoning = fmt.Sprintf("overall score %.2f: %s with %.0f%% confidence",
		result.Score, result.Action, result.Confidence)
	result.Details = e.detailLines(result.Scores)

	return result
}

// composite computes the weighted mean over the categories that were
// actually scorable. Weights are renormalized over the available subset so
// the composite stays in [-1, 1] however many categories are missing.
func (e *Engine) composite(scores map[string]IndicatorScore) float64 {
	var total, totalWeight float64
	for name, s := range scores {
		w := e.categoryWeight(name)
		total += s.Score * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return total / totalWeight
}

func (e *Engine) categoryWeight(name string) float64 {
	switch name {
	case CategoryRSI:
		return e.weights.RSI
	case CategoryMACD:
		return e.weights.MACD
	case CategoryMA:
		return e.weights.MA
	case CategoryBollinger:
		return e.weights.Bollinger
	case CategoryVolume:
		return e.weights.Volume
	}
	return 0
}

func decide(composite float64) (models.Action, float64) {
	switch {
	case composite > buyThreshold:
		return models.ActionBuy, signalConfidence(composite)
	case composite < sellThreshold:
		return models.ActionSell, signalConfidence(composite)
	default:
		return models.ActionHold, math.Max(50, 80-math.Abs(composite)*100)
	}
}

func signalConfidence(composite float64) float64 {
	c := 20 + math.Abs(composite)*150
	if c > 95 {
		return 95
	}
	if c < 0 {
		return 0
	}
	return c
}

// positionSize suggests a portfolio percentage: the profile's base
// allocation scaled by confidence, derated for high-beta names and
// inflated for low-beta ones, capped at the profile maximum.
func (e *Engine) positionSize(confidence float64, info *models.SymbolInfo) float64 {
	size := e.sizing.BaseAllocationPct * (confidence / 100)

	if info != nil && info.Beta != 0 {
		switch {
		case info.Beta > 1.5:
			size *= 0.7
		case info.Beta < 0.7:
			size *= 1.2
		}
	}

	if size > e.sizing.MaxAllocationPct {
		size = e.sizing.MaxAllocationPct
	}
	return size
}

func (e *Engine) detailLines(scores map[string]IndicatorScore) []string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		label := strings.ReplaceAll(name, "_", " ")
		lines = append(lines, fmt.Sprintf("%s (%.0f%%): %s",
			label, e.categoryWeight(name)*100, scores[name].Reason))
	}
	return lines
}

func scoreRSI(rsi float64) (float64, string) {
	switch {
	case rsi < 30:
		return 0.8, "RSI indicates oversold condition (strong buy signal)"
	case rsi < 40:
		return 0.6, "RSI shows potential buying opportunity"
	case rsi > 70:
		return -0.8, "RSI indicates overbought condition (strong sell signal)"
	case rsi > 60:
		return -0.6, "RSI suggests potential selling opportunity"
	default:
		return 0, "RSI in neutral range"
	}
}

// scoreMACD detects crossovers of the MACD line against its signal line.
// Bars without a crossover score on the MACD line's position relative to
// zero instead.
func scoreMACD(frame *indicators.Frame) (float64, string, bool) {
	macd := frame.Get(indicators.SeriesMACD)
	signal := frame.Get(indicators.SeriesMACDSignal)

	current, ok1 := macd.At(0)
	prev, ok2 := macd.At(1)
	currentSignal, ok3 := signal.At(0)
	prevSignal, ok4 := signal.At(1)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0, "", false
	}

	switch {
	case current > currentSignal && prev <= prevSignal:
		return 0.7, "MACD bullish crossover detected", true
	case current < currentSignal && prev >= prevSignal:
		return -0.7, "MACD bearish crossover detected", true
	case current > 0:
		return 0.3, "MACD above zero line (bullish momentum)", true
	case current < 0:
		return -0.3, "MACD below zero line (bearish momentum)", true
	default:
		return 0, "MACD neutral", true
	}
}

// scoreMovingAverages averages two sub-signals when available: current
// price relative to the 20-period average, and a 20/50 golden or death
// cross on the latest bar.
func scoreMovingAverages(price float64, frame *indicators.Frame) (float64, string, bool) {
	var scores []float64
	var reasons []string

	sma20 := frame.Get(indicators.SMAName(20))
	sma50 := frame.Get(indicators.SMAName(50))

	if v, ok := sma20.Last(); ok && v > 0 {
		diff := (price - v) / v
		switch {
		case diff > 0.02:
			scores = append(scores, 0.5)
			reasons = append(reasons, "price well above 20-day SMA")
		case diff > 0:
			scores = append(scores, 0.3)
			reasons = append(reasons, "price above 20-day SMA")
		case diff < -0.02:
			scores = append(scores, -0.5)
			reasons = append(reasons, "price well below 20-day SMA")
		default:
			scores = append(scores, -0.3)
			reasons = append(reasons, "price below 20-day SMA")
		}
	}

	cur20, ok1 := sma20.At(0)
	prev20, ok2 := sma20.At(1)
	cur50, ok3 := sma50.At(0)
	prev50, ok4 := sma50.At(1)
	if ok1 && ok2 && ok3 && ok4 {
		if cur20 > cur50 && prev20 <= prev50 {
			scores = append(scores, 0.8)
			reasons = append(reasons, "golden cross detected (20-day > 50-day MA)")
		} else if cur20 < cur50 && prev20 >= prev50 {
			scores = append(scores, -0.8)
			reasons = append(reasons, "death cross detected (20-day < 50-day MA)")
		}
	}

	if len(scores) == 0 {
		return 0, "", false
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores)), strings.Join(reasons, "; "), true
}

func scoreBollinger(price float64, frame *indicators.Frame) (float64, string, bool) {
	upper, ok1 := frame.Get(indicators.SeriesBBUpper).Last()
	lower, ok2 := frame.Get(indicators.SeriesBBLower).Last()
	if !ok1 || !ok2 {
		return 0, "", false
	}

	bandRange := upper - lower
	if bandRange <= 0 {
		return 0, "Bollinger Bands too narrow", true
	}

	position := (price - lower) / bandRange
	switch {
	case position > 0.8:
		return -0.6, fmt.Sprintf("price near upper Bollinger Band (%.0f%% of range)", position*100), true
	case position < 0.2:
		return 0.6, fmt.Sprintf("price near lower Bollinger Band (%.0f%% of range)", position*100), true
	default:
		return 0, fmt.Sprintf("price in middle of Bollinger Bands (%.0f%% of range)", position*100), true
	}
}

func scoreVolume(frame *indicators.Frame) (float64, string, bool) {
	if frame.Empty() {
		return 0, "", false
	}
	current := float64(frame.Bars[len(frame.Bars)-1].Volume)

	avg, ok := frame.Get(indicators.SeriesVolumeMA).Last()
	if !ok {
		// Warm-up not met; the day's volume scores against itself and
		// lands in the neutral bucket.
		avg = current
	}
	if avg == 0 {
		return 0, "no volume data available", true
	}

	ratio := current / avg
	switch {
	case ratio > 2.0:
		return 0.4, fmt.Sprintf("very high volume (%.1fx average), strong conviction", ratio), true
	case ratio > 1.5:
		return 0.2, fmt.Sprintf("high volume (%.1fx average), good conviction", ratio), true
	case ratio < 0.5:
		return -0.2, fmt.Sprintf("low volume (%.1fx average), weak conviction", ratio), true
	default:
		return 0, fmt.Sprintf("normal volume (%.1fx average)", ratio), true
	}
}
