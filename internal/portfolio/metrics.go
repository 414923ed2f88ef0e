package portfolio

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"stock-advisor/internal/errors"
	"stock-advisor/internal/models"
	"stock-advisor/internal/store"
)

// Annualization uses trading days and a flat risk-free rate.
const (
	tradingDaysPerYear = 252
	riskFreeRate       = 0.02
)

// concentrationReference is the position share treated as fully
// concentrated; the risk score is the largest share over this reference.
const concentrationReference = 20.0

// WeeklyPerformance compares the current portfolio value against the most
// recent snapshot at or before one week ago.
type WeeklyPerformance struct {
	CurrentValue     float64
	WeekAgoValue     float64
	WeeklyReturn     float64
	WeeklyVolatility float64
}

// PerformanceMetrics summarizes snapshot history over a lookback window.
type PerformanceMetrics struct {
	PeriodDays     int
	StartValue     float64
	EndValue       float64
	TotalReturn    float64
	AvgDailyReturn float64
	Volatility     float64
	SharpeRatio    float64
	MaxDrawdown    float64
	SnapshotCount  int
}

// DailyReturn compares the current total value against the most recent
// snapshot from at least one day ago.
func (l *Ledger) DailyReturn(ctx context.Context, currentValue float64) (float64, error) {
	prior, err := l.store.GetLatestSnapshotBefore(ctx, time.Now().AddDate(0, 0, -1))
	if err != nil {
		return 0, err
	}
	if prior.TotalValue <= 0 {
		return 0, errors.Wrap(errors.ErrDataUnavailable, "prior snapshot has no value")
	}
	return (currentValue - prior.TotalValue) / prior.TotalValue, nil
}

// Weekly computes the week-over-week return against the most recent
// snapshot at or before now minus seven days, plus the volatility of
// week-over-week returns across the last quarter of snapshots.
func (l *Ledger) Weekly(ctx context.Context, currentValue float64) (*WeeklyPerformance, error) {
	now := time.Now()
	prior, err := l.store.GetLatestSnapshotBefore(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	if prior.TotalValue <= 0 {
		return nil, errors.Wrap(errors.ErrDataUnavailable, "prior snapshot has no value")
	}

	perf := &WeeklyPerformance{
		CurrentValue: currentValue,
		WeekAgoValue: prior.TotalValue,
		WeeklyReturn: (currentValue - prior.TotalValue) / prior.TotalValue,
	}

	snaps, err := l.store.GetSnapshots(ctx, now.AddDate(0, 0, -91), now)
	if err != nil {
		return nil, err
	}
	perf.WeeklyVolatility = weeklyVolatility(snaps)
	return perf, nil
}

// weeklyVolatility buckets snapshots by ISO week, takes the last value of
// each week, and returns the sample stddev of week-over-week returns.
func weeklyVolatility(snaps []models.PortfolioSnapshot) float64 {
	if len(snaps) < 2 {
		return 0
	}

	var weekly []float64
	lastYear, lastWeek := -1, -1
	for _, s := range snaps {
		year, week := s.Timestamp.ISOWeek()
		if year == lastYear && week == lastWeek {
			weekly[len(weekly)-1] = s.TotalValue
			continue
		}
		weekly = append(weekly, s.TotalValue)
		lastYear, lastWeek = year, week
	}
	if len(weekly) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(weekly)-1)
	for i := 1; i < len(weekly); i++ {
		if weekly[i-1] > 0 {
			returns = append(returns, (weekly[i]-weekly[i-1])/weekly[i-1])
		}
	}
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil)
}

// ConcentrationRisk scores how dominated the portfolio is by its largest
// position: the largest position's percentage of total value over a 20%
// reference, capped at 5.
func ConcentrationRisk(positions []models.Position) float64 {
	var total, largest float64
	for _, p := range positions {
		total += p.MarketValue
		if p.MarketValue > largest {
			largest = p.MarketValue
		}
	}
	if total <= 0 {
		return 0
	}

	pct := largest / total * 100
	risk := pct / concentrationReference
	if risk > 5 {
		risk = 5
	}
	return risk
}

// Performance computes return and risk statistics from snapshot history
// over the last `days` days.
func (l *Ledger) Performance(ctx context.Context, days int) (*PerformanceMetrics, error) {
	now := time.Now()
	snaps, err := l.store.GetSnapshots(ctx, now.AddDate(0, 0, -days), now)
	if err != nil {
		return nil, err
	}
	if len(snaps) < 2 {
		return nil, errors.Wrapf(errors.ErrInsufficientHistory, "%d snapshots in window, need 2", len(snaps))
	}

	m := &PerformanceMetrics{
		PeriodDays:    days,
		StartValue:    snaps[0].TotalValue,
		EndValue:      snaps[len(snaps)-1].TotalValue,
		SnapshotCount: len(snaps),
	}
	if m.StartValue > 0 {
		m.TotalReturn = (m.EndValue - m.StartValue) / m.StartValue
	}

	returns := make([]float64, 0, len(snaps)-1)
	for i := 1; i < len(snaps); i++ {
		if snaps[i-1].TotalValue > 0 {
			returns = append(returns, (snaps[i].TotalValue-snaps[i-1].TotalValue)/snaps[i-1].TotalValue)
		}
	}
	if len(returns) == 0 {
		return m, nil
	}

	m.AvgDailyReturn = stat.Mean(returns, nil)
	if len(returns) >= 2 {
		m.Volatility = stat.StdDev(returns, nil)
	}
	if m.Volatility > 0 {
		dailyRiskFree := riskFreeRate / tradingDaysPerYear
		m.SharpeRatio = (m.AvgDailyReturn - dailyRiskFree) / m.Volatility * math.Sqrt(tradingDaysPerYear)
	}
	m.MaxDrawdown = maxDrawdown(snaps)
	return m, nil
}

// maxDrawdown returns the worst peak-to-trough decline as a fraction.
func maxDrawdown(snaps []models.PortfolioSnapshot) float64 {
	var peak, worst float64
	for _, s := range snaps {
		if s.TotalValue > peak {
			peak = s.TotalValue
		}
		if peak > 0 {
			dd := (peak - s.TotalValue) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// RecommendationStats aggregates the recommendation log.
func (l *Ledger) RecommendationStats(ctx context.Context) (*store.RecommendationStats, error) {
	return l.store.GetRecommendationStats(ctx)
}
