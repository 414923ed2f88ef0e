// Package marketdata retrieves price history and company metadata for
// symbols. All calls are blocking and single-attempt; callers decide how to
// degrade when a fetch fails.
package marketdata

import (
	"context"
	"sort"
	"time"

	"stock-advisor/internal/errors"
	"stock-advisor/internal/models"
)

// Period selects how much daily history to fetch.
type Period string

const (
	PeriodMonth    Period = "1mo"
	PeriodQuarter  Period = "3mo"
	PeriodHalfYear Period = "6mo"
	PeriodYear     Period = "1y"
	PeriodTwoYears Period = "2y"
)

// Source provides price series and symbol metadata.
type Source interface {
	// PriceSeries returns daily bars in ascending time order. An unknown
	// symbol or empty response yields ErrDataUnavailable.
	PriceSeries(ctx context.Context, symbol string, period Period) ([]models.PriceBar, error)

	// SymbolInfo returns company metadata including the current price.
	SymbolInfo(ctx context.Context, symbol string) (*models.SymbolInfo, error)
}

// StaticSource serves canned data, used in tests and offline analysis.
type StaticSource struct {
	Bars map[string][]models.PriceBar
	Info map[string]*models.SymbolInfo
}

// NewStaticSource returns an empty static source ready for seeding.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		Bars: make(map[string][]models.PriceBar),
		Info: make(map[string]*models.SymbolInfo),
	}
}

// SetBars seeds daily bars for a symbol, sorting them into ascending order.
func (s *StaticSource) SetBars(symbol string, bars []models.PriceBar) {
	sorted := make([]models.PriceBar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	s.Bars[symbol] = sorted
}

// SetInfo seeds metadata for a symbol.
func (s *StaticSource) SetInfo(symbol string, info models.SymbolInfo) {
	info.Symbol = symbol
	s.Info[symbol] = &info
}

func (s *StaticSource) PriceSeries(_ context.Context, symbol string, _ Period) ([]models.PriceBar, error) {
	bars, ok := s.Bars[symbol]
	if !ok || len(bars) == 0 {
		return nil, errors.NewDataError(symbol, "no price history seeded", errors.ErrDataUnavailable)
	}
	return bars, nil
}

func (s *StaticSource) SymbolInfo(_ context.Context, symbol string) (*models.SymbolInfo, error) {
	info, ok := s.Info[symbol]
	if !ok {
		return nil, errors.NewDataError(symbol, "no symbol info seeded", errors.ErrSymbolNotFound)
	}
	return info, nil
}

// GenerateBars builds a deterministic daily series ending today, useful for
// seeding tests. The closes walk the given values; volume alternates around
// the base volume.
func GenerateBars(closes []float64, baseVolume int64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	start := time.Now().AddDate(0, 0, -len(closes))
	for i, c := range closes {
		vol := baseVolume
		if i%2 == 1 {
			vol = baseVolume + baseVolume/10
		}
		bars[i] = models.PriceBar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c * 0.995,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    vol,
		}
	}
	return bars
}
