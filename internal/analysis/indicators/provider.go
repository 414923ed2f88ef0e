package indicators

import (
	"errors"
	"fmt"

	"stock-advisor/internal/models"
)

var (
	// ErrInvalidPeriod is returned when an indicator period is invalid.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrMissingHighLow is returned by indicators that require high/low data
	// when the bars carry only close prices.
	ErrMissingHighLow = errors.New("high/low data unavailable")
)

// Provider computes indicator series over a price/volume sequence. Two
// variants exist: ManualProvider implements the calculations directly, and
// TalibProvider delegates to the go-talib library. The variant is selected
// at construction, never at call time.
//
// An empty or too-short input yields an entirely-undefined output series,
// not an error. Both variants share the NaN undefined-marker contract.
type Provider interface {
	// RSI computes the Relative Strength Index over the given column.
	RSI(bars []models.PriceBar, period int, col Column) Series
	// SMA computes a simple trailing moving average over the given column.
	SMA(bars []models.PriceBar, period int, col Column) Series
	// EMA computes a non-adjusted exponentially weighted moving average
	// (span = period) seeded with the first observation.
	EMA(bars []models.PriceBar, period int, col Column) Series
	// MACD returns the MACD line, its signal line and the histogram.
	MACD(bars []models.PriceBar, fast, slow, signal int, col Column) (macd, signalLine, histogram Series)
	// BollingerBands returns the upper, middle and lower bands
	// (middle = SMA(window), bands at k sample standard deviations).
	BollingerBands(bars []models.PriceBar, window int, k float64, col Column) (upper, middle, lower Series)
	// Stochastic returns %K and %D. It is the only indicator that needs
	// high/low columns and fails when they are absent.
	Stochastic(bars []models.PriceBar, kPeriod, dPeriod int) (percentK, percentD Series, err error)
}

// ProviderKind selects a Provider implementation.
type ProviderKind string

const (
	ProviderManual ProviderKind = "manual"
	ProviderTalib  ProviderKind = "talib"
)

// NewProvider creates the Provider variant named by kind.
func NewProvider(kind ProviderKind) (Provider, error) {
	switch kind {
	case ProviderManual, "":
		return &ManualProvider{}, nil
	case ProviderTalib:
		return &TalibProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown indicator provider: %q", kind)
	}
}
