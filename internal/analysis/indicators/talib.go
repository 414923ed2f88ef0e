package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"stock-advisor/internal/models"
)

// TalibProvider delegates the calculations to the go-talib library.
// talib zero-fills the warm-up window of its outputs, so every result is
// re-marked with the NaN undefined contract before being returned.
type TalibProvider struct{}

// markWarmup converts the first `warmup` values (and any NaN leftovers) of a
// talib output to the undefined marker.
func markWarmup(values []float64, warmup int) Series {
	out := make(Series, len(values))
	for i, v := range values {
		if i < warmup || math.IsNaN(v) {
			out[i] = math.NaN()
		} else {
			out[i] = v
		}
	}
	return out
}

func (p *TalibProvider) RSI(bars []models.PriceBar, period int, col Column) Series {
	n := len(bars)
	if period <= 0 || n <= period {
		return Undefined(n)
	}
	return markWarmup(talib.Rsi(columnValues(bars, col), period), period)
}

func (p *TalibProvider) SMA(bars []models.PriceBar, period int, col Column) Series {
	n := len(bars)
	if period <= 0 || n < period {
		return Undefined(n)
	}
	return markWarmup(talib.Sma(columnValues(bars, col), period), period-1)
}

func (p *TalibProvider) EMA(bars []models.PriceBar, period int, col Column) Series {
	n := len(bars)
	if period <= 0 || n < period {
		return Undefined(n)
	}
	// talib seeds EMA with an SMA over the first period bars, so its values
	// are defined only from index period-1.
	return markWarmup(talib.Ema(columnValues(bars, col), period), period-1)
}

func (p *TalibProvider) MACD(bars []models.PriceBar, fast, slow, signal int, col Column) (Series, Series, Series) {
	n := len(bars)
	warmup := slow + signal - 2
	if fast <= 0 || slow <= 0 || signal <= 0 || n <= warmup {
		return Undefined(n), Undefined(n), Undefined(n)
	}
	macd, signalLine, histogram := talib.Macd(columnValues(bars, col), fast, slow, signal)
	return markWarmup(macd, warmup), markWarmup(signalLine, warmup), markWarmup(histogram, warmup)
}

func (p *TalibProvider) BollingerBands(bars []models.PriceBar, window int, k float64, col Column) (Series, Series, Series) {
	n := len(bars)
	if window <= 0 || n < window {
		return Undefined(n), Undefined(n), Undefined(n)
	}
	upper, middle, lower := talib.BBands(columnValues(bars, col), window, k, k, talib.SMA)
	return markWarmup(upper, window-1), markWarmup(middle, window-1), markWarmup(lower, window-1)
}

func (p *TalibProvider) Stochastic(bars []models.PriceBar, kPeriod, dPeriod int) (Series, Series, error) {
	n := len(bars)
	warmup := kPeriod + dPeriod - 2
	if kPeriod <= 0 || dPeriod <= 0 {
		return Undefined(n), Undefined(n), ErrInvalidPeriod
	}
	if n <= warmup {
		return Undefined(n), Undefined(n), nil
	}
	if !hasHighLow(bars) {
		return Undefined(n), Undefined(n), ErrMissingHighLow
	}

	percentK, percentD := talib.StochF(
		columnValues(bars, ColumnHigh),
		columnValues(bars, ColumnLow),
		columnValues(bars, ColumnClose),
		kPeriod, dPeriod, talib.SMA,
	)
	// talib aligns both outputs to the %D lookback.
	return markWarmup(percentK, warmup), markWarmup(percentD, warmup), nil
}
