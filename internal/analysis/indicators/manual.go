package indicators

import (
	"stock-advisor/internal/models"
)

// ManualProvider implements every indicator directly, without an external
// technical-analysis library.
type ManualProvider struct{}

// ewm computes a non-adjusted exponentially weighted mean, seeded with the
// first value: out[t] = alpha*x[t] + (1-alpha)*out[t-1].
func ewm(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI smooths per-bar gains and losses with a non-adjusted EWM using
// center-of-mass = period-1 (alpha = 1/period). The value is 100 when only
// gains were seen, and undefined while both smoothed averages are zero.
// Bar 0 is always undefined: it has no delta.
func (p *ManualProvider) RSI(bars []models.PriceBar, period int, col Column) Series {
	n := len(bars)
	out := Undefined(n)
	if period <= 0 || n == 0 {
		return out
	}

	values := columnValues(bars, col)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	alpha := 1.0 / float64(period)
	avgGain := ewm(gains, alpha)
	avgLoss := ewm(losses, alpha)

	for i := 1; i < n; i++ {
		switch {
		case avgLoss[i] > 0:
			rs := avgGain[i] / avgLoss[i]
			out[i] = 100 - 100/(1+rs)
		case avgGain[i] > 0:
			// avgLoss is 0: rs tends to infinity.
			out[i] = 100
		}
		// Both averages zero: 0/0, value stays undefined.
	}

	return out
}

// SMA computes the trailing arithmetic mean; the first period-1 values are
// undefined.
func (p *ManualProvider) SMA(bars []models.PriceBar, period int, col Column) Series {
	n := len(bars)
	out := Undefined(n)
	if period <= 0 || n < period {
		return out
	}

	values := columnValues(bars, col)
	for i := period - 1; i < n; i++ {
		out[i] = mean(values[i-period+1 : i+1])
	}
	return out
}

// EMA computes the non-adjusted exponential moving average with
// span = period (alpha = 2/(period+1)), seeded with the first observation.
func (p *ManualProvider) EMA(bars []models.PriceBar, period int, col Column) Series {
	n := len(bars)
	if period <= 0 || n == 0 {
		return Undefined(n)
	}
	return Series(ewm(columnValues(bars, col), 2.0/float64(period+1)))
}

// MACD returns macd = EMA(fast) - EMA(slow), the signal line as EMA(signal)
// of the macd series, and their difference as the histogram.
func (p *ManualProvider) MACD(bars []models.PriceBar, fast, slow, signal int, col Column) (Series, Series, Series) {
	n := len(bars)
	if fast <= 0 || slow <= 0 || signal <= 0 || n == 0 {
		return Undefined(n), Undefined(n), Undefined(n)
	}

	values := columnValues(bars, col)
	fastEMA := ewm(values, 2.0/float64(fast+1))
	slowEMA := ewm(values, 2.0/float64(slow+1))

	macd := make([]float64, n)
	for i := range macd {
		macd[i] = fastEMA[i] - slowEMA[i]
	}

	signalLine := ewm(macd, 2.0/float64(signal+1))

	histogram := make([]float64, n)
	for i := range histogram {
		histogram[i] = macd[i] - signalLine[i]
	}

	return Series(macd), Series(signalLine), Series(histogram)
}

// BollingerBands returns SMA(window) plus/minus k trailing sample standard
// deviations.
func (p *ManualProvider) BollingerBands(bars []models.PriceBar, window int, k float64, col Column) (Series, Series, Series) {
	n := len(bars)
	upper := Undefined(n)
	middle := Undefined(n)
	lower := Undefined(n)
	if window <= 0 || n < window {
		return upper, middle, lower
	}

	values := columnValues(bars, col)
	for i := window - 1; i < n; i++ {
		slice := values[i-window+1 : i+1]
		m := mean(slice)
		sd := sampleStdDev(slice)
		middle[i] = m
		upper[i] = m + k*sd
		lower[i] = m - k*sd
	}
	return upper, middle, lower
}

// Stochastic returns %K over kPeriod and %D = SMA(%K, dPeriod). %K is
// undefined wherever the high-low range over the window is zero, and %D is
// undefined wherever its window contains an undefined %K.
func (p *ManualProvider) Stochastic(bars []models.PriceBar, kPeriod, dPeriod int) (Series, Series, error) {
	n := len(bars)
	percentK := Undefined(n)
	percentD := Undefined(n)
	if kPeriod <= 0 || dPeriod <= 0 {
		return percentK, percentD, ErrInvalidPeriod
	}
	if n == 0 {
		return percentK, percentD, nil
	}
	if !hasHighLow(bars) {
		return percentK, percentD, ErrMissingHighLow
	}

	highs := columnValues(bars, ColumnHigh)
	lows := columnValues(bars, ColumnLow)
	closes := columnValues(bars, ColumnClose)

	for i := kPeriod - 1; i < n; i++ {
		hh := highest(highs[i-kPeriod+1 : i+1])
		ll := lowest(lows[i-kPeriod+1 : i+1])
		if hh == ll {
			continue // zero range leaves %K undefined
		}
		percentK[i] = 100 * (closes[i] - ll) / (hh - ll)
	}

	for i := dPeriod - 1; i < n; i++ {
		window := percentK[i-dPeriod+1 : i+1]
		defined := true
		for _, v := range window {
			if v != v { // NaN
				defined = false
				break
			}
		}
		if defined {
			percentD[i] = mean(window)
		}
	}

	return percentK, percentD, nil
}
