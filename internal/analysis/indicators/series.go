// Package indicators provides technical indicator calculations over OHLCV
// price series. Every indicator output is aligned 1:1 with its input bars;
// positions inside an indicator's warm-up window carry an explicit undefined
// marker (NaN), never zero.
package indicators

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"stock-advisor/internal/models"
)

// Series is a sequence of indicator values aligned 1:1 with the input bars.
// Undefined values are math.NaN().
type Series []float64

// Undefined returns a Series of length n with every value undefined.
func Undefined(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Defined reports whether the value at index i is defined.
func (s Series) Defined(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i])
}

// Last returns the value at the final index and whether it is defined.
func (s Series) Last() (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	v := s[len(s)-1]
	return v, !math.IsNaN(v)
}

// At returns the value at index i counted from the end (0 is the last bar)
// and whether it is defined.
func (s Series) At(fromEnd int) (float64, bool) {
	i := len(s) - 1 - fromEnd
	if i < 0 || i >= len(s) {
		return 0, false
	}
	v := s[i]
	return v, !math.IsNaN(v)
}

// Column selects which PriceBar field an indicator operates on.
type Column string

const (
	ColumnOpen   Column = "open"
	ColumnHigh   Column = "high"
	ColumnLow    Column = "low"
	ColumnClose  Column = "close"
	ColumnVolume Column = "volume"
)

// columnValues extracts one column from the bars.
func columnValues(bars []models.PriceBar, col Column) []float64 {
	values := make([]float64, len(bars))
	for i, b := range bars {
		switch col {
		case ColumnOpen:
			values[i] = b.Open
		case ColumnHigh:
			values[i] = b.High
		case ColumnLow:
			values[i] = b.Low
		case ColumnVolume:
			values[i] = float64(b.Volume)
		default:
			values[i] = b.Close
		}
	}
	return values
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// sampleStdDev calculates the sample standard deviation (n-1 denominator).
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// highest returns the highest value in a slice.
func highest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	h := values[0]
	for _, v := range values[1:] {
		if v > h {
			h = v
		}
	}
	return h
}

// lowest returns the lowest value in a slice.
func lowest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	l := values[0]
	for _, v := range values[1:] {
		if v < l {
			l = v
		}
	}
	return l
}

// hasHighLow reports whether the bars carry usable high/low data.
// Close-only imports leave both fields zero on every bar.
func hasHighLow(bars []models.PriceBar) bool {
	for _, b := range bars {
		if b.High != 0 || b.Low != 0 {
			return true
		}
	}
	return false
}
