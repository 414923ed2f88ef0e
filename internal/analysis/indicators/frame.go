package indicators

import (
	"strconv"
	"time"

	"stock-advisor/internal/models"
)

// Canonical series names produced by CalculateAll.
const (
	SeriesRSI           = "rsi"
	SeriesMACD          = "macd"
	SeriesMACDSignal    = "macd_signal"
	SeriesMACDHistogram = "macd_histogram"
	SeriesBBUpper       = "bb_upper"
	SeriesBBMiddle      = "bb_middle"
	SeriesBBLower       = "bb_lower"
	SeriesStochK        = "stoch_k"
	SeriesStochD        = "stoch_d"
	SeriesVolumeMA      = "volume_ma"
)

// SMAName and EMAName build the canonical names for moving-average series.
func SMAName(period int) string { return "sma_" + strconv.Itoa(period) }
func EMAName(period int) string { return "ema_" + strconv.Itoa(period) }

// Params holds the periods used by CalculateAll.
type Params struct {
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	MAPeriods    []int
	BBWindow     int
	BBStdDev     float64
	StochKPeriod int
	StochDPeriod int
	VolumePeriod int
}

// DefaultParams returns the standard indicator parameterization.
func DefaultParams() Params {
	return Params{
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		MAPeriods:    []int{20, 50, 200},
		BBWindow:     20,
		BBStdDev:     2.0,
		StochKPeriod: 14,
		StochDPeriod: 3,
		VolumePeriod: 20,
	}
}

// Frame holds the input bars and every computed indicator series, all
// aligned 1:1 by index.
type Frame struct {
	Bars   []models.PriceBar
	Series map[string]Series
}

// Empty reports whether the frame has no bars.
func (f *Frame) Empty() bool {
	return f == nil || len(f.Bars) == 0
}

// Get returns a named series; a missing name yields an all-undefined series
// so callers never need a presence check before indexing.
func (f *Frame) Get(name string) Series {
	if f == nil {
		return nil
	}
	if s, ok := f.Series[name]; ok {
		return s
	}
	return Undefined(len(f.Bars))
}

// LastClose returns the close of the final bar.
func (f *Frame) LastClose() (float64, bool) {
	if f.Empty() {
		return 0, false
	}
	return f.Bars[len(f.Bars)-1].Close, true
}

// CalculateAll runs every indicator over the bars and merges the results
// into one Frame. A failing indicator (for example Stochastic over bars
// without high/low data) is omitted; it never aborts computation of the
// others. Empty or too-short input produces all-undefined series.
func CalculateAll(p Provider, bars []models.PriceBar, params Params) *Frame {
	frame := &Frame{
		Bars:   bars,
		Series: make(map[string]Series),
	}

	frame.Series[SeriesRSI] = p.RSI(bars, params.RSIPeriod, ColumnClose)

	macd, signal, histogram := p.MACD(bars, params.MACDFast, params.MACDSlow, params.MACDSignal, ColumnClose)
	frame.Series[SeriesMACD] = macd
	frame.Series[SeriesMACDSignal] = signal
	frame.Series[SeriesMACDHistogram] = histogram

	for _, period := range params.MAPeriods {
		frame.Series[SMAName(period)] = p.SMA(bars, period, ColumnClose)
		frame.Series[EMAName(period)] = p.EMA(bars, period, ColumnClose)
	}

	upper, middle, lower := p.BollingerBands(bars, params.BBWindow, params.BBStdDev, ColumnClose)
	frame.Series[SeriesBBUpper] = upper
	frame.Series[SeriesBBMiddle] = middle
	frame.Series[SeriesBBLower] = lower

	if percentK, percentD, err := p.Stochastic(bars, params.StochKPeriod, params.StochDPeriod); err == nil {
		frame.Series[SeriesStochK] = percentK
		frame.Series[SeriesStochD] = percentD
	}

	frame.Series[SeriesVolumeMA] = p.SMA(bars, params.VolumePeriod, ColumnVolume)

	return frame
}

// Snapshot is the set of latest defined indicator values for one symbol.
// Indicators whose warm-up requirement was not met are absent from Values.
type Snapshot struct {
	Symbol    string
	Timestamp time.Time
	Close     float64
	Values    map[string]float64
}

// LatestSnapshot extracts the last defined value of every series.
func (f *Frame) LatestSnapshot(symbol string) Snapshot {
	snap := Snapshot{
		Symbol: symbol,
		Values: make(map[string]float64),
	}
	if f.Empty() {
		return snap
	}

	last := f.Bars[len(f.Bars)-1]
	snap.Timestamp = last.Timestamp
	snap.Close = last.Close

	for name, series := range f.Series {
		if v, ok := series.Last(); ok {
			snap.Values[name] = v
		}
	}
	return snap
}
