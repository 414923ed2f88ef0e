package indicators

import (
	"math"
	"testing"
	"time"

	"stock-advisor/internal/models"
)

func barsFromCloses(closes []float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func closesOnlyBars(closes []float64) []models.PriceBar {
	bars := barsFromCloses(closes)
	for i := range bars {
		bars[i].High = 0
		bars[i].Low = 0
	}
	return bars
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestManualRSI(t *testing.T) {
	p := &ManualProvider{}

	t.Run("first bar undefined", func(t *testing.T) {
		rsi := p.RSI(barsFromCloses([]float64{100, 101, 102, 103, 104}), 3, ColumnClose)
		if rsi.Defined(0) {
			t.Errorf("RSI[0] should be undefined, got %v", rsi[0])
		}
	})

	t.Run("all gains yields 100", func(t *testing.T) {
		closes := []float64{100, 101, 102, 103, 104, 105, 106, 107}
		rsi := p.RSI(barsFromCloses(closes), 3, ColumnClose)
		last, ok := rsi.Last()
		if !ok {
			t.Fatal("RSI undefined at last bar")
		}
		if last != 100 {
			t.Errorf("strictly rising series should give RSI 100, got %v", last)
		}
	})

	t.Run("all losses yields 0", func(t *testing.T) {
		closes := []float64{107, 106, 105, 104, 103, 102, 101, 100}
		rsi := p.RSI(barsFromCloses(closes), 3, ColumnClose)
		last, ok := rsi.Last()
		if !ok {
			t.Fatal("RSI undefined at last bar")
		}
		if last != 0 {
			t.Errorf("strictly falling series should give RSI 0, got %v", last)
		}
	})

	t.Run("flat series undefined everywhere", func(t *testing.T) {
		rsi := p.RSI(barsFromCloses([]float64{100, 100, 100, 100}), 3, ColumnClose)
		for i := range rsi {
			if rsi.Defined(i) {
				t.Errorf("flat series RSI[%d] should be undefined (0/0), got %v", i, rsi[i])
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		rsi := p.RSI(nil, 14, ColumnClose)
		if len(rsi) != 0 {
			t.Errorf("empty input should give empty series, got %d values", len(rsi))
		}
	})
}

func TestManualSMA(t *testing.T) {
	p := &ManualProvider{}
	closes := []float64{10, 20, 30, 40, 50}
	sma := p.SMA(barsFromCloses(closes), 3, ColumnClose)

	if sma.Defined(0) || sma.Defined(1) {
		t.Error("SMA should be undefined for the first period-1 bars")
	}
	want := []float64{20, 30, 40}
	for i, w := range want {
		got := sma[i+2]
		if !almostEqual(got, w, 1e-9) {
			t.Errorf("SMA[%d] = %v, want %v", i+2, got, w)
		}
	}
}

func TestManualEMA(t *testing.T) {
	p := &ManualProvider{}
	closes := []float64{10, 20, 30}
	ema := p.EMA(barsFromCloses(closes), 3, ColumnClose)

	// alpha = 2/(3+1) = 0.5, seeded with the first observation
	want := []float64{10, 15, 22.5}
	for i, w := range want {
		if !almostEqual(ema[i], w, 1e-9) {
			t.Errorf("EMA[%d] = %v, want %v", i, ema[i], w)
		}
	}
}

func TestManualMACD(t *testing.T) {
	p := &ManualProvider{}
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	macd, signal, histogram := p.MACD(barsFromCloses(closes), 12, 26, 9, ColumnClose)

	if len(macd) != 50 || len(signal) != 50 || len(histogram) != 50 {
		t.Fatalf("all MACD series must align with input length")
	}
	for i := range macd {
		if !macd.Defined(i) || !signal.Defined(i) || !histogram.Defined(i) {
			t.Fatalf("manual MACD series defined from bar 0, bar %d is not", i)
		}
		if !almostEqual(histogram[i], macd[i]-signal[i], 1e-9) {
			t.Errorf("histogram[%d] != macd-signal", i)
		}
	}
	if last, _ := macd.Last(); last <= 0 {
		t.Errorf("rising series should have positive MACD, got %v", last)
	}
}

func TestManualBollingerBands(t *testing.T) {
	p := &ManualProvider{}
	closes := []float64{10, 12, 14, 16, 18, 20}
	upper, middle, lower := p.BollingerBands(barsFromCloses(closes), 3, 2.0, ColumnClose)

	for i := 0; i < 2; i++ {
		if upper.Defined(i) || middle.Defined(i) || lower.Defined(i) {
			t.Errorf("bands should be undefined before the window fills (bar %d)", i)
		}
	}
	// window {10,12,14}: mean 12, sample stddev 2
	if !almostEqual(middle[2], 12, 1e-9) {
		t.Errorf("middle[2] = %v, want 12", middle[2])
	}
	if !almostEqual(upper[2], 16, 1e-9) {
		t.Errorf("upper[2] = %v, want 16", upper[2])
	}
	if !almostEqual(lower[2], 8, 1e-9) {
		t.Errorf("lower[2] = %v, want 8", lower[2])
	}
}

func TestManualStochastic(t *testing.T) {
	p := &ManualProvider{}

	t.Run("missing high low fails", func(t *testing.T) {
		_, _, err := p.Stochastic(closesOnlyBars([]float64{100, 101, 102, 103, 104}), 3, 2)
		if err == nil {
			t.Fatal("expected error for bars without high/low data")
		}
	})

	t.Run("zero range undefined", func(t *testing.T) {
		bars := barsFromCloses([]float64{100, 100, 100, 100, 100})
		for i := range bars {
			bars[i].High = 100
			bars[i].Low = 100
		}
		percentK, _, err := p.Stochastic(bars, 3, 2)
		if err != nil {
			t.Fatal(err)
		}
		for i := range percentK {
			if percentK.Defined(i) {
				t.Errorf("%%K[%d] should be undefined for zero high-low range", i)
			}
		}
	})

	t.Run("close at high gives 100", func(t *testing.T) {
		bars := barsFromCloses([]float64{100, 101, 102, 103, 104})
		for i := range bars {
			bars[i].High = bars[i].Close
			bars[i].Low = bars[i].Close - 2
		}
		percentK, _, err := p.Stochastic(bars, 3, 2)
		if err != nil {
			t.Fatal(err)
		}
		last, ok := percentK.Last()
		if !ok {
			t.Fatal("%K undefined at last bar")
		}
		// close == highest high of the window
		if !almostEqual(last, 100, 1e-9) {
			t.Errorf("%%K = %v, want 100", last)
		}
	})
}
