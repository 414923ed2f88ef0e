package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-advisor/internal/errors"
	"stock-advisor/internal/models"
)

func TestStaticSourceErrors(t *testing.T) {
	s := NewStaticSource()
	ctx := context.Background()

	_, err := s.PriceSeries(ctx, "MISSING", PeriodYear)
	assert.ErrorIs(t, err, errors.ErrDataUnavailable)

	_, err = s.SymbolInfo(ctx, "MISSING")
	assert.ErrorIs(t, err, errors.ErrSymbolNotFound)
}

func TestStaticSourceSortsBars(t *testing.T) {
	s := NewStaticSource()
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.SetBars("AAPL", []models.PriceBar{
		{Timestamp: base.AddDate(0, 0, 2), Close: 102},
		{Timestamp: base, Close: 100},
		{Timestamp: base.AddDate(0, 0, 1), Close: 101},
	})

	bars, err := s.PriceSeries(ctx, "AAPL", PeriodMonth)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Timestamp.After(bars[i-1].Timestamp), "bars in ascending order")
	}
	assert.Equal(t, 100.0, bars[0].Close)
}

func TestGenerateBars(t *testing.T) {
	bars := GenerateBars([]float64{100, 101, 102}, 10000)
	require.Len(t, bars, 3)
	for i, want := range []float64{100, 101, 102} {
		assert.Equal(t, want, bars[i].Close)
		assert.Greater(t, bars[i].High, bars[i].Close*0.99)
		assert.Positive(t, bars[i].Volume)
	}
	assert.True(t, bars[0].Timestamp.Before(bars[1].Timestamp))
}
