package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"stock-advisor/internal/errors"
	"stock-advisor/internal/models"
)

const (
	chartURL = "https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d&range=%s"
	quoteURL = "https://query1.finance.yahoo.com/v7/finance/quote?symbols=%s"
)

// YahooSource fetches daily bars and quote metadata from the Yahoo Finance
// public API.
type YahooSource struct {
	client *http.Client
	logger zerolog.Logger
}

// NewYahooSource builds a source with the given request timeout.
func NewYahooSource(timeout time.Duration, logger zerolog.Logger) *YahooSource {
	return &YahooSource{
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "marketdata").Logger(),
	}
}

// yahooChart is the v8 chart API response shape. Numeric arrays can carry
// nulls for holidays, so they decode through interface{}.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooQuote struct {
	QuoteResponse struct {
		Result []struct {
			Symbol     string  `json:"symbol"`
			LongName   string  `json:"longName"`
			ShortName  string  `json:"shortName"`
			MarketCap  float64 `json:"marketCap"`
			TrailingPE float64 `json:"trailingPE"`
			Beta       float64 `json:"beta"`
			Price      float64 `json:"regularMarketPrice"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	if n, ok := v.(float64); ok {
		return n
	}
	return 0
}

func (s *YahooSource) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("yahoo decode: %w", err)
	}
	return nil
}

// PriceSeries fetches daily bars for the period, skipping null bars and
// returning them in ascending time order.
func (s *YahooSource) PriceSeries(ctx context.Context, symbol string, period Period) ([]models.PriceBar, error) {
	if period == "" {
		period = PeriodYear
	}
	u := fmt.Sprintf(chartURL, url.PathEscape(symbol), period)

	var chart yahooChart
	if err := s.get(ctx, u, &chart); err != nil {
		return nil, errors.NewDataError(symbol, "price series fetch failed", err)
	}
	if chart.Chart.Error != nil {
		return nil, errors.NewDataError(symbol, chart.Chart.Error.Description, errors.ErrSymbolNotFound)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, errors.NewDataError(symbol, "empty chart response", errors.ErrDataUnavailable)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, errors.NewDataError(symbol, "missing quote block", errors.ErrDataUnavailable)
	}
	quote := result.Indicators.Quote[0]

	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || i >= len(quote.Open) ||
			i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Volume) {
			break
		}
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // null bar, market holiday
		}
		bars = append(bars, models.PriceBar{
			Timestamp: time.Unix(ts, 0),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    int64(toFloat(quote.Volume[i])),
		})
	}
	if len(bars) == 0 {
		return nil, errors.NewDataError(symbol, "all bars null", errors.ErrDataUnavailable)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	s.logger.Debug().
		Str("symbol", symbol).
		Str("period", string(period)).
		Int("bars", len(bars)).
		Msg("price series fetched")
	return bars, nil
}

// SymbolInfo fetches quote metadata for one symbol.
func (s *YahooSource) SymbolInfo(ctx context.Context, symbol string) (*models.SymbolInfo, error) {
	u := fmt.Sprintf(quoteURL, url.QueryEscape(symbol))

	var quote yahooQuote
	if err := s.get(ctx, u, &quote); err != nil {
		return nil, errors.NewDataError(symbol, "quote fetch failed", err)
	}
	if len(quote.QuoteResponse.Result) == 0 {
		return nil, errors.NewDataError(symbol, "symbol not found", errors.ErrSymbolNotFound)
	}

	r := quote.QuoteResponse.Result[0]
	name := r.LongName
	if name == "" {
		name = r.ShortName
	}
	return &models.SymbolInfo{
		Symbol:       r.Symbol,
		CompanyName:  name,
		MarketCap:    r.MarketCap,
		PERatio:      r.TrailingPE,
		Beta:         r.Beta,
		CurrentPrice: r.Price,
	}, nil
}
