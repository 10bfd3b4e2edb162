package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"stratlab/internal/logging"
	"stratlab/internal/types"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantageProvider fetches daily history and quotes from the Alpha
// Vantage REST API. A key is required; it comes from the config or the
// ALPHA_VANTAGE_KEY environment variable.
type AlphaVantageProvider struct {
	client *resty.Client
	apiKey string
	retry  *RetryConfig
	logger *logging.Logger
}

// NewAlphaVantageProvider creates an Alpha Vantage provider
func NewAlphaVantageProvider(apiKey string, timeout time.Duration, logger *logging.Logger) *AlphaVantageProvider {
	if logger == nil {
		logger = logging.CreateDataLogger()
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(alphaVantageBaseURL)
	client.SetTimeout(timeout)

	return &AlphaVantageProvider{
		client: client,
		apiKey: apiKey,
		retry:  DefaultRetryConfig(),
		logger: logger,
	}
}

// Name identifies the provider in logs and errors
func (p *AlphaVantageProvider) Name() string {
	return "alphavantage"
}

// key resolves the API key, falling back to the environment
func (p *AlphaVantageProvider) key() string {
	if p.apiKey != "" {
		return p.apiKey
	}
	return os.Getenv("ALPHA_VANTAGE_KEY")
}

type avDailyResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	TimeSeries   map[string]map[string]string `json:"Time Series (Daily)"`
}

type avQuoteResponse struct {
	ErrorMessage string            `json:"Error Message"`
	Note         string            `json:"Note"`
	GlobalQuote  map[string]string `json:"Global Quote"`
}

// FetchDailyBars downloads the full daily series and filters it to the
// date range
func (p *AlphaVantageProvider) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	apiKey := p.key()
	if apiKey == "" {
		return nil, fmt.Errorf("Alpha Vantage API key not configured")
	}

	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var bars []types.PriceBar
	err := WithRetry(p.retry, func() error {
		resp, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"function":   "TIME_SERIES_DAILY",
				"symbol":     symbol,
				"outputsize": "full",
				"apikey":     apiKey,
			}).
			Get("/query")
		if err != nil {
			return fmt.Errorf("failed to fetch daily series for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var payload avDailyResponse
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return fmt.Errorf("failed to parse daily series response: %w", err)
		}
		if payload.ErrorMessage != "" {
			return fmt.Errorf("API error for %s: %s", symbol, payload.ErrorMessage)
		}
		if payload.Note != "" {
			return fmt.Errorf("API rate limited: %s", payload.Note)
		}
		if len(payload.TimeSeries) == 0 {
			return fmt.Errorf("no daily series returned for %s", symbol)
		}

		bars = bars[:0]
		for dateStr, fields := range payload.TimeSeries {
			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				continue
			}
			if date.Before(start) || date.After(end) {
				continue
			}

			bar, err := parseAlphaVantageFields(date, fields)
			if err != nil {
				p.logger.Warnf("Skipping %s %s: %v", symbol, dateStr, err)
				continue
			}
			bars = append(bars, bar)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no data for %s in range %s", symbol, FormatDateRange(start, end))
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	p.logger.LogDataFetch("alphavantage", symbol, len(bars), false)
	return bars, nil
}

// FetchQuote returns the latest global quote for a symbol
func (p *AlphaVantageProvider) FetchQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	apiKey := p.key()
	if apiKey == "" {
		return nil, fmt.Errorf("Alpha Vantage API key not configured")
	}

	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var result *types.Quote
	err := WithRetry(p.retry, func() error {
		resp, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"function": "GLOBAL_QUOTE",
				"symbol":   symbol,
				"apikey":   apiKey,
			}).
			Get("/query")
		if err != nil {
			return fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var payload avQuoteResponse
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return fmt.Errorf("failed to parse quote response: %w", err)
		}
		if payload.ErrorMessage != "" {
			return fmt.Errorf("API error for %s: %s", symbol, payload.ErrorMessage)
		}
		if payload.Note != "" {
			return fmt.Errorf("API rate limited: %s", payload.Note)
		}
		if len(payload.GlobalQuote) == 0 {
			return fmt.Errorf("no quote returned for %s", symbol)
		}

		quote := &types.Quote{Symbol: symbol, Timestamp: time.Now().UTC()}
		quote.Price = avField(payload.GlobalQuote, "05. price")
		quote.Open = avField(payload.GlobalQuote, "02. open")
		quote.High = avField(payload.GlobalQuote, "03. high")
		quote.Low = avField(payload.GlobalQuote, "04. low")
		quote.Volume = avField(payload.GlobalQuote, "06. volume")
		quote.PreviousClose = avField(payload.GlobalQuote, "08. previous close")

		if day, ok := payload.GlobalQuote["07. latest trading day"]; ok {
			if t, err := time.Parse("2006-01-02", day); err == nil {
				quote.Timestamp = t
			}
		}

		result = quote
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// parseAlphaVantageFields parses one day's OHLCV map into a bar
func parseAlphaVantageFields(date time.Time, fields map[string]string) (types.PriceBar, error) {
	keys := []string{"1. open", "2. high", "3. low", "4. close", "5. volume"}
	values := make([]float64, len(keys))

	for i, key := range keys {
		raw, ok := fields[key]
		if !ok {
			return types.PriceBar{}, fmt.Errorf("missing field %q", key)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.PriceBar{}, fmt.Errorf("invalid %q value: %s", key, raw)
		}
		values[i] = v
	}

	return types.NewPriceBar(date, values[0], values[1], values[2], values[3], values[4]), nil
}

// avField parses a numeric quote field, returning zero when absent
func avField(fields map[string]string, key string) float64 {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
