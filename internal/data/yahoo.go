package data

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"stratlab/internal/logging"
	"stratlab/internal/types"
)

// barPrice converts a finance-go decimal field to the float64 the
// rest of the pipeline works in
func barPrice(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// YahooProvider fetches daily history and live quotes from Yahoo
// Finance. It needs no API key.
type YahooProvider struct {
	retry  *RetryConfig
	logger *logging.Logger
}

// NewYahooProvider creates a Yahoo Finance provider
func NewYahooProvider(logger *logging.Logger) *YahooProvider {
	if logger == nil {
		logger = logging.CreateDataLogger()
	}

	return &YahooProvider{
		retry:  DefaultRetryConfig(),
		logger: logger,
	}
}

// Name identifies the provider in logs and errors
func (p *YahooProvider) Name() string {
	return "yahoo"
}

// FetchDailyBars downloads daily candles for the date range
func (p *YahooProvider) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var bars []types.PriceBar
	err := WithRetry(p.retry, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)

		bars = bars[:0]
		for iter.Next() {
			bar := iter.Bar()

			bars = append(bars, types.NewPriceBar(
				time.Unix(int64(bar.Timestamp), 0).UTC(),
				barPrice(bar.Open),
				barPrice(bar.High),
				barPrice(bar.Low),
				barPrice(bar.Close),
				float64(bar.Volume),
			))
		}

		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	p.logger.LogDataFetch("yahoo", symbol, len(bars), false)
	return bars, nil
}

// FetchQuote returns the latest market snapshot for a symbol
func (p *YahooProvider) FetchQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var result *types.Quote
	err := WithRetry(p.retry, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		q, err := quote.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}
		if q == nil {
			return fmt.Errorf("no quote returned for %s", symbol)
		}

		result = &types.Quote{
			Symbol:        symbol,
			Price:         q.RegularMarketPrice,
			Open:          q.RegularMarketOpen,
			High:          q.RegularMarketDayHigh,
			Low:           q.RegularMarketDayLow,
			PreviousClose: q.RegularMarketPreviousClose,
			Volume:        float64(q.RegularMarketVolume),
			Timestamp:     time.Unix(int64(q.RegularMarketTime), 0).UTC(),
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
