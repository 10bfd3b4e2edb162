package data

import (
	"context"
	"fmt"
	"time"

	"stratlab/internal/config"
	"stratlab/internal/logging"
	"stratlab/internal/types"
)

// Provider fetches daily bars and quotes for a ticker symbol
type Provider interface {
	Name() string
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error)
	FetchQuote(ctx context.Context, symbol string) (*types.Quote, error)
}

// NewProvider creates the provider stack for a data config. The yahoo
// stack falls back to Alpha Vantage when Yahoo is unreachable.
func NewProvider(cfg config.DataConfig, logger *logging.Logger) (Provider, error) {
	switch cfg.Provider {
	case "yahoo", "":
		return NewChainProvider(logger,
			NewYahooProvider(logger),
			NewAlphaVantageProvider(cfg.AlphaVantageKey, cfg.RequestTimeout, logger),
		), nil
	case "alphavantage":
		return NewAlphaVantageProvider(cfg.AlphaVantageKey, cfg.RequestTimeout, logger), nil
	case "csv":
		return NewCSVProvider(cfg.CSVDirectory, logger), nil
	default:
		return nil, fmt.Errorf("unsupported data provider: %s", cfg.Provider)
	}
}

// ChainProvider tries each provider in order until one succeeds
type ChainProvider struct {
	providers []Provider
	logger    *logging.Logger
}

// NewChainProvider creates a fallback chain over the given providers
func NewChainProvider(logger *logging.Logger, providers ...Provider) *ChainProvider {
	if logger == nil {
		logger = logging.CreateDataLogger()
	}

	return &ChainProvider{
		providers: providers,
		logger:    logger,
	}
}

// Name identifies the provider in logs and errors
func (c *ChainProvider) Name() string {
	return "chain"
}

// FetchDailyBars returns the first successful result in chain order
func (c *ChainProvider) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	var lastErr error

	for _, p := range c.providers {
		bars, err := p.FetchDailyBars(ctx, symbol, start, end)
		if err == nil {
			return bars, nil
		}

		c.logger.Warnf("Provider %s failed for %s bars: %v", p.Name(), symbol, err)
		lastErr = err
	}

	return nil, fmt.Errorf("all providers failed for %s: %w", symbol, lastErr)
}

// FetchQuote returns the first successful quote in chain order
func (c *ChainProvider) FetchQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	var lastErr error

	for _, p := range c.providers {
		quote, err := p.FetchQuote(ctx, symbol)
		if err == nil {
			return quote, nil
		}

		c.logger.Warnf("Provider %s failed for %s quote: %v", p.Name(), symbol, err)
		lastErr = err
	}

	return nil, fmt.Errorf("all providers failed for %s: %w", symbol, lastErr)
}

// ValidateSeries checks a bar series is usable for simulation
func ValidateSeries(symbol string, bars []types.PriceBar, minBars int) error {
	if len(bars) == 0 {
		return fmt.Errorf("no price data for %s", symbol)
	}
	if len(bars) < minBars {
		return fmt.Errorf("insufficient data for %s: got %d bars, need at least %d",
			symbol, len(bars), minBars)
	}

	for i := 1; i < len(bars); i++ {
		if bars[i].Date.Before(bars[i-1].Date) {
			return fmt.Errorf("bars for %s are not chronological at index %d", symbol, i)
		}
	}

	return nil
}
