package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stratlab/internal/config"
	"stratlab/internal/logging"
	"stratlab/internal/types"
)

// Service is the data access layer: an in-memory store in front of a
// file cache in front of the network providers
type Service struct {
	config   config.DataConfig
	provider Provider
	cache    *CacheManager
	store    *Store
	logger   *logging.Logger
}

// NewService creates the data service for a config
func NewService(cfg config.DataConfig, logger *logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.CreateDataLogger()
	}

	provider, err := NewProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:   cfg,
		provider: provider,
		cache:    NewCacheManager(cfg.CacheDirectory, cfg.CacheTTL, cfg.CacheEnabled),
		store:    NewStore(StoreConfig{}),
		logger:   logger,
	}, nil
}

// DateRange applies the configured defaults to missing bounds and
// parses them
func (s *Service) DateRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" {
		startStr = s.config.DefaultStartDate
	}
	if endStr == "" {
		endStr = s.config.DefaultEndDate
	}

	start, err := ParseDateString(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := ParseDateString(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is not before end date %s", startStr, endStr)
	}

	return start, end, nil
}

// DailyBars returns daily bars for the range, validated against the
// configured minimum, from the fastest layer that has them
func (s *Service) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	return s.fetch(ctx, symbol, start, end, s.config.MinBars)
}

// BarsForPeriod returns bars for a lookback period ending now. Short
// periods are allowed since indicator snapshots degrade gracefully on
// thin series.
func (s *Service) BarsForPeriod(ctx context.Context, symbol, period string) ([]types.PriceBar, error) {
	now := time.Now()
	start, err := periodStart(period, now)
	if err != nil {
		return nil, err
	}

	return s.fetch(ctx, symbol, start, now, 1)
}

// Quote returns the latest market snapshot for a symbol
func (s *Service) Quote(ctx context.Context, symbol string) (*types.Quote, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	return s.provider.FetchQuote(ctx, NormalizeSymbol(symbol))
}

// ClearCache drops the in-memory store and the file cache
func (s *Service) ClearCache() error {
	s.store.Clear()
	return s.cache.Clear()
}

// fetch walks the layers in speed order: memory, file cache, provider
func (s *Service) fetch(ctx context.Context, symbol string, start, end time.Time, minBars int) ([]types.PriceBar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	if bars, ok := s.store.Get(symbol, start, end); ok {
		s.logger.LogDataFetch("store", symbol, len(bars), true)
		return bars, nil
	}

	params := map[string]string{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}

	var cached []types.PriceBar
	if s.cache.Get(s.provider.Name(), "daily", params, &cached) {
		if err := ValidateSeries(symbol, cached, minBars); err == nil {
			s.logger.LogDataFetch("cache", symbol, len(cached), true)
			s.store.Put(symbol, start, end, cached)
			return cached, nil
		}
	}

	bars, err := s.provider.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if err := ValidateSeries(symbol, bars, minBars); err != nil {
		return nil, err
	}

	if err := s.cache.Set(s.provider.Name(), "daily", params, bars); err != nil {
		s.logger.Warnf("Failed to cache %s bars: %v", symbol, err)
	}
	s.store.Put(symbol, start, end, bars)

	return bars, nil
}

// periodStart converts a lookback period token into a start date
func periodStart(period string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", "1y":
		return now.AddDate(-1, 0, 0), nil
	case "1mo":
		return now.AddDate(0, -1, 0), nil
	case "3mo":
		return now.AddDate(0, -3, 0), nil
	case "6mo":
		return now.AddDate(0, -6, 0), nil
	case "2y":
		return now.AddDate(-2, 0, 0), nil
	case "5y":
		return now.AddDate(-5, 0, 0), nil
	case "10y":
		return now.AddDate(-10, 0, 0), nil
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), nil
	case "max":
		return now.AddDate(-30, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported period: %s", period)
	}
}
