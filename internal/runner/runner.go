package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"stratlab/internal/backtest"
	"stratlab/internal/config"
	"stratlab/internal/data"
	"stratlab/internal/logging"
	"stratlab/internal/signals"
	"stratlab/internal/types"
	"stratlab/pkg/simulation"
)

// Runner coordinates backtest runs on top of the data layer. Every run
// gets its own engine; batch and comparison fan-out never share
// simulation state.
type Runner struct {
	// Core components
	config  *config.Config
	service *data.Service
	logger  *logging.Logger
}

// RunRequest describes one backtest run. Empty dates fall back to the
// configured window, an empty strategy to the configured default, and
// zero-value strategy parameters to their defaults.
type RunRequest struct {
	Ticker    string
	StartDate string
	EndDate   string
	Strategy  string
	Config    types.StrategyConfig
	Backend   simulation.BackendKind
	Save      bool
}

// Comparison holds the per-variant reports for one series plus the
// Sharpe-ranked winner
type Comparison struct {
	Ticker         string             `json:"ticker"`
	Period         string             `json:"period"`
	InitialCapital float64            `json:"initial_capital"`
	Strategies     []*backtest.Report `json:"strategies"`
	BestStrategy   string             `json:"best_strategy"`
	Recommendation string             `json:"recommendation"`
	Timestamp      string             `json:"timestamp"`
}

// BatchItem pairs one ticker with its report or its failure
type BatchItem struct {
	Ticker string           `json:"ticker"`
	Report *backtest.Report `json:"report,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// NewRunner creates a runner over a data service
func NewRunner(cfg *config.Config, service *data.Service, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.CreateRunnerLogger()
	}

	return &Runner{
		config:  cfg,
		service: service,
		logger:  logger,
	}
}

// Run resolves the date range, fetches the daily series, and executes
// one backtest
func (r *Runner) Run(ctx context.Context, req RunRequest) (*backtest.Report, error) {
	start, end, err := r.service.DateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	bars, err := r.service.DailyBars(ctx, req.Ticker, start, end)
	if err != nil {
		return nil, err
	}

	return r.RunSeries(req, bars)
}

// RunSeries executes one backtest over an already loaded series
func (r *Runner) RunSeries(req RunRequest, bars []types.PriceBar) (*backtest.Report, error) {
	runID := uuid.New().String()

	engine := backtest.NewEngine(r.config.Backtest, r.logger)
	report, err := engine.Run(backtest.Request{
		RunID:   runID,
		Ticker:  req.Ticker,
		Variant: signals.Variant(req.Strategy),
		Bars:    bars,
		Config:  req.Config,
		Backend: req.Backend,
	})
	if err != nil {
		return nil, err
	}

	if req.Save {
		if err := engine.SaveResults(report, runID); err != nil {
			return nil, err
		}
	}

	return report, nil
}

// RunComparison fetches one series and backtests every strategy
// variant over it
func (r *Runner) RunComparison(ctx context.Context, req RunRequest) (*Comparison, error) {
	start, end, err := r.service.DateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	bars, err := r.service.DailyBars(ctx, req.Ticker, start, end)
	if err != nil {
		return nil, err
	}

	return r.CompareSeries(req, bars)
}

// runSlot carries one comparison result back to the collector
type runSlot struct {
	index  int
	report *backtest.Report
	err    error
}

// CompareSeries backtests the RSI, MACD, and combined variants over
// the same series and ranks them by Sharpe ratio. All variants see the
// identical bar slice; a failure in any variant fails the comparison.
func (r *Runner) CompareSeries(req RunRequest, bars []types.PriceBar) (*Comparison, error) {
	variants := []signals.Variant{signals.VariantRSI, signals.VariantMACD, signals.VariantCombined}

	r.logger.Infof("Comparing %d strategy variants for %s", len(variants), req.Ticker)

	slots := make(chan runSlot, len(variants))
	sem := make(chan struct{}, r.workers())

	var wg sync.WaitGroup
	for i, variant := range variants {
		wg.Add(1)
		go func(i int, variant signals.Variant) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sub := req
			sub.Strategy = string(variant)
			sub.Save = false
			report, err := r.RunSeries(sub, bars)
			slots <- runSlot{index: i, report: report, err: err}
		}(i, variant)
	}
	wg.Wait()
	close(slots)

	reports := make([]*backtest.Report, len(variants))
	errs := make([]error, len(variants))
	for slot := range slots {
		reports[slot.index] = slot.report
		errs[slot.index] = slot.err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	best := 0
	for i, report := range reports {
		if report.Performance.SharpeRatio > reports[best].Performance.SharpeRatio {
			best = i
		}
	}

	return &Comparison{
		Ticker:         req.Ticker,
		Period:         reports[0].Period,
		InitialCapital: reports[0].Performance.InitialCapital,
		Strategies:     reports,
		BestStrategy:   reports[best].Strategy,
		Recommendation: fmt.Sprintf("Based on Sharpe Ratio, %s performed best", reports[best].Strategy),
		Timestamp:      time.Now().Format(time.RFC3339),
	}, nil
}

// batchSlot carries one batch item back to the collector
type batchSlot struct {
	index int
	item  BatchItem
}

// RunBatch backtests every ticker on the bounded worker pool. Items
// come back in input order; a failed ticker carries its error instead
// of failing the whole batch.
func (r *Runner) RunBatch(ctx context.Context, tickers []string, req RunRequest) []BatchItem {
	started := time.Now()
	r.logger.Infof("Starting batch backtest for %d tickers", len(tickers))

	slots := make(chan batchSlot, len(tickers))
	sem := make(chan struct{}, r.workers())

	var wg sync.WaitGroup
	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			item := BatchItem{Ticker: ticker}
			if err := ctx.Err(); err != nil {
				item.Error = err.Error()
				slots <- batchSlot{index: i, item: item}
				return
			}

			sub := req
			sub.Ticker = ticker
			report, err := r.Run(ctx, sub)
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Report = report
			}
			slots <- batchSlot{index: i, item: item}
		}(i, ticker)
	}
	wg.Wait()
	close(slots)

	items := make([]BatchItem, len(tickers))
	for slot := range slots {
		items[slot.index] = slot.item
	}

	succeeded := 0
	for _, item := range items {
		if item.Error == "" {
			succeeded++
		}
	}
	r.logger.Infof("Batch backtest finished: %d/%d tickers succeeded in %s",
		succeeded, len(tickers), time.Since(started).Round(time.Millisecond))

	return items
}

// workers returns the worker pool size, at least one
func (r *Runner) workers() int {
	if r.config.Backtest.MaxConcurrentRuns < 1 {
		return 1
	}
	return r.config.Backtest.MaxConcurrentRuns
}
