package backtest

import (
	"fmt"
	"sync"
	"time"

	"stratlab/internal/config"
	"stratlab/internal/logging"
	"stratlab/internal/signals"
	"stratlab/internal/types"
	"stratlab/pkg/simulation"
)

// Engine turns prepared bar series into backtest reports. One engine
// instance runs one backtest at a time; callers that want parallel runs
// create an engine per run.
type Engine struct {
	// Configuration
	config config.BacktestConfig
	logger *logging.Logger

	// State
	isRunning bool
	mu        sync.RWMutex
}

// Request describes a single backtest run
type Request struct {
	RunID   string
	Ticker  string
	Variant signals.Variant
	Bars    []types.PriceBar
	Config  types.StrategyConfig
	Backend simulation.BackendKind
}

// NewEngine creates a backtest engine
func NewEngine(cfg config.BacktestConfig, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.CreateEngineLogger()
	}

	return &Engine{
		config: cfg,
		logger: logger,
	}
}

// Run executes one backtest and returns the report
func (e *Engine) Run(req Request) (*Report, error) {
	e.mu.Lock()
	if e.isRunning {
		e.mu.Unlock()
		return nil, fmt.Errorf("backtest is already running")
	}
	e.isRunning = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.isRunning = false
		e.mu.Unlock()
	}()

	if len(req.Bars) == 0 {
		return nil, fmt.Errorf("no price data for %s", req.Ticker)
	}
	if len(req.Bars) <= simulation.WarmupBars {
		return nil, fmt.Errorf("insufficient data for %s: %d bars, need more than %d",
			req.Ticker, len(req.Bars), simulation.WarmupBars)
	}

	if req.Variant == "" {
		req.Variant = signals.Variant(e.config.DefaultStrategy)
	}
	variant, err := signals.ParseVariant(string(req.Variant))
	if err != nil {
		return nil, err
	}

	cfg := req.Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strategy config: %w", err)
	}

	started := time.Now()

	e.logger.Infof("Starting %s backtest for %s over %d bars",
		variant, req.Ticker, len(req.Bars))

	strategy := signals.NewStrategy(variant, cfg, types.Closes(req.Bars))

	backend, err := simulation.NewBackend(req.Backend)
	if err != nil {
		return nil, err
	}

	result, err := backend.Run(req.Bars, strategy, cfg, NewSizer(cfg))
	if err != nil {
		return nil, fmt.Errorf("simulation failed for %s: %w", req.Ticker, err)
	}

	report := BuildReport(req.Ticker, variant.ReportName(), req.Bars, cfg, result)

	e.logger.LogBacktest(req.RunID, req.Ticker, string(variant),
		report.TradeStats.TotalTrades, report.Performance.TotalReturnPct,
		report.Performance.SharpeRatio, time.Since(started))

	return report, nil
}

// IsRunning reports whether a run is in flight
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}
