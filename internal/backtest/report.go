package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"stratlab/internal/types"
	"stratlab/pkg/simulation"
)

// Report is the full result document for one backtest run
type Report struct {
	Ticker        string              `json:"ticker"`
	Period        string              `json:"period"`
	Strategy      string              `json:"strategy"`
	Configuration ConfigSummary       `json:"configuration"`
	Performance   PerformanceStats    `json:"performance"`
	TradeStats    TradeStatistics     `json:"trade_statistics"`
	ExitBreakdown ExitBreakdown       `json:"exit_breakdown"`
	Trades        []types.Trade       `json:"trades"`
	EquityCurve   []types.EquityPoint `json:"equity_curve"`
	Warning       string              `json:"warning,omitempty"`
	Timestamp     string              `json:"timestamp"`
}

// ConfigSummary echoes the risk parameters the run used
type ConfigSummary struct {
	StopLossPct        float64 `json:"stop_loss_pct"`
	TakeProfitPct      float64 `json:"take_profit_pct"`
	TrailingStopPct    float64 `json:"trailing_stop_pct"`
	MaxHoldDays        int     `json:"max_hold_days"`
	RiskPerTradePct    float64 `json:"risk_per_trade_pct"`
	MaxPositionPct     float64 `json:"max_position_pct"`
	TransactionCostPct float64 `json:"transaction_cost_pct"`
}

// PerformanceStats holds the capital and risk-adjusted return metrics
type PerformanceStats struct {
	InitialCapital          float64 `json:"initial_capital"`
	FinalValue              float64 `json:"final_value"`
	TotalReturnPct          float64 `json:"total_return_pct"`
	CAGRPct                 float64 `json:"cagr_pct"`
	SharpeRatio             float64 `json:"sharpe_ratio"`
	SortinoRatio            float64 `json:"sortino_ratio"`
	MaxDrawdownPct          float64 `json:"max_drawdown_pct"`
	MaxDrawdownDurationDays int     `json:"max_drawdown_duration_days"`
	BenchmarkReturnPct      float64 `json:"benchmark_return_pct"`
	AlphaVsBenchmark        float64 `json:"alpha_vs_benchmark"`
}

// TradeStatistics summarizes the closed-trade ledger
type TradeStatistics struct {
	TotalTrades                int     `json:"total_trades"`
	WinningTrades              int     `json:"winning_trades"`
	LosingTrades               int     `json:"losing_trades"`
	WinRatePct                 float64 `json:"win_rate_pct"`
	ProfitFactor               float64 `json:"profit_factor"`
	AvgWinPct                  float64 `json:"avg_win_pct"`
	AvgLossPct                 float64 `json:"avg_loss_pct"`
	AvgTradeDurationDays       float64 `json:"avg_trade_duration_days"`
	MaxConsecutiveLosses       int     `json:"max_consecutive_losses"`
	IsStatisticallySignificant bool    `json:"is_statistically_significant"`
	ConfidenceLevel            string  `json:"confidence_level"`
}

// ExitBreakdown counts trades by exit reason
type ExitBreakdown struct {
	TakeProfit    int `json:"take_profit"`
	StopLoss      int `json:"stop_loss"`
	TrailingStop  int `json:"trailing_stop"`
	SignalExit    int `json:"signal_exit"`
	TimeExit      int `json:"time_exit"`
	EndOfBacktest int `json:"end_of_backtest"`
}

// BuildReport assembles the result document from a simulation result.
// All float fields are finite so the document always JSON-encodes.
func BuildReport(ticker, strategyName string, bars []types.PriceBar, cfg types.StrategyConfig, result *simulation.Result) *Report {
	first := bars[0].Date
	last := bars[len(bars)-1].Date

	stats := analyzeTrades(result.Trades)
	returns := equityReturns(result.EquityCurve)
	ddPct, ddBars := maxDrawdown(result.EquityCurve)

	totalReturn := sanitize((result.FinalCapital - cfg.InitialCapital) / cfg.InitialCapital * 100)
	benchmark := sanitize(benchmarkReturnPct(types.Closes(bars)))

	return &Report{
		Ticker:   ticker,
		Period:   fmt.Sprintf("%s to %s", first.Format("2006-01-02"), last.Format("2006-01-02")),
		Strategy: strategyName,
		Configuration: ConfigSummary{
			StopLossPct:        cfg.StopLossPct,
			TakeProfitPct:      cfg.TakeProfitPct,
			TrailingStopPct:    cfg.TrailingStopPct,
			MaxHoldDays:        cfg.MaxHoldDays,
			RiskPerTradePct:    cfg.RiskPerTradePct,
			MaxPositionPct:     cfg.MaxPositionPct,
			TransactionCostPct: round2(cfg.TotalCostPct()),
		},
		Performance: PerformanceStats{
			InitialCapital:          round2(cfg.InitialCapital),
			FinalValue:              round2(result.FinalCapital),
			TotalReturnPct:          round2(totalReturn),
			CAGRPct:                 round2(cagrPct(cfg.InitialCapital, result.FinalCapital, first, last)),
			SharpeRatio:             round2(sanitize(sharpeRatio(returns))),
			SortinoRatio:            round2(sanitize(sortinoRatio(returns))),
			MaxDrawdownPct:          round2(sanitize(ddPct)),
			MaxDrawdownDurationDays: ddBars,
			BenchmarkReturnPct:      round2(benchmark),
			AlphaVsBenchmark:        round2(totalReturn - benchmark),
		},
		TradeStats:    stats,
		ExitBreakdown: exitCounts(result.Trades),
		Trades:        result.Trades,
		EquityCurve:   result.EquityCurve,
		Warning:       significanceWarning(stats.TotalTrades),
		Timestamp:     time.Now().Format(time.RFC3339),
	}
}

// SaveResults writes the report JSON and the configured CSV exports to
// the results directory, keyed by run ID
func (e *Engine) SaveResults(report *Report, runID string) error {
	if err := os.MkdirAll(e.config.ResultsDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	jsonPath := filepath.Join(e.config.ResultsDirectory, fmt.Sprintf("report_%s.json", runID))
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := ioutil.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if e.config.ExportTrades {
		tradesPath := filepath.Join(e.config.ResultsDirectory, fmt.Sprintf("trades_%s.csv", runID))
		if err := exportTradesCSV(tradesPath, report.Trades); err != nil {
			return err
		}
	}

	if e.config.ExportEquityCurve {
		equityPath := filepath.Join(e.config.ResultsDirectory, fmt.Sprintf("equity_%s.csv", runID))
		if err := exportEquityCSV(equityPath, report.EquityCurve); err != nil {
			return err
		}
	}

	e.logger.Infof("Results for %s saved to %s", report.Ticker, e.config.ResultsDirectory)
	return nil
}

// exportTradesCSV writes the closed-trade ledger
func exportTradesCSV(filename string, trades []types.Trade) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create trades file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"EntryDate", "ExitDate", "EntryPrice", "ExitPrice", "StopLoss", "TakeProfit",
		"Shares", "PnLPct", "PnLAmount", "ExitReason", "DurationDays", "EntrySignal", "ExitSignal"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, trade := range trades {
		record := []string{
			trade.EntryDate.Format("2006-01-02"),
			trade.ExitDate.Format("2006-01-02"),
			fmt.Sprintf("%.2f", trade.EntryPrice),
			fmt.Sprintf("%.2f", trade.ExitPrice),
			fmt.Sprintf("%.2f", trade.StopLoss),
			fmt.Sprintf("%.2f", trade.TakeProfit),
			fmt.Sprintf("%.2f", trade.Shares),
			fmt.Sprintf("%.2f", trade.ProfitLossPct),
			fmt.Sprintf("%.2f", trade.ProfitLossAmount),
			string(trade.ExitReason),
			fmt.Sprintf("%d", trade.DurationDays),
			trade.EntrySignal,
			trade.ExitSignal,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

// exportEquityCSV writes the equity curve with running peak and
// drawdown columns
func exportEquityCSV(filename string, curve []types.EquityPoint) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create equity file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Date", "Equity", "PeakEquity", "Drawdown", "InPosition"}
	if err := writer.Write(header); err != nil {
		return err
	}

	peak := 0.0
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		drawdown := 0.0
		if peak > 0 {
			drawdown = (peak - point.Equity) / peak * 100
		}

		record := []string{
			point.Date.Format("2006-01-02"),
			fmt.Sprintf("%.2f", point.Equity),
			fmt.Sprintf("%.2f", peak),
			fmt.Sprintf("%.2f", drawdown),
			fmt.Sprintf("%t", point.InPosition),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}
