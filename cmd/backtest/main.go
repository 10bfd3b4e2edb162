package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stratlab/internal/backtest"
	"stratlab/internal/config"
	"stratlab/internal/data"
	"stratlab/internal/runner"

	"github.com/joho/godotenv"
)

var (
	// Command line flags
	configPath = flag.String("config", "", "Path to configuration file (optional)")
	ticker     = flag.String("ticker", "", "Ticker symbol to backtest")
	csvPath    = flag.String("csv", "", "Load bars from a local CSV file instead of a provider")
	startDate  = flag.String("start", "", "Start date (YYYY-MM-DD)")
	endDate    = flag.String("end", "", "End date (YYYY-MM-DD)")
	strategy   = flag.String("strategy", "", "Strategy variant: rsi, macd or combined")
	compare    = flag.Bool("compare", false, "Run every strategy variant and rank by Sharpe ratio")
	outDir     = flag.String("out", "", "Directory for the report and CSV exports")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded environment from .env")
	}

	cfg, err := loadConfig()
	if err != nil {
		fail("Failed to load configuration: %v", err)
	}

	symbol := resolveTicker()
	if symbol == "" {
		flag.Usage()
		fail("A ticker is required (-ticker or -csv)")
	}

	service, err := data.NewService(cfg.Data, nil)
	if err != nil {
		fail("Failed to create data service: %v", err)
	}
	run := runner.NewRunner(cfg, service, nil)

	req := runner.RunRequest{
		Ticker:    symbol,
		StartDate: *startDate,
		EndDate:   *endDate,
		Strategy:  *strategy,
		Config:    cfg.Strategy,
		Save:      *outDir != "",
	}

	ctx := context.Background()

	if *compare {
		comparison, err := run.RunComparison(ctx, req)
		if err != nil {
			fail("Comparison failed: %v", err)
		}
		printComparison(comparison)
		if *outDir != "" {
			if err := saveComparison(comparison, *outDir); err != nil {
				fail("Failed to save comparison: %v", err)
			}
		}
		return
	}

	report, err := run.Run(ctx, req)
	if err != nil {
		fail("Backtest failed: %v", err)
	}
	printReport(report)
	if *outDir != "" {
		fmt.Printf("\nResults saved to %s\n", *outDir)
	}
}

// loadConfig builds the effective configuration for this invocation.
// The CLI logs at warn level so reports stay readable.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	cfg.Logging.Level = "warn"
	cfg.Logging.Output = "stdout"

	if *csvPath != "" {
		cfg.Data.Provider = "csv"
		cfg.Data.CSVDirectory = filepath.Dir(*csvPath)
	}
	if *outDir != "" {
		cfg.Backtest.ResultsDirectory = *outDir
	}

	return cfg, cfg.Validate()
}

// resolveTicker returns the symbol to run, derived from the CSV file
// name when no -ticker is given
func resolveTicker() string {
	if *ticker != "" {
		return *ticker
	}
	if *csvPath != "" {
		base := filepath.Base(*csvPath)
		return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return ""
}

// printReport writes the run summary to stdout
func printReport(report *backtest.Report) {
	fmt.Println("=== Backtest Report ===")
	fmt.Printf("%-22s %s\n", "Ticker:", report.Ticker)
	fmt.Printf("%-22s %s\n", "Period:", report.Period)
	fmt.Printf("%-22s %s\n", "Strategy:", report.Strategy)

	p := report.Performance
	fmt.Println("\nPerformance")
	fmt.Printf("  %-24s %.2f\n", "Initial Capital:", p.InitialCapital)
	fmt.Printf("  %-24s %.2f\n", "Final Value:", p.FinalValue)
	fmt.Printf("  %-24s %.2f%%\n", "Total Return:", p.TotalReturnPct)
	fmt.Printf("  %-24s %.2f%%\n", "CAGR:", p.CAGRPct)
	fmt.Printf("  %-24s %.2f\n", "Sharpe Ratio:", p.SharpeRatio)
	fmt.Printf("  %-24s %.2f\n", "Sortino Ratio:", p.SortinoRatio)
	fmt.Printf("  %-24s %.2f%% (%d days)\n", "Max Drawdown:", p.MaxDrawdownPct, p.MaxDrawdownDurationDays)
	fmt.Printf("  %-24s %.2f%%\n", "Buy-and-Hold Return:", p.BenchmarkReturnPct)
	fmt.Printf("  %-24s %.2f%%\n", "Alpha vs Benchmark:", p.AlphaVsBenchmark)

	t := report.TradeStats
	fmt.Println("\nTrades")
	fmt.Printf("  %-24s %d (%d wins / %d losses)\n", "Total:", t.TotalTrades, t.WinningTrades, t.LosingTrades)
	fmt.Printf("  %-24s %.2f%%\n", "Win Rate:", t.WinRatePct)
	fmt.Printf("  %-24s %.2f\n", "Profit Factor:", t.ProfitFactor)
	fmt.Printf("  %-24s %.2f%% / %.2f%%\n", "Avg Win / Avg Loss:", t.AvgWinPct, t.AvgLossPct)
	fmt.Printf("  %-24s %.1f days\n", "Avg Duration:", t.AvgTradeDurationDays)
	fmt.Printf("  %-24s %d\n", "Max Consecutive Losses:", t.MaxConsecutiveLosses)
	fmt.Printf("  %-24s %s\n", "Confidence:", t.ConfidenceLevel)

	e := report.ExitBreakdown
	fmt.Println("\nExits")
	fmt.Printf("  take_profit=%d stop_loss=%d trailing_stop=%d signal=%d time=%d end_of_backtest=%d\n",
		e.TakeProfit, e.StopLoss, e.TrailingStop, e.SignalExit, e.TimeExit, e.EndOfBacktest)

	if report.Warning != "" {
		fmt.Printf("\nWarning: %s\n", report.Warning)
	}
}

// printComparison writes the variant ranking table to stdout
func printComparison(comparison *runner.Comparison) {
	fmt.Println("=== Strategy Comparison ===")
	fmt.Printf("%-10s %s\n", "Ticker:", comparison.Ticker)
	fmt.Printf("%-10s %s\n", "Period:", comparison.Period)

	fmt.Printf("\n%-48s %9s %8s %8s %7s %9s\n",
		"Strategy", "Return%", "Sharpe", "MaxDD%", "Trades", "WinRate%")
	for _, report := range comparison.Strategies {
		fmt.Printf("%-48s %9.2f %8.2f %8.2f %7d %9.2f\n",
			report.Strategy,
			report.Performance.TotalReturnPct,
			report.Performance.SharpeRatio,
			report.Performance.MaxDrawdownPct,
			report.TradeStats.TotalTrades,
			report.TradeStats.WinRatePct)
	}

	fmt.Printf("\n%s\n", comparison.Recommendation)
}

// saveComparison writes the comparison document as indented JSON
func saveComparison(comparison *runner.Comparison, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	name := fmt.Sprintf("comparison_%s_%s.json", comparison.Ticker, time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	payload, err := json.MarshalIndent(comparison, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return err
	}

	fmt.Printf("\nComparison saved to %s\n", path)
	return nil
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
