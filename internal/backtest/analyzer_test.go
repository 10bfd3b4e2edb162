package backtest

import (
	"math"
	"testing"
	"time"

	"stratlab/internal/types"

	"github.com/stretchr/testify/assert"
)

// closedTrade builds a ledger entry with just the fields analysis reads.
func closedTrade(pct, amount float64, days int) types.Trade {
	return types.Trade{
		ProfitLossPct:    pct,
		ProfitLossAmount: amount,
		DurationDays:     days,
	}
}

func TestAnalyzeTradesEmptyLedger(t *testing.T) {
	stats := analyzeTrades(nil)

	assert.Equal(t, 0, stats.TotalTrades)
	assert.Equal(t, "VERY_LOW", stats.ConfidenceLevel)
	assert.False(t, stats.IsStatisticallySignificant)
	assert.Equal(t, 0.0, stats.WinRatePct)
	assert.Equal(t, 0.0, stats.ProfitFactor)
}

func TestAnalyzeTradesMixedLedger(t *testing.T) {
	trades := []types.Trade{
		closedTrade(5, 500, 2),
		closedTrade(-2, -200, 4),
		closedTrade(-3, -300, 6),
		closedTrade(10, 1000, 8),
		closedTrade(0, 0, 10),
		closedTrade(-4, -400, 12),
	}

	stats := analyzeTrades(trades)

	assert.Equal(t, 6, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.Equal(t, 3, stats.LosingTrades)
	assert.InDelta(t, 33.33, stats.WinRatePct, 1e-9)
	assert.InDelta(t, 7.5, stats.AvgWinPct, 1e-9)
	assert.InDelta(t, -3.0, stats.AvgLossPct, 1e-9)
	assert.InDelta(t, 7.0, stats.AvgTradeDurationDays, 1e-9)

	// Gross profit 1500 against gross loss 900.
	assert.InDelta(t, 1.67, stats.ProfitFactor, 1e-9)
	assert.Equal(t, 2, stats.MaxConsecutiveLosses)
	assert.False(t, stats.IsStatisticallySignificant)
	assert.Equal(t, "VERY_LOW", stats.ConfidenceLevel)
}

func TestAnalyzeTradesBreakevenResetsLossStreak(t *testing.T) {
	trades := []types.Trade{
		closedTrade(-1, -100, 1),
		closedTrade(-1, -100, 1),
		closedTrade(0, 0, 1),
		closedTrade(-1, -100, 1),
	}

	stats := analyzeTrades(trades)

	assert.Equal(t, 2, stats.MaxConsecutiveLosses)
	assert.Equal(t, 0, stats.WinningTrades)
	assert.Equal(t, 3, stats.LosingTrades)
	assert.Equal(t, 0.0, stats.WinRatePct)
}

func TestAnalyzeTradesNoLosers(t *testing.T) {
	trades := []types.Trade{
		closedTrade(2, 200, 3),
		closedTrade(3, 300, 5),
	}

	stats := analyzeTrades(trades)

	assert.InDelta(t, 100.0, stats.WinRatePct, 1e-9)
	// With no losing trades the gross loss denominator is held at 1, so
	// the factor degrades to the gross profit itself.
	assert.InDelta(t, 500.0, stats.ProfitFactor, 1e-9)
}

func TestAnalyzeTradesAllLosers(t *testing.T) {
	trades := []types.Trade{
		closedTrade(-2, -200, 3),
		closedTrade(-3, -300, 5),
	}

	stats := analyzeTrades(trades)

	assert.Equal(t, 0.0, stats.WinRatePct)
	assert.Equal(t, 0.0, stats.ProfitFactor)
	assert.Equal(t, 0.0, stats.AvgWinPct)
	assert.Equal(t, 2, stats.MaxConsecutiveLosses)
}

func TestConfidenceTierBoundaries(t *testing.T) {
	cases := map[int]string{
		0:   "VERY_LOW",
		29:  "VERY_LOW",
		30:  "LOW",
		99:  "LOW",
		100: "MEDIUM",
		199: "MEDIUM",
		200: "HIGH",
		500: "HIGH",
	}
	for total, want := range cases {
		assert.Equal(t, want, confidenceTier(total), "total=%d", total)
	}
}

func TestSignificanceWarning(t *testing.T) {
	assert.Equal(t,
		"Only 1 trades - NOT statistically significant (need 30+ minimum, 200+ recommended)",
		significanceWarning(1))
	assert.Equal(t,
		"Only 29 trades - NOT statistically significant (need 30+ minimum, 200+ recommended)",
		significanceWarning(29))
	assert.Equal(t,
		"Only 30 trades - Limited statistical significance (recommend 200+ trades)",
		significanceWarning(30))
	assert.Equal(t,
		"Only 99 trades - Limited statistical significance (recommend 200+ trades)",
		significanceWarning(99))
	assert.Equal(t, "", significanceWarning(100))
	assert.Equal(t, "", significanceWarning(250))
}

func TestExitCounts(t *testing.T) {
	trades := []types.Trade{
		{ExitReason: types.ExitTakeProfit},
		{ExitReason: types.ExitTakeProfit},
		{ExitReason: types.ExitStopLoss},
		{ExitReason: types.ExitTrailingStop},
		{ExitReason: types.ExitSignal},
		{ExitReason: types.ExitSignal},
		{ExitReason: types.ExitSignal},
		{ExitReason: types.ExitTimeLimit},
		{ExitReason: types.ExitEndOfBacktest},
	}

	b := exitCounts(trades)

	assert.Equal(t, 2, b.TakeProfit)
	assert.Equal(t, 1, b.StopLoss)
	assert.Equal(t, 1, b.TrailingStop)
	assert.Equal(t, 3, b.SignalExit)
	assert.Equal(t, 1, b.TimeExit)
	assert.Equal(t, 1, b.EndOfBacktest)
}

func curveOf(equities ...float64) []types.EquityPoint {
	curve := make([]types.EquityPoint, len(equities))
	for i, e := range equities {
		curve[i] = types.EquityPoint{Equity: e}
	}
	return curve
}

func TestEquityReturns(t *testing.T) {
	assert.Nil(t, equityReturns(nil))
	assert.Nil(t, equityReturns(curveOf(100)))

	returns := equityReturns(curveOf(100, 110, 99))
	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.1, returns[0], 1e-9)
	assert.InDelta(t, -0.1, returns[1], 1e-9)
}

func TestEquityReturnsSkipsZeroBase(t *testing.T) {
	returns := equityReturns(curveOf(100, 0, 50))

	assert.Len(t, returns, 1)
	assert.InDelta(t, -1.0, returns[0], 1e-9)
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, sharpeRatio(nil))
	assert.Equal(t, 0.0, sharpeRatio([]float64{0.01}))
	assert.Equal(t, 0.0, sharpeRatio([]float64{0.02, 0.02, 0.02}))

	// Mean 0.02 over sample deviation 0.01, annualized by sqrt(252).
	got := sharpeRatio([]float64{0.01, 0.02, 0.03})
	assert.InDelta(t, 2*math.Sqrt(252), got, 1e-9)
}

func TestSortinoRatioFallsBackToSharpe(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02}

	assert.Equal(t, sharpeRatio(returns), sortinoRatio(returns))
}

func TestSortinoRatioUsesDownsideDeviation(t *testing.T) {
	returns := []float64{-0.01, 0.02, -0.03, 0.04}

	// Mean 0.005, downside sample deviation 0.0141421 over {-0.01, -0.03}.
	got := sortinoRatio(returns)
	assert.InDelta(t, 5.6125, got, 1e-3)

	// The sortino must exceed sharpe here because the downside sample is
	// tighter than the full sample.
	assert.Greater(t, got, sharpeRatio(returns))
}

func TestMaxDrawdown(t *testing.T) {
	depth, bars := maxDrawdown(nil)
	assert.Equal(t, 0.0, depth)
	assert.Equal(t, 0, bars)

	depth, bars = maxDrawdown(curveOf(100, 120, 90, 100, 130, 117))
	assert.InDelta(t, 25.0, depth, 1e-9)
	assert.Equal(t, 2, bars)
}

func TestMaxDrawdownIgnoresShallowDips(t *testing.T) {
	// A half-percent dip never crosses the duration threshold.
	depth, bars := maxDrawdown(curveOf(100, 99.5, 100))
	assert.InDelta(t, 0.5, depth, 1e-9)
	assert.Equal(t, 0, bars)
}

func TestCagrPct(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	oneYear := start.Add(time.Duration(365.25 * 24 * float64(time.Hour)))
	twoYears := start.Add(time.Duration(2 * 365.25 * 24 * float64(time.Hour)))

	assert.InDelta(t, 100.0, cagrPct(100000, 200000, start, oneYear), 1e-6)
	assert.InDelta(t, 41.4214, cagrPct(100000, 200000, start, twoYears), 1e-3)

	assert.Equal(t, 0.0, cagrPct(100000, 200000, start, start))
	assert.Equal(t, 0.0, cagrPct(0, 200000, start, oneYear))
}

func TestBenchmarkReturnPct(t *testing.T) {
	assert.Equal(t, 0.0, benchmarkReturnPct(nil))
	assert.Equal(t, 0.0, benchmarkReturnPct([]float64{100}))
	assert.Equal(t, 0.0, benchmarkReturnPct([]float64{0, 100}))
	assert.InDelta(t, 50.0, benchmarkReturnPct([]float64{100, 120, 150}), 1e-9)
	assert.InDelta(t, -20.0, benchmarkReturnPct([]float64{100, 80}), 1e-9)
}

func TestStddevIsSampleDeviation(t *testing.T) {
	assert.Equal(t, 0.0, stddev([]float64{5}))
	assert.InDelta(t, 1.2910, stddev([]float64{1, 2, 3, 4}), 1e-3)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, 0.0, sanitize(math.NaN()))
	assert.Equal(t, 0.0, sanitize(math.Inf(1)))
	assert.Equal(t, 0.0, sanitize(math.Inf(-1)))
	assert.Equal(t, 1.5, sanitize(1.5))
}

func TestRoundingHelpers(t *testing.T) {
	assert.InDelta(t, 3.14, round2(3.14159), 1e-9)
	assert.InDelta(t, 2.7, round1(2.71828), 1e-9)
}
