package backtest

import (
	"fmt"
	"math"
	"time"

	"stratlab/internal/types"
)

// Statistical significance tiers by closed-trade count
const (
	significanceMinimum     = 30
	significanceModerate    = 100
	significanceRecommended = 200
)

const tradingDaysPerYear = 252

// drawdownThresholdPct marks the depth at which a drawdown spell starts
// counting toward the duration metric
const drawdownThresholdPct = -1.0

// analyzeTrades aggregates the closed-trade ledger into summary
// statistics. Trades with exactly zero profit count as neither wins nor
// losses.
func analyzeTrades(trades []types.Trade) TradeStatistics {
	stats := TradeStatistics{
		TotalTrades:     len(trades),
		ConfidenceLevel: confidenceTier(len(trades)),
	}
	if len(trades) == 0 {
		return stats
	}

	var winPcts, lossPcts []float64
	var grossProfit, grossLoss float64
	totalDuration := 0
	consecutive := 0

	for _, t := range trades {
		totalDuration += t.DurationDays

		switch {
		case t.ProfitLossPct > 0:
			winPcts = append(winPcts, t.ProfitLossPct)
			grossProfit += t.ProfitLossAmount
			consecutive = 0
		case t.ProfitLossPct < 0:
			lossPcts = append(lossPcts, t.ProfitLossPct)
			grossLoss += math.Abs(t.ProfitLossAmount)
			consecutive++
			if consecutive > stats.MaxConsecutiveLosses {
				stats.MaxConsecutiveLosses = consecutive
			}
		default:
			consecutive = 0
		}
	}

	stats.WinningTrades = len(winPcts)
	stats.LosingTrades = len(lossPcts)
	stats.WinRatePct = round2(float64(len(winPcts)) / float64(len(trades)) * 100)
	stats.AvgWinPct = round2(mean(winPcts))
	stats.AvgLossPct = round2(mean(lossPcts))
	stats.AvgTradeDurationDays = round1(float64(totalDuration) / float64(len(trades)))
	stats.IsStatisticallySignificant = len(trades) >= significanceMinimum

	if len(lossPcts) == 0 {
		grossLoss = 1
	}
	if grossLoss > 0 {
		stats.ProfitFactor = round2(sanitize(grossProfit / grossLoss))
	} else {
		stats.ProfitFactor = round2(grossProfit)
	}

	return stats
}

// exitCounts tallies closed trades by exit reason
func exitCounts(trades []types.Trade) ExitBreakdown {
	var b ExitBreakdown
	for _, t := range trades {
		switch t.ExitReason {
		case types.ExitTakeProfit:
			b.TakeProfit++
		case types.ExitStopLoss:
			b.StopLoss++
		case types.ExitTrailingStop:
			b.TrailingStop++
		case types.ExitSignal:
			b.SignalExit++
		case types.ExitTimeLimit:
			b.TimeExit++
		case types.ExitEndOfBacktest:
			b.EndOfBacktest++
		}
	}
	return b
}

// equityReturns computes bar-over-bar fractional changes of the curve
func equityReturns(curve []types.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	return returns
}

// sharpeRatio annualizes mean return over sample deviation
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	sd := stddev(returns)
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd * math.Sqrt(tradingDaysPerYear)
}

// sortinoRatio penalizes only downside deviation. With fewer than two
// losing bars there is no downside sample to measure, so the Sharpe
// value stands in.
func sortinoRatio(returns []float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}

	if len(downside) < 2 {
		return sharpeRatio(returns)
	}

	sd := stddev(downside)
	if sd == 0 {
		return sharpeRatio(returns)
	}
	return mean(returns) / sd * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown returns the deepest peak-to-trough decline in percent and
// the longest spell spent below the drawdown threshold, in bars
func maxDrawdown(curve []types.EquityPoint) (float64, int) {
	if len(curve) == 0 {
		return 0, 0
	}

	peak := curve[0].Equity
	worst := 0.0
	longest, current := 0, 0

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		dd := 0.0
		if peak > 0 {
			dd = (point.Equity - peak) / peak * 100
		}
		if dd < worst {
			worst = dd
		}

		if dd < drawdownThresholdPct {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}

	return math.Abs(worst), longest
}

// cagrPct computes the compound annual growth rate between the first
// and last bar dates
func cagrPct(initial, final float64, start, end time.Time) float64 {
	years := end.Sub(start).Hours() / 24 / 365.25
	if years <= 0 || initial <= 0 {
		return 0
	}

	growth := (math.Pow(final/initial, 1/years) - 1) * 100
	return sanitize(growth)
}

// benchmarkReturnPct is the buy-and-hold return over the full series
func benchmarkReturnPct(closes []float64) float64 {
	if len(closes) < 2 || closes[0] == 0 {
		return 0
	}
	return (closes[len(closes)-1]/closes[0] - 1) * 100
}

// confidenceTier maps trade count to a significance label
func confidenceTier(totalTrades int) string {
	switch {
	case totalTrades >= significanceRecommended:
		return "HIGH"
	case totalTrades >= significanceModerate:
		return "MEDIUM"
	case totalTrades >= significanceMinimum:
		return "LOW"
	default:
		return "VERY_LOW"
	}
}

// significanceWarning returns the caveat attached to thin samples
func significanceWarning(totalTrades int) string {
	switch {
	case totalTrades < significanceMinimum:
		return fmt.Sprintf("Only %d trades - NOT statistically significant (need %d+ minimum, %d+ recommended)",
			totalTrades, significanceMinimum, significanceRecommended)
	case totalTrades < significanceModerate:
		return fmt.Sprintf("Only %d trades - Limited statistical significance (recommend %d+ trades)",
			totalTrades, significanceRecommended)
	default:
		return ""
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the sample standard deviation
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	variance /= float64(len(values) - 1)

	return math.Sqrt(variance)
}

// sanitize maps NaN and infinities to zero so results stay
// JSON-encodable
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
