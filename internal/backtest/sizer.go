package backtest

import (
	"math"

	"stratlab/internal/types"
	"stratlab/pkg/simulation"
)

// NewSizer builds the risk-based position sizer for a strategy config.
// Shares are chosen so the loss from entry to stop equals the per-trade
// risk fraction of capital, then capped so the position value never
// exceeds the maximum position fraction.
func NewSizer(config types.StrategyConfig) simulation.Sizer {
	return func(capital, entryPrice, stopPrice float64) float64 {
		riskAmount := capital * config.RiskPerTradePct / 100

		riskPerShare := entryPrice - stopPrice
		if riskPerShare <= 0 {
			return 0
		}

		sharesByRisk := riskAmount / riskPerShare
		maxShares := (capital * config.MaxPositionPct / 100) / entryPrice

		return math.Min(sharesByRisk, maxShares)
	}
}
