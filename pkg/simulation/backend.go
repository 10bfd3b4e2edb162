package simulation

import (
	"fmt"
	"math"
	"time"

	"stratlab/internal/types"
)

// WarmupBars is the uniform indicator warm-up window. No entries or
// exits fire before it, regardless of strategy.
const WarmupBars = 50

// SignalSource supplies per-bar entry and exit conditions plus the
// ledger descriptions recorded on fills
type SignalSource interface {
	EntryAt(i int) bool
	ExitAt(i int) bool
	EntryDescription() string
	ExitDescription() string
}

// SeriesSource is a SignalSource that can materialize its conditions as
// full series aligned with the bars
type SeriesSource interface {
	SignalSource
	EntrySeries() []bool
	ExitSeries() []bool
}

// Sizer returns the share count for a new position given available
// capital and the planned entry and stop prices. Zero or negative means
// no trade.
type Sizer func(capital, entryPrice, stopPrice float64) float64

// Result holds the output of one simulation run
type Result struct {
	Trades       []types.Trade
	EquityCurve  []types.EquityPoint
	FinalCapital float64
}

// Backend runs one simulation over a bar series. Implementations are
// deterministic: the same series and config always produce the same
// ledger and equity curve.
type Backend interface {
	Run(bars []types.PriceBar, source SignalSource, config types.StrategyConfig, sizer Sizer) (*Result, error)
}

// BackendKind selects a backend implementation
type BackendKind string

const (
	// BackendLoop re-evaluates signal conditions bar by bar
	BackendLoop BackendKind = "loop"
	// BackendVectorized consumes signal series materialized up front
	BackendVectorized BackendKind = "vectorized"
)

// NewBackend creates a simulation backend of the given kind. An empty
// kind selects the loop reference implementation.
func NewBackend(kind BackendKind) (Backend, error) {
	switch kind {
	case BackendLoop, "":
		return NewLoopBackend(), nil
	case BackendVectorized:
		return NewVectorizedBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported simulation backend: %s", kind)
	}
}

// closeTrade builds the ledger record for an exit fill and returns the
// net proceeds credited back to capital. The round-trip transaction
// cost is charged here, once, against gross proceeds.
func closeTrade(position *types.PositionState, exitDate time.Time, exitPrice float64, reason types.ExitReason, exitSignal, entrySignal string, daysHeld int, costRate float64) (types.Trade, float64) {
	gross := position.Shares * exitPrice
	cost := gross * costRate
	net := gross - cost

	invested := position.Shares * position.EntryPrice
	pnlAmount := net - invested
	pnlPct := pnlAmount / invested * 100

	trade := types.Trade{
		EntryDate:        position.EntryDate,
		ExitDate:         exitDate,
		EntryPrice:       round2(position.EntryPrice),
		ExitPrice:        round2(exitPrice),
		StopLoss:         round2(position.StopLossPrice),
		TakeProfit:       round2(position.TakeProfitPrice),
		ExitReason:       reason,
		Shares:           round2(position.Shares),
		ProfitLossPct:    round2(pnlPct),
		ProfitLossAmount: round2(pnlAmount),
		DurationDays:     daysHeld,
		EntrySignal:      entrySignal,
		ExitSignal:       exitSignal,
	}

	return trade, net
}

// markEquity appends one equity sample for the current bar
func markEquity(curve []types.EquityPoint, date time.Time, capital float64, position *types.PositionState, price float64) []types.EquityPoint {
	equity := capital
	if position.IsOpen() {
		equity = capital + position.MarketValue(price)
	}

	return append(curve, types.EquityPoint{
		Date:       date,
		Equity:     round2(equity),
		InPosition: position.IsOpen(),
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
