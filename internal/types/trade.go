package types

import (
	"time"
)

// ExitReason identifies which rule closed a trade
type ExitReason string

const (
	ExitTakeProfit    ExitReason = "TAKE_PROFIT"
	ExitStopLoss      ExitReason = "STOP_LOSS"
	ExitTrailingStop  ExitReason = "TRAILING_STOP"
	ExitSignal        ExitReason = "SIGNAL"
	ExitTimeLimit     ExitReason = "TIME_EXIT"
	ExitEndOfBacktest ExitReason = "END_OF_BACKTEST"
)

// Trade is one completed round-trip in the ledger. Records are append-only
// and never mutated after the exit that produced them.
type Trade struct {
	EntryDate        time.Time  `json:"entry_date"`
	ExitDate         time.Time  `json:"exit_date"`
	EntryPrice       float64    `json:"entry_price"`
	ExitPrice        float64    `json:"exit_price"`
	StopLoss         float64    `json:"stop_loss"`
	TakeProfit       float64    `json:"take_profit"`
	ExitReason       ExitReason `json:"exit_reason"`
	Shares           float64    `json:"shares"`
	ProfitLossPct    float64    `json:"profit_loss_pct"`
	ProfitLossAmount float64    `json:"profit_loss_amount"`
	DurationDays     int        `json:"duration_days"`
	EntrySignal      string     `json:"entry_signal"`
	ExitSignal       string     `json:"exit_signal"`
}

// IsWin returns true if the trade closed with a positive return
func (t Trade) IsWin() bool {
	return t.ProfitLossPct > 0
}

// IsLoss returns true if the trade closed with a negative return
func (t Trade) IsLoss() bool {
	return t.ProfitLossPct < 0
}

// EquityPoint is one sample of the portfolio value over the simulation
type EquityPoint struct {
	Date       time.Time `json:"date"`
	Equity     float64   `json:"equity"`
	InPosition bool      `json:"in_position"`
}
