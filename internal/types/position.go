package types

import (
	"time"
)

// PositionState tracks the single open position during a simulation. The
// engine is long-only with no pyramiding, so at most one instance is live at
// a time: Shares > 0 implies the entry fields are all set, and a zero value
// means flat.
type PositionState struct {
	Shares                  float64   `json:"shares"`
	EntryPrice              float64   `json:"entry_price"`
	EntryDate               time.Time `json:"entry_date"`
	StopLossPrice           float64   `json:"stop_loss_price"`
	TakeProfitPrice         float64   `json:"take_profit_price"`
	HighestPriceSinceEntry  float64   `json:"highest_price_since_entry"`
	TrailingStopActive      bool      `json:"trailing_stop_active"`
}

// OpenPosition creates the position state for a fresh entry
func OpenPosition(shares, entryPrice float64, entryDate time.Time, stopLoss, takeProfit float64) PositionState {
	return PositionState{
		Shares:                 shares,
		EntryPrice:             entryPrice,
		EntryDate:              entryDate,
		StopLossPrice:          stopLoss,
		TakeProfitPrice:        takeProfit,
		HighestPriceSinceEntry: entryPrice,
	}
}

// IsOpen returns true while a position is held
func (p *PositionState) IsOpen() bool {
	return p.Shares > 0
}

// UnrealizedPct returns the open profit/loss as a percentage of entry
func (p *PositionState) UnrealizedPct(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return ((price - p.EntryPrice) / p.EntryPrice) * 100
}

// UpdateHighest records a new high-water mark when price exceeds it
func (p *PositionState) UpdateHighest(price float64) {
	if price > p.HighestPriceSinceEntry {
		p.HighestPriceSinceEntry = price
	}
}

// RaiseStop lifts the stop to the given level. The stop only ever moves up.
func (p *PositionState) RaiseStop(level float64) {
	if level > p.StopLossPrice {
		p.StopLossPrice = level
	}
}

// DaysHeld returns calendar days between entry and the given date
func (p *PositionState) DaysHeld(date time.Time) int {
	return int(date.Sub(p.EntryDate).Hours() / 24)
}

// MarketValue returns the position value at the given price
func (p *PositionState) MarketValue(price float64) float64 {
	return p.Shares * price
}

// Reset returns the state to flat
func (p *PositionState) Reset() {
	*p = PositionState{}
}
