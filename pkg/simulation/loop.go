package simulation

import (
	"fmt"

	"stratlab/internal/types"
)

// LoopBackend is the reference implementation. It walks the series one
// bar at a time, asking the signal source about each bar as it reaches
// it, and mutates a single position state in place.
type LoopBackend struct{}

// NewLoopBackend creates the bar-by-bar backend
func NewLoopBackend() *LoopBackend {
	return &LoopBackend{}
}

// Run simulates the strategy over the bar series. Fills happen at the
// bar close. Risk exits take priority over signal exits, and the time
// limit fires last.
func (b *LoopBackend) Run(bars []types.PriceBar, source SignalSource, config types.StrategyConfig, sizer Sizer) (*Result, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars to simulate")
	}
	if sizer == nil {
		return nil, fmt.Errorf("no position sizer")
	}

	capital := config.InitialCapital
	costRate := config.TotalCostPct() / 100

	var position types.PositionState
	trades := make([]types.Trade, 0)
	curve := make([]types.EquityPoint, 0, len(bars))

	for i, bar := range bars {
		price := bar.Close
		curve = markEquity(curve, bar.Date, capital, &position, price)

		if i < WarmupBars {
			continue
		}

		if position.IsOpen() {
			daysHeld := position.DaysHeld(bar.Date)
			position.UpdateHighest(price)

			// The trailing stop arms once the open gain reaches the
			// trailing distance, then ratchets up with new highs.
			trailingLevel := position.HighestPriceSinceEntry * (1 - config.TrailingStopPct/100)
			if !position.TrailingStopActive && position.UnrealizedPct(price) >= config.TrailingStopPct {
				position.TrailingStopActive = true
				position.StopLossPrice = trailingLevel
			} else if position.TrailingStopActive {
				position.RaiseStop(trailingLevel)
			}

			var reason types.ExitReason
			var signal string

			switch {
			case price >= position.TakeProfitPrice:
				reason = types.ExitTakeProfit
				signal = "Take profit target reached"
			case price <= position.StopLossPrice:
				if position.TrailingStopActive {
					reason = types.ExitTrailingStop
					signal = "Trailing stop triggered"
				} else {
					reason = types.ExitStopLoss
					signal = "Stop loss triggered"
				}
			case source.ExitAt(i):
				reason = types.ExitSignal
				signal = source.ExitDescription()
			case daysHeld >= config.MaxHoldDays:
				reason = types.ExitTimeLimit
				signal = fmt.Sprintf("Held for %d days (max: %d)", daysHeld, config.MaxHoldDays)
			default:
				continue
			}

			trade, net := closeTrade(&position, bar.Date, price, reason, signal, source.EntryDescription(), daysHeld, costRate)
			trades = append(trades, trade)
			capital += net
			position.Reset()
		} else if source.EntryAt(i) {
			entry := price
			stop := entry * (1 - config.StopLossPct/100)
			target := entry * (1 + config.TakeProfitPct/100)

			shares := sizer(capital, entry, stop)
			if shares > 0 {
				capital -= shares * entry
				position = types.OpenPosition(shares, entry, bar.Date, stop, target)
			}
		}
	}

	// Anything still open is closed out at the final bar so every entry
	// has a matching realized exit in the ledger.
	if position.IsOpen() {
		last := bars[len(bars)-1]
		daysHeld := position.DaysHeld(last.Date)
		trade, net := closeTrade(&position, last.Date, last.Close, types.ExitEndOfBacktest, "Backtest ended", source.EntryDescription(), daysHeld, costRate)
		trades = append(trades, trade)
		capital += net
		position.Reset()
	}

	return &Result{
		Trades:       trades,
		EquityCurve:  curve,
		FinalCapital: capital,
	}, nil
}
