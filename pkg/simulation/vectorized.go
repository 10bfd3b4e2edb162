package simulation

import (
	"fmt"
	"time"

	"stratlab/internal/types"
)

// VectorizedBackend materializes the entry and exit conditions as full
// boolean columns before the replay, then walks the columns without
// consulting the signal source again. Sources that implement
// SeriesSource hand over their columns directly; anything else is
// sampled once per bar during materialization.
type VectorizedBackend struct{}

// NewVectorizedBackend creates the precomputed-columns backend
func NewVectorizedBackend() *VectorizedBackend {
	return &VectorizedBackend{}
}

// Run simulates the strategy over the bar series using precomputed
// signal columns. Fill prices, exit priority and cost treatment match
// the loop backend.
func (b *VectorizedBackend) Run(bars []types.PriceBar, source SignalSource, config types.StrategyConfig, sizer Sizer) (*Result, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars to simulate")
	}
	if sizer == nil {
		return nil, fmt.Errorf("no position sizer")
	}

	entries, exits := materializeSignals(len(bars), source)
	if len(entries) != len(bars) || len(exits) != len(bars) {
		return nil, fmt.Errorf("signal columns cover %d bars, series has %d", len(entries), len(bars))
	}

	run := &vectorRun{
		capital:  config.InitialCapital,
		costRate: config.TotalCostPct() / 100,
		trades:   make([]types.Trade, 0),
		curve:    make([]types.EquityPoint, 0, len(bars)),
	}

	for i := range bars {
		date := bars[i].Date
		price := bars[i].Close

		run.mark(date, price)

		if i < WarmupBars {
			continue
		}

		if run.held {
			run.manageOpen(date, price, exits[i], source, config)
		} else if entries[i] {
			run.tryEnter(date, price, config, sizer)
		}
	}

	if run.held {
		last := bars[len(bars)-1]
		run.settle(last.Date, last.Close, types.ExitEndOfBacktest, "Backtest ended", source.EntryDescription())
	}

	return &Result{
		Trades:       run.trades,
		EquityCurve:  run.curve,
		FinalCapital: run.capital,
	}, nil
}

// materializeSignals returns entry and exit columns for n bars
func materializeSignals(n int, source SignalSource) ([]bool, []bool) {
	if s, ok := source.(SeriesSource); ok {
		return s.EntrySeries(), s.ExitSeries()
	}

	entries := make([]bool, n)
	exits := make([]bool, n)
	for i := 0; i < n; i++ {
		entries[i] = source.EntryAt(i)
		exits[i] = source.ExitAt(i)
	}
	return entries, exits
}

// vectorRun carries the replay state for one vectorized pass
type vectorRun struct {
	capital  float64
	costRate float64

	held        bool
	shares      float64
	entryPrice  float64
	entryDate   time.Time
	stopPrice   float64
	targetPrice float64
	highest     float64
	trailingOn  bool

	trades []types.Trade
	curve  []types.EquityPoint
}

// mark appends the equity sample for the current bar
func (r *vectorRun) mark(date time.Time, price float64) {
	equity := r.capital
	if r.held {
		equity += r.shares * price
	}

	r.curve = append(r.curve, types.EquityPoint{
		Date:       date,
		Equity:     round2(equity),
		InPosition: r.held,
	})
}

// manageOpen updates the trailing stop and resolves at most one exit
// for the bar
func (r *vectorRun) manageOpen(date time.Time, price float64, exitSignal bool, source SignalSource, config types.StrategyConfig) {
	daysHeld := int(date.Sub(r.entryDate).Hours() / 24)

	if price > r.highest {
		r.highest = price
	}

	trailingLevel := r.highest * (1 - config.TrailingStopPct/100)
	gainPct := (price - r.entryPrice) / r.entryPrice * 100
	if !r.trailingOn && gainPct >= config.TrailingStopPct {
		r.trailingOn = true
		r.stopPrice = trailingLevel
	} else if r.trailingOn && trailingLevel > r.stopPrice {
		r.stopPrice = trailingLevel
	}

	switch {
	case price >= r.targetPrice:
		r.settle(date, price, types.ExitTakeProfit, "Take profit target reached", source.EntryDescription())
	case price <= r.stopPrice:
		reason := types.ExitStopLoss
		signal := "Stop loss triggered"
		if r.trailingOn {
			reason = types.ExitTrailingStop
			signal = "Trailing stop triggered"
		}
		r.settle(date, price, reason, signal, source.EntryDescription())
	case exitSignal:
		r.settle(date, price, types.ExitSignal, source.ExitDescription(), source.EntryDescription())
	case daysHeld >= config.MaxHoldDays:
		r.settle(date, price, types.ExitTimeLimit, fmt.Sprintf("Held for %d days (max: %d)", daysHeld, config.MaxHoldDays), source.EntryDescription())
	}
}

// tryEnter opens a position at the bar close when the sizer allocates
// shares
func (r *vectorRun) tryEnter(date time.Time, price float64, config types.StrategyConfig, sizer Sizer) {
	stop := price * (1 - config.StopLossPct/100)

	shares := sizer(r.capital, price, stop)
	if shares <= 0 {
		return
	}

	r.capital -= shares * price
	r.held = true
	r.shares = shares
	r.entryPrice = price
	r.entryDate = date
	r.stopPrice = stop
	r.targetPrice = price * (1 + config.TakeProfitPct/100)
	r.highest = price
	r.trailingOn = false
}

// settle books the closing trade at the given price and returns the
// state to flat
func (r *vectorRun) settle(date time.Time, price float64, reason types.ExitReason, exitSignal, entrySignal string) {
	gross := r.shares * price
	net := gross - gross*r.costRate
	invested := r.shares * r.entryPrice

	r.trades = append(r.trades, types.Trade{
		EntryDate:        r.entryDate,
		ExitDate:         date,
		EntryPrice:       round2(r.entryPrice),
		ExitPrice:        round2(price),
		StopLoss:         round2(r.stopPrice),
		TakeProfit:       round2(r.targetPrice),
		ExitReason:       reason,
		Shares:           round2(r.shares),
		ProfitLossPct:    round2((net - invested) / invested * 100),
		ProfitLossAmount: round2(net - invested),
		DurationDays:     int(date.Sub(r.entryDate).Hours() / 24),
		EntrySignal:      entrySignal,
		ExitSignal:       exitSignal,
	})

	r.capital += net
	r.held = false
	r.shares = 0
	r.entryPrice = 0
	r.trailingOn = false
}
