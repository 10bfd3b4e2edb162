package simulation

import (
	"testing"

	"stratlab/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmupBlocksEntries(t *testing.T) {
	source := &stubSource{entries: map[int]bool{10: true, 30: true}}
	bars := dailyBars(flatCloses(60, 100))

	result, err := NewLoopBackend().Run(bars, source, testConfig(), fixedSizer(10))
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	// The equity curve still covers every bar, warm-up included.
	require.Len(t, result.EquityCurve, 60)
	assert.Equal(t, 100000.0, result.EquityCurve[0].Equity)
	assert.Equal(t, 100000.0, result.FinalCapital)
}

func TestFirstEntryAfterWarmup(t *testing.T) {
	entries := make(map[int]bool)
	for i := 0; i < 60; i++ {
		entries[i] = true
	}
	source := &stubSource{entries: entries}
	bars := dailyBars(flatCloses(60, 100))

	result, err := NewLoopBackend().Run(bars, source, testConfig(), fixedSizer(10))
	require.NoError(t, err)

	require.NotEmpty(t, result.Trades)
	assert.Equal(t, bars[WarmupBars].Date, result.Trades[0].EntryDate)
}

func TestTakeProfitExit(t *testing.T) {
	closes := flatCloses(60, 100)
	closes[51] = 115

	source := &stubSource{entries: map[int]bool{50: true}}
	bars := dailyBars(closes)

	result, err := NewLoopBackend().Run(bars, source, testConfig(), fixedSizer(10))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, types.ExitTakeProfit, trade.ExitReason)
	assert.Equal(t, "Take profit target reached", trade.ExitSignal)
	assert.Equal(t, "test entry", trade.EntrySignal)
	assert.Equal(t, 100.0, trade.EntryPrice)
	assert.Equal(t, 115.0, trade.ExitPrice)
	assert.Equal(t, 95.0, trade.StopLoss)
	assert.Equal(t, 115.0, trade.TakeProfit)
	assert.Equal(t, 1, trade.DurationDays)
	assert.InDelta(t, 150.0, trade.ProfitLossAmount, 1e-9)
	assert.InDelta(t, 15.0, trade.ProfitLossPct, 1e-9)
	assert.InDelta(t, 100150.0, result.FinalCapital, 1e-9)
}

func TestTakeProfitBeatsSignalExit(t *testing.T) {
	closes := flatCloses(60, 100)
	closes[51] = 115

	source := &stubSource{
		entries: map[int]bool{50: true},
		exits:   map[int]bool{51: true},
	}

	result, err := NewLoopBackend().Run(dailyBars(closes), source, testConfig(), fixedSizer(10))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, types.ExitTakeProfit, result.Trades[0].ExitReason)
}

func TestStopLossExit(t *testing.T) {
	closes := flatCloses(60, 100)
	closes[51] = 94

	source := &stubSource{
		entries: map[int]bool{50: true},
		exits:   map[int]bool{51: true}, // stop still wins
	}

	result, err := NewLoopBackend().Run(dailyBars(closes), source, testConfig(), fixedSizer(10))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, types.ExitStopLoss, trade.ExitReason)
	assert.Equal(t, "Stop loss triggered", trade.ExitSignal)
	assert.Equal(t, 94.0, trade.ExitPrice)
	assert.True(t, trade.IsLoss())
}

func TestSignalExit(t *testing.T) {
	source := &stubSource{
		entries: map[int]bool{50: true},
		exits:   map[int]bool{52: true},
	}
	bars := dailyBars(flatCloses(60, 100))

	result, err := NewLoopBackend().Run(bars, source, testConfig(), fixedSizer(10))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, types.ExitSignal, trade.ExitReason)
	assert.Equal(t, "test exit", trade.ExitSignal)
	assert.Equal(t, bars[52].Date, trade.ExitDate)
	assert.Equal(t, 2, trade.DurationDays)
}

func TestTimeLimitExit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxHoldDays = 10

	source := &stubSource{entries: map[int]bool{50: true}}
	bars := dailyBars(flatCloses(70, 100))

	result, err := NewLoopBackend().Run(bars, source, cfg, fixedSizer(10))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, types.ExitTimeLimit, trade.ExitReason)
	assert.Equal(t, "Held for 10 days (max: 10)", trade.ExitSignal)
	assert.Equal(t, bars[60].Date, trade.ExitDate)
	assert.Equal(t, 10, trade.DurationDays)
}

func TestTrailingStopArmsAndTriggers(t *testing.T) {
	closes := flatCloses(60, 100)
	closes[51] = 112
	closes[52] = 100.5

	source := &stubSource{entries: map[int]bool{50: true}}

	result, err := NewLoopBackend().Run(dailyBars(closes), source, testConfig(), fixedSizer(10))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, types.ExitTrailingStop, trade.ExitReason)
	assert.Equal(t, "Trailing stop triggered", trade.ExitSignal)
	// Stop moved from 95 to 90% of the 112 high.
	assert.Equal(t, 100.8, trade.StopLoss)
	assert.Equal(t, 100.5, trade.ExitPrice)
}

func TestTrailingStopRatchets(t *testing.T) {
	cfg := testConfig()
	cfg.TakeProfitPct = 50

	closes := flatCloses(60, 100)
	closes[51] = 112
	closes[52] = 120
	closes[53] = 130
	closes[54] = 116

	source := &stubSource{entries: map[int]bool{50: true}}

	result, err := NewLoopBackend().Run(dailyBars(closes), source, cfg, fixedSizer(10))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, types.ExitTrailingStop, trade.ExitReason)
	// Ratcheted to 90% of the 130 high.
	assert.Equal(t, 117.0, trade.StopLoss)
	assert.Equal(t, 116.0, trade.ExitPrice)
	assert.True(t, trade.IsWin())
}

func TestTrailingActivationReplacesTightStop(t *testing.T) {
	cfg := testConfig()
	cfg.StopLossPct = 0.5
	cfg.TakeProfitPct = 50

	closes := flatCloses(60, 100)
	closes[51] = 110
	closes[52] = 99.2
	closes[53] = 98

	source := &stubSource{entries: map[int]bool{50: true}}
	bars := dailyBars(closes)

	result, err := NewLoopBackend().Run(bars, source, cfg, fixedSizer(10))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	// Activation sets the stop to the trailing level even when the
	// initial stop sat above it, so 99.2 does not knock the trade out.
	assert.Equal(t, types.ExitTrailingStop, trade.ExitReason)
	assert.Equal(t, bars[53].Date, trade.ExitDate)
	assert.Equal(t, 99.0, trade.StopLoss)
	assert.Equal(t, 3, trade.DurationDays)
}

func TestForcedCloseAtEnd(t *testing.T) {
	source := &stubSource{entries: map[int]bool{50: true}}
	bars := dailyBars(flatCloses(60, 100))

	result, err := NewLoopBackend().Run(bars, source, testConfig(), fixedSizer(10))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, types.ExitEndOfBacktest, trade.ExitReason)
	assert.Equal(t, "Backtest ended", trade.ExitSignal)
	assert.Equal(t, bars[59].Date, trade.ExitDate)
	assert.Equal(t, 100000.0, result.FinalCapital)
}

func TestReentryAfterExit(t *testing.T) {
	source := &stubSource{
		entries: map[int]bool{50: true, 55: true},
		exits:   map[int]bool{52: true},
	}
	bars := dailyBars(flatCloses(60, 100))

	result, err := NewLoopBackend().Run(bars, source, testConfig(), fixedSizer(10))
	require.NoError(t, err)

	require.Len(t, result.Trades, 2)
	assert.Equal(t, types.ExitSignal, result.Trades[0].ExitReason)
	assert.Equal(t, bars[55].Date, result.Trades[1].EntryDate)
	assert.Equal(t, types.ExitEndOfBacktest, result.Trades[1].ExitReason)
}

func TestEquityCurveWhileHolding(t *testing.T) {
	closes := flatCloses(60, 100)
	closes[51] = 110

	source := &stubSource{entries: map[int]bool{50: true}}

	result, err := NewLoopBackend().Run(dailyBars(closes), source, testConfig(), fixedSizer(10))
	require.NoError(t, err)

	curve := result.EquityCurve
	require.Len(t, curve, 60)

	// The entry bar is sampled before the fill.
	assert.Equal(t, 100000.0, curve[50].Equity)
	assert.False(t, curve[50].InPosition)

	// While held: cash plus position marked at the close.
	assert.Equal(t, 100100.0, curve[51].Equity)
	assert.True(t, curve[51].InPosition)
}

func TestExitChargesRoundTripCost(t *testing.T) {
	cfg := testConfig()
	cfg.CommissionPct = 0.05
	cfg.SlippagePct = 0.1
	cfg.TaxPct = 0.025

	closes := flatCloses(60, 100)
	closes[51] = 115

	source := &stubSource{entries: map[int]bool{50: true}}

	result, err := NewLoopBackend().Run(dailyBars(closes), source, cfg, fixedSizer(7))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]

	// Gross 805, cost 0.35% of gross, net 802.1825 on 700 invested.
	assert.InDelta(t, 102.18, trade.ProfitLossAmount, 1e-9)
	assert.InDelta(t, 14.6, trade.ProfitLossPct, 1e-9)
	assert.InDelta(t, 100102.1825, result.FinalCapital, 1e-3)
}

func TestSizerZeroMeansNoTrade(t *testing.T) {
	entries := make(map[int]bool)
	for i := 50; i < 60; i++ {
		entries[i] = true
	}
	source := &stubSource{entries: entries}

	result, err := NewLoopBackend().Run(dailyBars(flatCloses(60, 100)), source, testConfig(), fixedSizer(0))
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 100000.0, result.FinalCapital)
}

func TestCapitalIdentity(t *testing.T) {
	source := &stubSource{
		entries: map[int]bool{50: true, 54: true, 58: true},
		exits:   map[int]bool{52: true, 56: true},
	}

	cfg := testConfig()
	cfg.CommissionPct = 0.05
	cfg.SlippagePct = 0.1
	cfg.TaxPct = 0.025

	closes := flatCloses(62, 100)
	closes[52] = 104
	closes[56] = 97

	result, err := NewLoopBackend().Run(dailyBars(closes), source, cfg, fixedSizer(10))
	require.NoError(t, err)

	require.Len(t, result.Trades, 3)

	total := 0.0
	for _, trade := range result.Trades {
		total += trade.ProfitLossAmount
	}
	assert.InDelta(t, cfg.InitialCapital+total, result.FinalCapital, 0.02*float64(len(result.Trades)))
}
