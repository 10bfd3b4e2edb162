package indicators

import (
	"math"
	"testing"
	"time"

	"stratlab/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkBars builds n daily bars trending by step per bar
func mkBars(base, step float64, n int) []types.PriceBar {
	bars := make([]types.PriceBar, n)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p := base + float64(i)*step
		bars[i] = types.NewPriceBar(day.AddDate(0, 0, i), p*0.999, p*1.005, p*0.995, p, 1_000_000)
	}
	return bars
}

func TestComputeSnapshotEmptySeries(t *testing.T) {
	assert.Nil(t, ComputeSnapshot("AAPL", nil))
	assert.Nil(t, ComputeSnapshot("AAPL", []types.PriceBar{}))
}

func TestComputeSnapshotShortSeriesFallbacks(t *testing.T) {
	snap := ComputeSnapshot("AAPL", mkBars(100, 0.5, 5))
	require.NotNil(t, snap)

	assert.Equal(t, "AAPL", snap.Symbol)
	assert.Equal(t, 5, snap.DataPoints)

	// Undefined oscillators read neutral.
	assert.Equal(t, 50.0, snap.RSI)
	assert.Equal(t, 50.0, snap.Momentum.StochasticK)
	assert.Equal(t, 50.0, snap.Momentum.StochasticD)
	assert.Equal(t, 25.0, snap.Momentum.ADX)
	assert.Equal(t, 0.0, snap.Momentum.ROC10)

	// Moving averages without a full window read zero.
	assert.Equal(t, 0.0, snap.SMA20)
	assert.Equal(t, 0.0, snap.SMA50)
	assert.Equal(t, 0.0, snap.SMA200)

	assert.Equal(t, 1.0, snap.ATR)
	assert.Equal(t, 0.5, snap.Bollinger.PricePosition)
	assert.Equal(t, 0.0, snap.Bollinger.Upper)
}

func TestComputeSnapshotUptrend(t *testing.T) {
	bars := mkBars(100, 0.5, 250)
	snap := ComputeSnapshot("MSFT", bars)
	require.NotNil(t, snap)

	assert.Equal(t, 250, snap.DataPoints)
	assert.InDelta(t, bars[249].Close, snap.CurrentPrice, 1e-9)

	assert.Greater(t, snap.RSI, 50.0)
	assert.Greater(t, snap.MACD.MACD, 0.0)
	assert.Greater(t, snap.SMA20, snap.SMA50)
	assert.Greater(t, snap.SMA50, snap.SMA200)
	assert.Greater(t, snap.EMA12, snap.EMA26)
	assert.Greater(t, snap.Momentum.ROC10, 0.0)
	assert.Greater(t, snap.Bollinger.PricePosition, 0.5)
	assert.Greater(t, snap.Bollinger.Upper, snap.Bollinger.Lower)
	assert.Greater(t, snap.ATR, 0.0)
}

func TestComputeSnapshotTenBarChange(t *testing.T) {
	bars := mkBars(100, 0, 15)
	bars[14].Close = 110
	bars[14].High = 111

	snap := ComputeSnapshot("TEST", bars)
	require.NotNil(t, snap)
	assert.InDelta(t, 10.0, snap.Momentum.ROC10, 1e-9)
}

func TestComputeSnapshotVolume(t *testing.T) {
	bars := mkBars(100, 0.1, 40)
	for i := range bars {
		bars[i].Volume = 1_000_000
	}
	bars[39].Volume = 2_000_000

	snap := ComputeSnapshot("TEST", bars)
	require.NotNil(t, snap)

	assert.Equal(t, 2_000_000.0, snap.Volume.CurrentVolume)
	// 19 bars at 1M plus one at 2M.
	assert.InDelta(t, 1_050_000.0, snap.Volume.AvgVolume, 1e-6)
	assert.InDelta(t, 2_000_000.0/1_050_000.0, snap.Volume.VolumeRatio, 1e-9)
}

func TestComputeSnapshotIsSanitized(t *testing.T) {
	// Flat prices leave RSI and stochastic undefined in the raw series.
	bars := mkBars(100, 0, 60)
	snap := ComputeSnapshot("FLAT", bars)
	require.NotNil(t, snap)

	for name, v := range map[string]float64{
		"rsi":          snap.RSI,
		"macd":         snap.MACD.MACD,
		"sma20":        snap.SMA20,
		"atr":          snap.ATR,
		"volume_ratio": snap.Volume.VolumeRatio,
		"obv_trend":    snap.Volume.OBVTrend,
		"stoch_k":      snap.Momentum.StochasticK,
		"adx":          snap.Momentum.ADX,
	} {
		assert.False(t, math.IsNaN(v), "%s is NaN", name)
		assert.False(t, math.IsInf(v, 0), "%s is Inf", name)
	}

	assert.Equal(t, 50.0, snap.RSI)
}
