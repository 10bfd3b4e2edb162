package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRsiWarmupIsNaN(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	rsi := Rsi(14, closes)
	require.Len(t, rsi, 20)

	for i := 0; i < 13; i++ {
		assert.True(t, math.IsNaN(rsi[i]), "index %d should be warm-up", i)
	}
	assert.False(t, math.IsNaN(rsi[13]))
}

func TestRsiAllGainsReadsOverbought(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	rsi := Rsi(14, closes)
	assert.Equal(t, 100.0, rsi[len(rsi)-1])
}

func TestRsiSmoothing(t *testing.T) {
	// period=2, alpha=0.5, seeded at zero averages.
	// [2,1,2]: down then up gives avgGain=0.5, avgLoss=0.25, RSI=66.67.
	rsi := Rsi(2, []float64{2, 1, 2})
	require.Len(t, rsi, 3)

	assert.Equal(t, 0.0, rsi[1])
	assert.InDelta(t, 66.6667, rsi[2], 1e-3)
}

func TestRsiFlatSeriesIsUndefined(t *testing.T) {
	rsi := Rsi(2, []float64{5, 5, 5, 5})
	assert.True(t, math.IsNaN(rsi[len(rsi)-1]))
}

func TestMacdHistogram(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}

	macd, signal, histogram := Macd(closes)
	require.Len(t, histogram, 60)

	last := len(closes) - 1
	assert.InDelta(t, macd[last]-signal[last], histogram[last], 1e-9)
	// Steady uptrend keeps the fast EMA above the slow one.
	assert.Greater(t, macd[last], 0.0)
}

func TestRollingStdUsesSampleVariance(t *testing.T) {
	std := RollingStd(3, []float64{1, 2, 3, 4})
	require.Len(t, std, 4)

	assert.True(t, math.IsNaN(std[0]))
	assert.True(t, math.IsNaN(std[1]))
	// Sample std of {1,2,3} is exactly 1.
	assert.InDelta(t, 1.0, std[2], 1e-9)
	assert.InDelta(t, 1.0, std[3], 1e-9)
}

func TestBollingerBandsFullWindow(t *testing.T) {
	middle, upper, lower := BollingerBands(3, 2.0, []float64{1, 2, 3, 4})

	assert.InDelta(t, 2.0, middle[2], 1e-9)
	assert.InDelta(t, 4.0, upper[2], 1e-9)
	assert.InDelta(t, 0.0, lower[2], 1e-9)
	// Warm-up slots carry the NaN from the deviation series.
	assert.True(t, math.IsNaN(upper[1]))
}

func TestStochastic(t *testing.T) {
	highs := []float64{2, 3, 4}
	lows := []float64{1, 2, 3}
	closes := []float64{1.5, 2.5, 3.5}

	k, d := Stochastic(2, 2, highs, lows, closes)

	assert.True(t, math.IsNaN(k[0]))
	assert.InDelta(t, 75.0, k[1], 1e-9)
	assert.InDelta(t, 75.0, k[2], 1e-9)

	assert.True(t, math.IsNaN(d[1]))
	assert.InDelta(t, 75.0, d[2], 1e-9)
}

func TestStochasticFlatWindowIsUndefined(t *testing.T) {
	flat := []float64{5, 5, 5}
	k, _ := Stochastic(2, 2, flat, flat, flat)
	assert.True(t, math.IsNaN(k[2]))
}

func TestObvSigns(t *testing.T) {
	closes := []float64{10, 11, 10, 10}
	volumes := []float64{100, 200, 300, 400}

	obv := Obv(closes, volumes)
	// Unchanged close counts as distribution.
	assert.Equal(t, []float64{100, 300, 0, -400}, obv)
}

func TestObvTrend(t *testing.T) {
	assert.InDelta(t, 100.0, ObvTrend(3, []float64{100, 150, 200}), 1e-9)
	assert.Equal(t, 0.0, ObvTrend(5, []float64{100, 200}))
	assert.Equal(t, 0.0, ObvTrend(2, []float64{0, 50}))
}

func TestRoc(t *testing.T) {
	roc := Roc(2, []float64{10, 11, 12.1})

	assert.True(t, math.IsNaN(roc[0]))
	assert.True(t, math.IsNaN(roc[1]))
	assert.InDelta(t, 21.0, roc[2], 1e-9)
}

func TestVolumeRatio(t *testing.T) {
	ratio, avg := VolumeRatio(20, []float64{100, 200, 300})
	assert.InDelta(t, 200.0, avg, 1e-9)
	assert.InDelta(t, 1.5, ratio, 1e-9)

	ratio, avg = VolumeRatio(20, nil)
	assert.Equal(t, 1.0, ratio)
	assert.Equal(t, 0.0, avg)

	// Zero average volume falls back to the neutral ratio.
	ratio, _ = VolumeRatio(20, []float64{0, 0, 0})
	assert.Equal(t, 1.0, ratio)
}

func TestAtrFallback(t *testing.T) {
	short := []float64{100, 101}
	assert.Equal(t, 1.0, Atr(14, short, short, short))
}

func TestAtrConstantRange(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = 101
		lows[i] = 99
		closes[i] = 100
	}

	assert.InDelta(t, 2.0, Atr(14, highs, lows, closes), 1e-9)
}

func TestAdxTrendingMarket(t *testing.T) {
	n := 60
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)
		highs[i] = base + 1
		lows[i] = base - 1
		closes[i] = base
	}

	adx := Adx(14, highs, lows, closes)
	// A one-directional march is a strong trend.
	assert.Greater(t, adx[n-1], 25.0)
}

func TestRollingMaxMin(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5}

	max := RollingMax(3, values)
	assert.True(t, math.IsNaN(max[1]))
	assert.Equal(t, 4.0, max[2])
	assert.Equal(t, 5.0, max[4])

	min := RollingMin(3, values)
	assert.Equal(t, 1.0, min[2])
	assert.Equal(t, 1.0, min[4])
}
