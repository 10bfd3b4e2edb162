package indicators

import (
	"math"

	"github.com/cinar/indicator"
)

// Functions in this file return full series aligned with the input.
// Warm-up slots hold NaN; callers either skip the warm-up window or
// sanitize through the snapshot accessors.

// nanSeries returns a slice of the given length filled with NaN
func nanSeries(length int) []float64 {
	result := make([]float64, length)
	for i := range result {
		result[i] = math.NaN()
	}
	return result
}

// Rsi computes the Relative Strength Index using Wilder's smoothing.
// Average gain and loss follow the exponential recursion with
// alpha = 1/period, seeded at the first bar. Values before the first
// `period` observations are NaN.
func Rsi(period int, closing []float64) []float64 {
	result := nanSeries(len(closing))
	if period < 1 || len(closing) < 2 {
		return result
	}

	alpha := 1.0 / float64(period)
	avgGain := 0.0
	avgLoss := 0.0

	for i := 1; i < len(closing); i++ {
		delta := closing[i] - closing[i-1]
		gain := 0.0
		loss := 0.0
		if delta > 0 {
			gain = delta
		} else if delta < 0 {
			loss = -delta
		}

		avgGain += alpha * (gain - avgGain)
		avgLoss += alpha * (loss - avgLoss)

		if i >= period-1 {
			result[i] = rsiFromAverages(avgGain, avgLoss)
		}
	}

	return result
}

// rsiFromAverages converts smoothed averages to an RSI value.
// avg_loss = 0 with gains present means fully overbought (100). A window
// with no movement at all is undefined and left NaN for sanitization.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return math.NaN()
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Macd computes the MACD line (EMA12 - EMA26), signal line (EMA9 of MACD)
// and histogram (MACD - signal)
func Macd(closing []float64) (macd, signal, histogram []float64) {
	macd, signal = indicator.Macd(closing)

	histogram = make([]float64, len(macd))
	for i := range macd {
		histogram[i] = macd[i] - signal[i]
	}

	return macd, signal, histogram
}

// Atr returns the latest Average True Range over the period, with a
// constant fallback of 1.0 when the series is shorter than the period
func Atr(period int, high, low, closing []float64) float64 {
	if len(closing) < period || period < 1 {
		return 1.0
	}

	_, atr := indicator.Atr(period, high, low, closing)

	last := atr[len(atr)-1]
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return 1.0
	}
	return last
}

// RollingStd computes the rolling sample standard deviation over the
// period. Slots before a full window are NaN.
func RollingStd(period int, values []float64) []float64 {
	result := nanSeries(len(values))
	if period < 2 {
		return result
	}

	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]

		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)

		variance := 0.0
		for _, v := range window {
			d := v - mean
			variance += d * d
		}

		result[i] = math.Sqrt(variance / float64(period-1))
	}

	return result
}

// BollingerBands computes SMA(period) with bands at stdDev rolling
// sample deviations. Band slots before a full window are NaN.
func BollingerBands(period int, stdDev float64, closing []float64) (middle, upper, lower []float64) {
	middle = indicator.Sma(period, closing)
	std := RollingStd(period, closing)

	upper = make([]float64, len(closing))
	lower = make([]float64, len(closing))
	for i := range closing {
		upper[i] = middle[i] + stdDev*std[i]
		lower[i] = middle[i] - stdDev*std[i]
	}

	return middle, upper, lower
}

// RollingMax computes the rolling maximum over the period
func RollingMax(period int, values []float64) []float64 {
	result := nanSeries(len(values))
	for i := period - 1; i < len(values); i++ {
		max := values[i-period+1]
		for _, v := range values[i-period+2 : i+1] {
			if v > max {
				max = v
			}
		}
		result[i] = max
	}
	return result
}

// RollingMin computes the rolling minimum over the period
func RollingMin(period int, values []float64) []float64 {
	result := nanSeries(len(values))
	for i := period - 1; i < len(values); i++ {
		min := values[i-period+1]
		for _, v := range values[i-period+2 : i+1] {
			if v < min {
				min = v
			}
		}
		result[i] = min
	}
	return result
}

// Stochastic computes the %K and %D oscillator lines. A window with no
// high-low range leaves %K undefined for that slot.
func Stochastic(kPeriod, dPeriod int, high, low, closing []float64) (k, d []float64) {
	highest := RollingMax(kPeriod, high)
	lowest := RollingMin(kPeriod, low)

	k = nanSeries(len(closing))
	for i := kPeriod - 1; i < len(closing); i++ {
		spread := highest[i] - lowest[i]
		if spread > 0 {
			k[i] = 100 * (closing[i] - lowest[i]) / spread
		}
	}

	d = rollingMean(dPeriod, k)
	return k, d
}

// rollingMean computes a rolling mean that propagates NaN from any slot
// inside the window
func rollingMean(period int, values []float64) []float64 {
	result := nanSeries(len(values))
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		valid := true
		for _, v := range values[i-period+1 : i+1] {
			if math.IsNaN(v) {
				valid = false
				break
			}
			sum += v
		}
		if valid {
			result[i] = sum / float64(period)
		}
	}
	return result
}

// Obv computes cumulative On-Balance Volume. Volume counts positive when
// the close rose versus the prior bar, negative otherwise.
func Obv(closing, volume []float64) []float64 {
	result := make([]float64, len(closing))
	for i := range closing {
		sign := 1.0
		if i > 0 && closing[i] <= closing[i-1] {
			sign = -1.0
		}

		prev := 0.0
		if i > 0 {
			prev = result[i-1]
		}
		result[i] = prev + sign*volume[i]
	}
	return result
}

// ObvTrend returns the percent change of OBV across a window of bars,
// or 0 when the series is too short or the base value is zero
func ObvTrend(window int, obv []float64) float64 {
	if len(obv) < window || window < 2 {
		return 0
	}

	base := obv[len(obv)-window]
	if base == 0 {
		return 0
	}
	return (obv[len(obv)-1] - base) / base * 100
}

// Roc computes the percent Rate-of-Change with a lag of `period` bars.
// Slots without a full lag, or with a zero base price, are NaN.
func Roc(period int, closing []float64) []float64 {
	result := nanSeries(len(closing))
	for i := period; i < len(closing); i++ {
		base := closing[i-period]
		if base != 0 {
			result[i] = (closing[i] - base) / base * 100
		}
	}
	return result
}

// VolumeRatio returns the latest volume relative to its rolling mean,
// along with that mean. Neutral ratio 1.0 when the mean is unavailable.
func VolumeRatio(window int, volume []float64) (ratio, avgVolume float64) {
	if len(volume) == 0 {
		return 1.0, 0
	}
	if len(volume) < window {
		window = len(volume)
	}

	sum := 0.0
	for _, v := range volume[len(volume)-window:] {
		sum += v
	}
	avgVolume = sum / float64(window)

	current := volume[len(volume)-1]
	if avgVolume > 0 {
		return current / avgVolume, avgVolume
	}
	return 1.0, avgVolume
}

// Adx computes a simplified Average Directional Index: directional
// movements and the high-low range are smoothed with simple rolling
// means, then DX is smoothed once more
func Adx(period int, high, low, closing []float64) []float64 {
	n := len(closing)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	rangeHL := make([]float64, n)

	for i := 0; i < n; i++ {
		rangeHL[i] = high[i] - low[i]
		if i == 0 {
			continue
		}
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	smoothPlus := indicator.Sma(period, plusDM)
	smoothMinus := indicator.Sma(period, minusDM)
	smoothRange := indicator.Sma(period, rangeHL)

	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if smoothRange[i] <= 0 {
			continue
		}
		plusDI := 100 * smoothPlus[i] / smoothRange[i]
		minusDI := 100 * smoothMinus[i] / smoothRange[i]
		if plusDI+minusDI > 0 {
			dx[i] = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
		}
	}

	return indicator.Sma(period, dx)
}
