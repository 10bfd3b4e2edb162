package indicators

import (
	"math"

	"stratlab/internal/types"

	"github.com/cinar/indicator"
)

// Standard lookback windows
const (
	rsiPeriod       = 14
	atrPeriod       = 14
	bollingerPeriod = 20
	bollingerStdDev = 2.0
	stochasticKSpan = 14
	stochasticDSpan = 3
	volumeWindow    = 20
	adxPeriod       = 14
)

// Snapshot holds the latest value of every tracked indicator for one symbol.
// All fields are sanitized; undefined values are replaced with their
// documented neutral fallbacks.
type Snapshot struct {
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"current_price"`
	DataPoints   int     `json:"data_points"`

	RSI       float64         `json:"rsi"`
	MACD      MACDValues      `json:"macd"`
	SMA20     float64         `json:"sma20"`
	SMA50     float64         `json:"sma50"`
	SMA200    float64         `json:"sma200"`
	EMA12     float64         `json:"ema12"`
	EMA26     float64         `json:"ema26"`
	Bollinger BollingerValues `json:"bollinger_bands"`
	ATR       float64         `json:"atr"`
	Volume    VolumeValues    `json:"volume"`
	Momentum  MomentumValues  `json:"momentum"`
}

// MACDValues holds the three MACD components
type MACDValues struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerValues holds the band levels and derived measures
type BollingerValues struct {
	Upper     float64 `json:"upper"`
	Middle    float64 `json:"middle"`
	Lower     float64 `json:"lower"`
	BandWidth float64 `json:"band_width"`
	// PricePosition is (price-lower)/(upper-lower); it can exceed [0,1]
	// on a breakout
	PricePosition float64 `json:"price_position"`
}

// VolumeValues holds volume-derived measures
type VolumeValues struct {
	CurrentVolume float64 `json:"current_volume"`
	AvgVolume     float64 `json:"avg_volume_20"`
	VolumeRatio   float64 `json:"volume_ratio"`
	OBVTrend      float64 `json:"obv_trend"`
}

// MomentumValues holds momentum oscillator readings
type MomentumValues struct {
	ROC10       float64 `json:"roc_10"`
	StochasticK float64 `json:"stochastic_k"`
	StochasticD float64 `json:"stochastic_d"`
	ADX         float64 `json:"adx"`
}

// ComputeSnapshot calculates every indicator over the bar series and
// returns the latest sanitized values. Returns nil for an empty series.
func ComputeSnapshot(symbol string, bars []types.PriceBar) *Snapshot {
	if len(bars) == 0 {
		return nil
	}

	closes := types.Closes(bars)
	highs := types.Highs(bars)
	lows := types.Lows(bars)
	volumes := types.Volumes(bars)

	macdLine, signalLine, histogram := Macd(closes)
	stochK, stochD := Stochastic(stochasticKSpan, stochasticDSpan, highs, lows, closes)
	obv := Obv(closes, volumes)
	volumeRatio, avgVolume := VolumeRatio(volumeWindow, volumes)

	snapshot := &Snapshot{
		Symbol:       symbol,
		CurrentPrice: closes[len(closes)-1],
		DataPoints:   len(bars),
		RSI:          lastOr(Rsi(rsiPeriod, closes), 50),
		MACD: MACDValues{
			MACD:      lastOr(macdLine, 0),
			Signal:    lastOr(signalLine, 0),
			Histogram: lastOr(histogram, 0),
		},
		SMA20:  smaValue(20, closes),
		SMA50:  smaValue(50, closes),
		SMA200: smaValue(200, closes),
		EMA12:  lastOr(indicator.Ema(12, closes), 0),
		EMA26:  lastOr(indicator.Ema(26, closes), 0),
		ATR:    Atr(atrPeriod, highs, lows, closes),
		Volume: VolumeValues{
			CurrentVolume: volumes[len(volumes)-1],
			AvgVolume:     sanitize(avgVolume, 0),
			VolumeRatio:   sanitize(volumeRatio, 1.0),
			OBVTrend:      sanitize(ObvTrend(volumeWindow, obv), 0),
		},
		Momentum: MomentumValues{
			ROC10:       tenBarChange(closes),
			StochasticK: lastOr(stochK, 50),
			StochasticD: lastOr(stochD, 50),
			ADX:         adxValue(highs, lows, closes),
		},
	}
	snapshot.Bollinger = bollingerValues(closes)

	return snapshot
}

// bollingerValues computes the latest band levels with derived measures
func bollingerValues(closes []float64) BollingerValues {
	if len(closes) < bollingerPeriod {
		return BollingerValues{PricePosition: 0.5}
	}

	middle, upper, lower := BollingerBands(bollingerPeriod, bollingerStdDev, closes)

	values := BollingerValues{
		Upper:         lastOr(upper, 0),
		Middle:        lastOr(middle, 0),
		Lower:         lastOr(lower, 0),
		PricePosition: 0.5,
	}

	if values.Middle != 0 {
		values.BandWidth = (values.Upper - values.Lower) / values.Middle * 100
	}

	spread := values.Upper - values.Lower
	if spread > 0 {
		price := closes[len(closes)-1]
		values.PricePosition = (price - values.Lower) / spread
	}

	return values
}

// smaValue returns the latest full-window simple moving average, or 0
// when the series is shorter than the window
func smaValue(period int, closes []float64) float64 {
	if len(closes) < period {
		return 0
	}
	return lastOr(indicator.Sma(period, closes), 0)
}

// adxValue returns the latest ADX reading with the borderline-trending
// fallback of 25 when undefined
func adxValue(highs, lows, closes []float64) float64 {
	// Two nested smoothing windows must both fill before ADX is defined
	if len(closes) < 2*adxPeriod-1 {
		return 25.0
	}
	return lastOr(Adx(adxPeriod, highs, lows, closes), 25.0)
}

// tenBarChange returns the percent change across a ten-bar window,
// matching the roc_10 reading
func tenBarChange(closes []float64) float64 {
	if len(closes) < 10 {
		return 0
	}
	base := closes[len(closes)-10]
	if base == 0 {
		return 0
	}
	return (closes[len(closes)-1] - base) / base * 100
}

// lastOr returns the last value of a series, or the fallback when the
// series is empty or the value is undefined
func lastOr(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	return sanitize(values[len(values)-1], fallback)
}

// sanitize replaces NaN and infinities with the fallback
func sanitize(value, fallback float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fallback
	}
	return value
}
