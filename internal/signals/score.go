package signals

import (
	"math"

	"stratlab/internal/indicators"
)

// ComponentScore is one weighted constituent of the technical score
type ComponentScore struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// TechnicalScore is the weighted composite over an indicator snapshot
type TechnicalScore struct {
	Score      float64          `json:"score"`
	Components []ComponentScore `json:"signals"`
}

// OverallSignal is the final recommendation after combining analysis
// dimensions
type OverallSignal struct {
	Signal     string  `json:"signal"`
	Score      float64 `json:"score"`
	Confidence string  `json:"confidence"`
}

// ADX above this level is treated as a trending market
const trendingADX = 25.0

// ScoreTechnical computes the 0-100 technical score from an indicator
// snapshot. Component weights: RSI 20, MACD 20, Bollinger 15, moving
// averages 15, volume 10, momentum 20.
func ScoreTechnical(snap *indicators.Snapshot) TechnicalScore {
	if snap == nil {
		return TechnicalScore{Score: 50}
	}

	trending := snap.Momentum.ADX > trendingADX

	components := []ComponentScore{
		{Name: "RSI", Score: rsiScore(snap, trending), Weight: 20},
		{Name: "MACD", Score: macdScore(snap), Weight: 20},
		{Name: "Bollinger Bands", Score: bollingerScore(snap), Weight: 15},
		{Name: "Moving Averages", Score: movingAverageScore(snap), Weight: 15},
		{Name: "Volume", Score: volumeScore(snap), Weight: 10},
		{Name: "Momentum", Score: momentumScore(snap), Weight: 20},
	}

	totalWeight := 0.0
	weighted := 0.0
	for _, c := range components {
		totalWeight += c.Weight
		weighted += c.Score * c.Weight
	}

	return TechnicalScore{
		Score:      round2(weighted / totalWeight),
		Components: components,
	}
}

// rsiScore grades the RSI reading. In a trending market oversold
// readings are discounted, and an overbought reading above rising
// long-term averages is treated as momentum rather than a sell.
func rsiScore(snap *indicators.Snapshot, trending bool) float64 {
	rsi := snap.RSI

	if trending {
		switch {
		case rsi < 30:
			return 90
		case rsi < 40:
			return 70
		case rsi < 60:
			return 50
		case rsi < 70:
			return 30
		default:
			if snap.CurrentPrice > snap.SMA50 && snap.CurrentPrice > snap.SMA200 {
				return 40
			}
			return 10
		}
	}

	switch {
	case rsi < 30:
		return 100
	case rsi < 40:
		return 75
	case rsi < 60:
		return 50
	case rsi < 70:
		return 25
	default:
		return 0
	}
}

// macdScore grades the histogram against a dynamic threshold scaled by
// price and volatility
func macdScore(snap *indicators.Snapshot) float64 {
	threshold := math.Max(snap.CurrentPrice*0.001, snap.ATR*0.1)

	histogram := snap.MACD.Histogram
	macdLine := snap.MACD.MACD
	signalLine := snap.MACD.Signal

	switch {
	case histogram > 0 && macdLine > signalLine:
		if histogram > threshold {
			return 100
		}
		return 75
	case histogram > 0:
		return 60
	case histogram < 0 && macdLine < signalLine:
		if histogram < -threshold {
			return 0
		}
		return 25
	default:
		return 40
	}
}

// bollingerScore grades where price sits inside the bands
func bollingerScore(snap *indicators.Snapshot) float64 {
	switch position := snap.Bollinger.PricePosition; {
	case position < 0.2:
		return 100
	case position < 0.4:
		return 75
	case position < 0.6:
		return 50
	case position < 0.8:
		return 25
	default:
		return 0
	}
}

// movingAverageScore awards points for price above each average and for
// a bullish average alignment
func movingAverageScore(snap *indicators.Snapshot) float64 {
	score := 0.0
	if snap.CurrentPrice > snap.SMA20 {
		score += 25
	}
	if snap.CurrentPrice > snap.SMA50 {
		score += 25
	}
	if snap.CurrentPrice > snap.SMA200 {
		score += 25
	}
	if snap.SMA20 > snap.SMA50 && snap.SMA50 > snap.SMA200 {
		score += 25
	}
	return score
}

// volumeScore grades participation behind the current move
func volumeScore(snap *indicators.Snapshot) float64 {
	ratio := snap.Volume.VolumeRatio

	switch {
	case ratio > 1.5 && snap.Volume.OBVTrend > 0:
		return 100
	case ratio > 1.2:
		return 75
	case ratio > 0.8:
		return 50
	default:
		return 25
	}
}

// momentumScore grades rate-of-change, nudged by stochastic extremes
func momentumScore(snap *indicators.Snapshot) float64 {
	score := 50.0

	switch roc := snap.Momentum.ROC10; {
	case roc > 5:
		score = 100
	case roc > 2:
		score = 75
	case roc < -5:
		score = 0
	case roc < -2:
		score = 25
	}

	if snap.Momentum.StochasticK < 20 {
		score = math.Min(100, score+20)
	} else if snap.Momentum.StochasticK > 80 {
		score = math.Max(0, score-20)
	}

	return score
}

// CombineOverall blends technical, fundamental and sentiment scores
// (50/30/20). Absent dimensions count as neutral 50.
func CombineOverall(technical float64, fundamental, sentiment *float64) OverallSignal {
	fundamentalScore := 50.0
	if fundamental != nil {
		fundamentalScore = *fundamental
	}
	sentimentScore := 50.0
	if sentiment != nil {
		sentimentScore = *sentiment
	}

	score := technical*0.5 + fundamentalScore*0.3 + sentimentScore*0.2

	var signal, confidence string
	switch {
	case score >= 70:
		signal = "STRONG_BUY"
		confidence = "HIGH"
	case score >= 58:
		signal = "BUY"
		confidence = "MEDIUM_HIGH"
	case score >= 42:
		signal = "NEUTRAL"
		confidence = "MEDIUM"
	case score >= 30:
		signal = "SELL"
		confidence = "MEDIUM_HIGH"
	default:
		signal = "STRONG_SELL"
		confidence = "HIGH"
	}

	return OverallSignal{
		Signal:     signal,
		Score:      round2(score),
		Confidence: confidence,
	}
}

// round2 rounds to two decimal places
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
