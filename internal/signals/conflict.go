package signals

import (
	"fmt"
	"math"
)

// No instrument scores a perfect 100
const maxRealisticScore = 85.0

// SignalRecord is one directional reading from any scoring source
type SignalRecord struct {
	Source    string  `json:"source"`
	Direction string  `json:"direction"` // BUY, SELL, NEUTRAL (and STRONG_ forms)
	Strength  float64 `json:"strength"`
}

// ConflictReport summarizes disagreement between signal sources
type ConflictReport struct {
	HasConflicts  bool     `json:"has_conflicts"`
	ConflictCount int      `json:"conflict_count"`
	Warnings      []string `json:"warnings"`
}

// EnhancedSignal is a recommendation adjusted for conflicts and
// optionally validated against backtest results
type EnhancedSignal struct {
	Signal     string              `json:"signal"`
	Score      float64             `json:"score"`
	Strength   string              `json:"strength"`
	Confidence string              `json:"confidence"`
	Conflicts  ConflictReport      `json:"conflicts"`
	Validation *BacktestValidation `json:"backtest_validation,omitempty"`
}

// BacktestValidation carries engine results into a scoring response.
// Read-only consumer of report fields.
type BacktestValidation struct {
	WinRatePct      float64 `json:"win_rate_pct"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	TotalTrades     int     `json:"total_trades"`
	ConfidenceLevel string  `json:"confidence_level"`
}

// DetectConflicts counts opposing-direction pairs among the records and
// attaches a warning for each
func DetectConflicts(records []SignalRecord) ConflictReport {
	report := ConflictReport{Warnings: []string{}}

	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			a, b := records[i], records[j]

			var bullish, bearish *SignalRecord
			switch {
			case isBuy(a.Direction) && isSell(b.Direction):
				bullish, bearish = &a, &b
			case isSell(a.Direction) && isBuy(b.Direction):
				bullish, bearish = &b, &a
			default:
				continue
			}

			report.ConflictCount++
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"CONFLICT: %s says BUY but %s says SELL - signals not aligned",
				bullish.Source, bearish.Source))
		}
	}

	report.HasConflicts = report.ConflictCount > 0
	return report
}

// RecordsFromComponents converts weighted component scores into
// directional records using the recommendation bands
func RecordsFromComponents(components []ComponentScore) []SignalRecord {
	records := make([]SignalRecord, 0, len(components))
	for _, c := range components {
		records = append(records, SignalRecord{
			Source:    c.Name,
			Direction: directionForScore(c.Score),
			Strength:  c.Score,
		})
	}
	return records
}

// directionForScore maps a 0-100 score to a direction label
func directionForScore(score float64) string {
	switch {
	case score >= 70:
		return "STRONG_BUY"
	case score >= 58:
		return "BUY"
	case score >= 42:
		return "NEUTRAL"
	case score >= 30:
		return "SELL"
	default:
		return "STRONG_SELL"
	}
}

func isBuy(direction string) bool {
	return direction == "BUY" || direction == "STRONG_BUY"
}

func isSell(direction string) bool {
	return direction == "SELL" || direction == "STRONG_SELL"
}

// CapScore limits a score to the realistic maximum
func CapScore(score float64) float64 {
	return math.Min(score, maxRealisticScore)
}

// SignalStrength labels a score by its distance from neutral
func SignalStrength(score float64) string {
	distance := math.Abs(score - 50)

	switch {
	case distance >= 30:
		return "STRONG"
	case distance >= 15:
		return "MEDIUM"
	default:
		return "WEAK"
	}
}

// ConfidenceLevel grades how tradeable a signal is. Conflicting sources
// or weak volume participation force it down.
func ConfidenceLevel(score, volumeRatio float64, conflictCount int) string {
	if conflictCount >= 2 {
		return "LOW"
	}
	if volumeRatio < 0.5 {
		return "LOW"
	}

	distance := math.Abs(score - 50)
	switch {
	case distance >= 25 && volumeRatio > 1.0:
		return "HIGH"
	case distance >= 15 && volumeRatio > 0.7:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// EnhanceScore applies the conflict policy to an overall signal: the
// score is capped when sources disagree, and confidence reflects both
// conflicts and volume participation
func EnhanceScore(overall OverallSignal, records []SignalRecord, volumeRatio float64, validation *BacktestValidation) EnhancedSignal {
	conflicts := DetectConflicts(records)

	score := overall.Score
	if conflicts.HasConflicts {
		score = CapScore(score)
	}

	return EnhancedSignal{
		Signal:     overall.Signal,
		Score:      score,
		Strength:   SignalStrength(score),
		Confidence: ConfidenceLevel(score, volumeRatio, conflicts.ConflictCount),
		Conflicts:  conflicts,
		Validation: validation,
	}
}
