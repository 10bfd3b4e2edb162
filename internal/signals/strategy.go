package signals

import (
	"fmt"
	"strings"

	"stratlab/internal/indicators"
	"stratlab/internal/types"
)

// Variant selects which entry/exit rule set a strategy evaluates
type Variant string

const (
	VariantRSI      Variant = "rsi"
	VariantMACD     Variant = "macd"
	VariantCombined Variant = "combined"
)

// Standalone mean-reversion thresholds. The combined variant uses the
// configured RSIEntry/RSIExit bands instead.
const (
	rsiOversold   = 35.0
	rsiOverbought = 65.0
)

const defaultRSIPeriod = 14

// ParseVariant converts a string to a strategy variant
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case VariantRSI:
		return VariantRSI, nil
	case VariantMACD:
		return VariantMACD, nil
	case VariantCombined:
		return VariantCombined, nil
	default:
		return "", fmt.Errorf("unknown strategy variant: %q", s)
	}
}

// DisplayName returns the human-readable strategy name
func (v Variant) DisplayName() string {
	switch v {
	case VariantRSI:
		return "RSI Mean Reversion"
	case VariantMACD:
		return "MACD Crossover"
	case VariantCombined:
		return "Combined RSI + MACD"
	default:
		return string(v)
	}
}

// ReportName returns the strategy label used in backtest reports
func (v Variant) ReportName() string {
	if v == VariantCombined {
		return "Enhanced RSI + MACD with Risk Management"
	}
	return v.DisplayName() + " with Risk Management"
}

// Strategy evaluates entry and exit conditions for one variant over
// indicator series precomputed from a closing price series. Evaluation
// is pure; the same index always yields the same answer.
type Strategy struct {
	variant   Variant
	config    types.StrategyConfig
	rsi       []float64
	histogram []float64
}

// NewStrategy computes the indicator series for the closing prices and
// binds them to the variant's rule set
func NewStrategy(variant Variant, config types.StrategyConfig, closing []float64) *Strategy {
	_, _, histogram := indicators.Macd(closing)

	return &Strategy{
		variant:   variant,
		config:    config,
		rsi:       indicators.Rsi(defaultRSIPeriod, closing),
		histogram: histogram,
	}
}

// Variant returns the bound variant
func (s *Strategy) Variant() Variant {
	return s.variant
}

// Len returns the series length
func (s *Strategy) Len() int {
	return len(s.rsi)
}

// EntryAt reports whether the entry condition holds at bar i.
// Undefined indicator values never satisfy a condition.
func (s *Strategy) EntryAt(i int) bool {
	if i < 0 || i >= len(s.rsi) {
		return false
	}

	switch s.variant {
	case VariantRSI:
		return s.rsi[i] < rsiOversold
	case VariantMACD:
		return s.histogram[i] > 0 && !s.histogramAbove(i-1, false)
	default:
		return s.rsi[i] < s.config.RSIEntry && s.histogram[i] > 0
	}
}

// ExitAt reports whether the signal-based exit condition holds at bar i.
// Price-level exits (stop, target, trailing, time) are the engine's
// concern, not the strategy's.
func (s *Strategy) ExitAt(i int) bool {
	if i < 0 || i >= len(s.rsi) {
		return false
	}

	switch s.variant {
	case VariantRSI:
		return s.rsi[i] > rsiOverbought
	case VariantMACD:
		return s.histogram[i] <= 0 && s.histogramAbove(i-1, true)
	default:
		return s.rsi[i] > s.config.RSIExit && s.histogram[i] < 0
	}
}

// histogramAbove reports whether the histogram was positive at bar i,
// with a fill value before the series starts
func (s *Strategy) histogramAbove(i int, fill bool) bool {
	if i < 0 {
		return fill
	}
	return s.histogram[i] > 0
}

// EntrySeries materializes the entry condition for every bar
func (s *Strategy) EntrySeries() []bool {
	result := make([]bool, s.Len())
	for i := range result {
		result[i] = s.EntryAt(i)
	}
	return result
}

// ExitSeries materializes the signal-exit condition for every bar
func (s *Strategy) ExitSeries() []bool {
	result := make([]bool, s.Len())
	for i := range result {
		result[i] = s.ExitAt(i)
	}
	return result
}

// EntryDescription returns the ledger text for an entry fill
func (s *Strategy) EntryDescription() string {
	switch s.variant {
	case VariantRSI:
		return fmt.Sprintf("RSI < %g", rsiOversold)
	case VariantMACD:
		return "MACD bullish crossover"
	default:
		return fmt.Sprintf("RSI < %g and MACD > 0", s.config.RSIEntry)
	}
}

// ExitDescription returns the ledger text for a signal-based exit
func (s *Strategy) ExitDescription() string {
	switch s.variant {
	case VariantRSI:
		return fmt.Sprintf("Exit signal: RSI > %g", rsiOverbought)
	case VariantMACD:
		return "Exit signal: MACD bearish crossover"
	default:
		return fmt.Sprintf("Exit signal: RSI > %g and MACD bearish", s.config.RSIExit)
	}
}
