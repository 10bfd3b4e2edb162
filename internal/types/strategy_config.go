package types

import (
	"fmt"
)

// StrategyConfig is the immutable parameter bundle for one backtest run.
// Percentages are expressed as whole numbers (5.0 means 5%).
type StrategyConfig struct {
	// Entry/exit thresholds
	RSIEntry float64 `json:"rsi_entry"`
	RSIExit  float64 `json:"rsi_exit"`

	// Risk levels
	StopLossPct     float64 `json:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
	TrailingStopPct float64 `json:"trailing_stop_pct"`
	MaxHoldDays     int     `json:"max_hold_days"`

	// Capital and sizing
	InitialCapital  float64 `json:"initial_capital"`
	RiskPerTradePct float64 `json:"risk_per_trade_pct"`
	MaxPositionPct  float64 `json:"max_position_pct"`

	// Per-leg transaction costs
	CommissionPct float64 `json:"commission_pct"`
	SlippagePct   float64 `json:"slippage_pct"`
	TaxPct        float64 `json:"tax_pct"`

	// Walk-forward split parameters. Declared and validated but consumed by
	// nothing yet; reserved for a future optimizer.
	WalkForwardEnabled bool `json:"walk_forward_enabled"`
	TrainPeriodMonths  int  `json:"train_period_months"`
	TestPeriodMonths   int  `json:"test_period_months"`
}

// DefaultStrategyConfig returns the standard parameter set
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		RSIEntry:          40,
		RSIExit:           60,
		StopLossPct:       5.0,
		TakeProfitPct:     15.0,
		TrailingStopPct:   10.0,
		MaxHoldDays:       45,
		InitialCapital:    100000,
		RiskPerTradePct:   2.0,
		MaxPositionPct:    20.0,
		CommissionPct:     0.05,
		SlippagePct:       0.1,
		TaxPct:            0.025,
		TrainPeriodMonths: 24,
		TestPeriodMonths:  6,
	}
}

// ApplyDefaults fills any unset numeric field with its default value
func (c *StrategyConfig) ApplyDefaults() {
	def := DefaultStrategyConfig()
	if c.RSIEntry == 0 {
		c.RSIEntry = def.RSIEntry
	}
	if c.RSIExit == 0 {
		c.RSIExit = def.RSIExit
	}
	if c.StopLossPct == 0 {
		c.StopLossPct = def.StopLossPct
	}
	if c.TakeProfitPct == 0 {
		c.TakeProfitPct = def.TakeProfitPct
	}
	if c.TrailingStopPct == 0 {
		c.TrailingStopPct = def.TrailingStopPct
	}
	if c.MaxHoldDays == 0 {
		c.MaxHoldDays = def.MaxHoldDays
	}
	if c.InitialCapital == 0 {
		c.InitialCapital = def.InitialCapital
	}
	if c.RiskPerTradePct == 0 {
		c.RiskPerTradePct = def.RiskPerTradePct
	}
	if c.MaxPositionPct == 0 {
		c.MaxPositionPct = def.MaxPositionPct
	}
	if c.CommissionPct == 0 {
		c.CommissionPct = def.CommissionPct
	}
	if c.SlippagePct == 0 {
		c.SlippagePct = def.SlippagePct
	}
	if c.TaxPct == 0 {
		c.TaxPct = def.TaxPct
	}
	if c.TrainPeriodMonths == 0 {
		c.TrainPeriodMonths = def.TrainPeriodMonths
	}
	if c.TestPeriodMonths == 0 {
		c.TestPeriodMonths = def.TestPeriodMonths
	}
}

// TotalCostPct returns the round-trip transaction cost rate: both legs of
// commission, slippage and tax, charged once at exit on gross proceeds.
func (c StrategyConfig) TotalCostPct() float64 {
	return 2 * (c.CommissionPct + c.SlippagePct + c.TaxPct)
}

// Validate checks the parameter bundle before a run
func (c StrategyConfig) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %.2f", c.InitialCapital)
	}
	if c.StopLossPct < 0 {
		return fmt.Errorf("stop_loss_pct must not be negative, got %.2f", c.StopLossPct)
	}
	if c.TakeProfitPct < 0 {
		return fmt.Errorf("take_profit_pct must not be negative, got %.2f", c.TakeProfitPct)
	}
	if c.TrailingStopPct < 0 {
		return fmt.Errorf("trailing_stop_pct must not be negative, got %.2f", c.TrailingStopPct)
	}
	if c.MaxHoldDays <= 0 {
		return fmt.Errorf("max_hold_days must be positive, got %d", c.MaxHoldDays)
	}
	if c.RiskPerTradePct <= 0 || c.RiskPerTradePct > 100 {
		return fmt.Errorf("risk_per_trade_pct must be in (0, 100], got %.2f", c.RiskPerTradePct)
	}
	if c.MaxPositionPct <= 0 || c.MaxPositionPct > 100 {
		return fmt.Errorf("max_position_pct must be in (0, 100], got %.2f", c.MaxPositionPct)
	}
	if c.CommissionPct < 0 || c.SlippagePct < 0 || c.TaxPct < 0 {
		return fmt.Errorf("transaction cost percentages must not be negative")
	}
	if c.WalkForwardEnabled && (c.TrainPeriodMonths <= 0 || c.TestPeriodMonths <= 0) {
		return fmt.Errorf("walk-forward periods must be positive when enabled")
	}
	return nil
}
