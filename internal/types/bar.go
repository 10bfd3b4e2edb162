package types

import (
	"time"
)

// PriceBar represents one daily OHLCV observation
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// NewPriceBar creates a new PriceBar instance
func NewPriceBar(date time.Time, open, high, low, close, volume float64) PriceBar {
	return PriceBar{
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}
}

// GetPrice returns the closing price (commonly used price)
func (b PriceBar) GetPrice() float64 {
	return b.Close
}

// GetRange returns the price range (high - low)
func (b PriceBar) GetRange() float64 {
	return b.High - b.Low
}

// GetTypicalPrice returns (high + low + close) / 3
func (b PriceBar) GetTypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// IsBullish returns true if close > open
func (b PriceBar) IsBullish() bool {
	return b.Close > b.Open
}

// IsValid checks basic OHLC relationships
func (b PriceBar) IsValid() bool {
	if b.High < b.Low {
		return false
	}
	if b.High < b.Open || b.High < b.Close {
		return false
	}
	if b.Low > b.Open || b.Low > b.Close {
		return false
	}
	return b.Open > 0 && b.Close > 0
}

// Series helpers operating on ordered bar slices.

// Closes extracts the close prices from a bar series
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high prices from a bar series
func Highs(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low prices from a bar series
func Lows(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts the volumes from a bar series
func Volumes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
