package types

import (
	"time"
)

// Quote represents the latest market snapshot for a symbol
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreviousClose float64   `json:"previous_close"`
	Volume        float64   `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// ChangeAmount returns the price change versus the previous close
func (q Quote) ChangeAmount() float64 {
	return q.Price - q.PreviousClose
}

// ChangePct returns the percentage change versus the previous close
func (q Quote) ChangePct() float64 {
	if q.PreviousClose == 0 {
		return 0
	}
	return (q.ChangeAmount() / q.PreviousClose) * 100
}

// IsUp returns true when the price is above the previous close
func (q Quote) IsUp() bool {
	return q.ChangeAmount() > 0
}
