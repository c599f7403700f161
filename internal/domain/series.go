package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single observation in a historical price series.
type PricePoint struct {
	Time  time.Time
	Price decimal.Decimal
}

// HistoricalSeries holds chronologically ascending price observations
// for one asset over a requested window. It is regenerated per call and
// never mutated after construction.
type HistoricalSeries struct {
	AssetID    string
	VsCurrency string
	Points     []PricePoint
}

// Len returns the number of observations.
func (s *HistoricalSeries) Len() int {
	return len(s.Points)
}

// Prices returns the price column of the series, preserving order.
func (s *HistoricalSeries) Prices() []decimal.Decimal {
	prices := make([]decimal.Decimal, len(s.Points))
	for i, p := range s.Points {
		prices[i] = p.Price
	}
	return prices
}
