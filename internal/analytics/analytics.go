// Package analytics derives summary figures from market data: the top
// gainer and loser of a listing, and moving-average / RSI series over
// historical prices using the cinar/indicator library.
package analytics

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/paintedpoint/coinfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// TopMovers returns the assets with the highest and lowest 24h percent
// change in quotes. Both are nil for an empty input.
func TopMovers(quotes []domain.AssetQuote) (gainer, loser *domain.AssetQuote) {
	for i := range quotes {
		q := &quotes[i]
		if gainer == nil || q.Change24h.GreaterThan(gainer.Change24h) {
			gainer = q
		}
		if loser == nil || q.Change24h.LessThan(loser.Change24h) {
			loser = q
		}
	}
	return gainer, loser
}

// SMA computes the simple moving average of the series prices for the
// given period. The result is shorter than the input by period-1.
func SMA(series *domain.HistoricalSeries, period int) ([]decimal.Decimal, error) {
	if period < 1 {
		return nil, fmt.Errorf("sma period must be >= 1, got %d", period)
	}
	if series.Len() < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, series.Len())
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	out := helper.ChanToSlice(sma.Compute(helper.SliceToChan(decimalsToFloat64(series.Prices()))))
	return float64ToDecimals(out), nil
}

// RSI computes the Relative Strength Index of the series prices for the
// given period.
func RSI(series *domain.HistoricalSeries, period int) ([]decimal.Decimal, error) {
	if period < 1 {
		return nil, fmt.Errorf("rsi period must be >= 1, got %d", period)
	}
	if series.Len() <= period {
		return nil, fmt.Errorf("not enough data points: need more than %d, got %d", period, series.Len())
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	out := helper.ChanToSlice(rsi.Compute(helper.SliceToChan(decimalsToFloat64(series.Prices()))))
	return float64ToDecimals(out), nil
}

func decimalsToFloat64(decimals []decimal.Decimal) []float64 {
	result := make([]float64, len(decimals))
	for i, d := range decimals {
		result[i], _ = d.Float64()
	}
	return result
}

func float64ToDecimals(floats []float64) []decimal.Decimal {
	result := make([]decimal.Decimal, len(floats))
	for i, f := range floats {
		result[i] = decimal.NewFromFloat(f)
	}
	return result
}
