// Package domain defines core data structures shared by the market data
// client and the portfolio ledger.
package domain

import "github.com/shopspring/decimal"

// AssetQuote is a point-in-time market snapshot of one asset as reported
// by the price service. Quotes are never merged with stale copies; a new
// one is fetched on demand.
type AssetQuote struct {
	// ID is the stable identifier in the remote catalog, e.g. "bitcoin".
	ID     string
	Symbol string
	Name   string
	// Price is the current price in the quote currency.
	Price         decimal.Decimal
	MarketCap     decimal.Decimal
	MarketCapRank int
	Volume24h     decimal.Decimal
	// Change24h and Change7d are percent changes over the trailing window.
	Change24h decimal.Decimal
	Change7d  decimal.Decimal
}

// AssetDetail extends AssetQuote with the fields only available from the
// per-asset endpoint.
type AssetDetail struct {
	AssetQuote
	Description string
	AllTimeHigh decimal.Decimal
	AllTimeLow  decimal.Decimal
	Homepage    string
}
