package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable record of one executed buy or sell.
// Records are append-only; insertion order is chronological order.
type Transaction struct {
	Action  Action
	AssetID string
	Amount  decimal.Decimal
	// Price is the unit price at execution time.
	Price decimal.Decimal
	// Total is Amount * Price: cost for buys, proceeds for sells.
	Total decimal.Decimal
	// Profit is the realized profit of a sell, signed. Zero for buys.
	Profit decimal.Decimal
	Time   time.Time
}

// String returns a human-readable one-line representation.
func (t *Transaction) String() string {
	if t.Action == ActionSell {
		return fmt.Sprintf("%s | %s %s %s @ %s (profit: %s)",
			t.Time.Format(time.RFC3339), t.Action, t.Amount, t.AssetID, t.Price, t.Profit)
	}
	return fmt.Sprintf("%s | %s %s %s @ %s",
		t.Time.Format(time.RFC3339), t.Action, t.Amount, t.AssetID, t.Price)
}
