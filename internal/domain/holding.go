package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Holding is an aggregate position in one asset: the owned quantity and
// the weighted-average unit cost of acquiring it. Quantity never goes
// negative; a sell that would overdraw the position is rejected before
// any field changes.
type Holding struct {
	AssetID     string
	Amount      decimal.Decimal
	AvgBuyPrice decimal.Decimal
}

// NewHolding constructs a position opened by a first buy.
func NewHolding(assetID string, amount, price decimal.Decimal) (*Holding, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.Wrap(ErrInvalidArgument, "holding amount must be greater than zero")
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, errors.Wrap(ErrInvalidArgument, "holding price must be greater than zero")
	}

	return &Holding{
		AssetID:     assetID,
		Amount:      amount,
		AvgBuyPrice: price,
	}, nil
}

// ApplyBuy adds amount bought at price and recomputes the
// weighted-average cost basis:
//
//	(oldAmount*oldAvg + amount*price) / (oldAmount + amount)
func (h *Holding) ApplyBuy(amount, price decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.Wrap(ErrInvalidArgument, "buy amount must be greater than zero")
	}

	totalCost := h.Amount.Mul(h.AvgBuyPrice).Add(amount.Mul(price))
	totalAmount := h.Amount.Add(amount)

	h.AvgBuyPrice = totalCost.Div(totalAmount)
	h.Amount = totalAmount
	return nil
}

// ApplySell removes amount sold at price and returns the realized
// profit, amount * (price - avgBuyPrice). The average cost basis is
// unchanged by a sell.
func (h *Holding) ApplySell(amount, price decimal.Decimal) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.Wrap(ErrInvalidArgument, "sell amount must be greater than zero")
	}
	if amount.GreaterThan(h.Amount) {
		return decimal.Zero, errors.Wrapf(ErrInsufficientHoldings,
			"want to sell %s %s, own %s", amount, h.AssetID, h.Amount)
	}

	profit := price.Sub(h.AvgBuyPrice).Mul(amount)
	h.Amount = h.Amount.Sub(amount)
	return profit, nil
}

// IsClosed reports whether the position has been sold down to zero.
func (h *Holding) IsClosed() bool {
	return h.Amount.IsZero()
}

// Value returns the position's worth at the given market price.
func (h *Holding) Value(price decimal.Decimal) decimal.Decimal {
	return h.Amount.Mul(price)
}

// CostBasis returns the total acquisition cost of the open quantity.
func (h *Holding) CostBasis() decimal.Decimal {
	return h.Amount.Mul(h.AvgBuyPrice)
}
