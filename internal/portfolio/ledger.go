// Package portfolio implements the simulated holdings ledger: buys and
// sells executed at live prices, weighted-average cost basis, realized
// profit, and point-in-time valuation.
package portfolio

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/paintedpoint/coinfolio/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Pricer provides batched current prices, keyed by asset id. Ids unknown
// to the price service are absent from the result.
type Pricer interface {
	GetCurrentPrice(ctx context.Context, assetIDs []string, vsCurrency string) (map[string]decimal.Decimal, error)
}

// Ledger owns the holdings map and the append-only transaction log.
// All mutations go through Buy and Sell; both are serialized under one
// mutex so a buy and a sell can never interleave their read-modify-write
// of quantity and cost basis.
type Ledger struct {
	pricer Pricer
	logger *zap.Logger
	now    func() time.Time

	mu           sync.Mutex
	holdings     map[string]*domain.Holding
	transactions []domain.Transaction
}

// NewLedger creates an empty ledger priced by the given Pricer.
func NewLedger(pricer Pricer, logger *zap.Logger) (*Ledger, error) {
	if pricer == nil {
		return nil, errors.New("pricer is required for Ledger")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ledger{
		pricer:   pricer,
		logger:   logger,
		now:      time.Now,
		holdings: make(map[string]*domain.Holding),
	}, nil
}

// Buy purchases amount of the asset at the live price. On any price
// lookup failure the ledger is left untouched and the error (including
// the domain.ErrNoData sentinel) is returned; no partial buy is ever
// recorded.
func (l *Ledger) Buy(ctx context.Context, assetID string, amount decimal.Decimal) (*domain.Transaction, error) {
	if assetID == "" {
		return nil, errors.Wrap(domain.ErrInvalidArgument, "asset id must not be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.Wrapf(domain.ErrInvalidArgument, "buy amount must be greater than zero, got %s", amount)
	}

	price, err := l.lookupPrice(ctx, assetID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	holding, ok := l.holdings[assetID]
	if !ok {
		holding, err = domain.NewHolding(assetID, amount, price)
		if err != nil {
			return nil, err
		}
		l.holdings[assetID] = holding
	} else if err := holding.ApplyBuy(amount, price); err != nil {
		return nil, err
	}

	tx := domain.Transaction{
		Action:  domain.ActionBuy,
		AssetID: assetID,
		Amount:  amount,
		Price:   price,
		Total:   amount.Mul(price),
		Time:    l.now(),
	}
	l.transactions = append(l.transactions, tx)

	l.logger.Info("buy executed",
		zap.String("asset", assetID),
		zap.String("amount", amount.String()),
		zap.String("price", price.String()))

	return &tx, nil
}

// Sell disposes amount of the asset at the live price and books the
// realized profit amount * (price - avgBuyPrice). Overselling fails with
// domain.ErrInsufficientHoldings before any network call. A holding sold
// down to zero is dropped from the map.
func (l *Ledger) Sell(ctx context.Context, assetID string, amount decimal.Decimal) (*domain.Transaction, error) {
	if assetID == "" {
		return nil, errors.Wrap(domain.ErrInvalidArgument, "asset id must not be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.Wrapf(domain.ErrInvalidArgument, "sell amount must be greater than zero, got %s", amount)
	}

	l.mu.Lock()
	holding, ok := l.holdings[assetID]
	if !ok || amount.GreaterThan(holding.Amount) {
		l.mu.Unlock()
		owned := decimal.Zero
		if ok {
			owned = holding.Amount
		}
		return nil, errors.Wrapf(domain.ErrInsufficientHoldings,
			"want to sell %s %s, own %s", amount, assetID, owned)
	}
	l.mu.Unlock()

	price, err := l.lookupPrice(ctx, assetID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// re-check under the lock: the holding may have changed while the
	// price lookup was in flight
	holding, ok = l.holdings[assetID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrInsufficientHoldings,
			"want to sell %s %s, own 0", amount, assetID)
	}

	profit, err := holding.ApplySell(amount, price)
	if err != nil {
		return nil, err
	}
	if holding.IsClosed() {
		delete(l.holdings, assetID)
	}

	tx := domain.Transaction{
		Action:  domain.ActionSell,
		AssetID: assetID,
		Amount:  amount,
		Price:   price,
		Total:   amount.Mul(price),
		Profit:  profit,
		Time:    l.now(),
	}
	l.transactions = append(l.transactions, tx)

	l.logger.Info("sell executed",
		zap.String("asset", assetID),
		zap.String("amount", amount.String()),
		zap.String("price", price.String()),
		zap.String("profit", profit.String()))

	return &tx, nil
}

// Value returns the total worth of all open positions at live prices,
// fetched in one batched call. Assets whose price lookup came back empty
// contribute zero. An empty portfolio is worth zero with no network call.
func (l *Ledger) Value(ctx context.Context) (decimal.Decimal, error) {
	l.mu.Lock()
	ids := make([]string, 0, len(l.holdings))
	amounts := make(map[string]decimal.Decimal, len(l.holdings))
	for id, h := range l.holdings {
		ids = append(ids, id)
		amounts[id] = h.Amount
	}
	l.mu.Unlock()

	if len(ids) == 0 {
		return decimal.Zero, nil
	}
	sort.Strings(ids)

	prices, err := l.pricer.GetCurrentPrice(ctx, ids, "")
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			l.logger.Warn("portfolio valuation degraded, prices unavailable")
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, id := range ids {
		price, ok := prices[id]
		if !ok {
			l.logger.Warn("no price for held asset, valuing at zero", zap.String("asset", id))
			continue
		}
		total = total.Add(amounts[id].Mul(price))
	}
	return total, nil
}

// Transactions returns the chronological transaction log. The returned
// slice is a copy; the log itself is append-only.
func (l *Ledger) Transactions() []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// Holdings returns a copy of the current open positions, sorted by
// asset id for stable presentation.
func (l *Ledger) Holdings() []domain.Holding {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Holding, 0, len(l.holdings))
	for _, h := range l.holdings {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out
}

// lookupPrice fetches the live price for one asset. A price service
// answer that omits the asset is reported as the no-data sentinel.
func (l *Ledger) lookupPrice(ctx context.Context, assetID string) (decimal.Decimal, error) {
	prices, err := l.pricer.GetCurrentPrice(ctx, []string{assetID}, "")
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := prices[assetID]
	if !ok {
		return decimal.Zero, errors.Wrapf(domain.ErrNoData, "no price for asset %q", assetID)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.Wrapf(domain.ErrNoData, "non-positive price for asset %q", assetID)
	}
	return price, nil
}
