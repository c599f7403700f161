package portfolio

import (
	"context"
	"testing"

	"github.com/paintedpoint/coinfolio/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakePricer serves canned prices and records the ids of each call.
type fakePricer struct {
	prices map[string]decimal.Decimal
	err    error
	calls  [][]string
}

func (f *fakePricer) GetCurrentPrice(_ context.Context, assetIDs []string, _ string) (map[string]decimal.Decimal, error) {
	f.calls = append(f.calls, assetIDs)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]decimal.Decimal)
	for _, id := range assetIDs {
		if p, ok := f.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newTestLedger(t *testing.T, pricer *fakePricer) *Ledger {
	t.Helper()
	l, err := NewLedger(pricer, nil)
	require.NoError(t, err)
	return l
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLedger_Buy(t *testing.T) {
	pricer := &fakePricer{prices: map[string]decimal.Decimal{"bitcoin": dec("68000")}}
	l := newTestLedger(t, pricer)

	tx, err := l.Buy(context.Background(), "bitcoin", dec("0.005"))
	require.NoError(t, err)
	require.Equal(t, domain.ActionBuy, tx.Action)
	require.True(t, tx.Price.Equal(dec("68000")))
	require.True(t, tx.Total.Equal(dec("340")))

	holdings := l.Holdings()
	require.Len(t, holdings, 1)
	require.True(t, holdings[0].Amount.Equal(dec("0.005")))
	require.True(t, holdings[0].AvgBuyPrice.Equal(dec("68000")))
}

func TestLedger_Buy_WeightedAverageAcrossBuys(t *testing.T) {
	pricer := &fakePricer{prices: map[string]decimal.Decimal{"ethereum": dec("100")}}
	l := newTestLedger(t, pricer)

	_, err := l.Buy(context.Background(), "ethereum", dec("1"))
	require.NoError(t, err)

	pricer.prices["ethereum"] = dec("200")
	_, err = l.Buy(context.Background(), "ethereum", dec("1"))
	require.NoError(t, err)

	holdings := l.Holdings()
	require.Len(t, holdings, 1)
	require.True(t, holdings[0].Amount.Equal(dec("2")))
	require.True(t, holdings[0].AvgBuyPrice.Equal(dec("150")), "avg %s", holdings[0].AvgBuyPrice)
}

func TestLedger_Buy_Validation(t *testing.T) {
	pricer := &fakePricer{prices: map[string]decimal.Decimal{}}
	l := newTestLedger(t, pricer)

	_, err := l.Buy(context.Background(), "bitcoin", decimal.Zero)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = l.Buy(context.Background(), "", dec("1"))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	require.Empty(t, pricer.calls, "contract violations must not reach the network")
	require.Empty(t, l.Transactions())
}

func TestLedger_Buy_AbortsOnMissingPrice(t *testing.T) {
	pricer := &fakePricer{prices: map[string]decimal.Decimal{}}
	l := newTestLedger(t, pricer)

	_, err := l.Buy(context.Background(), "nosuchcoin", dec("1"))
	require.ErrorIs(t, err, domain.ErrNoData)
	require.Empty(t, l.Holdings())
	require.Empty(t, l.Transactions())
}

func TestLedger_Buy_AbortsOnLookupFailure(t *testing.T) {
	pricer := &fakePricer{err: domain.ErrNoData}
	l := newTestLedger(t, pricer)

	_, err := l.Buy(context.Background(), "bitcoin", dec("1"))
	require.ErrorIs(t, err, domain.ErrNoData)
	require.Empty(t, l.Holdings())
	require.Empty(t, l.Transactions())
}

func TestLedger_Sell_RealizesProfit(t *testing.T) {
	pricer := &fakePricer{prices: map[string]decimal.Decimal{"bitcoin": dec("68000")}}
	l := newTestLedger(t, pricer)

	_, err := l.Buy(context.Background(), "bitcoin", dec("0.005"))
	require.NoError(t, err)

	pricer.prices["bitcoin"] = dec("69000")
	tx, err := l.Sell(context.Background(), "bitcoin", dec("0.005"))
	require.NoError(t, err)

	// 0.005 * (69000 - 68000) = 5
	require.True(t, tx.Profit.Equal(dec("5")), "profit %s", tx.Profit)
	require.True(t, tx.Total.Equal(dec("345")))

	// position sold to zero disappears
	require.Empty(t, l.Holdings())
}

func TestLedger_Sell_PartialKeepsCostBasis(t *testing.T) {
	pricer := &fakePricer{prices: map[string]decimal.Decimal{"ethereum": dec("3000")}}
	l := newTestLedger(t, pricer)

	_, err := l.Buy(context.Background(), "ethereum", dec("10"))
	require.NoError(t, err)

	pricer.prices["ethereum"] = dec("2500")
	tx, err := l.Sell(context.Background(), "ethereum", dec("4"))
	require.NoError(t, err)
	require.True(t, tx.Profit.Equal(dec("-2000")), "profit %s", tx.Profit)

	holdings := l.Holdings()
	require.Len(t, holdings, 1)
	require.True(t, holdings[0].Amount.Equal(dec("6")))
	require.True(t, holdings[0].AvgBuyPrice.Equal(dec("3000")))
}

func TestLedger_Sell_InsufficientHoldings(t *testing.T) {
	pricer := &fakePricer{prices: map[string]decimal.Decimal{"bitcoin": dec("68000")}}
	l := newTestLedger(t, pricer)

	_, err := l.Buy(context.Background(), "bitcoin", dec("1"))
	require.NoError(t, err)
	callsBefore := len(pricer.calls)

	_, err = l.Sell(context.Background(), "bitcoin", dec("2"))
	require.ErrorIs(t, err, domain.ErrInsufficientHoldings)
	require.Equal(t, callsBefore, len(pricer.calls), "oversell must be rejected before any price lookup")

	// nothing mutated
	holdings := l.Holdings()
	require.Len(t, holdings, 1)
	require.True(t, holdings[0].Amount.Equal(dec("1")))
	require.Len(t, l.Transactions(), 1)

	_, err = l.Sell(context.Background(), "never-owned", dec("1"))
	require.ErrorIs(t, err, domain.ErrInsufficientHoldings)
}

func TestLedger_Sell_AbortsOnLookupFailure(t *testing.T) {
	pricer := &fakePricer{prices: map[string]decimal.Decimal{"bitcoin": dec("68000")}}
	l := newTestLedger(t, pricer)

	_, err := l.Buy(context.Background(), "bitcoin", dec("1"))
	require.NoError(t, err)

	pricer.err = domain.ErrNoData
	_, err = l.Sell(context.Background(), "bitcoin", dec("1"))
	require.ErrorIs(t, err, domain.ErrNoData)

	pricer.err = nil
	holdings := l.Holdings()
	require.Len(t, holdings, 1)
	require.True(t, holdings[0].Amount.Equal(dec("1")))
	require.Len(t, l.Transactions(), 1)
}

func TestLedger_Value(t *testing.T) {
	pricer := &fakePricer{prices: map[string]decimal.Decimal{
		"bitcoin":  dec("68000"),
		"ethereum": dec("3000"),
	}}
	l := newTestLedger(t, pricer)

	_, err := l.Buy(context.Background(), "bitcoin", dec("0.5"))
	require.NoError(t, err)
	_, err = l.Buy(context.Background(), "ethereum", dec("2"))
	require.NoError(t, err)

	callsBefore := len(pricer.calls)
	value, err := l.Value(context.Background())
	require.NoError(t, err)
	// 0.5*68000 + 2*3000 = 40000
	require.True(t, value.Equal(dec("40000")), "value %s", value)

	// one batched call covering both held assets
	require.Equal(t, callsBefore+1, len(pricer.calls))
	require.ElementsMatch(t, []string{"bitcoin", "ethereum"}, pricer.calls[len(pricer.calls)-1])
}

func TestLedger_Value_EmptyPortfolio(t *testing.T) {
	pricer := &fakePricer{}
	l := newTestLedger(t, pricer)

	value, err := l.Value(context.Background())
	require.NoError(t, err)
	require.True(t, value.IsZero())
	require.Empty(t, pricer.calls, "empty portfolio needs no network call")
}

func TestLedger_Value_DegradesWhenPricesUnavailable(t *testing.T) {
	pricer := &fakePricer{prices: map[string]decimal.Decimal{"bitcoin": dec("68000")}}
	l := newTestLedger(t, pricer)

	_, err := l.Buy(context.Background(), "bitcoin", dec("1"))
	require.NoError(t, err)

	pricer.err = domain.ErrNoData
	value, err := l.Value(context.Background())
	require.NoError(t, err)
	require.True(t, value.IsZero())
}

func TestLedger_Transactions_ChronologicalAndIdempotent(t *testing.T) {
	pricer := &fakePricer{prices: map[string]decimal.Decimal{"bitcoin": dec("100")}}
	l := newTestLedger(t, pricer)

	require.Empty(t, l.Transactions())

	_, err := l.Buy(context.Background(), "bitcoin", dec("2"))
	require.NoError(t, err)
	_, err = l.Sell(context.Background(), "bitcoin", dec("1"))
	require.NoError(t, err)

	first := l.Transactions()
	second := l.Transactions()
	require.Equal(t, first, second, "repeated reads must match")
	require.Len(t, first, 2)
	require.Equal(t, domain.ActionBuy, first[0].Action)
	require.Equal(t, domain.ActionSell, first[1].Action)
	require.False(t, first[1].Time.Before(first[0].Time))

	// mutating the returned slice must not touch the log
	first[0].AssetID = "tampered"
	require.Equal(t, "bitcoin", l.Transactions()[0].AssetID)
}
