// Package coingecko translates raw gateway responses into typed market
// data records.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/paintedpoint/coinfolio/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// DefaultVsCurrency is the quote currency used when none is given.
	DefaultVsCurrency = "usd"

	marketsPerPage = 100

	minHistoryDays = 1
	maxHistoryDays = 365
)

// requester is the gateway surface the client needs.
type requester interface {
	RequestJSON(ctx context.Context, endpoint string, params url.Values, out any) error
}

// Client exposes the typed read operations of the price service.
type Client struct {
	gw         requester
	vsCurrency string
}

// New creates a Client on top of the given gateway. vsCurrency defaults
// to usd when empty.
func New(gw requester, vsCurrency string) *Client {
	if vsCurrency == "" {
		vsCurrency = DefaultVsCurrency
	}
	return &Client{gw: gw, vsCurrency: strings.ToLower(vsCurrency)}
}

type marketRow struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketCap     decimal.Decimal `json:"market_cap"`
	MarketCapRank int             `json:"market_cap_rank"`
	TotalVolume   decimal.Decimal `json:"total_volume"`
	Change24h     decimal.Decimal `json:"price_change_percentage_24h"`
	Change7d      decimal.Decimal `json:"price_change_percentage_7d_in_currency"`
}

// ListMarkets returns one page of assets ranked by market capitalization
// descending, 100 per page. Page numbering starts at 1.
func (c *Client) ListMarkets(ctx context.Context, page int) ([]domain.AssetQuote, error) {
	if page < 1 {
		return nil, errors.Wrapf(domain.ErrInvalidArgument, "page must be >= 1, got %d", page)
	}

	params := url.Values{}
	params.Set("vs_currency", c.vsCurrency)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", fmt.Sprint(marketsPerPage))
	params.Set("page", fmt.Sprint(page))
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h,7d")

	var rows []marketRow
	if err := c.gw.RequestJSON(ctx, "coins/markets", params, &rows); err != nil {
		return nil, err
	}

	quotes := make([]domain.AssetQuote, 0, len(rows))
	for _, r := range rows {
		quotes = append(quotes, domain.AssetQuote{
			ID:            r.ID,
			Symbol:        strings.ToUpper(r.Symbol),
			Name:          r.Name,
			Price:         r.CurrentPrice,
			MarketCap:     r.MarketCap,
			MarketCapRank: r.MarketCapRank,
			Volume24h:     r.TotalVolume,
			Change24h:     r.Change24h,
			Change7d:      r.Change7d,
		})
	}
	return quotes, nil
}

type detailPayload struct {
	ID          string            `json:"id"`
	Symbol      string            `json:"symbol"`
	Name        string            `json:"name"`
	Description map[string]string `json:"description"`
	Links       struct {
		Homepage []string `json:"homepage"`
	} `json:"links"`
	MarketData struct {
		CurrentPrice  map[string]decimal.Decimal `json:"current_price"`
		MarketCap     map[string]decimal.Decimal `json:"market_cap"`
		TotalVolume   map[string]decimal.Decimal `json:"total_volume"`
		MarketCapRank int                        `json:"market_cap_rank"`
		Change24h     decimal.Decimal            `json:"price_change_percentage_24h"`
		ATH           map[string]decimal.Decimal `json:"ath"`
		ATL           map[string]decimal.Decimal `json:"atl"`
	} `json:"market_data"`
}

// GetAssetDetail returns the extended record for one asset. Unknown ids
// fail with a not-found *gateway.APIError.
func (c *Client) GetAssetDetail(ctx context.Context, assetID string) (*domain.AssetDetail, error) {
	if assetID == "" {
		return nil, errors.Wrap(domain.ErrInvalidArgument, "asset id must not be empty")
	}

	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("market_data", "true")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")
	params.Set("sparkline", "false")

	var payload detailPayload
	if err := c.gw.RequestJSON(ctx, "coins/"+url.PathEscape(assetID), params, &payload); err != nil {
		return nil, err
	}

	detail := &domain.AssetDetail{
		AssetQuote: domain.AssetQuote{
			ID:            payload.ID,
			Symbol:        strings.ToUpper(payload.Symbol),
			Name:          payload.Name,
			Price:         payload.MarketData.CurrentPrice[c.vsCurrency],
			MarketCap:     payload.MarketData.MarketCap[c.vsCurrency],
			MarketCapRank: payload.MarketData.MarketCapRank,
			Volume24h:     payload.MarketData.TotalVolume[c.vsCurrency],
			Change24h:     payload.MarketData.Change24h,
		},
		Description: payload.Description["en"],
		AllTimeHigh: payload.MarketData.ATH[c.vsCurrency],
		AllTimeLow:  payload.MarketData.ATL[c.vsCurrency],
	}
	if len(payload.Links.Homepage) > 0 {
		detail.Homepage = payload.Links.Homepage[0]
	}
	return detail, nil
}

type chartPayload struct {
	Prices [][]json.Number `json:"prices"`
}

// GetHistoricalSeries returns daily-or-finer price observations for the
// trailing window of days, chronologically ascending. days must be in
// [1, 365].
func (c *Client) GetHistoricalSeries(ctx context.Context, assetID string, days int) (*domain.HistoricalSeries, error) {
	if assetID == "" {
		return nil, errors.Wrap(domain.ErrInvalidArgument, "asset id must not be empty")
	}
	if days < minHistoryDays || days > maxHistoryDays {
		return nil, errors.Wrapf(domain.ErrInvalidArgument,
			"days must be in [%d, %d], got %d", minHistoryDays, maxHistoryDays, days)
	}

	params := url.Values{}
	params.Set("vs_currency", c.vsCurrency)
	params.Set("days", fmt.Sprint(days))

	var payload chartPayload
	endpoint := "coins/" + url.PathEscape(assetID) + "/market_chart"
	if err := c.gw.RequestJSON(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}

	series := &domain.HistoricalSeries{
		AssetID:    assetID,
		VsCurrency: c.vsCurrency,
		Points:     make([]domain.PricePoint, 0, len(payload.Prices)),
	}
	for _, pair := range payload.Prices {
		if len(pair) != 2 {
			return nil, errors.Errorf("malformed price point in %s response: %v", endpoint, pair)
		}
		ms, err := pair[0].Int64()
		if err != nil {
			return nil, errors.Wrapf(err, "malformed timestamp in %s response", endpoint)
		}
		price, err := decimal.NewFromString(pair[1].String())
		if err != nil {
			return nil, errors.Wrapf(err, "malformed price in %s response", endpoint)
		}
		series.Points = append(series.Points, domain.PricePoint{
			Time:  time.UnixMilli(ms).UTC(),
			Price: price,
		})
	}

	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Time.Before(series.Points[j].Time)
	})
	return series, nil
}

// GetCurrentPrice returns current prices for the given asset ids in one
// batched call. Ids unknown to the service are absent from the result;
// callers must check for missing keys. vsCurrency falls back to the
// client default when empty.
func (c *Client) GetCurrentPrice(ctx context.Context, assetIDs []string, vsCurrency string) (map[string]decimal.Decimal, error) {
	if len(assetIDs) == 0 {
		return nil, errors.Wrap(domain.ErrInvalidArgument, "at least one asset id is required")
	}
	if vsCurrency == "" {
		vsCurrency = c.vsCurrency
	}
	vsCurrency = strings.ToLower(vsCurrency)

	params := url.Values{}
	params.Set("ids", strings.Join(assetIDs, ","))
	params.Set("vs_currencies", vsCurrency)

	var payload map[string]map[string]decimal.Decimal
	if err := c.gw.RequestJSON(ctx, "simple/price", params, &payload); err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(payload))
	for id, quote := range payload {
		if price, ok := quote[vsCurrency]; ok {
			prices[id] = price
		}
	}
	return prices, nil
}
