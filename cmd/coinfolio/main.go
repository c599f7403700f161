// Command coinfolio is an interactive console for browsing cryptocurrency
// market data and managing a simulated portfolio at live prices.
//
// Usage:
//
//	coinfolio --config config.yaml
//	coinfolio (uses CLI arguments)
//
// No API key is required; the public CoinGecko endpoints are used with
// free-tier rate limiting.
package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/paintedpoint/coinfolio/config"
	"github.com/paintedpoint/coinfolio/internal/analytics"
	"github.com/paintedpoint/coinfolio/internal/coingecko"
	"github.com/paintedpoint/coinfolio/internal/domain"
	"github.com/paintedpoint/coinfolio/internal/gateway"
	"github.com/paintedpoint/coinfolio/internal/portfolio"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	upStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(subtle)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

type console struct {
	client *coingecko.Client
	ledger *portfolio.Ledger
}

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	gw := gateway.New(gateway.Config{
		BaseURL:        cfg.BaseURL,
		MinInterval:    cfg.RateLimitInterval,
		RequestTimeout: cfg.RequestTimeout,
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
	}, logger)
	client := coingecko.New(gw, cfg.VsCurrency)

	ledger, err := portfolio.NewLedger(client, logger)
	if err != nil {
		log.Fatal(err)
	}

	c := &console{client: client, ledger: ledger}
	if err := c.run(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func (c *console) run(ctx context.Context) error {
	fmt.Println(headerStyle.Render("COINFOLIO"))
	fmt.Println(dimStyle.Render("Simulated crypto portfolio at live prices.\n"))

	for {
		var choice string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("What would you like to do?").
					Options(
						huh.NewOption("Browse markets", "markets"),
						huh.NewOption("Asset detail", "detail"),
						huh.NewOption("Price history", "history"),
						huh.NewOption("Buy", "buy"),
						huh.NewOption("Sell", "sell"),
						huh.NewOption("Portfolio value", "value"),
						huh.NewOption("Transactions", "transactions"),
						huh.NewOption("Quit", "quit"),
					).
					Value(&choice),
			),
		).Run()
		if err != nil {
			return err
		}

		switch choice {
		case "markets":
			err = c.showMarkets(ctx)
		case "detail":
			err = c.showDetail(ctx)
		case "history":
			err = c.showHistory(ctx)
		case "buy":
			err = c.trade(ctx, domain.ActionBuy)
		case "sell":
			err = c.trade(ctx, domain.ActionSell)
		case "value":
			err = c.showValue(ctx)
		case "transactions":
			c.showTransactions()
		case "quit":
			return nil
		}
		if err != nil {
			printError(err)
		}
	}
}

func (c *console) showMarkets(ctx context.Context) error {
	quotes, err := c.client.ListMarkets(ctx, 1)
	if err != nil {
		return err
	}

	fmt.Printf("\n%-22s %-8s %14s %12s %12s\n", "Name", "Symbol", "Price", "24h", "7d")
	fmt.Println(strings.Repeat("-", 72))
	for _, q := range quotes[:min(15, len(quotes))] {
		fmt.Printf("%-22s %-8s %14s %12s %12s\n",
			q.Name, q.Symbol, q.Price.StringFixed(2),
			renderChange(q.Change24h), renderChange(q.Change7d))
	}

	if gainer, loser := analytics.TopMovers(quotes); gainer != nil && loser != nil {
		fmt.Printf("\nTop gainer: %s  Top loser: %s\n\n",
			upStyle.Render(fmt.Sprintf("%s (%s%%)", gainer.Name, gainer.Change24h.StringFixed(2))),
			downStyle.Render(fmt.Sprintf("%s (%s%%)", loser.Name, loser.Change24h.StringFixed(2))))
	}
	return nil
}

func (c *console) showDetail(ctx context.Context) error {
	id, err := askAssetID()
	if err != nil {
		return err
	}

	detail, err := c.client.GetAssetDetail(ctx, id)
	if err != nil {
		if gateway.ErrNotFound(err) {
			fmt.Println(warnStyle.Render(fmt.Sprintf("Unknown asset %q.", id)))
			return nil
		}
		return err
	}

	fmt.Printf("\n%s (%s), rank #%d\n", detail.Name, detail.Symbol, detail.MarketCapRank)
	fmt.Printf("Price: %s  ATH: %s  ATL: %s\n",
		detail.Price.StringFixed(2), detail.AllTimeHigh.StringFixed(2), detail.AllTimeLow.StringFixed(2))
	if detail.Homepage != "" {
		fmt.Println(dimStyle.Render(detail.Homepage))
	}
	if detail.Description != "" {
		fmt.Println("\n" + truncate(detail.Description, 400) + "\n")
	}
	return nil
}

func (c *console) showHistory(ctx context.Context) error {
	id, err := askAssetID()
	if err != nil {
		return err
	}
	days, err := askInt("How many days back? (1-365)", "30")
	if err != nil {
		return err
	}

	series, err := c.client.GetHistoricalSeries(ctx, id, days)
	if err != nil {
		return err
	}
	if series.Len() == 0 {
		fmt.Println(warnStyle.Render("No data available."))
		return nil
	}

	first, last := series.Points[0], series.Points[series.Len()-1]
	fmt.Printf("\n%s over %d days: %s points, %s -> %s\n",
		id, days, strconv.Itoa(series.Len()), first.Price.StringFixed(2), last.Price.StringFixed(2))

	if sma, err := analytics.SMA(series, min(7, series.Len())); err == nil && len(sma) > 0 {
		fmt.Printf("7-point SMA now: %s\n\n", sma[len(sma)-1].StringFixed(2))
	}
	return nil
}

func (c *console) trade(ctx context.Context, action domain.Action) error {
	id, err := askAssetID()
	if err != nil {
		return err
	}
	amount, err := askDecimal(fmt.Sprintf("Amount to %s", strings.ToLower(action.String())))
	if err != nil {
		return err
	}

	var tx *domain.Transaction
	if action == domain.ActionBuy {
		tx, err = c.ledger.Buy(ctx, id, amount)
	} else {
		tx, err = c.ledger.Sell(ctx, id, amount)
	}
	if err != nil {
		return err
	}

	if tx.Action == domain.ActionSell {
		fmt.Printf("Sold %s %s @ %s (%s total, profit %s)\n",
			tx.Amount, tx.AssetID, tx.Price.StringFixed(2), tx.Total.StringFixed(2),
			renderProfit(tx.Profit))
	} else {
		fmt.Printf("Bought %s %s @ %s (%s total)\n",
			tx.Amount, tx.AssetID, tx.Price.StringFixed(2), tx.Total.StringFixed(2))
	}
	return nil
}

func (c *console) showValue(ctx context.Context) error {
	holdings := c.ledger.Holdings()
	if len(holdings) == 0 {
		fmt.Println(dimStyle.Render("No holdings in portfolio."))
		return nil
	}

	value, err := c.ledger.Value(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\nCurrent holdings:")
	for _, h := range holdings {
		fmt.Printf(" - %-12s %s @ avg %s\n", h.AssetID, h.Amount, h.AvgBuyPrice.StringFixed(2))
	}
	fmt.Printf("Total portfolio value: %s\n\n", value.StringFixed(2))
	return nil
}

func (c *console) showTransactions() {
	txs := c.ledger.Transactions()
	if len(txs) == 0 {
		fmt.Println(dimStyle.Render("No transactions yet."))
		return
	}

	fmt.Println("\nTransaction history:")
	for i := range txs {
		fmt.Println(" " + txs[i].String())
	}
	fmt.Println()
}

func printError(err error) {
	switch {
	case errors.Is(err, domain.ErrNoData):
		fmt.Println(warnStyle.Render("No data available right now, try again later."))
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInsufficientHoldings):
		fmt.Println(warnStyle.Render("Rejected: " + err.Error()))
	default:
		fmt.Println(warnStyle.Render("Error: " + err.Error()))
	}
}

func askAssetID() (string, error) {
	var id string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Asset id (e.g. bitcoin)").Value(&id),
	)).Run()
	return strings.ToLower(strings.TrimSpace(id)), err
}

func askDecimal(title string) (decimal.Decimal, error) {
	var s string
	if err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title(title).Value(&s),
	)).Run(); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

func askInt(title, placeholder string) (int, error) {
	var s string
	if err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title(title).Placeholder(placeholder).Value(&s),
	)).Run(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(s) == "" {
		s = placeholder
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

func renderChange(change decimal.Decimal) string {
	s := change.StringFixed(2) + "%"
	if change.IsNegative() {
		return downStyle.Render("v " + s)
	}
	return upStyle.Render("^ +" + s)
}

func renderProfit(profit decimal.Decimal) string {
	if profit.IsNegative() {
		return downStyle.Render(profit.StringFixed(2))
	}
	return upStyle.Render("+" + profit.StringFixed(2))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
