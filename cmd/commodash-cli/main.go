package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"commodash/internal/config"
	"commodash/internal/dashboard"
	"commodash/internal/fetch"
	"commodash/internal/util"
	"commodash/pkg/commodash"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: commodash-cli <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version                              Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  commodities                          List live quotes by category\n")
		fmt.Fprintf(os.Stderr, "  summary                              Show top gainers and losers\n")
		fmt.Fprintf(os.Stderr, "  history <symbol> [days]              Show daily history\n")
		fmt.Fprintf(os.Stderr, "  forecast <symbol> [days]             Show forecast and trend\n")
		fmt.Fprintf(os.Stderr, "  news [category]                      Show latest news\n")
		fmt.Fprintf(os.Stderr, "  quote <origin> <dest> <commodity> <tons>  Request a freight quote\n")
		fmt.Fprintf(os.Stderr, "  routes                               List freight routes\n")
		fmt.Fprintf(os.Stderr, "  watchlist [add|remove <symbol>]      Show or edit the watchlist\n")
		fmt.Fprintf(os.Stderr, "\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}
	if args[0] == "version" {
		fmt.Printf("commodash-cli %s\n", version)
		return
	}

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger := util.NewLogger("warn", "text", os.Stderr)
	client := commodash.NewClient(cfg.API.BaseURL,
		commodash.WithTimeout(cfg.API.Timeout),
		commodash.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout+5*time.Second)
	defer cancel()

	if err := run(ctx, client, cfg, args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *commodash.Client, cfg *config.Config, args []string) error {
	switch args[0] {
	case "commodities":
		list, err := c.ListCommodities(ctx)
		if err != nil {
			return err
		}
		for _, g := range dashboard.GroupByCategory(list) {
			fmt.Println(dashboard.CategoryLabel(g.Category))
			for _, q := range g.Commodities {
				fmt.Printf("  %-6s %-22s %12s %9s %9s\n", q.Symbol, dashboard.PadOrTrunc(q.Name, 22),
					dashboard.FormatPrice(q.Price), dashboard.FormatChange(q.Change), dashboard.FormatPercent(q.ChangePercent))
			}
		}

	case "summary":
		s, err := c.MarketSummary(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d commodities, market %s\n", s.Summary.TotalCommodities, s.Summary.MarketStatus)
		for _, e := range s.TopGainers {
			fmt.Printf("  gainer %-6s %9s\n", e.Symbol, dashboard.FormatPercent(e.ChangePercent))
		}
		for _, e := range s.TopLosers {
			fmt.Printf("  loser  %-6s %9s\n", e.Symbol, dashboard.FormatPercent(e.ChangePercent))
		}

	case "history":
		sym, days, err := symbolDays(args, cfg.Views.HistoryDays)
		if err != nil {
			return err
		}
		h, err := c.History(ctx, sym, days)
		if err != nil {
			return err
		}
		for _, p := range h.Points {
			fmt.Printf("%-10s %12s %12s %12s %12s\n", p.Date, dashboard.FormatPrice(p.Open),
				dashboard.FormatPrice(p.High), dashboard.FormatPrice(p.Low), dashboard.FormatPrice(p.Close))
		}

	case "forecast":
		sym, days, err := symbolDays(args, cfg.Views.ForecastDays)
		if err != nil {
			return err
		}
		fc, err := c.Forecast(ctx, sym, days)
		if err != nil {
			return err
		}
		trend, terr := dashboard.TrendPercent(fc.Points)
		fmt.Printf("%s %s (%s) trend %s\n", fc.Symbol, fc.Name, fc.Model, dashboard.FormatTrend(trend, terr))
		for _, p := range fc.Points {
			fmt.Printf("%-10s %12s  [%s, %s]\n", p.Date, dashboard.FormatPrice(p.Predicted),
				dashboard.FormatPrice(p.LowerBound), dashboard.FormatPrice(p.UpperBound))
		}

	case "news":
		category := fetch.NewsCategoryAll
		if len(args) > 1 {
			category = args[1]
		}
		feed, err := c.News(ctx, category, cfg.Views.NewsLimit)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, a := range feed.Articles {
			fmt.Printf("%s\n  %s · %s\n", a.Title, a.Source, dashboard.RelativeTime(a.PublishedAt, now))
		}

	case "quote":
		if len(args) != 5 {
			return errors.New("usage: quote <origin> <dest> <commodity> <tons>")
		}
		req, err := fetch.FreightForm{Origin: args[1], Destination: args[2], Commodity: args[3], Weight: args[4]}.Validate()
		if err != nil {
			return err
		}
		q, err := c.FreightQuote(ctx, req.Origin, req.Destination, req.Commodity, req.WeightTons)
		if err != nil {
			return err
		}
		fmt.Printf("%s -> %s: %s (%s/t), %s km, %d days\n", q.Origin, q.Destination,
			dashboard.FormatPrice(q.EstimatedCost), dashboard.FormatPrice(dashboard.CostPerTon(*q)),
			dashboard.FormatInt(int64(q.RouteDistanceKM)), q.TransitDays)

	case "routes":
		routes, err := c.FreightRoutes(ctx)
		if err != nil {
			return err
		}
		for _, r := range routes {
			fmt.Printf("%-12s -> %-12s %8s km %4d days\n", r.Origin, r.Destination,
				dashboard.FormatInt(int64(r.DistanceKM)), r.TransitDays)
		}

	case "watchlist":
		return watchlist(ctx, c, args[1:])

	default:
		flag.Usage()
		return errors.New("unknown command")
	}
	return nil
}

func watchlist(ctx context.Context, c *commodash.Client, args []string) error {
	if len(args) == 2 {
		sym := strings.ToUpper(args[1])
		switch args[0] {
		case "add":
			q, err := c.GetCommodity(ctx, sym)
			if err != nil {
				return err
			}
			if _, err := c.AddToWatchlist(ctx, q.Symbol, q.Name, q.Category); err != nil {
				if errors.Is(err, commodash.ErrDuplicate) {
					return errors.New("already in watchlist")
				}
				return err
			}
			fmt.Printf("%s added to watchlist\n", q.Name)
			return nil
		case "remove":
			if err := c.RemoveFromWatchlist(ctx, sym); err != nil {
				return err
			}
			fmt.Println("Removed from watchlist")
			return nil
		}
	}
	if len(args) != 0 {
		return errors.New("usage: watchlist [add|remove <symbol>]")
	}

	items, err := c.Watchlist(ctx)
	if err != nil {
		return err
	}
	list, err := c.ListCommodities(ctx)
	if err != nil {
		list = nil // show persisted fields only
	}
	for _, w := range dashboard.MergeWatchlist(items, list) {
		live := "no live data"
		if w.HasLive() {
			live = dashboard.FormatPrice(w.Price) + " " + dashboard.FormatPercent(w.ChangePercent)
		}
		fmt.Printf("%-6s %-22s %-18s %s\n", w.Symbol, dashboard.PadOrTrunc(w.Name, 22),
			dashboard.CategoryLabel(w.Category), live)
	}
	return nil
}

func symbolDays(args []string, def int) (string, int, error) {
	if len(args) < 2 {
		return "", 0, errors.New("symbol required")
	}
	days := def
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return "", 0, fmt.Errorf("invalid days %q", args[2])
		}
		days = n
	}
	return strings.ToUpper(args[1]), days, nil
}
