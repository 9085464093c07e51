package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"commodash/internal/config"
	"commodash/internal/store"
	"commodash/internal/util"
	"commodash/pkg/commodash"
)

func main() {
	days := flag.Int("days", 90, "days of history to export per symbol")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (default: every listed commodity)")
	workers := flag.Int("workers", 4, "concurrent history requests")
	flag.Parse()

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if cfg.Storage.ArchiveDir == "" {
		log.Fatal("storage.archive_dir (or COMMODASH_ARCHIVE_DIR) must be set")
	}

	logger := util.NewLogger(cfg.Logging.Level, "text", os.Stderr)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := commodash.NewClient(cfg.API.BaseURL,
		commodash.WithTimeout(cfg.API.Timeout),
		commodash.WithRateLimiter(util.NewRateLimiter(cfg.API.RateLimitPerMin, cfg.API.RateLimitBurst)),
		commodash.WithLogger(logger),
	)
	archive := store.NewParquetStore(cfg.Storage.ArchiveDir)

	var requested []string
	if *symbolsFlag != "" {
		requested = strings.Split(*symbolsFlag, ",")
	} else {
		list, err := client.ListCommodities(ctx)
		if err != nil {
			log.Fatalf("listing commodities: %v", err)
		}
		for _, c := range list {
			requested = append(requested, c.Symbol)
		}
	}
	symbols := uniqueSymbols(requested)
	if len(symbols) == 0 {
		log.Fatal("no symbols to export")
	}

	start := time.Now()
	var exported, failed, points atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))
	for _, sym := range symbols {
		g.Go(func() error {
			h, err := client.History(gctx, sym, *days)
			if err != nil {
				logger.Warn("fetching history", "symbol", sym, "error", err)
				failed.Add(1)
				return nil // skip; other symbols continue
			}
			if err := archive.WriteHistory(gctx, sym, h.Points); err != nil {
				return fmt.Errorf("writing %s: %w", sym, err)
			}
			exported.Add(1)
			points.Add(int64(len(h.Points)))
			logger.Info("exported", "symbol", sym, "points", len(h.Points))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("export: %v", err)
	}

	logger.Info("export complete",
		"symbols", exported.Load(),
		"failed", failed.Load(),
		"points", points.Load(),
		"elapsed", time.Since(start).Round(time.Millisecond),
		"dir", cfg.Storage.ArchiveDir,
	)
	if failed.Load() > 0 {
		os.Exit(1)
	}
}

// uniqueSymbols upper-cases and trims symbols, dropping blanks and repeats.
// Each symbol's history files are written by exactly one worker.
func uniqueSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
