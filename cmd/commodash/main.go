package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"commodash/internal/app"
	"commodash/internal/config"
	"commodash/internal/shell"
	"commodash/internal/util"
)

func main() {
	route := flag.String("route", "/", "initial view: / /charts /news /forecast /freight /watchlist")
	flag.Parse()

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a daily file.
	logFile, err := util.OpenDailyLog(cfg.Logging.Dir, "commodash", time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, logFile)
	util.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Poll.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "starting poll: %v\n", err)
		os.Exit(1)
	}
	logger.Info("commodash started", "api", a.Client.BaseURL(), "interval", cfg.Poll.Interval)

	m := shell.New(ctx, shell.Options{
		Poll:  a.Poll,
		API:   a.Client,
		Views: cfg.Views,
		Log:   logger,
		Start: *route,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
