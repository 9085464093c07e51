// Package store persists what the dashboard has seen: the last good poll
// snapshot and watchlist (SQLite), and an archive of poll ticks and
// exported price history (Parquet).
package store

import (
	"context"
	"time"

	"commodash/internal/domain"
)

// SnapshotStore keeps the most recent successful data so a restarted client
// can show the previous dataset while its first poll is in flight.
type SnapshotStore interface {
	// SaveCommodities replaces the cached commodity list.
	SaveCommodities(ctx context.Context, commodities []domain.Commodity, fetchedAt time.Time) error

	// LoadCommodities returns the cached list and when it was fetched. An
	// empty cache returns a nil slice and zero time.
	LoadCommodities(ctx context.Context) ([]domain.Commodity, time.Time, error)

	// SaveSummary replaces the cached market summary.
	SaveSummary(ctx context.Context, summary *domain.MarketSummary, fetchedAt time.Time) error

	// LoadSummary returns the cached summary, or nil.
	LoadSummary(ctx context.Context) (*domain.MarketSummary, time.Time, error)

	// SaveWatchlist replaces the cached watchlist.
	SaveWatchlist(ctx context.Context, items []domain.WatchlistItem) error

	// LoadWatchlist returns the cached watchlist in saved order.
	LoadWatchlist(ctx context.Context) ([]domain.WatchlistItem, error)
}

// TickStore archives poll ticks for offline analysis.
type TickStore interface {
	// WriteTicks appends one poll cycle's quotes.
	WriteTicks(ctx context.Context, at time.Time, commodities []domain.Commodity) error

	// ReadTicks returns ticks for symbol within [start, end].
	ReadTicks(ctx context.Context, symbol string, start, end time.Time) ([]TickRecord, error)

	// ListTickDates returns the dates (YYYY-MM-DD) that have ticks, sorted.
	ListTickDates(ctx context.Context) ([]string, error)
}

// HistoryStore keeps exported daily price history.
type HistoryStore interface {
	// WriteHistory merges points for symbol into the archive.
	WriteHistory(ctx context.Context, symbol string, points []domain.HistoryPoint) error

	// ReadHistory returns archived points for symbol within [start, end].
	ReadHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.HistoryPoint, error)

	// ListSymbols returns symbols with archived history.
	ListSymbols(ctx context.Context) ([]string, error)
}
