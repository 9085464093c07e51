package fetch

import (
	"context"
	"errors"
	"log/slog"

	"commodash/internal/domain"
	"commodash/pkg/commodash"
)

// WatchlistView loads the persisted watchlist. Mutations are followed by a
// full refetch rather than a local patch.
type WatchlistView struct {
	*Fetcher[struct{}, []domain.WatchlistItem]
	api API
	log *slog.Logger
}

// NewWatchlistView creates a watchlist view.
func NewWatchlistView(ctx context.Context, api API, log *slog.Logger) *WatchlistView {
	if log == nil {
		log = slog.Default()
	}
	load := func(ctx context.Context, _ struct{}) ([]domain.WatchlistItem, error) {
		return api.Watchlist(ctx)
	}
	return &WatchlistView{
		Fetcher: NewFetcher(ctx, "watchlist", load, log),
		api:     api,
		log:     log,
	}
}

// Mount issues the initial load.
func (v *WatchlistView) Mount() (uint64, bool) {
	return v.Set(struct{}{})
}

// Add persists c and refetches on success. The returned notice describes the
// outcome; the error is nil only when the entry was added.
func (v *WatchlistView) Add(ctx context.Context, c *domain.Commodity) (Notice, error) {
	if c == nil || c.Symbol == "" {
		return failure("Please select a commodity"), errors.New("no commodity selected")
	}
	_, err := v.api.AddToWatchlist(ctx, c.Symbol, c.Name, c.Category)
	switch {
	case errors.Is(err, commodash.ErrDuplicate):
		return failure("Already in watchlist"), err
	case err != nil:
		v.log.Error("watchlist add failed", "symbol", c.Symbol, "error", err)
		return failure("Failed to add to watchlist"), err
	}
	v.Reload()
	return success(c.Name + " added to watchlist"), nil
}

// Remove deletes symbol and refetches on success.
func (v *WatchlistView) Remove(ctx context.Context, symbol string) (Notice, error) {
	if err := v.api.RemoveFromWatchlist(ctx, symbol); err != nil {
		v.log.Error("watchlist remove failed", "symbol", symbol, "error", err)
		return failure("Failed to remove"), err
	}
	v.Reload()
	return success("Removed from watchlist"), nil
}
