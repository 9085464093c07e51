package fetch

import (
	"context"
	"log/slog"

	"commodash/internal/dashboard"
	"commodash/internal/domain"
	"commodash/pkg/commodash"
)

// API is the subset of the dashboard client used by the views.
type API interface {
	History(ctx context.Context, symbol string, days int) (*commodash.History, error)
	Forecast(ctx context.Context, symbol string, days int) (*commodash.Forecast, error)
	News(ctx context.Context, category string, limit int) (*commodash.NewsFeed, error)
	FreightQuote(ctx context.Context, origin, destination, commodity string, weightTons float64) (*domain.FreightQuote, error)
	Watchlist(ctx context.Context) ([]domain.WatchlistItem, error)
	AddToWatchlist(ctx context.Context, symbol, name string, category domain.Category) (*domain.WatchlistItem, error)
	RemoveFromWatchlist(ctx context.Context, symbol string) error
}

// Day ranges offered by the history view.
var HistoryRanges = []int{7, 30, 90}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// HistoryKey identifies one history request.
type HistoryKey struct {
	Symbol string
	Days   int
}

// HistoryView loads the price history of the selected symbol and range.
type HistoryView struct {
	*Fetcher[HistoryKey, *commodash.History]
}

// NewHistoryView creates a history view. Call Mount to issue the first
// request.
func NewHistoryView(ctx context.Context, api API, log *slog.Logger) *HistoryView {
	load := func(ctx context.Context, k HistoryKey) (*commodash.History, error) {
		return api.History(ctx, k.Symbol, k.Days)
	}
	return &HistoryView{NewFetcher(ctx, "history", load, log)}
}

// Mount loads symbol over days.
func (v *HistoryView) Mount(symbol string, days int) (uint64, bool) {
	return v.Set(HistoryKey{Symbol: symbol, Days: days})
}

// SelectSymbol keeps the current range and switches symbol.
func (v *HistoryView) SelectSymbol(symbol string) (uint64, bool) {
	k := v.State().Key
	k.Symbol = symbol
	return v.Set(k)
}

// SelectDays keeps the current symbol and switches range.
func (v *HistoryView) SelectDays(days int) (uint64, bool) {
	k := v.State().Key
	k.Days = days
	return v.Set(k)
}

// ---------------------------------------------------------------------------
// Forecast
// ---------------------------------------------------------------------------

// ForecastKey identifies one forecast request. Days <= 0 uses the backend
// default horizon.
type ForecastKey struct {
	Symbol string
	Days   int
}

// ForecastView loads the predicted series of the selected symbol.
type ForecastView struct {
	*Fetcher[ForecastKey, *commodash.Forecast]
}

// NewForecastView creates a forecast view. Points outside their confidence
// band are logged, never altered.
func NewForecastView(ctx context.Context, api API, log *slog.Logger) *ForecastView {
	if log == nil {
		log = slog.Default()
	}
	load := func(ctx context.Context, k ForecastKey) (*commodash.Forecast, error) {
		fc, err := api.Forecast(ctx, k.Symbol, k.Days)
		if err != nil {
			return nil, err
		}
		if bad := dashboard.InvalidBands(fc.Points); len(bad) > 0 {
			log.Warn("forecast points outside confidence band", "symbol", k.Symbol, "count", len(bad))
		}
		return fc, nil
	}
	return &ForecastView{NewFetcher(ctx, "forecast", load, log)}
}

// Mount loads the forecast for symbol.
func (v *ForecastView) Mount(symbol string, days int) (uint64, bool) {
	return v.Set(ForecastKey{Symbol: symbol, Days: days})
}

// SelectSymbol keeps the horizon and switches symbol.
func (v *ForecastView) SelectSymbol(symbol string) (uint64, bool) {
	k := v.State().Key
	k.Symbol = symbol
	return v.Set(k)
}

// Trend returns the trend percentage of the loaded series; see
// dashboard.TrendPercent.
func (v *ForecastView) Trend() (float64, error) {
	st := v.State()
	if st.Status != Ready || st.Data == nil {
		return 0, nil
	}
	return dashboard.TrendPercent(st.Data.Points)
}

// ---------------------------------------------------------------------------
// News
// ---------------------------------------------------------------------------

// NewsCategoryAll disables the category filter.
const NewsCategoryAll = "all"

// NewsView loads articles for the selected category.
type NewsView struct {
	*Fetcher[string, *commodash.NewsFeed]
}

// NewNewsView creates a news view fetching up to limit articles.
func NewNewsView(ctx context.Context, api API, limit int, log *slog.Logger) *NewsView {
	load := func(ctx context.Context, category string) (*commodash.NewsFeed, error) {
		return api.News(ctx, category, limit)
	}
	return &NewsView{NewFetcher(ctx, "news", load, log)}
}

// SelectCategory switches category. An empty category means all.
func (v *NewsView) SelectCategory(category string) (uint64, bool) {
	if category == "" {
		category = NewsCategoryAll
	}
	return v.Set(category)
}

// NewsCategories are the filter choices in display order.
func NewsCategories() []string {
	out := []string{NewsCategoryAll}
	for _, c := range domain.Categories {
		out = append(out, string(c))
	}
	return out
}
