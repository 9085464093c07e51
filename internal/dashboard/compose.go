// Package dashboard composes render-time views from the live commodity list,
// the market summary and the persisted watchlist. Nothing here is stored;
// every view is recomputed from its inputs.
package dashboard

import "commodash/internal/domain"

// CategoryGroup holds the members of one category in source order.
type CategoryGroup struct {
	Category    domain.Category
	Commodities []domain.Commodity
}

// GroupByCategory partitions commodities by category. Groups appear in order
// of first appearance and members keep their relative source order, so every
// input element lands in exactly one group.
func GroupByCategory(commodities []domain.Commodity) []CategoryGroup {
	index := make(map[domain.Category]int)
	var groups []CategoryGroup
	for _, c := range commodities {
		i, ok := index[c.Category]
		if !ok {
			i = len(groups)
			index[c.Category] = i
			groups = append(groups, CategoryGroup{Category: c.Category})
		}
		groups[i].Commodities = append(groups[i].Commodities, c)
	}
	return groups
}

// Ticker returns the commodity list concatenated with itself, for a
// seamlessly wrapping scroller.
func Ticker(commodities []domain.Commodity) []domain.Commodity {
	out := make([]domain.Commodity, 0, 2*len(commodities))
	out = append(out, commodities...)
	return append(out, commodities...)
}

// LiveQuote is the subset of Commodity overlaid onto a watchlist entry.
type LiveQuote struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
}

// WatchedCommodity is a watchlist entry merged with its live quote. Live is
// nil when the symbol has no match in the current commodity list.
type WatchedCommodity struct {
	domain.WatchlistItem
	*LiveQuote
}

// HasLive reports whether live fields are present.
func (w WatchedCommodity) HasLive() bool { return w.LiveQuote != nil }

// MergeWatchlist overlays live quotes onto watchlist entries by exact symbol
// match. Entries without a live match keep only their persisted fields.
func MergeWatchlist(items []domain.WatchlistItem, commodities []domain.Commodity) []WatchedCommodity {
	live := make(map[string]domain.Commodity, len(commodities))
	for _, c := range commodities {
		live[c.Symbol] = c
	}

	out := make([]WatchedCommodity, 0, len(items))
	for _, it := range items {
		w := WatchedCommodity{WatchlistItem: it}
		if c, ok := live[it.Symbol]; ok {
			w.LiveQuote = &LiveQuote{
				Price:         c.Price,
				Change:        c.Change,
				ChangePercent: c.ChangePercent,
				High:          c.High,
				Low:           c.Low,
			}
			// Live name and category win, matching the overlay order.
			if c.Name != "" {
				w.Name = c.Name
			}
			if c.Category != "" {
				w.Category = c.Category
			}
		}
		out = append(out, w)
	}
	return out
}

// AvailableToAdd returns the commodities not yet on the watchlist, in source
// order.
func AvailableToAdd(commodities []domain.Commodity, items []domain.WatchlistItem) []domain.Commodity {
	watched := make(map[string]bool, len(items))
	for _, it := range items {
		watched[it.Symbol] = true
	}
	var out []domain.Commodity
	for _, c := range commodities {
		if !watched[c.Symbol] {
			out = append(out, c)
		}
	}
	return out
}

// FindCommodity returns the commodity with the given symbol.
func FindCommodity(commodities []domain.Commodity, symbol string) (domain.Commodity, bool) {
	for _, c := range commodities {
		if c.Symbol == symbol {
			return c, true
		}
	}
	return domain.Commodity{}, false
}
