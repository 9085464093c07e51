// Package httpapi serves the composed dashboard views as JSON, mirroring
// what the TUI client renders.
package httpapi

import (
	"commodash/internal/dashboard"
	"commodash/internal/domain"
	"commodash/internal/store"
)

// CategoryGroupJSON is one dashboard section.
type CategoryGroupJSON struct {
	Category    domain.Category    `json:"category"`
	Label       string             `json:"label"`
	Commodities []domain.Commodity `json:"commodities"`
}

// DashboardResponse is the response for GET /api/dashboard.
type DashboardResponse struct {
	Status    string                `json:"status"`
	Tick      int                   `json:"tick"`
	UpdatedAt string                `json:"updatedAt,omitempty"`
	Stale     bool                  `json:"stale,omitempty"`
	Groups    []CategoryGroupJSON   `json:"groups"`
	Summary   *domain.MarketSummary `json:"summary,omitempty"`
	Ticker    []string              `json:"ticker"`
	Errors    []string              `json:"errors,omitempty"`
}

// WatchlistResponse is the response for GET /api/watchlist.
type WatchlistResponse struct {
	Items     []dashboard.WatchedCommodity `json:"items"`
	Available []domain.Commodity           `json:"available"`
	Stale     bool                         `json:"stale,omitempty"`
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ForecastResponse is the response for GET /api/forecast/{symbol}.
type ForecastResponse struct {
	Symbol       string                 `json:"symbol"`
	Name         string                 `json:"name,omitempty"`
	Model        string                 `json:"model,omitempty"`
	Points       []domain.ForecastPoint `json:"points"`
	Trend        *float64               `json:"trend"` // null when undefined
	TrendLabel   string                 `json:"trendLabel"`
	InvalidBands []int                  `json:"invalidBands,omitempty"`
}

// HistoryResponse is the response for GET /api/history/{symbol}.
type HistoryResponse struct {
	Symbol string                `json:"symbol"`
	Days   int                   `json:"days"`
	Points []domain.HistoryPoint `json:"points"`
}

// DatesResponse lists archived tick dates.
type DatesResponse struct {
	Dates []string `json:"dates"`
}

// TicksResponse is the response for GET /api/ticks/{symbol}.
type TicksResponse struct {
	Symbol string             `json:"symbol"`
	Date   string             `json:"date"`
	Ticks  []store.TickRecord `json:"ticks"`
}

// HealthResponse reports the poll store state.
type HealthResponse struct {
	Status string `json:"status"`
	Tick   int    `json:"tick"`
}
