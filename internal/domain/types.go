// Package domain defines the core entities shared by the commodash client,
// composer and views. Field tags follow the dashboard backend's JSON wire
// format.
package domain

// Category groups commodities on the dashboard.
type Category string

const (
	CategoryEnergy           Category = "energy"
	CategoryPreciousMetals   Category = "precious_metals"
	CategoryIndustrialMetals Category = "industrial_metals"
	CategoryAgriculture      Category = "agriculture"
)

// Categories lists the known categories in the backend's declaration order.
var Categories = []Category{
	CategoryEnergy,
	CategoryPreciousMetals,
	CategoryIndustrialMetals,
	CategoryAgriculture,
}

// ---------------------------------------------------------------------------
// Live market data
// ---------------------------------------------------------------------------

// Commodity is a single live quote. Symbol is the join key against watchlist
// entries; comparison is exact and case-sensitive.
type Commodity struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Category      Category `json:"category"`
	Price         float64  `json:"price"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"change_percent"`
	High          float64  `json:"high"`
	Low           float64  `json:"low"`
	Volume        string   `json:"volume,omitempty"`
	Timestamp     string   `json:"timestamp,omitempty"`
}

// SummaryEntry is one row of the top gainers or losers list.
type SummaryEntry struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	ChangePercent float64  `json:"change_percent"`
	Category      Category `json:"category,omitempty"`
}

// SummaryStats carries the aggregate block of a market summary.
type SummaryStats struct {
	TotalCommodities int        `json:"total_commodities"`
	Categories       []Category `json:"categories"`
	MarketStatus     string     `json:"market_status"`
}

// MarketSummary is an opaque snapshot, replaced wholesale on each poll.
type MarketSummary struct {
	Summary    SummaryStats   `json:"summary"`
	TopGainers []SummaryEntry `json:"top_gainers"`
	TopLosers  []SummaryEntry `json:"top_losers"`
	Timestamp  string         `json:"timestamp,omitempty"`
}

// ---------------------------------------------------------------------------
// Series
// ---------------------------------------------------------------------------

// HistoryPoint is one daily OHLC bar. Series are chronological.
type HistoryPoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume,omitempty"`
}

// ForecastPoint is one predicted value with its confidence band.
type ForecastPoint struct {
	Date       string  `json:"date"`
	Predicted  float64 `json:"predicted"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// Valid reports whether the point honours LowerBound <= Predicted <= UpperBound.
func (p ForecastPoint) Valid() bool {
	return p.LowerBound <= p.Predicted && p.Predicted <= p.UpperBound
}

// ---------------------------------------------------------------------------
// News, watchlist, freight
// ---------------------------------------------------------------------------

// NewsArticle has no identity beyond its list position.
type NewsArticle struct {
	Source      string   `json:"source"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"image_url,omitempty"`
	PublishedAt string   `json:"published_at"`
	Category    Category `json:"category,omitempty"`
}

// WatchlistItem is a persisted watchlist entry.
type WatchlistItem struct {
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	AddedAt  string   `json:"added_at,omitempty"`
}

// FreightBreakdown splits a quote into its cost components.
type FreightBreakdown struct {
	BaseCost      float64 `json:"base_cost"`
	FuelSurcharge float64 `json:"fuel_surcharge"`
	Insurance     float64 `json:"insurance"`
}

// FreightQuote is a transient shipping cost estimate.
type FreightQuote struct {
	Origin          string           `json:"origin"`
	Destination     string           `json:"destination"`
	Commodity       string           `json:"commodity"`
	WeightTons      float64          `json:"weight_tons"`
	EstimatedCost   float64          `json:"estimated_cost"`
	RouteDistanceKM float64          `json:"route_distance_km"`
	TransitDays     int              `json:"transit_days"`
	Breakdown       FreightBreakdown `json:"breakdown"`
}

// FreightRoute is one of the backend's known shipping lanes.
type FreightRoute struct {
	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	DistanceKM     float64 `json:"distance_km"`
	BaseRatePerTon float64 `json:"base_rate_per_ton"`
	TransitDays    int     `json:"transit_days"`
}

// Ports and FreightCommodities are the fixed choices offered by the freight
// form.
var (
	Ports = []string{
		"Houston", "Rotterdam", "Singapore", "Los Angeles", "Dubai",
		"Shanghai", "Lagos", "Mumbai", "Sydney", "Tokyo",
	}
	FreightCommodities = []string{
		"Oil", "Gas", "Gold", "Silver", "Copper", "Aluminum", "Wheat", "Corn", "Coffee",
	}
)
