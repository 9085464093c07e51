package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"commodash/internal/dashboard"
	"commodash/internal/domain"
	"commodash/internal/poll"
	"commodash/internal/store"
	"commodash/pkg/commodash"
)

// API is the subset of the dashboard client the server proxies to.
type API interface {
	History(ctx context.Context, symbol string, days int) (*commodash.History, error)
	Forecast(ctx context.Context, symbol string, days int) (*commodash.Forecast, error)
	Watchlist(ctx context.Context) ([]domain.WatchlistItem, error)
	AddToWatchlist(ctx context.Context, symbol, name string, category domain.Category) (*domain.WatchlistItem, error)
	RemoveFromWatchlist(ctx context.Context, symbol string) error
}

// DashboardServer serves the dashboard HTTP API.
type DashboardServer struct {
	poll  *poll.Store
	api   API
	log   *slog.Logger
	views Defaults

	// Optional; nil disables the corresponding fallback or route data.
	cache store.SnapshotStore
	ticks store.TickStore
}

// Defaults are the parameters used when a request omits them.
type Defaults struct {
	HistoryDays  int
	ForecastDays int
}

// NewDashboardServer creates a new dashboard HTTP server. cache and ticks
// may be nil.
func NewDashboardServer(p *poll.Store, api API, cache store.SnapshotStore, ticks store.TickStore, views Defaults, log *slog.Logger) *DashboardServer {
	if log == nil {
		log = slog.Default()
	}
	return &DashboardServer{
		poll:  p,
		api:   api,
		log:   log,
		views: views,
		cache: cache,
		ticks: ticks,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *DashboardServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/watchlist", s.handleGetWatchlist)
	mux.HandleFunc("POST /api/watchlist/{symbol}", s.handleAddWatchlist)
	mux.HandleFunc("DELETE /api/watchlist/{symbol}", s.handleRemoveWatchlist)
	mux.HandleFunc("GET /api/forecast/{symbol}", s.handleForecast)
	mux.HandleFunc("GET /api/history/{symbol}", s.handleHistory)
	mux.HandleFunc("GET /api/dates", s.handleDates)
	mux.HandleFunc("GET /api/ticks/{symbol}", s.handleTicks)
	mux.HandleFunc("GET /api/healthz", s.handleHealth)
	mux.HandleFunc("GET /api/stream", s.handleStream)
}

// Handler returns an http.Handler with CORS middleware.
func (s *DashboardServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// intParam parses a positive integer query parameter, falling back to def.
func intParam(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *DashboardServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, composeDashboard(s.poll.Snapshot()))
}

// composeDashboard builds the grouped view of one poll snapshot.
func composeDashboard(snap poll.Snapshot) DashboardResponse {
	resp := DashboardResponse{
		Status:  snap.State.String(),
		Tick:    snap.Tick,
		Stale:   snap.Seeded,
		Summary: snap.Summary,
		Groups:  []CategoryGroupJSON{},
		Ticker:  []string{},
	}
	if !snap.UpdatedAt.IsZero() {
		resp.UpdatedAt = snap.UpdatedAt.UTC().Format(time.RFC3339)
	}
	for _, g := range dashboard.GroupByCategory(snap.Commodities) {
		resp.Groups = append(resp.Groups, CategoryGroupJSON{
			Category:    g.Category,
			Label:       dashboard.CategoryLabel(g.Category),
			Commodities: g.Commodities,
		})
	}
	for _, c := range dashboard.Ticker(snap.Commodities) {
		resp.Ticker = append(resp.Ticker, c.Symbol)
	}
	if snap.CommoditiesErr != nil {
		resp.Errors = append(resp.Errors, "commodities: "+snap.CommoditiesErr.Error())
	}
	if snap.SummaryErr != nil {
		resp.Errors = append(resp.Errors, "summary: "+snap.SummaryErr.Error())
	}
	return resp
}

func (s *DashboardServer) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	items, err := s.api.Watchlist(r.Context())
	stale := false
	if err != nil {
		s.log.Warn("fetching watchlist", "error", err)
		if s.cache == nil {
			writeError(w, http.StatusBadGateway, "failed to get watchlist")
			return
		}
		if items, err = s.cache.LoadWatchlist(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, "failed to get watchlist")
			return
		}
		stale = true
	} else if s.cache != nil {
		if err := s.cache.SaveWatchlist(r.Context(), items); err != nil {
			s.log.Warn("caching watchlist", "error", err)
		}
	}

	commodities := s.poll.Snapshot().Commodities
	resp := WatchlistResponse{
		Items:     dashboard.MergeWatchlist(items, commodities),
		Available: dashboard.AvailableToAdd(commodities, items),
		Stale:     stale,
	}
	if resp.Available == nil {
		resp.Available = []domain.Commodity{}
	}
	writeJSON(w, resp)
}

func (s *DashboardServer) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	c, ok := dashboard.FindCommodity(s.poll.Snapshot().Commodities, symbol)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown commodity %s", symbol))
		return
	}

	_, err := s.api.AddToWatchlist(r.Context(), c.Symbol, c.Name, c.Category)
	switch {
	case errors.Is(err, commodash.ErrDuplicate):
		writeError(w, http.StatusConflict, "Already in watchlist")
		return
	case err != nil:
		s.log.Error("adding to watchlist", "symbol", symbol, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to add to watchlist")
		return
	}
	writeJSONStatus(w, http.StatusCreated, MessageResponse{Message: c.Name + " added to watchlist"})
}

func (s *DashboardServer) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if err := s.api.RemoveFromWatchlist(r.Context(), symbol); err != nil {
		s.log.Error("removing from watchlist", "symbol", symbol, "error", err)
		status := http.StatusBadGateway
		if commodash.StatusOf(err) == http.StatusNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, "Failed to remove")
		return
	}
	writeJSON(w, MessageResponse{Message: "Removed from watchlist"})
}

func (s *DashboardServer) handleForecast(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	fc, err := s.api.Forecast(r.Context(), symbol, intParam(r, "days", s.views.ForecastDays))
	if err != nil {
		s.log.Warn("fetching forecast", "symbol", symbol, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch forecast")
		return
	}

	trend, terr := dashboard.TrendPercent(fc.Points)
	resp := ForecastResponse{
		Symbol:       fc.Symbol,
		Name:         fc.Name,
		Model:        fc.Model,
		Points:       fc.Points,
		TrendLabel:   dashboard.FormatTrend(trend, terr),
		InvalidBands: dashboard.InvalidBands(fc.Points),
	}
	if terr != nil {
		s.log.Warn("forecast trend undefined", "symbol", symbol, "error", terr)
	} else {
		resp.Trend = &trend
	}
	if resp.Points == nil {
		resp.Points = []domain.ForecastPoint{}
	}
	writeJSON(w, resp)
}

func (s *DashboardServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	days := intParam(r, "days", s.views.HistoryDays)
	h, err := s.api.History(r.Context(), symbol, days)
	if err != nil {
		s.log.Warn("fetching history", "symbol", symbol, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch history")
		return
	}
	points := h.Points
	if points == nil {
		points = []domain.HistoryPoint{}
	}
	writeJSON(w, HistoryResponse{Symbol: symbol, Days: days, Points: points})
}

func (s *DashboardServer) handleDates(w http.ResponseWriter, r *http.Request) {
	dates := []string{}
	if s.ticks != nil {
		d, err := s.ticks.ListTickDates(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list dates")
			return
		}
		dates = append(dates, d...)
	}
	writeJSON(w, DatesResponse{Dates: dates})
}

func (s *DashboardServer) handleTicks(w http.ResponseWriter, r *http.Request) {
	if s.ticks == nil {
		writeError(w, http.StatusServiceUnavailable, "tick archive not configured")
		return
	}
	symbol := r.PathValue("symbol")
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	ticks, err := s.ticks.ReadTicks(r.Context(), symbol, day, day.Add(24*time.Hour-time.Millisecond))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read ticks")
		return
	}
	if ticks == nil {
		ticks = []store.TickRecord{}
	}
	writeJSON(w, TicksResponse{Symbol: symbol, Date: date, Ticks: ticks})
}

func (s *DashboardServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.poll.Snapshot()
	if s.poll.Stopped() {
		writeJSONStatus(w, http.StatusServiceUnavailable, HealthResponse{Status: "stopped", Tick: snap.Tick})
		return
	}
	writeJSON(w, HealthResponse{Status: snap.State.String(), Tick: snap.Tick})
}
