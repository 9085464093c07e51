package shell

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"commodash/internal/config"
	"commodash/internal/domain"
	"commodash/internal/fetch"
	"commodash/internal/poll"
	"commodash/pkg/commodash"
)

var testCommodities = []domain.Commodity{
	{Symbol: "XAU", Name: "Gold", Category: domain.CategoryPreciousMetals, Price: 2035.5, ChangePercent: 0.4},
	{Symbol: "WTI", Name: "WTI Crude Oil", Category: domain.CategoryEnergy, Price: 78.5, ChangePercent: -1.2},
	{Symbol: "XAG", Name: "Silver", Category: domain.CategoryPreciousMetals, Price: 23.1},
}

type fakeAPI struct {
	mu           sync.Mutex
	items        []domain.WatchlistItem
	historyCalls []fetch.HistoryKey
	quoteCalls   int
}

func (f *fakeAPI) History(ctx context.Context, symbol string, days int) (*commodash.History, error) {
	f.mu.Lock()
	f.historyCalls = append(f.historyCalls, fetch.HistoryKey{Symbol: symbol, Days: days})
	f.mu.Unlock()
	return &commodash.History{Symbol: symbol, Points: []domain.HistoryPoint{
		{Date: "2024-01-01", Close: 10}, {Date: "2024-01-02", Close: 12},
	}}, nil
}

func (f *fakeAPI) Forecast(ctx context.Context, symbol string, days int) (*commodash.Forecast, error) {
	return &commodash.Forecast{Symbol: symbol, Points: []domain.ForecastPoint{
		{Date: "2024-02-01", Predicted: 100, LowerBound: 95, UpperBound: 105},
		{Date: "2024-02-02", Predicted: 110, LowerBound: 100, UpperBound: 120},
	}}, nil
}

func (f *fakeAPI) News(ctx context.Context, category string, limit int) (*commodash.NewsFeed, error) {
	return &commodash.NewsFeed{}, nil
}

func (f *fakeAPI) FreightQuote(ctx context.Context, origin, destination, commodity string, weightTons float64) (*domain.FreightQuote, error) {
	f.mu.Lock()
	f.quoteCalls++
	f.mu.Unlock()
	return &domain.FreightQuote{Origin: origin, Destination: destination, Commodity: commodity, WeightTons: weightTons, EstimatedCost: 1000}, nil
}

func (f *fakeAPI) Watchlist(ctx context.Context) ([]domain.WatchlistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.WatchlistItem(nil), f.items...), nil
}

func (f *fakeAPI) AddToWatchlist(ctx context.Context, symbol, name string, category domain.Category) (*domain.WatchlistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.Symbol == symbol {
			return nil, &commodash.Error{Kind: commodash.Duplicate, Status: 400}
		}
	}
	it := domain.WatchlistItem{Symbol: symbol, Name: name, Category: category}
	f.items = append(f.items, it)
	return &it, nil
}

func (f *fakeAPI) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.Symbol == symbol {
			f.items = append(f.items[:i], f.items[i+1:]...)
			break
		}
	}
	return nil
}

type nopSource struct{}

func (nopSource) ListCommodities(context.Context) ([]domain.Commodity, error) { return nil, nil }
func (nopSource) MarketSummary(context.Context) (*domain.MarketSummary, error) {
	return nil, nil
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, api *fakeAPI, start string) Model {
	t.Helper()
	p := poll.New(nopSource{}, time.Hour)
	p.Seed(testCommodities, &domain.MarketSummary{
		TopGainers: []domain.SummaryEntry{{Symbol: "XAU", ChangePercent: 0.4}},
		TopLosers:  []domain.SummaryEntry{{Symbol: "WTI", ChangePercent: -1.2}},
	})
	t.Cleanup(p.Stop)

	m := New(context.Background(), Options{
		Poll:  p,
		API:   api,
		Views: config.Views{DefaultSymbol: "XAU", HistoryDays: 30, ForecastDays: 14, NewsLimit: 15},
		Start: start,
		Now:   func() time.Time { return t0 },
		Rand:  rand.New(rand.NewPCG(1, 2)),
	})
	t.Cleanup(func() { m.closeView() })
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if m.initCmd != nil {
		m = update(t, m, m.initCmd())
	}
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends a key and runs any command it returns, feeding the resulting
// message back into the model.
func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(Model)
	for cmd != nil {
		msg := cmd()
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRoutes(t *testing.T) {
	if len(Routes) != 6 {
		t.Fatalf("len(Routes) = %d, want 6", len(Routes))
	}
	keys := make(map[string]bool)
	paths := make(map[string]bool)
	for _, r := range Routes {
		if keys[r.Key] || paths[r.Path] {
			t.Errorf("duplicate route %+v", r)
		}
		keys[r.Key] = true
		paths[r.Path] = true
	}
	if r := Lookup("/charts"); r.View != ViewCharts {
		t.Errorf("Lookup(/charts) = %+v", r)
	}
	if r := Lookup("/nope"); r.View != ViewDashboard {
		t.Errorf("Lookup(/nope) = %+v, want dashboard", r)
	}
	if r, ok := ByKey("6"); !ok || r.Path != "/watchlist" {
		t.Errorf("ByKey(6) = %+v, %v", r, ok)
	}
	if _, ok := ByKey("9"); ok {
		t.Error("ByKey(9) should not match")
	}
}

func TestDashboardRendersGroups(t *testing.T) {
	m := newTestModel(t, &fakeAPI{}, "/")
	out := m.renderContent()
	for _, want := range []string{"PRECIOUS METALS", "ENERGY", "XAU", "WTI", "$2,035.50", "TOP MOVERS"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if strings.Index(out, "PRECIOUS METALS") > strings.Index(out, "ENERGY") {
		t.Error("groups should follow order of first appearance")
	}
	if len(m.charts) != len(testCommodities) {
		t.Errorf("len(charts) = %d, want %d", len(m.charts), len(testCommodities))
	}
}

func TestNavigationMountsAndClosesViews(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api, "/charts")
	if m.Route().View != ViewCharts || m.history == nil {
		t.Fatal("expected charts view mounted")
	}
	if st := m.history.State(); st.Status != fetch.Ready {
		t.Fatalf("history status = %v, want ready", st.Status)
	}
	hist := m.history

	m = press(t, m, runes("4"))
	if m.Route().Path != "/forecast" {
		t.Fatalf("route = %q, want /forecast", m.Route().Path)
	}
	if m.history != nil {
		t.Error("history view should be released")
	}
	if _, started := hist.Reload(); started {
		t.Error("closed history fetcher accepted a request")
	}
	if m.forecast == nil || m.forecast.State().Status != fetch.Ready {
		t.Fatal("forecast should be mounted and loaded")
	}
	if out := m.renderContent(); !strings.Contains(out, "+10.00%") {
		t.Errorf("forecast trend missing from:\n%s", out)
	}

	m = press(t, m, runes("1"))
	if m.forecast != nil {
		t.Error("forecast view should be released on dashboard")
	}
}

func TestChartsSelection(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api, "/charts")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.symbol != "WTI" {
		t.Errorf("symbol = %q, want WTI", m.symbol)
	}
	m = press(t, m, runes("d"))
	if k := m.history.State().Key; k != (fetch.HistoryKey{Symbol: "WTI", Days: 90}) {
		t.Errorf("key = %+v, want WTI/90", k)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	want := []fetch.HistoryKey{{Symbol: "XAU", Days: 30}, {Symbol: "WTI", Days: 30}, {Symbol: "WTI", Days: 90}}
	if len(api.historyCalls) != len(want) {
		t.Fatalf("history calls = %+v, want %+v", api.historyCalls, want)
	}
	for i := range want {
		if api.historyCalls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, api.historyCalls[i], want[i])
		}
	}
}

func TestFreightValidationToast(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api, "/freight")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.toast == nil || m.toast.Text != "Please fill in all fields" {
		t.Fatalf("toast = %+v", m.toast)
	}

	m = update(t, m, tickMsg(t0.Add(3*time.Second)))
	if m.toast == nil {
		t.Fatal("toast expired early")
	}
	m = update(t, m, tickMsg(t0.Add(fetch.NoticeTTL)))
	if m.toast != nil {
		t.Errorf("toast = %+v, want expired", m.toast)
	}

	// Same port both ends.
	right := tea.KeyMsg{Type: tea.KeyRight}
	tab := tea.KeyMsg{Type: tea.KeyTab}
	m = press(t, m, right)
	m = press(t, m, tab)
	m = press(t, m, right)
	m = press(t, m, tab)
	m = press(t, m, right)
	m = press(t, m, tab)
	m = press(t, m, runes("5"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.toast == nil || m.toast.Text != "Origin and destination must be different" {
		t.Errorf("toast = %+v", m.toast)
	}
	if api.quoteCalls != 0 {
		t.Errorf("quoteCalls = %d, want 0", api.quoteCalls)
	}
}

func TestFreightSubmit(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api, "/freight")

	right := tea.KeyMsg{Type: tea.KeyRight}
	tab := tea.KeyMsg{Type: tea.KeyTab}
	m = press(t, m, right)
	m = press(t, m, tab)
	m = press(t, m, right)
	m = press(t, m, right)
	m = press(t, m, tab)
	m = press(t, m, right)
	m = press(t, m, tab)
	for _, k := range []string{"5", "0", "0"} {
		m = press(t, m, runes(k))
	}
	if m.Route().View != ViewFreight || m.form.weight != "500" {
		t.Fatalf("digits should type into weight, got route %q weight %q", m.Route().Path, m.form.weight)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.toast == nil || m.toast.Text != "Quote calculated successfully" {
		t.Fatalf("toast = %+v", m.toast)
	}
	st := m.freight.State()
	if st.Data.Origin != domain.Ports[0] || st.Data.Destination != domain.Ports[1] || st.Data.WeightTons != 500 {
		t.Errorf("quote = %+v", st.Data)
	}

	// Unchanged inputs still issue a request.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if api.quoteCalls != 2 {
		t.Errorf("quoteCalls = %d, want 2", api.quoteCalls)
	}
	if out := m.renderContent(); !strings.Contains(out, "$1,000.00") {
		t.Errorf("quote missing from:\n%s", out)
	}
}

func TestWatchlistAddRemove(t *testing.T) {
	api := &fakeAPI{items: []domain.WatchlistItem{{Symbol: "ZZZ", Name: "Delisted"}}}
	m := newTestModel(t, api, "/watchlist")

	out := m.renderContent()
	if !strings.Contains(out, "no live data") {
		t.Errorf("entry without live quote should be marked:\n%s", out)
	}

	m = press(t, m, runes("a"))
	if m.toast == nil || m.toast.Text != "Gold added to watchlist" {
		t.Fatalf("toast = %+v", m.toast)
	}
	if got := m.watchlist.State().Data; len(got) != 2 || got[1].Symbol != "XAU" {
		t.Fatalf("watchlist after add = %+v", got)
	}
	if out := m.renderContent(); !strings.Contains(out, "$2,035.50") {
		t.Errorf("merged live price missing:\n%s", out)
	}

	m = press(t, m, runes("x"))
	if m.toast == nil || m.toast.Text != "Removed from watchlist" {
		t.Fatalf("toast = %+v", m.toast)
	}
	if got := m.watchlist.State().Data; len(got) != 1 || got[0].Symbol != "XAU" {
		t.Errorf("watchlist after remove = %+v", got)
	}
}

func TestWatchlistAddAfterListShrinks(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api, "/watchlist")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if !strings.Contains(m.renderContent(), "Silver") {
		t.Fatalf("expected Silver selected:\n%s", m.renderContent())
	}

	m = update(t, m, pollMsg(poll.Snapshot{State: poll.Ready, Tick: 1, Commodities: testCommodities[:1]}))
	if m.addIdx != 0 {
		t.Errorf("addIdx = %d after list shrank, want 0", m.addIdx)
	}
	if out := m.renderContent(); !strings.Contains(out, "Gold") {
		t.Errorf("expected Gold offered:\n%s", out)
	}

	m = press(t, m, runes("a"))
	if m.toast == nil || m.toast.Text != "Gold added to watchlist" {
		t.Fatalf("toast = %+v", m.toast)
	}
	if got := m.watchlist.State().Data; len(got) != 1 || got[0].Symbol != "XAU" {
		t.Errorf("watchlist after add = %+v", got)
	}
}

func TestQuitReleasesView(t *testing.T) {
	m := newTestModel(t, &fakeAPI{}, "/news")
	news := m.news

	next, cmd := m.Update(runes("q"))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if m.news != nil {
		t.Error("news view not released")
	}
	if _, started := news.SelectCategory("energy"); started {
		t.Error("closed news fetcher accepted a request")
	}
}
