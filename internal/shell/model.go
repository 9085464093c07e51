package shell

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"commodash/internal/config"
	"commodash/internal/dashboard"
	"commodash/internal/domain"
	"commodash/internal/fetch"
	"commodash/internal/poll"
)

// Options configures a Model.
type Options struct {
	Poll  *poll.Store
	API   fetch.API
	Views config.Views
	Log   *slog.Logger

	// Start is the initial route path; empty means "/".
	Start string
	// Now and Rand default to time.Now and a time-seeded source.
	Now  func() time.Time
	Rand *rand.Rand
}

// Messages.
type tickMsg time.Time
type pollMsg poll.Snapshot
type pollClosedMsg struct{}

type fetchedMsg struct {
	view View
	seq  uint64
}

type noticeMsg struct {
	notice fetch.Notice
	reload bool
}

type toast struct {
	fetch.Notice
	expires time.Time
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitPoll(ch <-chan poll.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return pollClosedMsg{}
		}
		return pollMsg(snap)
	}
}

func waitFetch[K comparable, T any](ctx context.Context, f *fetch.Fetcher[K, T], view View, seq uint64) tea.Cmd {
	return func() tea.Msg {
		_, _ = f.Wait(ctx, seq)
		return fetchedMsg{view: view, seq: seq}
	}
}

// startedFetch waits on seq only if a request actually started.
func startedFetch[K comparable, T any](ctx context.Context, f *fetch.Fetcher[K, T], view View, seq uint64, started bool) tea.Cmd {
	if !started {
		return nil
	}
	return waitFetch(ctx, f, view, seq)
}

// freightForm is the editable state of the freight screen. An index of -1
// means nothing chosen yet.
type freightForm struct {
	origin, destination, commodity int
	weight                         string
	focus                          int
}

const (
	fieldOrigin = iota
	fieldDestination
	fieldCommodity
	fieldWeight
	fieldCount
)

func (f freightForm) values() fetch.FreightForm {
	pick := func(opts []string, i int) string {
		if i < 0 || i >= len(opts) {
			return ""
		}
		return opts[i]
	}
	return fetch.FreightForm{
		Origin:      pick(domain.Ports, f.origin),
		Destination: pick(domain.Ports, f.destination),
		Commodity:   pick(domain.FreightCommodities, f.commodity),
		Weight:      f.weight,
	}
}

// Model is the bubbletea model of the dashboard shell. Only the active
// route's fetcher exists at any time; the poll subscription lives as long as
// the model.
type Model struct {
	opts    Options
	log     *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	subID   int
	updates <-chan poll.Snapshot
	initCmd tea.Cmd

	route     Route
	snap      poll.Snapshot
	charts    map[string][]float64
	tickerOff int

	history   *fetch.HistoryView
	forecast  *fetch.ForecastView
	news      *fetch.NewsView
	freight   *fetch.FreightView
	watchlist *fetch.WatchlistView

	symbol  string
	newsCat int
	cursor  int
	addIdx  int
	form    freightForm
	toast   *toast

	viewport      viewport.Model
	ready         bool
	width, height int
}

// New creates the shell model, subscribes to the poll store and mounts the
// start route.
func New(ctx context.Context, opts Options) Model {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	ctx, cancel := context.WithCancel(ctx)
	m := Model{
		opts:   opts,
		log:    opts.Log,
		ctx:    ctx,
		cancel: cancel,
		snap:   opts.Poll.Snapshot(),
		charts: make(map[string][]float64),
		symbol: opts.Views.DefaultSymbol,
		form:   freightForm{origin: -1, destination: -1, commodity: -1},
	}
	m.subID, m.updates = opts.Poll.Subscribe(8)
	m.refreshCharts()
	m.initCmd = m.navigate(Lookup(opts.Start))
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitPoll(m.updates), m.initCmd)
}

// Route returns the active route.
func (m Model) Route() Route { return m.route }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" || (key == "q" && !m.typingWeight()) {
			m.shutdown()
			return m, tea.Quit
		}
		if !m.typingWeight() {
			if r, ok := ByKey(key); ok {
				cmd = m.navigate(r)
				m.render()
				return m, cmd
			}
		}
		if key == "r" && !m.typingWeight() {
			cmd = m.reload()
			m.render()
			return m, cmd
		}
		if c, handled := m.handleViewKey(key); handled {
			m.render()
			return m, c
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerH := 2
		footerH := 1
		vpHeight := m.height - headerH - footerH
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.render()
		return m, nil

	case tickMsg:
		if m.toast != nil && !time.Time(msg).Before(m.toast.expires) {
			m.toast = nil
		}
		if n := len(m.snap.Commodities); n > 0 {
			m.tickerOff = (m.tickerOff + 1) % n
		}
		m.render()
		return m, tickCmd()

	case pollMsg:
		m.snap = poll.Snapshot(msg)
		m.refreshCharts()
		if m.watchlist != nil {
			m.availableToAdd()
		}
		m.render()
		return m, waitPoll(m.updates)

	case pollClosedMsg:
		m.log.Info("poll store closed")
		return m, nil

	case fetchedMsg:
		if msg.view != m.route.View {
			return m, nil
		}
		if msg.view == ViewWatchlist && m.watchlist != nil {
			m.availableToAdd()
		}
		if msg.view == ViewFreight && m.freight != nil {
			st := m.freight.State()
			if st.Seq == msg.seq {
				m.notify(m.freight.Outcome(st))
			}
		}
		m.render()
		return m, nil

	case noticeMsg:
		m.notify(msg.notice)
		if msg.reload && m.watchlist != nil {
			cmd = waitFetch(m.ctx, m.watchlist.Fetcher, ViewWatchlist, m.watchlist.State().Seq)
		}
		m.render()
		return m, cmd
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// navigate leaves the current route, closing its fetcher, and mounts r.
func (m *Model) navigate(r Route) tea.Cmd {
	if m.route == r && m.hasView() {
		return nil
	}
	m.closeView()
	m.route = r
	m.cursor = 0
	m.addIdx = 0
	if m.ready {
		m.viewport.GotoTop()
	}
	m.log.Debug("navigate", "path", r.Path)

	v := m.opts.Views
	switch r.View {
	case ViewCharts:
		m.history = fetch.NewHistoryView(m.ctx, m.opts.API, m.log)
		seq, _ := m.history.Mount(m.symbol, v.HistoryDays)
		return waitFetch(m.ctx, m.history.Fetcher, r.View, seq)
	case ViewForecast:
		m.forecast = fetch.NewForecastView(m.ctx, m.opts.API, m.log)
		seq, _ := m.forecast.Mount(m.symbol, v.ForecastDays)
		return waitFetch(m.ctx, m.forecast.Fetcher, r.View, seq)
	case ViewNews:
		m.news = fetch.NewNewsView(m.ctx, m.opts.API, v.NewsLimit, m.log)
		seq, _ := m.news.SelectCategory(fetch.NewsCategories()[m.newsCat])
		return waitFetch(m.ctx, m.news.Fetcher, r.View, seq)
	case ViewWatchlist:
		m.watchlist = fetch.NewWatchlistView(m.ctx, m.opts.API, m.log)
		seq, _ := m.watchlist.Mount()
		return waitFetch(m.ctx, m.watchlist.Fetcher, r.View, seq)
	case ViewFreight:
		m.freight = fetch.NewFreightView(m.ctx, m.opts.API, m.log)
	}
	return nil
}

func (m *Model) hasView() bool {
	switch m.route.View {
	case ViewCharts:
		return m.history != nil
	case ViewForecast:
		return m.forecast != nil
	case ViewNews:
		return m.news != nil
	case ViewWatchlist:
		return m.watchlist != nil
	case ViewFreight:
		return m.freight != nil
	}
	return true
}

func (m *Model) closeView() {
	if m.history != nil {
		m.history.Close()
		m.history = nil
	}
	if m.forecast != nil {
		m.forecast.Close()
		m.forecast = nil
	}
	if m.news != nil {
		m.news.Close()
		m.news = nil
	}
	if m.watchlist != nil {
		m.watchlist.Close()
		m.watchlist = nil
	}
	if m.freight != nil {
		m.freight.Close()
		m.freight = nil
	}
}

// shutdown releases the active view and the poll subscription. The poll
// store itself belongs to the caller.
func (m *Model) shutdown() {
	m.closeView()
	m.opts.Poll.Unsubscribe(m.subID)
	m.cancel()
}

// reload re-requests the active screen's data.
func (m *Model) reload() tea.Cmd {
	switch m.route.View {
	case ViewDashboard:
		m.opts.Poll.Refresh()
	case ViewCharts:
		seq, _ := m.history.Reload()
		return waitFetch(m.ctx, m.history.Fetcher, ViewCharts, seq)
	case ViewForecast:
		seq, _ := m.forecast.Reload()
		return waitFetch(m.ctx, m.forecast.Fetcher, ViewForecast, seq)
	case ViewNews:
		seq, _ := m.news.Reload()
		return waitFetch(m.ctx, m.news.Fetcher, ViewNews, seq)
	case ViewWatchlist:
		seq, _ := m.watchlist.Reload()
		return waitFetch(m.ctx, m.watchlist.Fetcher, ViewWatchlist, seq)
	}
	return nil
}

func (m *Model) typingWeight() bool {
	return m.route.View == ViewFreight && m.form.focus == fieldWeight
}

func (m *Model) handleViewKey(key string) (tea.Cmd, bool) {
	switch m.route.View {
	case ViewCharts:
		switch key {
		case "left", "right":
			m.symbol = m.nextSymbol(key)
			seq, started := m.history.SelectSymbol(m.symbol)
			return startedFetch(m.ctx, m.history.Fetcher, m.route.View, seq, started), true
		case "d":
			days := nextInt(fetch.HistoryRanges, m.history.State().Key.Days)
			seq, started := m.history.SelectDays(days)
			return startedFetch(m.ctx, m.history.Fetcher, m.route.View, seq, started), true
		}

	case ViewForecast:
		if key == "left" || key == "right" {
			m.symbol = m.nextSymbol(key)
			seq, started := m.forecast.SelectSymbol(m.symbol)
			return startedFetch(m.ctx, m.forecast.Fetcher, m.route.View, seq, started), true
		}

	case ViewNews:
		if key == "left" || key == "right" {
			cats := fetch.NewsCategories()
			m.newsCat = step(m.newsCat, len(cats), key)
			seq, started := m.news.SelectCategory(cats[m.newsCat])
			return startedFetch(m.ctx, m.news.Fetcher, m.route.View, seq, started), true
		}

	case ViewWatchlist:
		return m.watchlistKey(key)

	case ViewFreight:
		return m.freightKey(key)
	}
	return nil, false
}

// availableToAdd lists the commodities not yet watched. addIdx falls back
// to the first entry when the list shrinks under it.
func (m *Model) availableToAdd() []domain.Commodity {
	var items []domain.WatchlistItem
	if m.watchlist != nil {
		items = m.watchlist.State().Data
	}
	avail := dashboard.AvailableToAdd(m.snap.Commodities, items)
	if m.addIdx < 0 || m.addIdx >= len(avail) {
		m.addIdx = 0
	}
	return avail
}

func (m *Model) watchlistKey(key string) (tea.Cmd, bool) {
	items := m.watchlist.State().Data
	avail := m.availableToAdd()

	switch key {
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return nil, true
	case "down":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
		return nil, true
	case "left", "right":
		if len(avail) > 0 {
			m.addIdx = step(m.addIdx, len(avail), key)
		}
		return nil, true
	case "a", "enter":
		var c *domain.Commodity
		if len(avail) > 0 {
			c = &avail[m.addIdx]
		}
		v, ctx := m.watchlist, m.ctx
		m.addIdx = 0
		return func() tea.Msg {
			n, err := v.Add(ctx, c)
			return noticeMsg{notice: n, reload: err == nil}
		}, true
	case "x", "delete":
		if m.cursor >= len(items) {
			return nil, true
		}
		sym := items[m.cursor].Symbol
		v, ctx := m.watchlist, m.ctx
		if m.cursor > 0 && m.cursor == len(items)-1 {
			m.cursor--
		}
		return func() tea.Msg {
			n, err := v.Remove(ctx, sym)
			return noticeMsg{notice: n, reload: err == nil}
		}, true
	}
	return nil, false
}

func (m *Model) freightKey(key string) (tea.Cmd, bool) {
	f := &m.form
	switch key {
	case "tab", "down":
		f.focus = (f.focus + 1) % fieldCount
		return nil, true
	case "shift+tab", "up":
		f.focus = (f.focus + fieldCount - 1) % fieldCount
		return nil, true
	case "left", "right":
		switch f.focus {
		case fieldOrigin:
			f.origin = step(f.origin, len(domain.Ports), key)
		case fieldDestination:
			f.destination = step(f.destination, len(domain.Ports), key)
		case fieldCommodity:
			f.commodity = step(f.commodity, len(domain.FreightCommodities), key)
		}
		return nil, true
	case "backspace":
		if f.focus == fieldWeight && len(f.weight) > 0 {
			f.weight = f.weight[:len(f.weight)-1]
		}
		return nil, true
	case "enter":
		seq, notice, err := m.freight.Submit(f.values())
		if err != nil {
			m.notify(notice)
			return nil, true
		}
		return waitFetch(m.ctx, m.freight.Fetcher, ViewFreight, seq), true
	}
	if f.focus == fieldWeight && len(key) == 1 && (key[0] >= '0' && key[0] <= '9' || key[0] == '.' || key[0] == '-') {
		f.weight += key
		return nil, true
	}
	return nil, false
}

func (m *Model) notify(n fetch.Notice) {
	if n.Text == "" {
		return
	}
	m.toast = &toast{Notice: n, expires: m.opts.Now().Add(fetch.NoticeTTL)}
}

// nextSymbol moves through the live commodity list from the current symbol.
func (m *Model) nextSymbol(key string) string {
	list := m.snap.Commodities
	if len(list) == 0 {
		return m.symbol
	}
	cur := -1
	for i, c := range list {
		if c.Symbol == m.symbol {
			cur = i
			break
		}
	}
	if cur < 0 {
		return list[0].Symbol
	}
	return list[step(cur, len(list), key)].Symbol
}

// refreshCharts synthesizes a mini chart per commodity for the current tick.
func (m *Model) refreshCharts() {
	charts := make(map[string][]float64, len(m.snap.Commodities))
	for _, c := range m.snap.Commodities {
		charts[c.Symbol] = dashboard.MiniChart(m.opts.Rand)
	}
	m.charts = charts
}

func (m *Model) render() {
	if m.ready {
		m.viewport.SetContent(m.renderContent())
	}
}

// step moves i one position left or right within n, wrapping. i < 0 lands
// on the first or last element.
func step(i, n int, key string) int {
	if n == 0 {
		return -1
	}
	if i < 0 {
		if key == "left" {
			return n - 1
		}
		return 0
	}
	if key == "left" {
		return (i + n - 1) % n
	}
	return (i + 1) % n
}

func nextInt(opts []int, cur int) int {
	for i, v := range opts {
		if v == cur {
			return opts[(i+1)%len(opts)]
		}
	}
	return opts[0]
}
