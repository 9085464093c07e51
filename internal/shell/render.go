package shell

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"commodash/internal/dashboard"
	"commodash/internal/domain"
	"commodash/internal/fetch"
	"commodash/internal/poll"
)

// Styles.
var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tabActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	symbolStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	priceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	sparkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	toastOKStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10"))
	toastErrStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
	highlightBG    = lipgloss.Color("236")
)

// hlStyle returns a copy of s with the highlight background applied when hl is true.
func hlStyle(s lipgloss.Style, hl bool) lipgloss.Style {
	if hl {
		return s.Background(highlightBG)
	}
	return s
}

func changeStyle(v float64) lipgloss.Style {
	if v < 0 {
		return lossStyle
	}
	return gainStyle
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return m.renderHeader() + "\n" + m.viewport.View() + "\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	var tabs []string
	for _, r := range Routes {
		label := fmt.Sprintf(" %s %s ", r.Key, r.Title)
		if r == m.route {
			tabs = append(tabs, tabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}

	status := "LOADING"
	if m.snap.State == poll.Ready {
		status = "LIVE " + m.snap.UpdatedAt.Format("15:04:05")
	}
	if m.snap.Seeded {
		status += " (cached)"
	}
	return titleStyle.Render("COMMODASH") + "  " + strings.Join(tabs, "") + "  " + dimStyle.Render(status) +
		"\n" + m.renderTicker()
}

// renderTicker shows one window of the doubled list starting at the scroll
// offset, so the strip wraps without a seam.
func (m Model) renderTicker() string {
	list := m.snap.Commodities
	if len(list) == 0 {
		return ""
	}
	doubled := dashboard.Ticker(list)
	off := m.tickerOff % len(list)
	var parts []string
	for _, c := range doubled[off : off+len(list)] {
		parts = append(parts, symbolStyle.Render(c.Symbol)+" "+priceStyle.Render(dashboard.FormatPrice(c.Price))+" "+
			changeStyle(c.ChangePercent).Render(dashboard.FormatPercent(c.ChangePercent)))
	}
	line := strings.Join(parts, dimStyle.Render("  |  "))
	if m.width > 0 {
		return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	}
	return line
}

func (m Model) renderFooter() string {
	if m.toast != nil {
		if m.toast.Level == fetch.LevelError {
			return toastErrStyle.Render(" " + m.toast.Text + " ")
		}
		return toastOKStyle.Render(" " + m.toast.Text + " ")
	}
	help := "1-6 views  r refresh  q quit"
	switch m.route.View {
	case ViewCharts:
		help = "←/→ symbol  d range  " + help
	case ViewForecast:
		help = "←/→ symbol  " + help
	case ViewNews:
		help = "←/→ category  " + help
	case ViewWatchlist:
		help = "↑/↓ select  ←/→ choose  a add  x remove  " + help
	case ViewFreight:
		help = "tab field  ←/→ choose  enter quote  ctrl+c quit"
	}
	return dimStyle.Render(help)
}

func (m Model) renderContent() string {
	switch m.route.View {
	case ViewCharts:
		return m.renderCharts()
	case ViewNews:
		return m.renderNews()
	case ViewForecast:
		return m.renderForecast()
	case ViewFreight:
		return m.renderFreight()
	case ViewWatchlist:
		return m.renderWatchlist()
	default:
		return m.renderDashboard()
	}
}

func (m Model) renderDashboard() string {
	var b strings.Builder
	if len(m.snap.Commodities) == 0 {
		if m.snap.State == poll.Loading {
			b.WriteString(dimStyle.Render("Loading market data..."))
		} else {
			b.WriteString(dimStyle.Render("(no commodities)"))
		}
		return b.String()
	}

	if s := m.snap.Summary; s != nil {
		b.WriteString(sectionStyle.Render(" TOP MOVERS "))
		b.WriteString("\n")
		movers := func(label string, entries []domain.SummaryEntry) {
			b.WriteString(colHeaderStyle.Render(dashboard.PadOrTrunc(label, 10)))
			for _, e := range entries {
				b.WriteString(symbolStyle.Render(e.Symbol) + " " + changeStyle(e.ChangePercent).Render(dashboard.FormatPercent(e.ChangePercent)) + "   ")
			}
			b.WriteString("\n")
		}
		movers("Gainers", s.TopGainers)
		movers("Losers", s.TopLosers)
	}

	for _, g := range dashboard.GroupByCategory(m.snap.Commodities) {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(" " + dashboard.CategoryLabel(g.Category) + " "))
		b.WriteString("\n")
		b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%-6s %-22s %12s %9s %9s  %s", "SYM", "NAME", "PRICE", "CHG", "CHG%", "TREND")))
		b.WriteString("\n")
		for _, c := range g.Commodities {
			b.WriteString(fmt.Sprintf("%s %s %s %s %s  %s\n",
				symbolStyle.Render(dashboard.PadOrTrunc(c.Symbol, 6)),
				dashboard.PadOrTrunc(c.Name, 22),
				priceStyle.Render(fmt.Sprintf("%12s", dashboard.FormatPrice(c.Price))),
				changeStyle(c.Change).Render(fmt.Sprintf("%9s", dashboard.FormatChange(c.Change))),
				changeStyle(c.ChangePercent).Render(fmt.Sprintf("%9s", dashboard.FormatPercent(c.ChangePercent))),
				sparkStyle.Render(dashboard.Sparkline(m.charts[c.Symbol])),
			))
		}
	}
	return b.String()
}

func (m Model) symbolHeader() string {
	name := m.symbol
	if c, ok := dashboard.FindCommodity(m.snap.Commodities, m.symbol); ok {
		name = c.Name + "  " + priceStyle.Render(dashboard.FormatPrice(c.Price))
	}
	return symbolStyle.Render(m.symbol) + "  " + name
}

func (m Model) renderCharts() string {
	if m.history == nil {
		return ""
	}
	st := m.history.State()
	var b strings.Builder
	b.WriteString(m.symbolHeader() + "   ")
	for _, d := range fetch.HistoryRanges {
		label := fmt.Sprintf(" %dd ", d)
		if d == st.Key.Days {
			b.WriteString(tabActiveStyle.Render(label))
		} else {
			b.WriteString(tabStyle.Render(label))
		}
	}
	b.WriteString("\n\n")

	switch st.Status {
	case fetch.Loading:
		b.WriteString(dimStyle.Render("Loading history..."))
	case fetch.Failed:
		b.WriteString(lossStyle.Render("Failed to load history"))
	case fetch.Ready:
		points := st.Data.Points
		if len(points) == 0 {
			b.WriteString(dimStyle.Render("(no history)"))
			break
		}
		closes := make([]float64, len(points))
		for i, p := range points {
			closes[i] = p.Close
		}
		b.WriteString(sparkStyle.Render(dashboard.Sparkline(closes)))
		b.WriteString("\n\n")
		b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%-10s %12s %12s %12s %12s %14s", "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")))
		b.WriteString("\n")
		for i := len(points) - 1; i >= 0; i-- {
			p := points[i]
			b.WriteString(fmt.Sprintf("%-10s %12s %12s %12s %12s %14s\n",
				p.Date,
				dashboard.FormatPrice(p.Open),
				dashboard.FormatPrice(p.High),
				dashboard.FormatPrice(p.Low),
				priceStyle.Render(fmt.Sprintf("%12s", dashboard.FormatPrice(p.Close))),
				dashboard.FormatInt(p.Volume),
			))
		}
	}
	return b.String()
}

func (m Model) renderForecast() string {
	if m.forecast == nil {
		return ""
	}
	st := m.forecast.State()
	var b strings.Builder
	b.WriteString(m.symbolHeader())
	b.WriteString("\n\n")

	switch st.Status {
	case fetch.Loading:
		b.WriteString(dimStyle.Render("Loading forecast..."))
	case fetch.Failed:
		b.WriteString(lossStyle.Render("Failed to load forecast"))
	case fetch.Ready:
		fc := st.Data
		trend, err := m.forecast.Trend()
		b.WriteString(colHeaderStyle.Render("Trend ") + changeStyle(trend).Render(dashboard.FormatTrend(trend, err)))
		if fc.Model != "" {
			b.WriteString(dimStyle.Render("   model: " + fc.Model))
		}
		b.WriteString("\n")
		if len(fc.Points) == 0 {
			b.WriteString(dimStyle.Render("(no forecast)"))
			break
		}
		predicted := make([]float64, len(fc.Points))
		for i, p := range fc.Points {
			predicted[i] = p.Predicted
		}
		b.WriteString(sparkStyle.Render(dashboard.Sparkline(predicted)))
		b.WriteString("\n\n")
		b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%-10s %12s %12s %12s", "DATE", "PREDICTED", "LOWER", "UPPER")))
		b.WriteString("\n")
		for _, p := range fc.Points {
			mark := ""
			if !p.Valid() {
				mark = lossStyle.Render(" !")
			}
			b.WriteString(fmt.Sprintf("%-10s %12s %12s %12s%s\n",
				p.Date,
				dashboard.FormatPrice(p.Predicted),
				dashboard.FormatPrice(p.LowerBound),
				dashboard.FormatPrice(p.UpperBound),
				mark,
			))
		}
	}
	return b.String()
}

func (m Model) renderNews() string {
	if m.news == nil {
		return ""
	}
	var b strings.Builder
	for i, c := range fetch.NewsCategories() {
		label := " " + strings.ToUpper(strings.ReplaceAll(c, "_", " ")) + " "
		if i == m.newsCat {
			b.WriteString(tabActiveStyle.Render(label))
		} else {
			b.WriteString(tabStyle.Render(label))
		}
	}
	b.WriteString("\n\n")

	st := m.news.State()
	switch st.Status {
	case fetch.Loading:
		b.WriteString(dimStyle.Render("Loading news..."))
	case fetch.Failed:
		b.WriteString(lossStyle.Render("Failed to load news"))
	case fetch.Ready:
		if st.Data.Error != "" {
			b.WriteString(dimStyle.Render("note: " + st.Data.Error))
			b.WriteString("\n")
		}
		if len(st.Data.Articles) == 0 {
			b.WriteString(dimStyle.Render("(no articles)"))
			break
		}
		now := m.opts.Now()
		width := m.width
		if width <= 0 {
			width = 100
		}
		for _, a := range st.Data.Articles {
			b.WriteString(symbolStyle.Render(dashboard.PadOrTrunc(a.Title, width)))
			b.WriteString("\n")
			meta := a.Source + " · " + dashboard.RelativeTime(a.PublishedAt, now)
			if a.Category != "" {
				meta += " · " + dashboard.CategoryLabel(a.Category)
			}
			b.WriteString(dimStyle.Render(meta))
			b.WriteString("\n")
			if a.Description != "" {
				b.WriteString(dashboard.PadOrTrunc(a.Description, width))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderFreight() string {
	var b strings.Builder
	vals := m.form.values()
	field := func(i int, label, value string) {
		if value == "" {
			value = dimStyle.Render("(choose)")
		}
		line := fmt.Sprintf("%-14s %s", label, value)
		prefix := "  "
		if m.form.focus == i {
			prefix = "> "
		}
		b.WriteString(hlStyle(lipgloss.NewStyle(), m.form.focus == i).Render(prefix + line))
		b.WriteString("\n")
	}
	b.WriteString(sectionStyle.Render(" FREIGHT QUOTE "))
	b.WriteString("\n\n")
	field(fieldOrigin, "Origin", vals.Origin)
	field(fieldDestination, "Destination", vals.Destination)
	field(fieldCommodity, "Commodity", vals.Commodity)
	field(fieldWeight, "Weight (tons)", vals.Weight)
	b.WriteString("\n")

	if m.freight == nil {
		return b.String()
	}
	st := m.freight.State()
	switch st.Status {
	case fetch.Loading:
		b.WriteString(dimStyle.Render("Calculating..."))
	case fetch.Ready:
		q := st.Data
		b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%s → %s, %s t %s", q.Origin, q.Destination, formatWeight(q.WeightTons), q.Commodity)))
		b.WriteString("\n")
		b.WriteString("Estimated cost  " + priceStyle.Render(dashboard.FormatPrice(q.EstimatedCost)) +
			dimStyle.Render(fmt.Sprintf("  (%s/t)", dashboard.FormatPrice(dashboard.CostPerTon(*q)))))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Distance        %s km\n", dashboard.FormatInt(int64(q.RouteDistanceKM))))
		b.WriteString(fmt.Sprintf("Transit         %d days\n", q.TransitDays))
		b.WriteString(fmt.Sprintf("  Base          %s\n", dashboard.FormatPrice(q.Breakdown.BaseCost)))
		b.WriteString(fmt.Sprintf("  Fuel          %s\n", dashboard.FormatPrice(q.Breakdown.FuelSurcharge)))
		b.WriteString(fmt.Sprintf("  Insurance     %s\n", dashboard.FormatPrice(q.Breakdown.Insurance)))
		if d := dashboard.BreakdownDelta(*q); d != 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  (breakdown differs from total by %s)", dashboard.FormatPrice(d))))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatWeight(w float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", w), "0"), ".")
}

func (m Model) renderWatchlist() string {
	if m.watchlist == nil {
		return ""
	}
	st := m.watchlist.State()
	var b strings.Builder
	b.WriteString(sectionStyle.Render(" WATCHLIST "))
	b.WriteString("\n\n")

	switch st.Status {
	case fetch.Loading:
		b.WriteString(dimStyle.Render("Loading watchlist..."))
		return b.String()
	case fetch.Failed:
		b.WriteString(lossStyle.Render("Failed to load watchlist"))
		return b.String()
	}

	merged := dashboard.MergeWatchlist(st.Data, m.snap.Commodities)
	if len(merged) == 0 {
		b.WriteString(dimStyle.Render("(watchlist is empty)"))
		b.WriteString("\n")
	}
	for i, w := range merged {
		hl := i == m.cursor
		row := symbolStyle.Render(dashboard.PadOrTrunc(w.Symbol, 6)) + " " +
			dashboard.PadOrTrunc(w.Name, 22) + " " +
			dimStyle.Render(dashboard.PadOrTrunc(dashboard.CategoryLabel(w.Category), 18))
		if w.HasLive() {
			row += " " + priceStyle.Render(fmt.Sprintf("%12s", dashboard.FormatPrice(w.Price))) + " " +
				changeStyle(w.ChangePercent).Render(fmt.Sprintf("%9s", dashboard.FormatPercent(w.ChangePercent)))
		} else {
			row += " " + dimStyle.Render("no live data")
		}
		b.WriteString(hlStyle(lipgloss.NewStyle(), hl).Render(row))
		b.WriteString("\n")
	}

	avail := m.availableToAdd()
	b.WriteString("\n")
	if len(avail) == 0 {
		b.WriteString(dimStyle.Render("Add: (nothing to add)"))
	} else {
		i := m.addIdx
		b.WriteString(colHeaderStyle.Render("Add: ") + "‹ " + symbolStyle.Render(avail[i].Symbol) + " " + avail[i].Name + " ›")
	}
	return b.String()
}
