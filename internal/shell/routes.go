// Package shell is the terminal front end: a route table of views and a
// bubbletea model that mounts each view's fetcher while its route is active.
package shell

// View identifies a screen.
type View int

const (
	ViewDashboard View = iota
	ViewCharts
	ViewNews
	ViewForecast
	ViewFreight
	ViewWatchlist
)

// Route maps a path to a view.
type Route struct {
	Path  string
	Title string
	Key   string
	View  View
}

// Routes is the navigation table in menu order.
var Routes = []Route{
	{Path: "/", Title: "Dashboard", Key: "1", View: ViewDashboard},
	{Path: "/charts", Title: "Charts", Key: "2", View: ViewCharts},
	{Path: "/news", Title: "News", Key: "3", View: ViewNews},
	{Path: "/forecast", Title: "Forecast", Key: "4", View: ViewForecast},
	{Path: "/freight", Title: "Freight", Key: "5", View: ViewFreight},
	{Path: "/watchlist", Title: "Watchlist", Key: "6", View: ViewWatchlist},
}

// Lookup returns the route for path. Unknown paths resolve to the dashboard.
func Lookup(path string) Route {
	for _, r := range Routes {
		if r.Path == path {
			return r
		}
	}
	return Routes[0]
}

// ByKey returns the route bound to key.
func ByKey(key string) (Route, bool) {
	for _, r := range Routes {
		if r.Key == key {
			return r, true
		}
	}
	return Route{}, false
}
