package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"commodash/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	ts := time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC)
	if got, want := ps.tickPath(ts), filepath.Join("/data", "ticks", "2024-06-15.parquet"); got != want {
		t.Errorf("tickPath mismatch:\n  got  %s\n  want %s", got, want)
	}
	if got, want := ps.historyPath("xau", 2024), filepath.Join("/data", "history", "XAU", "2024.parquet"); got != want {
		t.Errorf("historyPath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestParquetStoreWriteReadTicks(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	t1 := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(30 * time.Second)
	quotes := []domain.Commodity{
		{Symbol: "XAU", Category: domain.CategoryPreciousMetals, Price: 2035.5},
		{Symbol: "WTI", Category: domain.CategoryEnergy, Price: 78.5},
	}
	if err := ps.WriteTicks(ctx, t1, quotes); err != nil {
		t.Fatalf("WriteTicks: %v", err)
	}
	quotes[0].Price = 2036
	if err := ps.WriteTicks(ctx, t2, quotes); err != nil {
		t.Fatalf("WriteTicks: %v", err)
	}
	// Rewriting the same cycle must not duplicate rows.
	if err := ps.WriteTicks(ctx, t2, quotes); err != nil {
		t.Fatalf("WriteTicks: %v", err)
	}

	got, err := ps.ReadTicks(ctx, "XAU", t1, t2)
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d ticks, want 2", len(got))
	}
	if got[0].Price != 2035.5 || got[1].Price != 2036 {
		t.Errorf("prices = %v, %v; want 2035.5, 2036", got[0].Price, got[1].Price)
	}

	dates, err := ps.ListTickDates(ctx)
	if err != nil {
		t.Fatalf("ListTickDates: %v", err)
	}
	if len(dates) != 1 || dates[0] != "2025-03-03" {
		t.Errorf("dates = %v, want [2025-03-03]", dates)
	}
}

func TestParquetStoreWriteReadHistory(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	points := []domain.HistoryPoint{
		{Date: "2024-12-31", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Date: "2025-01-02", Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 200},
		{Date: "not-a-date", Close: 99},
	}
	if err := ps.WriteHistory(ctx, "XAU", points); err != nil {
		t.Fatalf("WriteHistory: %v", err)
	}

	start := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadHistory(ctx, "XAU", start, end)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d points, want 2", len(got))
	}
	if got[0].Date != "2024-12-31" || got[1].Close != 2 || got[1].Volume != 200 {
		t.Errorf("points = %+v", got)
	}

	syms, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(syms) != 1 || syms[0] != "XAU" {
		t.Errorf("symbols = %v, want [XAU]", syms)
	}
}

func TestParquetStoreConcurrentWriteTicks(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	base := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	const cycles = 16
	var wg sync.WaitGroup
	errs := make(chan error, cycles)
	for i := range cycles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			at := base.Add(time.Duration(i) * time.Second)
			errs <- ps.WriteTicks(ctx, at, []domain.Commodity{{Symbol: "XAU", Price: float64(2000 + i)}})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("WriteTicks: %v", err)
		}
	}

	got, err := ps.ReadTicks(ctx, "XAU", base, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(got) != cycles {
		t.Errorf("got %d ticks after %d concurrent writes, want %d", len(got), cycles, cycles)
	}

	entries, err := os.ReadDir(filepath.Join(ps.DataDir, "ticks"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("ticks dir has %d entries, want only the day file", len(entries))
	}
}

func TestParquetStoreDamagedFileNotOverwritten(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	at := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	path := ps.tickPath(at)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	junk := []byte("not a parquet file")
	if err := os.WriteFile(path, junk, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ps.WriteTicks(ctx, at, []domain.Commodity{{Symbol: "XAU", Price: 1}}); err == nil {
		t.Error("WriteTicks over a damaged file should fail")
	}
	if data, _ := os.ReadFile(path); !bytes.Equal(data, junk) {
		t.Error("damaged file was replaced")
	}
	if _, err := ps.ReadTicks(ctx, "XAU", at, at); err == nil {
		t.Error("ReadTicks of a damaged file should fail")
	}

	hist := ps.historyPath("XAU", 2025)
	if err := os.MkdirAll(filepath.Dir(hist), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(hist, junk, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ps.WriteHistory(ctx, "XAU", []domain.HistoryPoint{{Date: "2025-01-02", Close: 1}}); err == nil {
		t.Error("WriteHistory over a damaged file should fail")
	}
}

func TestParquetStoreEmptyDir(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	dates, err := ps.ListTickDates(context.Background())
	if err != nil || dates != nil {
		t.Errorf("ListTickDates on empty dir = %v, %v", dates, err)
	}
}

func openSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreCommodities(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	got, at, err := s.LoadCommodities(ctx)
	if err != nil || got != nil || !at.IsZero() {
		t.Fatalf("empty cache = %v, %v, %v", got, at, err)
	}

	fetched := time.UnixMilli(1_700_000_000_000)
	in := []domain.Commodity{
		{Symbol: "WTI", Name: "WTI Crude Oil", Category: domain.CategoryEnergy, Price: 78.5, ChangePercent: -0.3},
		{Symbol: "XAU", Name: "Gold", Category: domain.CategoryPreciousMetals, Price: 2035.5, Timestamp: "2025-01-01T00:00:00Z"},
	}
	if err := s.SaveCommodities(ctx, in, fetched); err != nil {
		t.Fatalf("SaveCommodities: %v", err)
	}
	// A second save replaces rather than appends.
	if err := s.SaveCommodities(ctx, in, fetched); err != nil {
		t.Fatalf("SaveCommodities: %v", err)
	}

	got, at, err = s.LoadCommodities(ctx)
	if err != nil {
		t.Fatalf("LoadCommodities: %v", err)
	}
	if len(got) != 2 || got[0].Symbol != "WTI" || got[1].Category != domain.CategoryPreciousMetals {
		t.Errorf("commodities = %+v", got)
	}
	if got[1].Timestamp != "2025-01-01T00:00:00Z" {
		t.Errorf("timestamp = %q", got[1].Timestamp)
	}
	if !at.Equal(fetched) {
		t.Errorf("fetchedAt = %v, want %v", at, fetched)
	}
}

func TestSQLiteStoreSummary(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	if sum, _, err := s.LoadSummary(ctx); err != nil || sum != nil {
		t.Fatalf("empty summary = %v, %v", sum, err)
	}
	in := &domain.MarketSummary{
		Summary:    domain.SummaryStats{TotalCommodities: 11, MarketStatus: "open"},
		TopGainers: []domain.SummaryEntry{{Symbol: "XAU", ChangePercent: 1.2}},
	}
	if err := s.SaveSummary(ctx, in, time.Now()); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	got, _, err := s.LoadSummary(ctx)
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	if got.Summary.TotalCommodities != 11 || got.TopGainers[0].Symbol != "XAU" {
		t.Errorf("summary = %+v", got)
	}
}

func TestSQLiteStoreWatchlist(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	items := []domain.WatchlistItem{
		{Symbol: "XAU", Name: "Gold", Category: domain.CategoryPreciousMetals},
		{Symbol: "ZC", Name: "Corn", Category: domain.CategoryAgriculture, AddedAt: "2025-01-01"},
	}
	if err := s.SaveWatchlist(ctx, items); err != nil {
		t.Fatalf("SaveWatchlist: %v", err)
	}
	if err := s.SaveWatchlist(ctx, items[1:]); err != nil {
		t.Fatalf("SaveWatchlist: %v", err)
	}
	got, err := s.LoadWatchlist(ctx)
	if err != nil {
		t.Fatalf("LoadWatchlist: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "ZC" || got[0].AddedAt != "2025-01-01" {
		t.Errorf("watchlist = %+v", got)
	}
}
