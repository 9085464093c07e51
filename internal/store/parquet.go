package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"commodash/internal/domain"
)

// Compile-time interface checks.
var _ TickStore = (*ParquetStore)(nil)
var _ HistoryStore = (*ParquetStore)(nil)

// ParquetStore implements TickStore and HistoryStore using Parquet files on
// disk. Writes read, merge and replace whole files, so they are serialized.
type ParquetStore struct {
	DataDir string

	mu sync.Mutex
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// TickRecord is one commodity quote observed by one poll cycle.
type TickRecord struct {
	Symbol        string  `parquet:"symbol"`
	Category      string  `parquet:"category"`
	Timestamp     int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms of the poll
	Price         float64 `parquet:"price"`
	Change        float64 `parquet:"change"`
	ChangePercent float64 `parquet:"change_percent"`
	High          float64 `parquet:"high"`
	Low           float64 `parquet:"low"`
}

// HistoryRecord is the Parquet schema for exported daily bars.
type HistoryRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms, UTC midnight
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// ---------------------------------------------------------------------------
// TickStore implementation
// ---------------------------------------------------------------------------

// WriteTicks merges one cycle's quotes into the file for the poll's UTC date:
//
//	<DataDir>/ticks/<YYYY-MM-DD>.parquet
func (s *ParquetStore) WriteTicks(_ context.Context, at time.Time, commodities []domain.Commodity) error {
	if len(commodities) == 0 {
		return nil
	}
	ms := at.UnixMilli()
	records := make([]TickRecord, 0, len(commodities))
	for _, c := range commodities {
		records = append(records, TickRecord{
			Symbol:        c.Symbol,
			Category:      string(c.Category),
			Timestamp:     ms,
			Price:         c.Price,
			Change:        c.Change,
			ChangePercent: c.ChangePercent,
			High:          c.High,
			Low:           c.Low,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.tickPath(at)
	existing, err := readParquetFile[TickRecord](path)
	if err != nil {
		return fmt.Errorf("reading ticks for %s: %w", at.UTC().Format("2006-01-02"), err)
	}
	merged := mergeTickRecords(existing, records)
	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing ticks for %s: %w", at.UTC().Format("2006-01-02"), err)
	}
	return nil
}

// ReadTicks reads ticks for symbol from each daily file overlapping
// [start, end].
func (s *ParquetStore) ReadTicks(_ context.Context, symbol string, start, end time.Time) ([]TickRecord, error) {
	var out []TickRecord
	first := start.UTC().Truncate(24 * time.Hour)
	for d := first; !d.After(end); d = d.AddDate(0, 0, 1) {
		records, err := readParquetFile[TickRecord](s.tickPath(d))
		if err != nil {
			return nil, fmt.Errorf("reading ticks for %s: %w", d.Format("2006-01-02"), err)
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp)
			if r.Symbol == symbol && !ts.Before(start) && !ts.After(end) {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// ListTickDates returns the dates that have a tick file, sorted.
func (s *ParquetStore) ListTickDates(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "ticks"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(name, ".parquet"))
	}
	sort.Strings(dates)
	return dates, nil
}

// ---------------------------------------------------------------------------
// HistoryStore implementation
// ---------------------------------------------------------------------------

// WriteHistory writes bars grouped by year:
//
//	<DataDir>/history/<SYMBOL>/<YYYY>.parquet
//
// Points whose date cannot be parsed are skipped.
func (s *ParquetStore) WriteHistory(_ context.Context, symbol string, points []domain.HistoryPoint) error {
	groups := make(map[int][]HistoryRecord)
	for _, p := range points {
		day, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			continue
		}
		groups[day.Year()] = append(groups[day.Year()], HistoryRecord{
			Symbol:    symbol,
			Timestamp: day.UnixMilli(),
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Close:     p.Close,
			Volume:    p.Volume,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for year, records := range groups {
		path := s.historyPath(symbol, year)
		existing, err := readParquetFile[HistoryRecord](path)
		if err != nil {
			return fmt.Errorf("reading history for %s/%d: %w", symbol, year, err)
		}
		merged := mergeHistoryRecords(existing, records)
		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing history for %s/%d: %w", symbol, year, err)
		}
	}
	return nil
}

// ReadHistory reads archived bars for symbol within [start, end].
func (s *ParquetStore) ReadHistory(_ context.Context, symbol string, start, end time.Time) ([]domain.HistoryPoint, error) {
	var out []domain.HistoryPoint
	for year := start.Year(); year <= end.Year(); year++ {
		records, err := readParquetFile[HistoryRecord](s.historyPath(symbol, year))
		if err != nil {
			return nil, fmt.Errorf("reading history for %s/%d: %w", symbol, year, err)
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			out = append(out, domain.HistoryPoint{
				Date:   ts.Format("2006-01-02"),
				Open:   r.Open,
				High:   r.High,
				Low:    r.Low,
				Close:  r.Close,
				Volume: r.Volume,
			})
		}
	}
	return out, nil
}

// ListSymbols lists all symbols that have archived history.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "history"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// tickPath returns <dataDir>/ticks/<YYYY-MM-DD>.parquet for t's UTC date.
func (s *ParquetStore) tickPath(t time.Time) string {
	return filepath.Join(s.DataDir, "ticks", t.UTC().Format("2006-01-02")+".parquet")
}

// historyPath returns <dataDir>/history/<SYMBOL>/<YYYY>.parquet.
func (s *ParquetStore) historyPath(symbol string, year int) string {
	return filepath.Join(s.DataDir, "history", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

// writeParquetFile writes records to a temp file beside path and renames it
// into place, so readers see either the old file or the new one.
func writeParquetFile[T any](path string, records []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := parquet.Write(f, records); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// readParquetFile returns nil for a file that does not exist. Any other
// failure is returned so a damaged file is never merged over.
func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return parquet.ReadFile[T](path)
}

// mergeTickRecords deduplicates by (symbol, timestamp), preferring incoming
// records, sorted by timestamp then symbol.
func mergeTickRecords(existing, incoming []TickRecord) []TickRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]TickRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]TickRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].Symbol < merged[j].Symbol
	})
	return merged
}

// mergeHistoryRecords deduplicates bars by (symbol, timestamp), preferring
// new records over existing ones.
func mergeHistoryRecords(existing, incoming []HistoryRecord) []HistoryRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]HistoryRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]HistoryRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
