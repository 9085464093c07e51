package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"commodash/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ SnapshotStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS commodities (
	position       INTEGER NOT NULL,
	symbol         TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	category       TEXT NOT NULL,
	price          REAL NOT NULL,
	change         REAL NOT NULL,
	change_percent REAL NOT NULL,
	high           REAL NOT NULL,
	low            REAL NOT NULL,
	volume         TEXT NOT NULL DEFAULT '',
	timestamp      TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS watchlist (
	position INTEGER NOT NULL,
	symbol   TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	category TEXT NOT NULL,
	added_at TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS documents (
	name       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	fetched_at INTEGER NOT NULL
);
`

// SQLiteStore implements SnapshotStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates
// its tables, and returns a ready-to-use SQLiteStore. ":memory:" works for
// tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Commodities
// ---------------------------------------------------------------------------

// SaveCommodities replaces the cached list in one transaction.
func (s *SQLiteStore) SaveCommodities(ctx context.Context, commodities []domain.Commodity, fetchedAt time.Time) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM commodities`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO commodities
			(position, symbol, name, category, price, change, change_percent, high, low, volume, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, c := range commodities {
			if _, err := stmt.ExecContext(ctx, i, c.Symbol, c.Name, string(c.Category),
				c.Price, c.Change, c.ChangePercent, c.High, c.Low, c.Volume, c.Timestamp); err != nil {
				return fmt.Errorf("inserting %s: %w", c.Symbol, err)
			}
		}
		return putDocument(ctx, tx, "commodities", struct{}{}, fetchedAt)
	})
}

// LoadCommodities returns the cached list in saved order.
func (s *SQLiteStore) LoadCommodities(ctx context.Context) ([]domain.Commodity, time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, name, category, price, change,
		change_percent, high, low, volume, timestamp FROM commodities ORDER BY position`)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	var out []domain.Commodity
	for rows.Next() {
		var c domain.Commodity
		var cat string
		if err := rows.Scan(&c.Symbol, &c.Name, &cat, &c.Price, &c.Change,
			&c.ChangePercent, &c.High, &c.Low, &c.Volume, &c.Timestamp); err != nil {
			return nil, time.Time{}, err
		}
		c.Category = domain.Category(cat)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}

	var marker struct{}
	at, _, err := s.getDocument(ctx, "commodities", &marker)
	if err != nil {
		return nil, time.Time{}, err
	}
	return out, at, nil
}

// ---------------------------------------------------------------------------
// Market summary
// ---------------------------------------------------------------------------

// SaveSummary stores the summary as a JSON document.
func (s *SQLiteStore) SaveSummary(ctx context.Context, summary *domain.MarketSummary, fetchedAt time.Time) error {
	if summary == nil {
		return nil
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		return putDocument(ctx, tx, "summary", summary, fetchedAt)
	})
}

// LoadSummary returns the cached summary, or nil if none was saved.
func (s *SQLiteStore) LoadSummary(ctx context.Context) (*domain.MarketSummary, time.Time, error) {
	var sum domain.MarketSummary
	at, ok, err := s.getDocument(ctx, "summary", &sum)
	if err != nil || !ok {
		return nil, time.Time{}, err
	}
	return &sum, at, nil
}

// ---------------------------------------------------------------------------
// Watchlist
// ---------------------------------------------------------------------------

// SaveWatchlist replaces the cached watchlist.
func (s *SQLiteStore) SaveWatchlist(ctx context.Context, items []domain.WatchlistItem) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist`); err != nil {
			return err
		}
		for i, it := range items {
			if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO watchlist
				(position, symbol, name, category, added_at) VALUES (?, ?, ?, ?, ?)`,
				i, it.Symbol, it.Name, string(it.Category), it.AddedAt); err != nil {
				return fmt.Errorf("inserting %s: %w", it.Symbol, err)
			}
		}
		return nil
	})
}

// LoadWatchlist returns the cached watchlist in saved order.
func (s *SQLiteStore) LoadWatchlist(ctx context.Context) ([]domain.WatchlistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, name, category, added_at FROM watchlist ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WatchlistItem
	for rows.Next() {
		var it domain.WatchlistItem
		var cat string
		if err := rows.Scan(&it.Symbol, &it.Name, &cat, &it.AddedAt); err != nil {
			return nil, err
		}
		it.Category = domain.Category(cat)
		out = append(out, it)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *SQLiteStore) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func putDocument(ctx context.Context, tx *sql.Tx, name string, v any, at time.Time) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO documents (name, body, fetched_at)
		VALUES (?, ?, ?)`, name, string(body), at.UnixMilli())
	return err
}

func (s *SQLiteStore) getDocument(ctx context.Context, name string, v any) (time.Time, bool, error) {
	var body string
	var ms int64
	err := s.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM documents WHERE name = ?`, name).Scan(&body, &ms)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return time.Time{}, false, fmt.Errorf("decoding %s: %w", name, err)
	}
	return time.UnixMilli(ms), true, nil
}
