package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spendlens/spendlens/internal/domain/cost"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// Store keeps normalized cost records in an embedded sqlite database so
// scheduled collection runs accumulate a spend history that outlives any
// single provider fetch.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// DailyTotal is one day of accumulated spend for a provider.
type DailyTotal struct {
	Provider string
	Date     time.Time
	Amount   float64
}

// Open opens (and migrates) the history database at path.
func Open(path string, log *logger.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Internal(fmt.Sprintf("create history dir %s", dir), err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.Internal("open history database", err)
	}

	// WAL allows readers during a write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, apperrors.Internal("enable WAL mode", err)
	}
	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, logger: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cost_records (
		provider   TEXT NOT NULL,
		date       TEXT NOT NULL,
		service    TEXT NOT NULL,
		region     TEXT NOT NULL DEFAULT '',
		account    TEXT NOT NULL DEFAULT '',
		currency   TEXT NOT NULL DEFAULT '',
		amount     REAL NOT NULL,
		PRIMARY KEY (provider, date, service, region, account)
	);
	CREATE INDEX IF NOT EXISTS idx_cost_records_date ON cost_records(date);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return apperrors.Internal("migrate history schema", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRecords upserts a batch of normalized records. Re-collecting a window
// replaces the prior values for the same grouping keys instead of double
// counting.
func (s *Store) SaveRecords(ctx context.Context, records []cost.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Internal("begin history transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cost_records (provider, date, service, region, account, currency, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, date, service, region, account)
		DO UPDATE SET amount = excluded.amount, currency = excluded.currency`)
	if err != nil {
		return apperrors.Internal("prepare history insert", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.Provider, rec.Date.Format("2006-01-02"), rec.Service,
			rec.Region, rec.Account, rec.Currency, rec.Amount)
		if err != nil {
			return apperrors.Internal("insert history record", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Internal("commit history transaction", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"records": len(records),
	}).Debug("history records saved")
	return nil
}

// DailyTotals returns per-provider daily spend inside the window, ascending
// by date then provider.
func (s *Store) DailyTotals(ctx context.Context, window cost.Window) ([]DailyTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, date, SUM(amount)
		FROM cost_records
		WHERE date >= ? AND date <= ?
		GROUP BY provider, date
		ORDER BY date ASC, provider ASC`,
		window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))
	if err != nil {
		return nil, apperrors.Internal("query history totals", err)
	}
	defer rows.Close()

	var totals []DailyTotal
	for rows.Next() {
		var t DailyTotal
		var date string
		if err := rows.Scan(&t.Provider, &date, &t.Amount); err != nil {
			return nil, apperrors.Internal("scan history row", err)
		}
		t.Date, err = time.Parse("2006-01-02", date)
		if err != nil {
			return nil, apperrors.Internal("parse history date", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("iterate history rows", err)
	}
	return totals, nil
}

// Records loads the stored records for one provider inside the window,
// in the canonical shape the analytics engines consume.
func (s *Store) Records(ctx context.Context, provider string, window cost.Window) ([]cost.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, date, service, region, account, currency, amount
		FROM cost_records
		WHERE provider = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, service ASC`,
		provider, window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))
	if err != nil {
		return nil, apperrors.Internal("query history records", err)
	}
	defer rows.Close()

	var records []cost.Record
	for rows.Next() {
		var rec cost.Record
		var date string
		if err := rows.Scan(&rec.Provider, &date, &rec.Service, &rec.Region,
			&rec.Account, &rec.Currency, &rec.Amount); err != nil {
			return nil, apperrors.Internal("scan history record", err)
		}
		rec.Date, err = time.Parse("2006-01-02", date)
		if err != nil {
			return nil, apperrors.Internal("parse history record date", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("iterate history records", err)
	}
	return records, nil
}
