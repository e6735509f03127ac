package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spesebot/internal/core"
	ports "spesebot/internal/records"

	_ "modernc.org/sqlite"
)

// Ensure interface conformance
var (
	_ ports.Store         = (*SQLiteRepository)(nil)
	_ ports.JournalWriter = (*SQLiteRepository)(nil)
)

// createdAtLayout keeps a fixed width so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create implements records.RecordCreator
func (r *SQLiteRepository) Create(ctx context.Context, category string, amount decimal.Decimal, date core.Date) (string, error) {
	rec := core.ExpenseRecord{ID: uuid.NewString(), Category: category, Amount: amount, Date: date, Version: 1}
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_records (id, category, amount, date, version, created_at) VALUES (?, ?, ?, ?, 1, ?)`,
		rec.ID, rec.Category, rec.Amount.String(), rec.Date.String(), r.now().UTC().Format(createdAtLayout))
	if err != nil {
		return "", fmt.Errorf("create expense record: %w", err)
	}

	slog.DebugContext(ctx, "Expense record saved to SQLite",
		"id", rec.ID,
		"category", rec.Category,
		"amount", rec.Amount.String(),
		"date", rec.Date.String())

	return rec.ID, nil
}

// QueryRange implements records.RangeQuerier
func (r *SQLiteRepository) QueryRange(ctx context.Context, dr core.DateRange) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category, amount, date, version FROM expense_records
		 WHERE date >= ? AND date <= ?
		 ORDER BY date, created_at, rowid`,
		dr.Start.String(), dr.End.String())
	if err != nil {
		return nil, fmt.Errorf("query expense records: %w", err)
	}
	defer rows.Close()

	out := make([]core.ExpenseRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense records: %w", err)
	}
	return out, nil
}

// QueryLatestByCategory implements records.LatestFinder
func (r *SQLiteRepository) QueryLatestByCategory(ctx context.Context, category string) (core.ExpenseRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, category, amount, date, version FROM expense_records
		 WHERE category = ?
		 ORDER BY date DESC, created_at DESC, rowid DESC
		 LIMIT 1`,
		category)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, core.ErrRecordNotFound
	}
	return rec, err
}

// Update implements records.RecordUpdater as a compare-and-swap on version.
func (r *SQLiteRepository) Update(ctx context.Context, u core.RecordUpdate) error {
	if err := core.ValidateAmount(u.Amount); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE expense_records SET amount = ?, date = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		u.Amount.String(), u.Date.String(), u.ID, u.Version)
	if err != nil {
		return fmt.Errorf("update expense record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense record: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM expense_records WHERE id = ?`, u.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("check expense record: %w", err)
	}
	return core.ErrVersionConflict
}

// AppendJournal implements records.JournalWriter
func (r *SQLiteRepository) AppendJournal(ctx context.Context, op string, rec core.ExpenseRecord, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_journal (recorded_at, op, record_id, category, amount, date) VALUES (?, ?, ?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339), op, rec.ID, rec.Category, rec.Amount.String(), rec.Date.String())
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// JournalEntry is a row of the expense_journal table.
type JournalEntry struct {
	RecordedAt string
	Op         string
	RecordID   string
	Category   string
	Amount     string
	Date       string
}

// ListJournal returns the most recent journal rows, newest first.
func (r *SQLiteRepository) ListJournal(ctx context.Context, limit int) ([]JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT recorded_at, op, record_id, category, amount, date FROM expense_journal ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.RecordedAt, &e.Op, &e.RecordID, &e.Category, &e.Amount, &e.Date); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (core.ExpenseRecord, error) {
	var (
		rec     core.ExpenseRecord
		amount  string
		dateStr string
	)
	if err := s.Scan(&rec.ID, &rec.Category, &amount, &dateStr, &rec.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ExpenseRecord{}, err
		}
		return core.ExpenseRecord{}, fmt.Errorf("scan expense record: %w", err)
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: record %s: amount %q", core.ErrMalformedRecord, rec.ID, amount)
	}
	d, err := core.ParseDate(dateStr)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: record %s: date %q", core.ErrMalformedRecord, rec.ID, dateStr)
	}
	rec.Amount = amt
	rec.Date = d
	if err := rec.Validate(); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: record %s: %v", core.ErrMalformedRecord, rec.ID, err)
	}
	return rec, nil
}
