package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/ogulcanaydogan/cloudsaver/pkg/normalize"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

const upsertCostRecord = `INSERT INTO cost_records (id, date, service, cost, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(date, service) DO UPDATE SET
	  cost = excluded.cost,
	  updated_at = excluded.updated_at
	WHERE cost_records.cost <> excluded.cost`

const selectCostRecords = `SELECT id, date, service, cost, created_at, updated_at
	FROM cost_records
	ORDER BY date DESC, service ASC`

// SQLite implements Storage on an SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures an SQLite store.
type Option func(*SQLite)

// WithClock overrides the clock used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *SQLite) { s.now = now }
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string, opts ...Option) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, unavailable("create db directory", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, unavailable("open database", err)
	}

	// A single connection serializes writers, so each Persist applies its
	// upserts atomically with respect to concurrent callers.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, unavailable("run migrations", err)
	}

	s := &SQLite{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQLite) Persist(ctx context.Context, records []model.CostRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for _, r := range records {
		if err := validateRecord(r); err != nil {
			return 0, fmt.Errorf("persist: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("begin persist", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertCostRecord)
	if err != nil {
		return 0, unavailable("prepare upsert", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	written := 0
	for _, r := range records {
		result, err := stmt.ExecContext(ctx,
			uuid.New().String(), r.Day(), r.Service, r.Cost.StringFixed(2), now, now,
		)
		if err != nil {
			return 0, unavailable("upsert cost record", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, unavailable("check rows affected", err)
		}
		written += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, unavailable("commit persist", err)
	}
	return written, nil
}

func (s *SQLite) Retrieve(ctx context.Context, limit int) ([]model.PersistedCostRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("retrieve: limit must be positive, got %d", limit)
	}
	return s.query(ctx, selectCostRecords+" LIMIT ?", limit)
}

func (s *SQLite) RetrieveAll(ctx context.Context) ([]model.PersistedCostRecord, error) {
	return s.query(ctx, selectCostRecords)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) query(ctx context.Context, query string, args ...any) ([]model.PersistedCostRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query cost records", err)
	}
	defer rows.Close()

	records := []model.PersistedCostRecord{}
	for rows.Next() {
		var (
			r         model.PersistedCostRecord
			day, cost string
		)
		if err := rows.Scan(&r.ID, &day, &r.Service, &cost, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, unavailable("scan cost record", err)
		}
		if r.Date, err = model.ParseDate(day); err != nil {
			return nil, unavailable("decode date of "+r.ID, err)
		}
		if r.Cost, err = decimal.NewFromString(cost); err != nil {
			return nil, unavailable("decode cost of "+r.ID, err)
		}
		r.Currency = model.CurrencyUSD
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate cost records", err)
	}
	return records, nil
}

// validateRecord rejects anything Normalize could not have produced.
func validateRecord(r model.CostRecord) error {
	switch {
	case r.Date.IsZero():
		return &model.InputError{Kind: model.ErrMalformedInput, Service: r.Service, Reason: "missing date"}
	case r.Service == "":
		return &model.InputError{Kind: model.ErrMalformedInput, Date: r.Day(), Reason: "missing service"}
	case r.Cost.LessThan(normalize.MinCost):
		return &model.InputError{Kind: model.ErrInvalidAmount, Date: r.Day(), Service: r.Service,
			Reason: "cost " + r.Cost.String() + " below " + normalize.MinCost.StringFixed(normalize.Places)}
	case !r.Cost.Equal(r.Cost.Round(normalize.Places)):
		return &model.InputError{Kind: model.ErrInvalidAmount, Date: r.Day(), Service: r.Service,
			Reason: "cost " + r.Cost.String() + " has more than two decimal places"}
	}
	return nil
}

// unavailable tags a backend failure so callers can match it without
// inspecting driver errors.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrStorageUnavailable, op, err)
}
