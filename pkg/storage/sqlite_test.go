package storage_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/ogulcanaydogan/cloudsaver/pkg/normalize"
	"github.com/ogulcanaydogan/cloudsaver/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestDB(t *testing.T, opts ...storage.Option) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func record(day, service, cost string) model.CostRecord {
	d, err := model.ParseDate(day)
	if err != nil {
		panic(err)
	}
	return model.CostRecord{Date: d, Service: service, Cost: decimal.RequireFromString(cost), Currency: model.CurrencyUSD}
}

type triple struct {
	Date, Service, Cost string
}

func triples(records []model.CostRecord) []triple {
	out := make([]triple, 0, len(records))
	for _, r := range records {
		out = append(out, triple{r.Day(), r.Service, r.Cost.StringFixed(2)})
	}
	return out
}

func stored(records []model.PersistedCostRecord) []triple {
	return triples(model.Records(records))
}

func TestSQLite_PersistAndRetrieveAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	records := []model.CostRecord{
		record("2024-01-01", "Amazon EC2", "10.00"),
		record("2024-01-02", "Amazon EC2", "5.25"),
		record("2024-01-01", "Amazon S3", "15.10"),
	}

	written, err := db.Persist(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	all, err := db.RetrieveAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, []triple{
		{"2024-01-02", "Amazon EC2", "5.25"},
		{"2024-01-01", "Amazon EC2", "10.00"},
		{"2024-01-01", "Amazon S3", "15.10"},
	}, stored(all))

	for _, r := range all {
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.CreatedAt.IsZero())
		assert.Equal(t, model.CurrencyUSD, r.Currency)
	}
}

func TestSQLite_Persist_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	records := []model.CostRecord{
		record("2024-01-01", "EC2", "10.00"),
		record("2024-01-01", "S3", "2.50"),
	}

	written, err := db.Persist(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	first, err := db.RetrieveAll(ctx)
	require.NoError(t, err)

	written, err = db.Persist(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 0, written)
	second, err := db.RetrieveAll(ctx)
	require.NoError(t, err)

	require.Len(t, second, 2)
	assert.Equal(t, stored(first), stored(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestSQLite_Persist_OverwritesChangedCost(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)}
	db := newTestDB(t, storage.WithClock(clock.Now))
	ctx := context.Background()

	_, err := db.Persist(ctx, []model.CostRecord{record("2024-01-31", "EC2", "10.00")})
	require.NoError(t, err)
	before, err := db.RetrieveAll(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)

	clock.Advance(24 * time.Hour)
	written, err := db.Persist(ctx, []model.CostRecord{
		record("2024-01-31", "EC2", "12.34"),
		record("2024-02-01", "EC2", "1.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	after, err := db.RetrieveAll(ctx)
	require.NoError(t, err)
	require.Len(t, after, 2)

	updated := after[1]
	assert.Equal(t, before[0].ID, updated.ID)
	assert.Equal(t, "12.34", updated.Cost.StringFixed(2))
	assert.True(t, updated.CreatedAt.Equal(before[0].CreatedAt))
	assert.True(t, updated.UpdatedAt.Equal(clock.Now()), "updated_at %v", updated.UpdatedAt)
}

func TestSQLite_Persist_DuplicateKeyInBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	written, err := db.Persist(ctx, []model.CostRecord{
		record("2024-01-01", "EC2", "1.00"),
		record("2024-01-01", "EC2", "2.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	all, err := db.RetrieveAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "2.00", all[0].Cost.StringFixed(2))
}

func TestSQLite_Persist_Empty(t *testing.T) {
	db := newTestDB(t)

	written, err := db.Persist(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestSQLite_Persist_RejectsInvalidRecords(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		record model.CostRecord
		kind   error
	}{
		{"missing date", model.CostRecord{Service: "EC2", Cost: decimal.NewFromInt(1)}, model.ErrMalformedInput},
		{"missing service", record("2024-01-01", "", "1.00"), model.ErrMalformedInput},
		{"negative cost", record("2024-01-01", "EC2", "-1.00"), model.ErrInvalidAmount},
		{"zero cost", record("2024-01-01", "EC2", "0"), model.ErrInvalidAmount},
		{"below threshold", record("2024-01-01", "EC2", "0.004"), model.ErrInvalidAmount},
		{"unrounded cost", record("2024-01-01", "EC2", "1.005"), model.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid := record("2024-01-01", "S3", "0.01")
			_, err := db.Persist(ctx, []model.CostRecord{valid, tt.record})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	all, err := db.RetrieveAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLite_Retrieve(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var records []model.CostRecord
	for day := 1; day <= 5; day++ {
		date := fmt.Sprintf("2024-03-%02d", day)
		records = append(records, record(date, "S3", "1.00"), record(date, "EC2", "2.00"))
	}
	_, err := db.Persist(ctx, records)
	require.NoError(t, err)

	recent, err := db.Retrieve(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []triple{
		{"2024-03-05", "EC2", "2.00"},
		{"2024-03-05", "S3", "1.00"},
		{"2024-03-04", "EC2", "2.00"},
	}, stored(recent))

	all, err := db.Retrieve(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestSQLite_Retrieve_InvalidLimit(t *testing.T) {
	db := newTestDB(t)

	for _, limit := range []int{0, -1} {
		_, err := db.Retrieve(context.Background(), limit)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrStorageUnavailable)
	}
}

func TestSQLite_RetrieveAll_Empty(t *testing.T) {
	db := newTestDB(t)

	all, err := db.RetrieveAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestSQLite_Closed(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ctx := context.Background()
	_, err = db.Persist(ctx, []model.CostRecord{record("2024-01-01", "EC2", "1.00")})
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)

	records, err := db.RetrieveAll(ctx)
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
	assert.Nil(t, records)

	_, err = db.Retrieve(ctx, 10)
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
}

func TestSQLite_ConcurrentPersist(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cost := fmt.Sprintf("%d.00", i+1)
			_, err := db.Persist(ctx, []model.CostRecord{
				record("2024-01-01", "EC2", cost),
				record("2024-01-01", "S3", cost),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := db.RetrieveAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Each persist is atomic, so both rows carry the cost of the same winner.
	assert.Equal(t, all[0].Cost.StringFixed(2), all[1].Cost.StringFixed(2))
}

func TestSQLite_RoundTripNormalized(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	amt := func(s string) *string { return &s }
	raw := &model.RawUsageResponse{ResultsByTime: []model.ResultByTime{
		{
			TimePeriod: &model.DateInterval{Start: "2024-01-01", End: "2024-01-02"},
			Groups: []model.Group{
				{Keys: []string{"Amazon EC2"}, Metrics: map[string]model.MetricValue{"UnblendedCost": {Amount: amt("45.675"), Unit: "USD"}}},
				{Keys: []string{"AWS Lambda"}, Metrics: map[string]model.MetricValue{"UnblendedCost": {Amount: amt("0.004"), Unit: "USD"}}},
				{Keys: []string{"Amazon S3"}, Metrics: map[string]model.MetricValue{"UnblendedCost": {Amount: amt("1.005"), Unit: "USD"}}},
			},
		},
		{
			TimePeriod: &model.DateInterval{Start: "2024-01-02", End: "2024-01-03"},
			Groups: []model.Group{
				{Keys: []string{"Amazon EC2"}, Metrics: map[string]model.MetricValue{"UnblendedCost": {Amount: amt("3.14159"), Unit: "USD"}}},
			},
		},
	}}

	normalized, err := normalize.Normalize(raw)
	require.NoError(t, err)
	_, err = db.Persist(ctx, normalized)
	require.NoError(t, err)

	all, err := db.RetrieveAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, triples(normalized), stored(all))
	assert.ElementsMatch(t, []triple{
		{"2024-01-01", "Amazon EC2", "45.68"},
		{"2024-01-01", "Amazon S3", "1.01"},
		{"2024-01-02", "Amazon EC2", "3.14"},
	}, stored(all))
}

func TestSQLite_MigrationIdempotency(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db1, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	_, err = db1.Persist(context.Background(), []model.CostRecord{record("2024-01-01", "EC2", "1.00")})
	require.NoError(t, err)
	db1.Close()

	db2, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	defer db2.Close()

	all, err := db2.RetrieveAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
