package storage

import (
	"context"

	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
)

// Storage persists canonical cost records keyed by (date, service).
// Backend failures are reported as model.ErrStorageUnavailable.
type Storage interface {
	// Persist upserts records. An existing (date, service) row is overwritten
	// when its cost differs. Returns the number of rows inserted or changed.
	Persist(ctx context.Context, records []model.CostRecord) (int, error)

	// Retrieve returns at most limit records, newest date first.
	Retrieve(ctx context.Context, limit int) ([]model.PersistedCostRecord, error)

	// RetrieveAll returns every stored record, newest date first.
	RetrieveAll(ctx context.Context) ([]model.PersistedCostRecord, error)

	// Close releases resources.
	Close() error
}
