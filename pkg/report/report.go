// Package report answers cost queries from the store.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ogulcanaydogan/cloudsaver/pkg/aggregate"
	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/ogulcanaydogan/cloudsaver/pkg/storage"
	"github.com/shopspring/decimal"
)

// Summary is the per-service breakdown of every stored record.
type Summary struct {
	Services []model.ServiceTotal
	Total    decimal.Decimal
	Records  int
}

// Service reads cost records on behalf of a caller.
type Service struct {
	store  storage.Storage
	logger *slog.Logger
}

// NewService creates a query service backed by store.
func NewService(store storage.Storage, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Recent returns up to limit records, newest date first.
func (s *Service) Recent(ctx context.Context, caller string, limit int) ([]model.PersistedCostRecord, error) {
	records, err := s.store.Retrieve(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieve costs: %w", err)
	}

	s.logger.Debug("recent costs served", "user", caller, "limit", limit, "count", len(records))
	return records, nil
}

// Summary aggregates the full record set. It never works from a page.
func (s *Service) Summary(ctx context.Context, caller string) (*Summary, error) {
	records, err := s.store.RetrieveAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve all costs: %w", err)
	}

	totals := aggregate.Aggregate(model.Records(records))
	summary := &Summary{
		Services: totals,
		Total:    aggregate.Sum(totals),
		Records:  len(records),
	}

	s.logger.Debug("cost summary served", "user", caller, "services", len(totals), "records", len(records))
	return summary, nil
}
