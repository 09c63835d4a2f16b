// Package ingest runs the fetch, normalize, persist and notify steps that
// load billing usage into the store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/cloudsaver/pkg/aggregate"
	"github.com/ogulcanaydogan/cloudsaver/pkg/alerts"
	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/ogulcanaydogan/cloudsaver/pkg/normalize"
	"github.com/ogulcanaydogan/cloudsaver/pkg/sources"
	"github.com/ogulcanaydogan/cloudsaver/pkg/storage"
	"github.com/shopspring/decimal"
)

// Request selects what to ingest.
type Request struct {
	Source string
	Window sources.Window
	// DryRun normalizes without persisting or notifying.
	DryRun bool
	// SaveRaw, when set, writes the fetched response to this path first.
	SaveRaw string
}

// Result summarizes an ingestion run.
type Result struct {
	Source  string
	Window  sources.Window
	Periods int
	Records []model.CostRecord
	Written int
	Total   decimal.Decimal
	DryRun  bool
}

// Pipeline loads raw usage from a registered source into the store.
type Pipeline struct {
	sources   *sources.Registry
	store     storage.Storage
	notifiers []alerts.Notifier
	threshold decimal.Decimal
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNotifiers sends a notification after every persisted run.
func WithNotifiers(notifiers ...alerts.Notifier) Option {
	return func(p *Pipeline) { p.notifiers = append(p.notifiers, notifiers...) }
}

// WithDailyThreshold warns about any service-day costing at least limit.
// A zero limit disables the check.
func WithDailyThreshold(limit decimal.Decimal) Option {
	return func(p *Pipeline) { p.threshold = limit }
}

// NewPipeline creates an ingestion pipeline with the given dependencies.
func NewPipeline(registry *sources.Registry, store storage.Storage, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		sources: registry,
		store:   store,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run fetches, normalizes and persists one window of usage. A normalization
// failure aborts the run before anything is written.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result, err := p.run(ctx, req)

	runDuration.WithLabelValues(req.Source).Observe(time.Since(start).Seconds())
	if err != nil {
		runsTotal.WithLabelValues(req.Source, model.ErrorKind(err)).Inc()
		p.logger.Error("ingestion failed",
			"source", req.Source,
			"window", req.Window.String(),
			"kind", model.ErrorKind(err),
			"error", err,
		)
		return nil, err
	}

	runsTotal.WithLabelValues(req.Source, "ok").Inc()
	recordsTotal.WithLabelValues(req.Source).Add(float64(result.Written))
	p.logger.Info("ingestion completed",
		"source", result.Source,
		"window", result.Window.String(),
		"periods", result.Periods,
		"records", len(result.Records),
		"written", result.Written,
		"total_usd", result.Total.StringFixed(2),
		"dry_run", result.DryRun,
	)

	if !req.DryRun {
		p.notify(ctx, result)
	}
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Result, error) {
	src, err := p.sources.Get(req.Source)
	if err != nil {
		return nil, err
	}

	raw, err := src.Fetch(ctx, req.Window)
	if err != nil {
		return nil, fmt.Errorf("fetch usage from %s: %w", req.Source, err)
	}

	if req.SaveRaw != "" {
		if err := sources.WriteFile(req.SaveRaw, raw); err != nil {
			return nil, err
		}
	}

	records, err := normalize.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize %s usage: %w", req.Source, err)
	}

	result := &Result{
		Source:  req.Source,
		Window:  req.Window,
		Periods: len(raw.ResultsByTime),
		Records: records,
		Total:   aggregate.Sum(aggregate.Aggregate(records)),
		DryRun:  req.DryRun,
	}
	if req.DryRun {
		return result, nil
	}

	result.Written, err = p.store.Persist(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("persist %s usage: %w", req.Source, err)
	}
	return result, nil
}

// notify dispatches the run report and threshold warnings. Delivery failures
// are logged and never fail the run.
func (p *Pipeline) notify(ctx context.Context, result *Result) {
	if len(p.notifiers) == 0 {
		return
	}

	pending := []alerts.Alert{{
		Level:    alerts.AlertInfo,
		Event:    alerts.EventIngestCompleted,
		Source:   result.Source,
		Window:   result.Window.String(),
		Records:  len(result.Records),
		Written:  result.Written,
		TotalUSD: result.Total,
		Message: fmt.Sprintf("Ingested %d records from %s ($%s)",
			len(result.Records), result.Source, result.Total.StringFixed(2)),
	}}

	if p.threshold.IsPositive() {
		for _, r := range result.Records {
			if r.Cost.LessThan(p.threshold) {
				continue
			}
			pending = append(pending, alerts.Alert{
				Level:        alerts.AlertWarning,
				Event:        alerts.EventSpendThreshold,
				Source:       result.Source,
				Window:       result.Window.String(),
				Date:         r.Day(),
				Service:      r.Service,
				CostUSD:      r.Cost,
				ThresholdUSD: p.threshold,
				Message: fmt.Sprintf("%s cost $%s on %s (threshold $%s)",
					r.Service, r.Cost.StringFixed(2), r.Day(), p.threshold.StringFixed(2)),
			})
		}
	}

	for _, alert := range pending {
		for _, notifier := range p.notifiers {
			if err := notifier.Send(ctx, alert); err != nil {
				p.logger.Error("send alert failed",
					"notifier", notifier.Name(),
					"event", alert.Event,
					"error", err,
				)
			}
		}
	}
}
