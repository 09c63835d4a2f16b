// Package sources provides raw billing usage: a live billing API, a saved
// response dump, or a synthetic generator. All of them produce the same nested
// model.RawUsageResponse shape.
package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
)

// Source fetches raw usage for a date window.
type Source interface {
	// Name returns the source identifier (e.g., "costexplorer", "mock").
	Name() string

	// Fetch returns daily per-service costs for the window.
	Fetch(ctx context.Context, w Window) (*model.RawUsageResponse, error)
}

// Window is a [Start, End) range of UTC calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// LastDays returns the n full days before the day containing now.
func LastDays(now time.Time, n int) (Window, error) {
	if n <= 0 {
		return Window{}, fmt.Errorf("days must be positive, got %d", n)
	}
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Window{Start: end.AddDate(0, 0, -n), End: end}, nil
}

// Days lists each date in the window.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.Start; d.Before(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (w Window) String() string {
	return w.Start.Format(model.DateLayout) + ".." + w.End.Format(model.DateLayout)
}
