// Package aggregate computes per-service totals over canonical cost records.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/shopspring/decimal"
)

// Aggregate sums cost per service (exact, case-sensitive match).
// Totals are ordered by cost descending, then service name ascending.
// Empty input yields an empty, non-nil slice.
func Aggregate(records []model.CostRecord) []model.ServiceTotal {
	sums := make(map[string]decimal.Decimal)
	for _, r := range records {
		sums[r.Service] = sums[r.Service].Add(r.Cost)
	}

	totals := make([]model.ServiceTotal, 0, len(sums))
	for service, total := range sums {
		totals = append(totals, model.ServiceTotal{Service: service, TotalCost: total})
	}
	slices.SortFunc(totals, Compare)
	return totals
}

// Compare orders totals by cost descending, breaking ties by service ascending.
func Compare(a, b model.ServiceTotal) int {
	if c := b.TotalCost.Cmp(a.TotalCost); c != 0 {
		return c
	}
	return cmp.Compare(a.Service, b.Service)
}

// Sum returns the grand total across services.
func Sum(totals []model.ServiceTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t.TotalCost)
	}
	return sum
}

// Top returns at most n leading totals. n <= 0 returns all of them.
func Top(totals []model.ServiceTotal, n int) []model.ServiceTotal {
	if n <= 0 || n >= len(totals) {
		return totals
	}
	return totals[:n]
}
