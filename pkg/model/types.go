package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DateLayout is the calendar date format used by billing providers and storage.
	DateLayout = "2006-01-02"

	// MetricUnblendedCost is the only cost metric the normalizer reads.
	MetricUnblendedCost = "UnblendedCost"

	// CurrencyUSD is the implicit currency of every canonical record.
	CurrencyUSD = "USD"
)

// RawUsageResponse mirrors the nested shape returned by a billing provider's
// cost-and-usage API. Nil slices and pointers mean the field was absent.
type RawUsageResponse struct {
	ResultsByTime []ResultByTime `json:"ResultsByTime" yaml:"ResultsByTime"`
}

// ResultByTime holds the grouped costs for one time period.
type ResultByTime struct {
	TimePeriod *DateInterval `json:"TimePeriod" yaml:"TimePeriod"`
	Groups     []Group       `json:"Groups" yaml:"Groups"`
	Estimated  bool          `json:"Estimated,omitempty" yaml:"Estimated,omitempty"`
}

// DateInterval is a [Start, End) pair of YYYY-MM-DD dates.
type DateInterval struct {
	Start string `json:"Start" yaml:"Start"`
	End   string `json:"End" yaml:"End"`
}

// Group is one service's cost inside a time period.
type Group struct {
	Keys    []string               `json:"Keys" yaml:"Keys"`
	Metrics map[string]MetricValue `json:"Metrics" yaml:"Metrics"`
}

// MetricValue is a decimal amount encoded as a string plus its unit.
type MetricValue struct {
	Amount *string `json:"Amount" yaml:"Amount"`
	Unit   string  `json:"Unit" yaml:"Unit"`
}

// CostRecord is the canonical per-day, per-service cost.
type CostRecord struct {
	Date     time.Time       `json:"date"`
	Service  string          `json:"service"`
	Cost     decimal.Decimal `json:"cost"`
	Currency string          `json:"currency"`
}

// Day returns the record date in DateLayout form.
func (r CostRecord) Day() string {
	return r.Date.Format(DateLayout)
}

// Key returns the (date, service) uniqueness key.
func (r CostRecord) Key() RecordKey {
	return RecordKey{Date: r.Day(), Service: r.Service}
}

func (r CostRecord) String() string {
	return fmt.Sprintf("%s %s $%s", r.Day(), r.Service, r.Cost.StringFixed(2))
}

// RecordKey identifies a cost record across ingestions.
type RecordKey struct {
	Date    string
	Service string
}

// PersistedCostRecord is a CostRecord as held by the store.
type PersistedCostRecord struct {
	ID string `json:"id"`
	CostRecord
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServiceTotal is the summed cost of one service. It is never persisted.
type ServiceTotal struct {
	Service   string          `json:"service"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Records strips store metadata, leaving the canonical records.
func Records(persisted []PersistedCostRecord) []CostRecord {
	out := make([]CostRecord, len(persisted))
	for i, p := range persisted {
		out[i] = p.CostRecord
	}
	return out
}
