package alerts

import (
	"context"

	"github.com/shopspring/decimal"
)

// AlertLevel indicates the severity of a notification.
type AlertLevel string

const (
	AlertInfo    AlertLevel = "info"    // Routine ingestion report
	AlertWarning AlertLevel = "warning" // Daily spend threshold crossed
)

// Event names carried in notifications.
const (
	EventIngestCompleted = "ingest_completed"
	EventSpendThreshold  = "spend_threshold"
)

// Alert describes an ingestion run or a service-day whose cost crossed the
// configured threshold.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Event   string     `json:"event"`
	Source  string     `json:"source"`
	Window  string     `json:"window,omitempty"`
	Message string     `json:"message"`

	// Set on EventIngestCompleted.
	Records  int             `json:"records,omitempty"`
	Written  int             `json:"written,omitempty"`
	TotalUSD decimal.Decimal `json:"total_usd"`

	// Set on EventSpendThreshold.
	Date         string          `json:"date,omitempty"`
	Service      string          `json:"service,omitempty"`
	CostUSD      decimal.Decimal `json:"cost_usd"`
	ThresholdUSD decimal.Decimal `json:"threshold_usd"`
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
