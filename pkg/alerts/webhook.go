package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookNotifier sends alerts to a generic HTTP webhook.
type WebhookNotifier struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookNotifier creates a generic webhook notifier.
// If secret is non-empty, requests are signed with HMAC-SHA256.
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	payload := newWebhookPayload(alert, time.Now())

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CloudSaver/1.0")

	if w.secret != "" {
		req.Header.Set("X-Signature-256", "sha256="+Sign(body, w.secret))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

type webhookPayload struct {
	Event     string         `json:"event"`
	Level     AlertLevel     `json:"level"`
	Timestamp string         `json:"timestamp"`
	Alert     Alert          `json:"alert"`
	Ingest    *ingestData    `json:"ingest,omitempty"`
	Threshold *thresholdData `json:"threshold,omitempty"`
}

// Amounts in ingestData and thresholdData are fixed two-place strings.
type ingestData struct {
	Window   string `json:"window"`
	Records  int    `json:"records"`
	Written  int    `json:"written"`
	TotalUSD string `json:"total_usd"`
}

type thresholdData struct {
	Date         string `json:"date"`
	Service      string `json:"service"`
	CostUSD      string `json:"cost_usd"`
	ThresholdUSD string `json:"threshold_usd"`
}

func newWebhookPayload(alert Alert, now time.Time) webhookPayload {
	payload := webhookPayload{
		Event:     alert.Event,
		Level:     alert.Level,
		Timestamp: now.UTC().Format(time.RFC3339),
		Alert:     alert,
	}

	switch alert.Event {
	case EventIngestCompleted:
		payload.Ingest = &ingestData{
			Window:   alert.Window,
			Records:  alert.Records,
			Written:  alert.Written,
			TotalUSD: alert.TotalUSD.StringFixed(2),
		}
	case EventSpendThreshold:
		payload.Threshold = &thresholdData{
			Date:         alert.Date,
			Service:      alert.Service,
			CostUSD:      alert.CostUSD.StringFixed(2),
			ThresholdUSD: alert.ThresholdUSD.StringFixed(2),
		}
	}
	return payload
}

// Sign returns the hex HMAC-SHA256 of body, as sent in X-Signature-256.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
