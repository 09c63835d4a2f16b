package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// SlackNotifier sends alerts to a Slack webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, alert Alert) error {
	payload := slackPayload{
		Channel: s.channel,
		Attachments: []slackAttachment{
			{
				Color:  slackColor(alert.Level),
				Title:  "CloudSaver: " + alert.Message,
				Fields: slackFields(alert),
				Footer: "CloudSaver",
				Ts:     time.Now().Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

func slackColor(level AlertLevel) string {
	if level == AlertWarning {
		return "#ff9900" // orange
	}
	return "#36a64f" // green
}

func slackFields(alert Alert) []slackField {
	fields := []slackField{
		{Title: "Source", Value: alert.Source, Short: true},
		{Title: "Window", Value: alert.Window, Short: true},
	}
	switch alert.Event {
	case EventSpendThreshold:
		fields = append(fields,
			slackField{Title: "Service", Value: alert.Service, Short: true},
			slackField{Title: "Date", Value: alert.Date, Short: true},
			slackField{Title: "Cost", Value: "$" + alert.CostUSD.StringFixed(2), Short: true},
			slackField{Title: "Threshold", Value: "$" + alert.ThresholdUSD.StringFixed(2), Short: true},
		)
	default:
		fields = append(fields,
			slackField{Title: "Records", Value: strconv.Itoa(alert.Records), Short: true},
			slackField{Title: "Written", Value: strconv.Itoa(alert.Written), Short: true},
			slackField{Title: "Total", Value: "$" + alert.TotalUSD.StringFixed(2), Short: true},
		)
	}
	return fields
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
