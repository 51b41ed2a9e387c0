package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// RunReport is the outcome of one ingestion run, delivered to the webhook
// channel. Exactly one report is sent per completed run.
type RunReport struct {
	RunID       string    `json:"run_id"`
	Success     bool      `json:"success"`
	Fetched     int       `json:"fetched,omitempty"`
	Inserted    int       `json:"inserted,omitempty"`
	Parked      int       `json:"parked,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Notifier delivers run reports. Delivery failures are logged and swallowed:
// a broken notification channel must never fail an ingestion run.
type Notifier interface {
	Notify(ctx context.Context, report RunReport)
}

// WebhookNotifier posts run reports as JSON to a fixed URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for the given webhook URL.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify posts the report. Errors are logged, never retried, never returned.
func (n *WebhookNotifier) Notify(ctx context.Context, report RunReport) {
	if n.url == "" {
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		log.Printf("notification: failed to marshal run report: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(payload))
	if err != nil {
		log.Printf("notification: failed to create webhook request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Printf("notification: webhook delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("notification: webhook returned status %d", resp.StatusCode)
	}
}
