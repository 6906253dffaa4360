package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"orderdesk/internal/models"
	"orderdesk/pkg/logger"
)

// Deliverer hands one notification to the outside world. A nil error means the
// notification is done and will not be sent again.
type Deliverer interface {
	Deliver(ctx context.Context, n models.Notification) error
}

// LogDeliverer writes notifications to the log. Used when no webhook is configured.
type LogDeliverer struct {
	logger *logger.Logger
}

func NewLogDeliverer(log *logger.Logger) *LogDeliverer {
	return &LogDeliverer{logger: log.WithComponent("notifications")}
}

func (d *LogDeliverer) Deliver(ctx context.Context, n models.Notification) error {
	d.logger.Info("Notification",
		"id", n.ID,
		"kind", n.Kind,
		"restaurant_id", n.TenantID,
		"order_id", n.OrderID,
		"payload", string(n.Payload))
	return nil
}

const defaultWebhookTimeout = 10 * time.Second

// WebhookDeliverer POSTs each notification as JSON to a fixed URL.
type WebhookDeliverer struct {
	url        string
	httpClient *http.Client
}

func NewWebhookDeliverer(url string, timeout time.Duration) *WebhookDeliverer {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookDeliverer{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type webhookBody struct {
	ID        int64                   `json:"id"`
	Kind      models.NotificationKind `json:"kind"`
	TenantID  int64                   `json:"restaurant_id"`
	OrderID   int64                   `json:"order_id"`
	Attempt   int                     `json:"attempt"`
	Payload   json.RawMessage         `json:"payload"`
	CreatedAt time.Time               `json:"created_at"`
}

func (d *WebhookDeliverer) Deliver(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(webhookBody{
		ID:        n.ID,
		Kind:      n.Kind,
		TenantID:  n.TenantID,
		OrderID:   n.OrderID,
		Attempt:   n.Attempts + 1,
		Payload:   n.Payload,
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Orderdesk-Event", string(n.Kind))
	req.Header.Set("X-Orderdesk-Delivery", strconv.FormatInt(n.ID, 10))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook error %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}
