// Package notify pushes stock alerts to an external webhook.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"pharmacare/backend/internal/domain"
)

type Notifier interface {
	NotifyStockAlerts(ctx context.Context, pharmacy string, alerts []domain.StockAlert) error
}

type NoopNotifier struct{}

func (NoopNotifier) NotifyStockAlerts(_ context.Context, _ string, _ []domain.StockAlert) error {
	return nil
}

// WebhookNotifier posts alerts as JSON to a fixed URL.
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &WebhookNotifier{httpClient: client, url: url}
}

type alertPayload struct {
	Pharmacy string              `json:"pharmacy"`
	SentAt   time.Time           `json:"sent_at"`
	Count    int                 `json:"count"`
	Alerts   []domain.StockAlert `json:"alerts"`
}

type webhookError struct {
	Error string `json:"error"`
}

func (n *WebhookNotifier) NotifyStockAlerts(ctx context.Context, pharmacy string, alerts []domain.StockAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	apiErr := new(webhookError)
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(alertPayload{
			Pharmacy: pharmacy,
			SentAt:   time.Now().UTC(),
			Count:    len(alerts),
			Alerts:   alerts,
		}).
		SetError(apiErr).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("send stock alerts: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("alert webhook error: status=%d, message=%s", resp.StatusCode(), apiErr.Error)
	}
	return nil
}
