// Package notify carries job progress to subscribed observers. Delivery is
// fire-and-forget: the ingestion pipeline logs failures and moves on.
package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/mediahub/internal/logger"
)

// Notifier broadcasts job status to a named observer group.
type Notifier interface {
	Broadcast(ctx context.Context, jobID, status string, percent int) error
}

// progressEvent is the wire payload sent to observers.
type progressEvent struct {
	Group   string `json:"group"`
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Percent int    `json:"percent"`
}

// WebhookNotifier POSTs progress events to a configured endpoint.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	group  string
	logger *logger.Logger
}

// NewWebhookNotifier creates a notifier that delivers events to url,
// tagged with the given observer group.
func NewWebhookNotifier(url, group string, timeout time.Duration, log *logger.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &WebhookNotifier{
		client: client,
		url:    url,
		group:  group,
		logger: log,
	}
}

// Broadcast delivers one progress event. Errors are returned for logging
// but are never fatal to the caller.
func (n *WebhookNotifier) Broadcast(ctx context.Context, jobID, status string, percent int) error {
	_, err := n.client.R().
		SetContext(ctx).
		SetBody(progressEvent{
			Group:   n.group,
			JobID:   jobID,
			Status:  status,
			Percent: percent,
		}).
		Post(n.url)
	if err != nil {
		n.logger.WithFields(logger.Fields{
			logger.FieldJobID:  jobID,
			logger.FieldStatus: status,
		}).WithError(err).Warn("Progress broadcast failed")
	}
	return err
}

// NopNotifier discards all events. Used when no webhook is configured.
type NopNotifier struct{}

func (NopNotifier) Broadcast(ctx context.Context, jobID, status string, percent int) error {
	return nil
}
