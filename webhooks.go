package clmte

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clmte/clmte/config"
	"github.com/clmte/clmte/internal/apierror"
	"github.com/clmte/clmte/internal/request"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const (
	EventOffsetCreated = "offset.created"
	EventOffsetPending = "offset.pending"
	EventOffsetSynced  = "offset.synced"

	webhookTimeout = 10 * time.Second
)

// NewWebhook is the body posted to the configured webhook URL.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// SendWebhook queues hook for delivery. It is a no-op when no webhook URL is
// configured or the service runs without a queue.
func (c *Clmte) SendWebhook(hook NewWebhook) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}
	if cfg.Notification.Webhook.Url == "" || c.queue == nil {
		return nil
	}
	return c.queue.EnqueueWebhook(hook)
}

func (c *Clmte) publish(event string, payload interface{}) {
	if err := c.SendWebhook(NewWebhook{Event: event, Payload: payload}); err != nil {
		logrus.WithError(err).WithField("event", event).Warn("webhook not sent")
	}
}

// EnqueueSync hands a backlog sync to the worker process.
func (c *Clmte) EnqueueSync(limit int) (string, error) {
	if c.queue == nil {
		return "", apierror.NewAPIError(apierror.ErrUnavailable, "Task queue is not configured", nil)
	}
	return c.queue.EnqueueSync(limit)
}

func deliverWebhook(ctx context.Context, cfg *config.Configuration, hook NewWebhook) error {
	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := request.NewJSONRequest(ctx, http.MethodPost, cfg.Notification.Webhook.Url, hook)
	if err != nil {
		return err
	}
	for key, value := range cfg.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	resp, err := request.Call(request.NewClient(webhookTimeout), req, nil)
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		// The receiver rejected the payload; retrying will not help.
		logrus.WithFields(logrus.Fields{"event": hook.Event, "status": resp.StatusCode}).Warn("webhook rejected")
		return nil
	}
	return nil
}

// ProcessWebhook delivers a queued webhook. Returning an error lets asynq
// retry it.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}
	if cfg.Notification.Webhook.Url == "" {
		return nil
	}

	var hook NewWebhook
	if err := json.Unmarshal(task.Payload(), &hook); err != nil {
		logrus.WithError(err).Error("invalid webhook task payload")
		return fmt.Errorf("invalid webhook payload: %v: %w", err, asynq.SkipRetry)
	}
	logrus.WithField("event", hook.Event).Info("delivering webhook")
	return deliverWebhook(ctx, cfg, hook)
}

// ProcessSync runs a queued backlog sync.
func (c *Clmte) ProcessSync(ctx context.Context, task *asynq.Task) error {
	var payload SyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid sync payload: %v: %w", err, asynq.SkipRetry)
	}
	synced, err := c.SyncPending(ctx, payload.Limit)
	if err != nil {
		return err
	}
	logrus.WithField("synced", synced).Info("pending offsets synced")
	return nil
}
