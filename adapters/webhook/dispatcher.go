package webhook

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

	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/logging"
)

const (
	userAgent      = "Container-Engine-Webhook/1.0"
	requestTimeout = 10 * time.Second

	headerSignature = "X-Webhook-Signature"
	headerEvent     = "X-Webhook-Event"
)

// payload is the JSON body posted to webhook endpoints.
type payload struct {
	DeploymentID string       `json:"deployment_id"`
	Status       string       `json:"status"`
	Type         string       `json:"type"`
	Timestamp    string       `json:"timestamp"`
	AppName      string       `json:"app_name"`
	UserID       string       `json:"user_id"`
	URL          string       `json:"url,omitempty"`
	ErrorMsg     string       `json:"error_message,omitempty"`
	Pods         []payloadPod `json:"pods,omitempty"`
}

type payloadPod struct {
	Name  string `json:"name"`
	Phase string `json:"phase"`
	Ready bool   `json:"ready"`
}

// Dispatcher posts events to every matching webhook of the event's user.
// Delivery is best effort; failures are logged, never propagated.
type Dispatcher struct {
	webhooks domain.WebhookRepository
	client   *http.Client
}

func NewDispatcher(webhooks domain.WebhookRepository) *Dispatcher {
	return &Dispatcher{
		webhooks: webhooks,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

// Dispatch delivers ev to all active webhooks subscribed to its event type.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.Event) {
	logger := logging.FromContext(ctx)
	hooks, err := d.webhooks.ListByUser(ctx, ev.UserID)
	if err != nil {
		logger.Error(ctx, "list webhooks", "userID", ev.UserID, "error", err)
		return
	}
	body, err := json.Marshal(buildPayload(ev))
	if err != nil {
		logger.Error(ctx, "encode webhook payload", "error", err)
		return
	}
	for _, hook := range hooks {
		if !hook.Subscribed(ev.Type) {
			continue
		}
		if err := d.deliver(ctx, hook, ev.Type, body); err != nil {
			logger.Warn(ctx, "webhook delivery failed", "webhookID", hook.ID, "url", hook.URL, "error", err)
		}
	}
}

func buildPayload(ev model.Event) payload {
	p := payload{
		DeploymentID: ev.DeploymentID,
		Status:       string(ev.Status),
		Type:         ev.Type,
		Timestamp:    ev.Timestamp.UTC().Format(time.RFC3339),
		AppName:      ev.AppName,
		UserID:       ev.UserID,
		URL:          ev.URL,
		ErrorMsg:     ev.ErrorMsg,
	}
	for _, pod := range ev.Pods {
		p.Pods = append(p.Pods, payloadPod{Name: pod.Name, Phase: pod.Phase, Ready: pod.Ready})
	}
	return p
}

func (d *Dispatcher) deliver(ctx context.Context, hook *model.Webhook, event string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(headerEvent, event)
	if hook.Secret != "" {
		req.Header.Set(headerSignature, Sign(hook.Secret, body))
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 signature of a payload, prefixed with the
// scheme so receivers can identify the algorithm.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

var _ domain.WebhookDispatcher = (*Dispatcher)(nil)
