package domain

import (
	"context"

	"github.com/container-engine/container-engine/domain/model"
)

// DeploymentRepository stores and retrieves Deployment aggregates.
type DeploymentRepository interface {
	Create(ctx context.Context, d *model.Deployment) error
	Get(ctx context.Context, id string) (*model.Deployment, error)
	GetByName(ctx context.Context, userID, appName string) (*model.Deployment, error)
	List(ctx context.Context, userID string) ([]*model.Deployment, error)
	Update(ctx context.Context, d *model.Deployment) error
	// UpdateStatus persists only the status, URL and error message columns.
	// It succeeds even when the stored status already equals the new one.
	UpdateStatus(ctx context.Context, id string, status model.Status, url, errorMsg string) error
	// UpdateReplicas persists only the replica count.
	UpdateReplicas(ctx context.Context, id string, replicas int32) error
	Delete(ctx context.Context, id string) error
}

// DomainRepository stores and retrieves custom domain registrations.
type DomainRepository interface {
	Create(ctx context.Context, d *model.CustomDomain) error
	Get(ctx context.Context, id string) (*model.CustomDomain, error)
	GetByDomain(ctx context.Context, domain string) (*model.CustomDomain, error)
	ListByDeployment(ctx context.Context, deploymentID string) ([]*model.CustomDomain, error)
	Update(ctx context.Context, d *model.CustomDomain) error
	Delete(ctx context.Context, id string) error
}

// CertificateRepository stores issued TLS certificates.
type CertificateRepository interface {
	Create(ctx context.Context, c *model.Certificate) error
	GetByDomain(ctx context.Context, domain string) (*model.Certificate, error)
	List(ctx context.Context) ([]*model.Certificate, error)
	Update(ctx context.Context, c *model.Certificate) error
	Delete(ctx context.Context, id string) error
}

// WebhookRepository stores user-registered webhooks.
type WebhookRepository interface {
	Create(ctx context.Context, w *model.Webhook) error
	Get(ctx context.Context, id string) (*model.Webhook, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Webhook, error)
	Update(ctx context.Context, w *model.Webhook) error
	Delete(ctx context.Context, id string) error
}

// Notifier fans deployment events out to live subscribers. Delivery is best
// effort; events for users with no active subscription are dropped.
type Notifier interface {
	Publish(ctx context.Context, ev model.Event)
	Subscribe(ctx context.Context, userID string) (<-chan model.Event, func())
}

// WebhookDispatcher delivers an event to every matching registered webhook.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, ev model.Event)
}
