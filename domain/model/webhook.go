package model

import "time"

// Webhook event types. EventAll subscribes to every event.
const (
	EventAll              = "all"
	EventDeploymentStatus = "deployment.status"
	EventDeploymentFailed = "deployment.failed"
	EventDomainVerified   = "domain.verified"
	EventCertIssued       = "certificate.issued"
)

// Webhook is a user-registered HTTP callback for deployment events.
type Webhook struct {
	ID        string
	UserID    string
	URL       string
	Secret    string
	Events    []string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subscribed reports whether the webhook wants the given event type.
func (w *Webhook) Subscribed(event string) bool {
	if !w.Active {
		return false
	}
	for _, e := range w.Events {
		if e == EventAll || e == event {
			return true
		}
	}
	return false
}

// Event is a notification emitted when a deployment changes state. It is
// delivered both to registered webhooks and to live notification streams.
type Event struct {
	DeploymentID string
	UserID       string
	Type         string
	Status       Status
	AppName      string
	URL          string
	// ErrorMsg carries the failure detail of a failed operation, or a
	// degraded-success note such as a missing ingress address.
	ErrorMsg  string
	Pods      []PodInfo
	Timestamp time.Time
}
