package model

import "time"

// Status enumerates the lifecycle states of a deployment. A deployment rests
// in running, stopped, or failed; the remaining states are transitional and
// owned by the worker while an operation is in flight.
type Status string

const (
	StatusPending    Status = "pending"
	StatusDeploying  Status = "deploying"
	StatusRunning    Status = "running"
	StatusScaling    Status = "scaling"
	StatusStarting   Status = "starting"
	StatusStopping   Status = "stopping"
	StatusStopped    Status = "stopped"
	StatusUpdating   Status = "updating"
	StatusRestarting Status = "restarting"
	StatusDeleting   Status = "deleting"
	StatusFailed     Status = "failed"
)

// Deployment is the persisted record of a tenant's containerized application.
type Deployment struct {
	ID      string
	UserID  string
	AppName string
	Image   string
	Port    int32
	EnvVars map[string]string
	// Replicas is the last successfully applied replica count, never an
	// in-flight target.
	Replicas int32
	// LastReplicas remembers the replica count a deployment was stopped at so
	// a later start can restore it.
	LastReplicas int32
	Resources    *ResourceRequirements
	HealthCheck  *HealthCheck
	Status       Status
	URL          string
	ErrorMsg     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ResourceRequirements carries CPU and memory requests in Kubernetes
// quantity notation (e.g. "500m", "256Mi").
type ResourceRequirements struct {
	CPU    string
	Memory string
}

// HealthCheck configures an HTTP readiness and liveness probe.
type HealthCheck struct {
	Path                string
	InitialDelaySeconds int32
	PeriodSeconds       int32
}

// PodInfo is a point-in-time view of one pod backing a deployment.
type PodInfo struct {
	Name      string
	Phase     string
	Ready     bool
	Restarts  int32
	Node      string
	StartedAt *time.Time
}
