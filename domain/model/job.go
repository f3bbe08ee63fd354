package model

import "time"

// Job is a unit of work for the deployment worker. Exactly one Operation is
// attached; the worker dispatches on its concrete type.
type Job struct {
	DeploymentID string
	Operation    Operation
	EnqueuedAt   time.Time
}

// Operation is the closed set of actions the worker can perform against a
// deployment. Implementations are value types carrying only the parameters
// the action needs; everything else is read from the persisted record.
type Operation interface {
	// Kind returns a stable name for logging and webhook payloads.
	Kind() string
}

// DeployOp creates the full resource graph for a new deployment.
type DeployOp struct {
	Image       string
	Port        int32
	EnvVars     map[string]string
	Replicas    int32
	Resources   *ResourceRequirements
	HealthCheck *HealthCheck
}

// ScaleOp changes the replica count of a running deployment.
type ScaleOp struct {
	TargetReplicas int32
}

// StartOp resumes a stopped deployment at its last known replica count.
type StartOp struct{}

// StopOp scales a deployment to zero replicas.
type StopOp struct{}

// RestartOp triggers a rolling restart without changing the pod template.
type RestartOp struct{}

// UpdateEnvOp merges new environment variables into the running deployment
// and verifies the resulting rollout.
type UpdateEnvOp struct {
	EnvVars map[string]string
}

// DeleteOp removes all cluster resources and the persisted record.
type DeleteOp struct{}

func (DeployOp) Kind() string    { return "deploy" }
func (ScaleOp) Kind() string     { return "scale" }
func (StartOp) Kind() string     { return "start" }
func (StopOp) Kind() string      { return "stop" }
func (RestartOp) Kind() string   { return "restart" }
func (UpdateEnvOp) Kind() string { return "update_env" }
func (DeleteOp) Kind() string    { return "delete" }
