package deployment

import (
	"context"
	"time"

	"github.com/container-engine/container-engine/domain/model"
)

// load fetches a deployment and enforces ownership.
func (u *UseCase) load(ctx context.Context, userID, deploymentID string) (*model.Deployment, error) {
	d, err := u.Repos.Deployment.Get(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && d.UserID != userID {
		return nil, model.ErrDeploymentNotFound
	}
	return d, nil
}

func (u *UseCase) enqueue(deploymentID string, op model.Operation) error {
	return u.Queue.Enqueue(model.Job{
		DeploymentID: deploymentID,
		Operation:    op,
		EnqueuedAt:   time.Now().UTC(),
	})
}

// ScaleInput requests a new replica count.
type ScaleInput struct {
	UserID       string
	DeploymentID string
	Replicas     int32
}

// Scale queues a replica-count change. Zero is a valid target (scaled to
// zero, distinct from stopped).
func (u *UseCase) Scale(ctx context.Context, in *ScaleInput) error {
	if in.Replicas < 0 {
		return &model.ValidationError{Field: "replicas", Reason: "replica count must not be negative"}
	}
	d, err := u.load(ctx, in.UserID, in.DeploymentID)
	if err != nil {
		return err
	}
	return u.enqueue(d.ID, model.ScaleOp{TargetReplicas: in.Replicas})
}

// Start queues resumption of a stopped deployment.
func (u *UseCase) Start(ctx context.Context, userID, deploymentID string) error {
	d, err := u.load(ctx, userID, deploymentID)
	if err != nil {
		return err
	}
	return u.enqueue(d.ID, model.StartOp{})
}

// Stop queues scaling the deployment to zero replicas.
func (u *UseCase) Stop(ctx context.Context, userID, deploymentID string) error {
	d, err := u.load(ctx, userID, deploymentID)
	if err != nil {
		return err
	}
	return u.enqueue(d.ID, model.StopOp{})
}

// Restart queues a rolling restart.
func (u *UseCase) Restart(ctx context.Context, userID, deploymentID string) error {
	d, err := u.load(ctx, userID, deploymentID)
	if err != nil {
		return err
	}
	return u.enqueue(d.ID, model.RestartOp{})
}

// UpdateEnvInput carries variables to merge into the deployment environment.
type UpdateEnvInput struct {
	UserID       string
	DeploymentID string
	EnvVars      map[string]string
}

// UpdateEnv validates and queues an environment update. New values win on
// collision; unmentioned keys are preserved.
func (u *UseCase) UpdateEnv(ctx context.Context, in *UpdateEnvInput) error {
	if len(in.EnvVars) == 0 {
		return &model.ValidationError{Field: "env_vars", Reason: "no variables given"}
	}
	if err := model.ValidateEnvVars(in.EnvVars); err != nil {
		return err
	}
	d, err := u.load(ctx, in.UserID, in.DeploymentID)
	if err != nil {
		return err
	}
	return u.enqueue(d.ID, model.UpdateEnvOp{EnvVars: in.EnvVars})
}

// Delete queues removal of the deployment and all its cluster resources.
func (u *UseCase) Delete(ctx context.Context, userID, deploymentID string) error {
	d, err := u.load(ctx, userID, deploymentID)
	if err != nil {
		return err
	}
	return u.enqueue(d.ID, model.DeleteOp{})
}

// Get returns a single deployment owned by the user.
func (u *UseCase) Get(ctx context.Context, userID, deploymentID string) (*model.Deployment, error) {
	return u.load(ctx, userID, deploymentID)
}

// List returns the user's deployments in creation order.
func (u *UseCase) List(ctx context.Context, userID string) ([]*model.Deployment, error) {
	return u.Repos.Deployment.List(ctx, userID)
}
