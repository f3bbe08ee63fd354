package deployment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/logging"
)

// CreateInput contains the desired runtime shape of a new deployment.
type CreateInput struct {
	UserID      string                      `json:"user_id" validate:"required"`
	AppName     string                      `json:"app_name" validate:"required,min=1,max=63"`
	Image       string                      `json:"image" validate:"required"`
	Port        int32                       `json:"port" validate:"required,min=1,max=65535"`
	EnvVars     map[string]string           `json:"env_vars"`
	Replicas    int32                       `json:"replicas" validate:"min=0,max=100"`
	Resources   *model.ResourceRequirements `json:"resources"`
	HealthCheck *model.HealthCheck          `json:"health_check"`
}

// CreateOutput contains the persisted deployment, already queued for rollout.
type CreateOutput struct {
	Deployment *model.Deployment `json:"deployment"`
}

// Create validates input, persists the deployment record in pending state,
// and enqueues the deploy job. When the queue is saturated the record is
// removed again so the operation never half-happened.
func (u *UseCase) Create(ctx context.Context, in *CreateInput) (*CreateOutput, error) {
	if in == nil {
		return nil, &model.ValidationError{Field: "input", Reason: "input is nil"}
	}
	if err := u.validate.Struct(in); err != nil {
		return nil, &model.ValidationError{Field: "input", Reason: err.Error()}
	}
	if err := model.ValidateEnvVars(in.EnvVars); err != nil {
		return nil, err
	}
	if _, err := u.Repos.Deployment.GetByName(ctx, in.UserID, in.AppName); err == nil {
		return nil, model.ErrAppNameConflict
	} else if !errors.Is(err, model.ErrDeploymentNotFound) {
		return nil, fmt.Errorf("check app name: %w", err)
	}

	replicas := in.Replicas
	if replicas <= 0 {
		replicas = 1
	}
	now := time.Now().UTC()
	d := &model.Deployment{
		UserID:      in.UserID,
		AppName:     in.AppName,
		Image:       in.Image,
		Port:        in.Port,
		EnvVars:     in.EnvVars,
		Replicas:    replicas,
		Resources:   in.Resources,
		HealthCheck: in.HealthCheck,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.Repos.Deployment.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("persist deployment: %w", err)
	}

	job := model.Job{
		DeploymentID: d.ID,
		Operation: model.DeployOp{
			Image:       d.Image,
			Port:        d.Port,
			EnvVars:     d.EnvVars,
			Replicas:    d.Replicas,
			Resources:   d.Resources,
			HealthCheck: d.HealthCheck,
		},
		EnqueuedAt: now,
	}
	if err := u.Queue.Enqueue(job); err != nil {
		// The operation never started: take the record back out.
		if derr := u.Repos.Deployment.Delete(ctx, d.ID); derr != nil {
			logging.FromContext(ctx).Error(ctx, "compensating delete after enqueue failure", "deploymentID", d.ID, "error", derr)
		}
		return nil, err
	}
	return &CreateOutput{Deployment: d}, nil
}
