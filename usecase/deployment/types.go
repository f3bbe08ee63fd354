package deployment

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/container-engine/container-engine/adapters/kube"
	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/jobs"
)

// Repos holds repositories needed for deployment use cases.
type Repos struct {
	Deployment domain.DeploymentRepository
}

// LogProvider is the read-only cluster surface used by log and pod queries.
// *kube.Client satisfies it.
type LogProvider interface {
	ListPods(ctx context.Context, namespace, deploymentID string) ([]model.PodInfo, error)
	Logs(ctx context.Context, namespace, deploymentID string, opts kube.LogOptions) ([]string, error)
	PodLogs(ctx context.Context, namespace, podName string, opts kube.LogOptions) ([]string, error)
	FollowLogs(ctx context.Context, namespace, deploymentID string) (<-chan string, error)
	FollowPodLogs(ctx context.Context, namespace, podName string) (<-chan string, error)
}

// UseCase wires repositories, the job queue, and cluster access for
// deployment use cases. Handlers persist desired state and enqueue; the
// worker owns all cluster mutation.
type UseCase struct {
	Repos    *Repos
	Queue    *jobs.Queue
	Logs     LogProvider
	validate *validator.Validate
}

func NewUseCase(repos *Repos, queue *jobs.Queue, logs LogProvider) *UseCase {
	return &UseCase{
		Repos:    repos,
		Queue:    queue,
		Logs:     logs,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}
