package deployment

import (
	"context"
	"time"

	"github.com/container-engine/container-engine/adapters/kube"
	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/naming"
)

// snapshotTimeout bounds a one-shot log fetch so a slow apiserver cannot pin
// the request.
const snapshotTimeout = 30 * time.Second

// LogsInput selects a log snapshot for a deployment.
type LogsInput struct {
	UserID       string
	DeploymentID string
	// PodName narrows the snapshot to one pod. Empty merges all pods.
	PodName string
	// TailLines bounds each pod's tail. nil fetches everything available.
	TailLines *int64
	// Previous selects the prior container instance's logs.
	Previous bool
}

// LogsOutput carries merged log lines, each prefixed with its pod name.
type LogsOutput struct {
	Lines []string `json:"lines"`
}

// GetLogs returns a one-shot log snapshot: merged across the deployment's
// pods, or from a single named pod when PodName is set.
func (u *UseCase) GetLogs(ctx context.Context, in *LogsInput) (*LogsOutput, error) {
	d, err := u.load(ctx, in.UserID, in.DeploymentID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	ns := naming.DeploymentNamespace(d.ID)
	opts := kube.LogOptions{TailLines: in.TailLines, Previous: in.Previous}
	var lines []string
	if in.PodName != "" {
		lines, err = u.Logs.PodLogs(ctx, ns, in.PodName, opts)
	} else {
		lines, err = u.Logs.Logs(ctx, ns, d.ID, opts)
	}
	if err != nil {
		return nil, &model.ClusterOperationError{Op: "fetch logs", Err: err}
	}
	return &LogsOutput{Lines: lines}, nil
}

// FollowLogs opens a live merged log stream. The channel closes when the
// pod streams end or ctx is cancelled.
func (u *UseCase) FollowLogs(ctx context.Context, userID, deploymentID string) (<-chan string, error) {
	d, err := u.load(ctx, userID, deploymentID)
	if err != nil {
		return nil, err
	}
	ns := naming.DeploymentNamespace(d.ID)
	ch, err := u.Logs.FollowLogs(ctx, ns, d.ID)
	if err != nil {
		return nil, &model.ClusterOperationError{Op: "follow logs", Err: err}
	}
	return ch, nil
}

// FollowPodLogs opens a live log stream for one named pod of the deployment.
func (u *UseCase) FollowPodLogs(ctx context.Context, userID, deploymentID, podName string) (<-chan string, error) {
	d, err := u.load(ctx, userID, deploymentID)
	if err != nil {
		return nil, err
	}
	ns := naming.DeploymentNamespace(d.ID)
	ch, err := u.Logs.FollowPodLogs(ctx, ns, podName)
	if err != nil {
		return nil, &model.ClusterOperationError{Op: "follow pod logs", Err: err}
	}
	return ch, nil
}

// Pods lists the live pods backing a deployment, Terminating pods excluded.
func (u *UseCase) Pods(ctx context.Context, userID, deploymentID string) ([]model.PodInfo, error) {
	d, err := u.load(ctx, userID, deploymentID)
	if err != nil {
		return nil, err
	}
	ns := naming.DeploymentNamespace(d.ID)
	pods, err := u.Logs.ListPods(ctx, ns, d.ID)
	if err != nil {
		return nil, &model.ClusterOperationError{Op: "list pods", Err: err}
	}
	return pods, nil
}
