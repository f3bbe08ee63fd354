package kube

import (
	"context"
	"time"

	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/logging"
	"github.com/container-engine/container-engine/internal/naming"
)

// settleDelay is how long to wait after resource creation before the first
// ingress URL readback.
const settleDelay = 5 * time.Second

// Orchestrator composes the low-level client calls into whole-deployment
// operations with compensation on partial failure.
type Orchestrator struct {
	Client *Client
	// SettleDelay overrides the post-create settle wait (tests shrink it).
	SettleDelay time.Duration
}

func NewOrchestrator(c *Client) *Orchestrator {
	return &Orchestrator{Client: c, SettleDelay: settleDelay}
}

func workloadSpec(d *model.Deployment) *WorkloadSpec {
	return &WorkloadSpec{
		DeploymentID: d.ID,
		UserID:       d.UserID,
		AppName:      d.AppName,
		Image:        d.Image,
		Port:         d.Port,
		EnvVars:      d.EnvVars,
		Replicas:     d.Replicas,
		Resources:    d.Resources,
		HealthCheck:  d.HealthCheck,
	}
}

// Deploy creates namespace, workload, service, and ingress for a deployment.
// On any failure the namespace is deleted best-effort so no partial resource
// graph is left behind. Returns the external URL of the created ingress.
func (o *Orchestrator) Deploy(ctx context.Context, d *model.Deployment) (string, error) {
	logger := logging.FromContext(ctx)
	spec := workloadSpec(d)
	ns := naming.DeploymentNamespace(d.ID)
	app := naming.SanitizeAppName(d.AppName)

	if err := o.Client.CreateNamespace(ctx, ns, managedLabels(app, d.ID)); err != nil {
		return "", &model.ClusterOperationError{Op: "create namespace", Err: err}
	}
	if err := o.Client.CreateWorkload(ctx, ns, spec); err != nil {
		o.compensate(ctx, ns)
		return "", &model.ClusterOperationError{Op: "create deployment", Err: err}
	}
	if err := o.Client.CreateService(ctx, ns, spec); err != nil {
		o.compensate(ctx, ns)
		return "", &model.ClusterOperationError{Op: "create service", Err: err}
	}
	ingressClass := o.Client.IngressClass(ctx)
	clusterDomain := o.Client.ClusterDomain(ctx)
	url, err := o.Client.CreateIngress(ctx, ns, spec, ingressClass, clusterDomain)
	if err != nil {
		o.compensate(ctx, ns)
		return "", &model.ClusterOperationError{Op: "create ingress", Err: err}
	}
	logger.Info(ctx, "deployment resources created", "deploymentID", d.ID, "namespace", ns, "url", url)
	return url, nil
}

// compensate deletes the namespace after a failed deploy. Failures here are
// logged only; the original error is what the caller reports.
func (o *Orchestrator) compensate(ctx context.Context, ns string) {
	if err := o.Client.DeleteNamespace(ctx, ns); err != nil {
		logging.FromContext(ctx).Error(ctx, "cleanup after failed deploy", "namespace", ns, "error", err)
	}
}

// AwaitURL waits the settle delay, then reads the ingress URL back once.
// An empty URL is not an error; the caller decides how to report it.
func (o *Orchestrator) AwaitURL(ctx context.Context, deploymentID string) (string, error) {
	delay := o.SettleDelay
	if delay <= 0 {
		delay = settleDelay
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(delay):
	}
	ns := naming.DeploymentNamespace(deploymentID)
	url, err := o.Client.IngressURL(ctx, ns, deploymentID)
	if err != nil {
		return "", &model.ClusterOperationError{Op: "read ingress url", Err: err}
	}
	return url, nil
}

// Scale sets the replica count of the deployment's workload.
func (o *Orchestrator) Scale(ctx context.Context, deploymentID string, replicas int32) error {
	ns := naming.DeploymentNamespace(deploymentID)
	if err := o.Client.ScaleWorkload(ctx, ns, naming.DeploymentName(deploymentID), replicas); err != nil {
		return &model.ClusterOperationError{Op: "scale deployment", Err: err}
	}
	return nil
}

// Restart triggers a rolling restart of the deployment's workload.
func (o *Orchestrator) Restart(ctx context.Context, deploymentID string) error {
	ns := naming.DeploymentNamespace(deploymentID)
	if err := o.Client.RestartWorkload(ctx, ns, naming.DeploymentName(deploymentID)); err != nil {
		return &model.ClusterOperationError{Op: "restart deployment", Err: err}
	}
	return nil
}

// UpdateEnv merges env into the workload, verifies the rollout, and rolls the
// environment back when verification fails. The returned error is the
// verification failure; rollback failures are logged.
func (o *Orchestrator) UpdateEnv(ctx context.Context, deploymentID string, env map[string]string) error {
	logger := logging.FromContext(ctx)
	ns := naming.DeploymentNamespace(deploymentID)
	name := naming.DeploymentName(deploymentID)

	snapshot, err := o.Client.UpdateWorkloadEnv(ctx, ns, name, env)
	if err != nil {
		return &model.ClusterOperationError{Op: "update env", Err: err}
	}
	if err := o.Client.VerifyRollout(ctx, ns, name, deploymentID); err != nil {
		logger.Warn(ctx, "env update rollout failed, rolling back", "deploymentID", deploymentID, "error", err)
		if rerr := o.Client.RestoreWorkloadEnv(ctx, ns, name, snapshot); rerr != nil {
			logger.Error(ctx, "env rollback failed", "deploymentID", deploymentID, "error", rerr)
		}
		return err
	}
	return nil
}

// Pods lists the live pods backing the deployment.
func (o *Orchestrator) Pods(ctx context.Context, deploymentID string) ([]model.PodInfo, error) {
	ns := naming.DeploymentNamespace(deploymentID)
	pods, err := o.Client.ListPods(ctx, ns, deploymentID)
	if err != nil {
		return nil, &model.ClusterOperationError{Op: "list pods", Err: err}
	}
	return pods, nil
}

// Teardown deletes the deployment's namespace and everything in it.
func (o *Orchestrator) Teardown(ctx context.Context, deploymentID string) error {
	ns := naming.DeploymentNamespace(deploymentID)
	if err := o.Client.DeleteNamespace(ctx, ns); err != nil {
		return &model.ClusterOperationError{Op: "delete namespace", Err: err}
	}
	return nil
}
