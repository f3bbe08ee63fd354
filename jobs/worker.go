package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/logging"
)

// msgURLNotReady is stored on a deployment that came up before its ingress
// published an address.
const msgURLNotReady = "Deployment successful but ingress URL not ready yet"

// Cluster is the orchestration surface the worker drives. kube.Orchestrator
// implements it; tests substitute a fake.
type Cluster interface {
	Deploy(ctx context.Context, d *model.Deployment) (string, error)
	AwaitURL(ctx context.Context, deploymentID string) (string, error)
	Scale(ctx context.Context, deploymentID string, replicas int32) error
	Restart(ctx context.Context, deploymentID string) error
	UpdateEnv(ctx context.Context, deploymentID string, env map[string]string) error
	Teardown(ctx context.Context, deploymentID string) error
	Pods(ctx context.Context, deploymentID string) ([]model.PodInfo, error)
}

// Repos bundles the record stores the worker touches. Deployments is
// required; Domains and Certificates let a deployment delete also remove the
// domain and certificate records attached to it.
type Repos struct {
	Deployments  domain.DeploymentRepository
	Domains      domain.DomainRepository
	Certificates domain.CertificateRepository
}

// Worker is the single consumer of the job queue. It owns every status
// transition out of a transitional state: one job is processed at a time, so
// a deployment is never mutated concurrently.
type Worker struct {
	queue        *Queue
	deployments  domain.DeploymentRepository
	domains      domain.DomainRepository
	certificates domain.CertificateRepository
	cluster      Cluster
	notifier     domain.Notifier
	dispatcher   domain.WebhookDispatcher
}

func NewWorker(queue *Queue, repos *Repos, cluster Cluster, notifier domain.Notifier, dispatcher domain.WebhookDispatcher) *Worker {
	return &Worker{
		queue:        queue,
		deployments:  repos.Deployments,
		domains:      repos.Domains,
		certificates: repos.Certificates,
		cluster:      cluster,
		notifier:     notifier,
		dispatcher:   dispatcher,
	}
}

// Run consumes jobs until the queue closes or ctx is cancelled. Jobs still
// queued at cancellation are dropped; their deployments keep the status the
// producer recorded.
func (w *Worker) Run(ctx context.Context) {
	logger := logging.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "deployment worker stopping", "queued", w.queue.Len())
			return
		case job, ok := <-w.queue.Jobs():
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job model.Job) {
	logger := logging.FromContext(ctx).With("deploymentID", job.DeploymentID, "operation", job.Operation.Kind())
	ctx = logging.WithLogger(ctx, logger)

	d, err := w.deployments.Get(ctx, job.DeploymentID)
	if err != nil {
		if errors.Is(err, model.ErrDeploymentNotFound) {
			logger.Warn(ctx, "skipping job for missing deployment")
			return
		}
		logger.Error(ctx, "load deployment", "error", err)
		return
	}

	logger.Info(ctx, "processing job")
	switch op := job.Operation.(type) {
	case model.DeployOp:
		w.handleDeploy(ctx, d)
	case model.ScaleOp:
		w.handleScale(ctx, d, op.TargetReplicas)
	case model.StartOp:
		w.handleStart(ctx, d)
	case model.StopOp:
		w.handleStop(ctx, d)
	case model.RestartOp:
		w.handleRestart(ctx, d)
	case model.UpdateEnvOp:
		w.handleUpdateEnv(ctx, d, op.EnvVars)
	case model.DeleteOp:
		w.handleDelete(ctx, d)
	default:
		logger.Error(ctx, "unknown operation", "kind", job.Operation.Kind())
	}
}

func (w *Worker) handleDeploy(ctx context.Context, d *model.Deployment) {
	if !w.transition(ctx, d, model.StatusDeploying) {
		return
	}
	if _, err := w.cluster.Deploy(ctx, d); err != nil {
		w.fail(ctx, d, err)
		return
	}
	url, err := w.cluster.AwaitURL(ctx, d.ID)
	if err != nil {
		logging.FromContext(ctx).Warn(ctx, "ingress url readback failed", "error", err)
		url = ""
	}
	if url == "" {
		w.succeed(ctx, d, model.StatusRunning, "", msgURLNotReady)
		return
	}
	w.succeed(ctx, d, model.StatusRunning, url, "")
}

func (w *Worker) handleScale(ctx context.Context, d *model.Deployment, target int32) {
	if !w.transition(ctx, d, model.StatusScaling) {
		return
	}
	if err := w.cluster.Scale(ctx, d.ID, target); err != nil {
		// Persisted replica count stays at the last successful value.
		w.fail(ctx, d, err)
		return
	}
	w.persistReplicas(ctx, d, target)
	w.succeed(ctx, d, model.StatusRunning, d.URL, "")
}

func (w *Worker) handleStart(ctx context.Context, d *model.Deployment) {
	if !w.transition(ctx, d, model.StatusStarting) {
		return
	}
	// A stopped deployment resumes at the count it was stopped with; a
	// deployment that never ran with replicas comes up with one.
	target := d.Replicas
	if target < 1 {
		target = d.LastReplicas
	}
	if target < 1 {
		target = 1
	}
	if err := w.cluster.Scale(ctx, d.ID, target); err != nil {
		w.fail(ctx, d, err)
		return
	}
	w.persistReplicas(ctx, d, target)
	w.succeed(ctx, d, model.StatusRunning, d.URL, "")
}

func (w *Worker) handleStop(ctx context.Context, d *model.Deployment) {
	if !w.transition(ctx, d, model.StatusStopping) {
		return
	}
	if err := w.cluster.Scale(ctx, d.ID, 0); err != nil {
		w.fail(ctx, d, err)
		return
	}
	if d.Replicas > 0 {
		d.LastReplicas = d.Replicas
	}
	d.Replicas = 0
	if err := w.deployments.Update(ctx, d); err != nil {
		logging.FromContext(ctx).Error(ctx, "persist stop", "error", err)
	}
	w.succeed(ctx, d, model.StatusStopped, d.URL, "")
}

func (w *Worker) handleRestart(ctx context.Context, d *model.Deployment) {
	if !w.transition(ctx, d, model.StatusRestarting) {
		return
	}
	if err := w.cluster.Restart(ctx, d.ID); err != nil {
		w.fail(ctx, d, err)
		return
	}
	w.succeed(ctx, d, model.StatusRunning, d.URL, "")
}

func (w *Worker) handleUpdateEnv(ctx context.Context, d *model.Deployment, env map[string]string) {
	if !w.transition(ctx, d, model.StatusUpdating) {
		return
	}
	if err := w.cluster.UpdateEnv(ctx, d.ID, env); err != nil {
		// The cluster side has already rolled back; the stored env is the
		// pre-update one, so nothing to undo here.
		w.fail(ctx, d, err)
		return
	}
	if d.EnvVars == nil {
		d.EnvVars = make(map[string]string, len(env))
	}
	for k, v := range env {
		d.EnvVars[k] = v
	}
	if err := w.deployments.Update(ctx, d); err != nil {
		logging.FromContext(ctx).Error(ctx, "persist merged env", "error", err)
	}
	w.succeed(ctx, d, model.StatusRunning, d.URL, "")
}

func (w *Worker) handleDelete(ctx context.Context, d *model.Deployment) {
	logger := logging.FromContext(ctx)
	if !w.transition(ctx, d, model.StatusDeleting) {
		return
	}
	teardownErr := w.cluster.Teardown(ctx, d.ID)
	if teardownErr != nil {
		// The record is removed regardless so the user is never stuck with an
		// undeletable deployment; leftover cluster resources are reported.
		logger.Warn(ctx, "cluster teardown failed, removing record anyway", "error",
			&model.PartialFailureError{Completed: []string{"record delete scheduled"}, Err: teardownErr})
	}
	if err := w.deployments.Delete(ctx, d.ID); err != nil && !errors.Is(err, model.ErrDeploymentNotFound) {
		logger.Error(ctx, "delete deployment record", "error", err)
		return
	}
	w.cascadeDomainRecords(ctx, d.ID)
	w.emit(ctx, d, model.EventDeploymentStatus, model.StatusDeleting, "", "")
}

// cascadeDomainRecords removes the domain registrations and certificates of a
// deleted deployment so no orphaned records survive it. Failures are logged;
// the deployment record itself is already gone.
func (w *Worker) cascadeDomainRecords(ctx context.Context, deploymentID string) {
	if w.domains == nil {
		return
	}
	logger := logging.FromContext(ctx)
	regs, err := w.domains.ListByDeployment(ctx, deploymentID)
	if err != nil {
		logger.Error(ctx, "list domain records for cleanup", "error", err)
		return
	}
	for _, reg := range regs {
		if w.certificates != nil {
			if cert, err := w.certificates.GetByDomain(ctx, reg.Domain); err == nil {
				if err := w.certificates.Delete(ctx, cert.ID); err != nil {
					logger.Warn(ctx, "delete certificate record", "domain", reg.Domain, "error", err)
				}
			} else if !errors.Is(err, model.ErrCertificateNotFound) {
				logger.Warn(ctx, "look up certificate for cleanup", "domain", reg.Domain, "error", err)
			}
		}
		if err := w.domains.Delete(ctx, reg.ID); err != nil {
			logger.Warn(ctx, "delete domain record", "domain", reg.Domain, "error", err)
		}
	}
}

func (w *Worker) persistReplicas(ctx context.Context, d *model.Deployment, replicas int32) {
	if err := w.deployments.UpdateReplicas(ctx, d.ID, replicas); err != nil {
		logging.FromContext(ctx).Error(ctx, "persist replica count", "replicas", replicas, "error", err)
		return
	}
	d.Replicas = replicas
}

// transition records a transitional status before work starts. Returning
// false aborts the job (the record vanished underneath us).
func (w *Worker) transition(ctx context.Context, d *model.Deployment, status model.Status) bool {
	if err := w.deployments.UpdateStatus(ctx, d.ID, status, d.URL, ""); err != nil {
		logging.FromContext(ctx).Error(ctx, "record transitional status", "status", status, "error", err)
		return false
	}
	d.Status = status
	w.emit(ctx, d, model.EventDeploymentStatus, status, d.URL, "")
	return true
}

func (w *Worker) succeed(ctx context.Context, d *model.Deployment, status model.Status, url, msg string) {
	if err := w.deployments.UpdateStatus(ctx, d.ID, status, url, msg); err != nil {
		logging.FromContext(ctx).Error(ctx, "record final status", "status", status, "error", err)
		return
	}
	d.Status = status
	d.URL = url
	d.ErrorMsg = msg
	w.emit(ctx, d, model.EventDeploymentStatus, status, url, msg)
}

func (w *Worker) fail(ctx context.Context, d *model.Deployment, opErr error) {
	logging.FromContext(ctx).Error(ctx, "job failed", "error", opErr)
	if err := w.deployments.UpdateStatus(ctx, d.ID, model.StatusFailed, d.URL, opErr.Error()); err != nil {
		logging.FromContext(ctx).Error(ctx, "record failure status", "error", err)
	}
	d.Status = model.StatusFailed
	d.ErrorMsg = opErr.Error()
	w.emit(ctx, d, model.EventDeploymentFailed, model.StatusFailed, d.URL, opErr.Error())
}

func (w *Worker) emit(ctx context.Context, d *model.Deployment, eventType string, status model.Status, url, msg string) {
	ev := model.Event{
		DeploymentID: d.ID,
		UserID:       d.UserID,
		Type:         eventType,
		Status:       status,
		AppName:      d.AppName,
		URL:          url,
		ErrorMsg:     msg,
		Timestamp:    time.Now(),
	}
	// Pod list is best-effort context for webhook consumers.
	if w.cluster != nil && eventType != model.EventDeploymentFailed {
		if pods, err := w.cluster.Pods(ctx, d.ID); err == nil {
			ev.Pods = pods
		}
	}
	if w.notifier != nil {
		w.notifier.Publish(ctx, ev)
	}
	if w.dispatcher != nil {
		w.dispatcher.Dispatch(ctx, ev)
	}
}
