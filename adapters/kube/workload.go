package kube

import (
	"context"
	"fmt"
	"sort"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/naming"
)

// WorkloadSpec carries everything needed to render the Deployment object for
// one tenant application.
type WorkloadSpec struct {
	DeploymentID string
	UserID       string
	AppName      string
	Image        string
	Port         int32
	EnvVars      map[string]string
	Replicas     int32
	Resources    *model.ResourceRequirements
	HealthCheck  *model.HealthCheck
}

// buildDeployment renders the appsv1.Deployment for a workload spec.
func buildDeployment(spec *WorkloadSpec) (*appsv1.Deployment, error) {
	app := naming.SanitizeAppName(spec.AppName)
	labels := managedLabels(app, spec.DeploymentID)

	container := corev1.Container{
		Name:  "app",
		Image: spec.Image,
		Ports: []corev1.ContainerPort{{ContainerPort: spec.Port, Protocol: corev1.ProtocolTCP}},
		Env:   envVarList(spec.EnvVars),
	}

	if spec.Resources != nil {
		reqs := corev1.ResourceList{}
		if spec.Resources.CPU != "" {
			q, err := resource.ParseQuantity(spec.Resources.CPU)
			if err != nil {
				return nil, fmt.Errorf("parse cpu quantity %q: %w", spec.Resources.CPU, err)
			}
			reqs[corev1.ResourceCPU] = q
		}
		if spec.Resources.Memory != "" {
			q, err := resource.ParseQuantity(spec.Resources.Memory)
			if err != nil {
				return nil, fmt.Errorf("parse memory quantity %q: %w", spec.Resources.Memory, err)
			}
			reqs[corev1.ResourceMemory] = q
		}
		if len(reqs) > 0 {
			container.Resources = corev1.ResourceRequirements{Requests: reqs, Limits: reqs}
		}
	}

	if hc := spec.HealthCheck; hc != nil && hc.Path != "" {
		probe := &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{Path: hc.Path, Port: intstr.FromInt32(spec.Port)},
			},
			InitialDelaySeconds: hc.InitialDelaySeconds,
			PeriodSeconds:       hc.PeriodSeconds,
		}
		container.ReadinessProbe = probe
		container.LivenessProbe = probe.DeepCopy()
	}

	replicas := spec.Replicas
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:   naming.DeploymentName(spec.DeploymentID),
			Labels: labels,
			Annotations: map[string]string{
				AnnotationAppName: spec.AppName,
				AnnotationUserID:  spec.UserID,
			},
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{LabelApp: app}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec:       corev1.PodSpec{Containers: []corev1.Container{container}},
			},
		},
	}, nil
}

// envVarList converts an environment map into a sorted EnvVar slice so the
// rendered pod spec is stable across reconciles.
func envVarList(env map[string]string) []corev1.EnvVar {
	if len(env) == 0 {
		return nil
	}
	names := make([]string, 0, len(env))
	for k := range env {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]corev1.EnvVar, 0, len(names))
	for _, k := range names {
		out = append(out, corev1.EnvVar{Name: k, Value: env[k]})
	}
	return out
}

// CreateWorkload creates the Deployment object for a workload (idempotent).
func (c *Client) CreateWorkload(ctx context.Context, namespace string, spec *WorkloadSpec) error {
	if err := c.check(); err != nil {
		return err
	}
	dep, err := buildDeployment(spec)
	if err != nil {
		return err
	}
	_, err = c.Clientset.AppsV1().Deployments(namespace).Create(ctx, dep, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("create deployment %s/%s: %w", namespace, dep.Name, err)
	}
	return nil
}

// ScaleWorkload sets the replica count with a read-modify-write on the
// Deployment object. The cluster object is the source of truth for everything
// except the replica field being written.
func (c *Client) ScaleWorkload(ctx context.Context, namespace, name string, replicas int32) error {
	if err := c.check(); err != nil {
		return err
	}
	dep, err := c.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
	}
	dep.Spec.Replicas = &replicas
	_, err = c.Clientset.AppsV1().Deployments(namespace).Update(ctx, dep, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("update deployment %s/%s replicas: %w", namespace, name, err)
	}
	return nil
}

// RestartWorkload triggers a rolling restart by stamping the pod template with
// a restart annotation, the same mechanism kubectl rollout restart uses.
func (c *Client) RestartWorkload(ctx context.Context, namespace, name string) error {
	if err := c.check(); err != nil {
		return err
	}
	dep, err := c.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
	}
	if dep.Spec.Template.Annotations == nil {
		dep.Spec.Template.Annotations = map[string]string{}
	}
	dep.Spec.Template.Annotations[AnnotationRestartAt] = time.Now().UTC().Format(time.RFC3339)
	_, err = c.Clientset.AppsV1().Deployments(namespace).Update(ctx, dep, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("restart deployment %s/%s: %w", namespace, name, err)
	}
	return nil
}

// UpdateWorkloadEnv merges env into the first container's environment (new
// values win) and returns the pre-update environment for rollback.
func (c *Client) UpdateWorkloadEnv(ctx context.Context, namespace, name string, env map[string]string) ([]corev1.EnvVar, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	dep, err := c.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
	}
	if len(dep.Spec.Template.Spec.Containers) == 0 {
		return nil, fmt.Errorf("deployment %s/%s has no containers", namespace, name)
	}
	container := &dep.Spec.Template.Spec.Containers[0]
	snapshot := append([]corev1.EnvVar(nil), container.Env...)

	merged := make(map[string]string, len(snapshot)+len(env))
	for _, ev := range snapshot {
		merged[ev.Name] = ev.Value
	}
	for k, v := range env {
		merged[k] = v
	}
	container.Env = envVarList(merged)

	_, err = c.Clientset.AppsV1().Deployments(namespace).Update(ctx, dep, metav1.UpdateOptions{})
	if err != nil {
		return nil, fmt.Errorf("update deployment %s/%s env: %w", namespace, name, err)
	}
	return snapshot, nil
}

// RestoreWorkloadEnv replaces the first container's environment with a
// previously captured snapshot.
func (c *Client) RestoreWorkloadEnv(ctx context.Context, namespace, name string, snapshot []corev1.EnvVar) error {
	if err := c.check(); err != nil {
		return err
	}
	dep, err := c.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
	}
	if len(dep.Spec.Template.Spec.Containers) == 0 {
		return fmt.Errorf("deployment %s/%s has no containers", namespace, name)
	}
	dep.Spec.Template.Spec.Containers[0].Env = append([]corev1.EnvVar(nil), snapshot...)
	_, err = c.Clientset.AppsV1().Deployments(namespace).Update(ctx, dep, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("restore deployment %s/%s env: %w", namespace, name, err)
	}
	return nil
}

// GetWorkload returns the Deployment object for a deployment ID.
func (c *Client) GetWorkload(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	dep, err := c.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
	}
	return dep, nil
}
