package kube

import (
	"context"
	"errors"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/retry"
)

const (
	rolloutPollInterval = 2 * time.Second
	rolloutTimeout      = 60 * time.Second
	// Crash inspection is deferred so pods get a chance to pull images and
	// pass their first restarts before being declared broken.
	rolloutCrashCheckAfter = 30 * time.Second
)

// VerifyRollout waits for a deployment rollout to converge. It succeeds when
// the observed generation is current, every replica is updated and ready, and
// none are unavailable. It fails early when the deployment reports
// ProgressDeadlineExceeded or ReplicaFailure, or when pods enter crash or
// image-pull backoff after a grace period. Timeout is reported as
// *model.VerificationTimeoutError.
func (c *Client) VerifyRollout(ctx context.Context, namespace, name, deploymentID string) error {
	if err := c.check(); err != nil {
		return err
	}
	start := time.Now()
	var lastState string
	err := retry.Poll(ctx, retry.Config{Interval: rolloutPollInterval, Deadline: rolloutTimeout}, func(ctx context.Context) (bool, error) {
		dep, err := c.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
		}
		if reason := failedCondition(dep); reason != "" {
			return false, fmt.Errorf("rollout of %s/%s failed: %s", namespace, name, reason)
		}
		if time.Since(start) >= rolloutCrashCheckAfter {
			if reason, err := c.crashedPod(ctx, namespace, deploymentID); err == nil && reason != "" {
				return false, fmt.Errorf("rollout of %s/%s failed: %s", namespace, name, reason)
			}
		}
		want := int32(1)
		if dep.Spec.Replicas != nil {
			want = *dep.Spec.Replicas
		}
		st := dep.Status
		lastState = fmt.Sprintf("ready=%d updated=%d unavailable=%d want=%d", st.ReadyReplicas, st.UpdatedReplicas, st.UnavailableReplicas, want)
		done := st.ObservedGeneration >= dep.Generation &&
			st.UpdatedReplicas == want &&
			st.ReadyReplicas == want &&
			st.UnavailableReplicas == 0
		return done, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return &model.VerificationTimeoutError{
			Subject: fmt.Sprintf("deployment %s/%s", namespace, name),
			Detail:  fmt.Sprintf("not converged after %s (%s)", rolloutTimeout, lastState),
		}
	}
	return err
}

func failedCondition(dep *appsv1.Deployment) string {
	for _, cond := range dep.Status.Conditions {
		if cond.Type == appsv1.DeploymentProgressing && cond.Status == corev1.ConditionFalse && cond.Reason == "ProgressDeadlineExceeded" {
			return "progress deadline exceeded: " + cond.Message
		}
		if cond.Type == appsv1.DeploymentReplicaFailure && cond.Status == corev1.ConditionTrue {
			return "replica failure: " + cond.Message
		}
	}
	return ""
}

func (c *Client) crashedPod(ctx context.Context, namespace, deploymentID string) (string, error) {
	list, err := c.Clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: LabelDeploymentID + "=" + deploymentID,
	})
	if err != nil {
		return "", err
	}
	for i := range list.Items {
		if reason := podCrashReason(&list.Items[i]); reason != "" {
			return reason, nil
		}
	}
	return "", nil
}
