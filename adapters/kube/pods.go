package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/container-engine/container-engine/domain/model"
)

// ListPods returns the pods backing a deployment, skipping pods already
// marked for deletion so callers never see Terminating pods.
func (c *Client) ListPods(ctx context.Context, namespace, deploymentID string) ([]model.PodInfo, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	list, err := c.Clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: LabelDeploymentID + "=" + deploymentID,
	})
	if err != nil {
		return nil, fmt.Errorf("list pods in %s: %w", namespace, err)
	}
	out := make([]model.PodInfo, 0, len(list.Items))
	for i := range list.Items {
		pod := &list.Items[i]
		if pod.DeletionTimestamp != nil {
			continue
		}
		out = append(out, podInfo(pod))
	}
	return out, nil
}

func podInfo(pod *corev1.Pod) model.PodInfo {
	info := model.PodInfo{
		Name:  pod.Name,
		Phase: string(pod.Status.Phase),
		Node:  pod.Spec.NodeName,
	}
	if pod.Status.StartTime != nil {
		t := pod.Status.StartTime.Time
		info.StartedAt = &t
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			info.Ready = true
		}
	}
	for _, cs := range pod.Status.ContainerStatuses {
		info.Restarts += cs.RestartCount
	}
	return info
}

// podCrashReason inspects container statuses for terminal image or crash
// states and returns a human-readable reason, or "" when the pod looks healthy.
func podCrashReason(pod *corev1.Pod) string {
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Waiting == nil {
			continue
		}
		switch cs.State.Waiting.Reason {
		case "CrashLoopBackOff", "ImagePullBackOff", "ErrImagePull":
			msg := cs.State.Waiting.Message
			if msg == "" {
				msg = cs.State.Waiting.Reason
			}
			return fmt.Sprintf("pod %s: %s", pod.Name, msg)
		}
	}
	return ""
}
