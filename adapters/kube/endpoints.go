package kube

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/naming"
)

// ingressControllerNamespaces are searched in order for a LoadBalancer
// service fronting the ingress controller.
var ingressControllerNamespaces = []string{"ingress-nginx", "kube-system", "traefik", "haproxy-controller"}

// ListAllPods returns every pod of a deployment including terminating ones,
// reported with phase "Terminating".
func (c *Client) ListAllPods(ctx context.Context, namespace, deploymentID string) ([]model.PodInfo, error) {
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
		info := podInfo(pod)
		if pod.DeletionTimestamp != nil {
			info.Phase = "Terminating"
			info.Ready = false
		}
		out = append(out, info)
	}
	return out, nil
}

// ProjectStatus derives a deployment status from live cluster counters:
// all desired replicas ready means running, a missing workload means failed,
// anything in between means deploying.
func (c *Client) ProjectStatus(ctx context.Context, namespace, deploymentID string) (model.Status, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	dep, err := c.Clientset.AppsV1().Deployments(namespace).Get(ctx, naming.DeploymentName(deploymentID), metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return model.StatusFailed, nil
		}
		return "", fmt.Errorf("get deployment in %s: %w", namespace, err)
	}
	want := int32(1)
	if dep.Spec.Replicas != nil {
		want = *dep.Spec.Replicas
	}
	if want == 0 {
		return model.StatusStopped, nil
	}
	if dep.Status.ReadyReplicas == want && dep.Status.ReadyReplicas > 0 {
		return model.StatusRunning, nil
	}
	return model.StatusDeploying, nil
}

// ServiceExternalIP returns the external address of the deployment's service
// when it is exposed via a LoadBalancer, or "" for ClusterIP services.
func (c *Client) ServiceExternalIP(ctx context.Context, namespace, deploymentID string) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	svc, err := c.Clientset.CoreV1().Services(namespace).Get(ctx, naming.ServiceName(deploymentID), metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("get service in %s: %w", namespace, err)
	}
	return loadBalancerAddress(svc), nil
}

// IngressEndpoint discovers the address users should point DNS records at:
// the ingress controller's LoadBalancer address when one exists, otherwise a
// routable node IP.
func (c *Client) IngressEndpoint(ctx context.Context) string {
	if c == nil || c.Clientset == nil {
		return ""
	}
	for _, ns := range ingressControllerNamespaces {
		list, err := c.Clientset.CoreV1().Services(ns).List(ctx, metav1.ListOptions{})
		if err != nil {
			continue
		}
		for i := range list.Items {
			svc := &list.Items[i]
			if svc.Spec.Type != corev1.ServiceTypeLoadBalancer {
				continue
			}
			if !strings.Contains(svc.Name, "ingress") && !strings.Contains(svc.Name, "traefik") && !strings.Contains(svc.Name, "haproxy") {
				continue
			}
			if addr := loadBalancerAddress(svc); addr != "" {
				return addr
			}
		}
	}
	return c.nodeAddress(ctx)
}

func loadBalancerAddress(svc *corev1.Service) string {
	for _, ing := range svc.Status.LoadBalancer.Ingress {
		if ing.IP != "" {
			return ing.IP
		}
		if ing.Hostname != "" {
			return ing.Hostname
		}
	}
	return ""
}
