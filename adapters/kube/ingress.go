package kube

import (
	"context"
	"fmt"

	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/container-engine/container-engine/internal/naming"
)

func ingressRule(host, serviceName string) networkingv1.IngressRule {
	pathType := networkingv1.PathTypePrefix
	return networkingv1.IngressRule{
		Host: host,
		IngressRuleValue: networkingv1.IngressRuleValue{
			HTTP: &networkingv1.HTTPIngressRuleValue{
				Paths: []networkingv1.HTTPIngressPath{{
					Path:     "/",
					PathType: &pathType,
					Backend: networkingv1.IngressBackend{
						Service: &networkingv1.IngressServiceBackend{
							Name: serviceName,
							Port: networkingv1.ServiceBackendPort{Number: 80},
						},
					},
				}},
			},
		},
	}
}

// CreateIngress creates the primary ingress routing the synthesized hostname
// to the workload service (idempotent). It returns the external URL.
func (c *Client) CreateIngress(ctx context.Context, namespace string, spec *WorkloadSpec, ingressClass, clusterDomain string) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	app := naming.SanitizeAppName(spec.AppName)
	host := naming.Hostname(spec.AppName, spec.DeploymentID, clusterDomain)
	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:   naming.IngressName(spec.DeploymentID),
			Labels: managedLabels(app, spec.DeploymentID),
		},
		Spec: networkingv1.IngressSpec{
			IngressClassName: &ingressClass,
			Rules:            []networkingv1.IngressRule{ingressRule(host, naming.ServiceName(spec.DeploymentID))},
		},
	}
	_, err := c.Clientset.NetworkingV1().Ingresses(namespace).Create(ctx, ing, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return "", fmt.Errorf("create ingress %s/%s: %w", namespace, ing.Name, err)
	}
	return "http://" + host, nil
}

// CreateCustomDomainIngress creates a second ingress for a user-owned
// hostname, optionally terminating TLS with the given secret (idempotent).
func (c *Client) CreateCustomDomainIngress(ctx context.Context, namespace, deploymentID, appName, host, tlsSecretName string) error {
	if err := c.check(); err != nil {
		return err
	}
	app := naming.SanitizeAppName(appName)
	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:   naming.CustomIngressName(deploymentID),
			Labels: managedLabels(app, deploymentID),
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{ingressRule(host, naming.ServiceName(deploymentID))},
		},
	}
	if tlsSecretName != "" {
		ing.Spec.TLS = []networkingv1.IngressTLS{{Hosts: []string{host}, SecretName: tlsSecretName}}
	}
	_, err := c.Clientset.NetworkingV1().Ingresses(namespace).Create(ctx, ing, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			// Replace the rules so repeated provisioning converges.
			cur, gerr := c.Clientset.NetworkingV1().Ingresses(namespace).Get(ctx, ing.Name, metav1.GetOptions{})
			if gerr != nil {
				return fmt.Errorf("get ingress %s/%s: %w", namespace, ing.Name, gerr)
			}
			cur.Spec = ing.Spec
			if _, uerr := c.Clientset.NetworkingV1().Ingresses(namespace).Update(ctx, cur, metav1.UpdateOptions{}); uerr != nil {
				return fmt.Errorf("update ingress %s/%s: %w", namespace, ing.Name, uerr)
			}
			return nil
		}
		return fmt.Errorf("create ingress %s/%s: %w", namespace, ing.Name, err)
	}
	return nil
}

// DeleteCustomDomainIngress removes the custom-domain ingress if present.
func (c *Client) DeleteCustomDomainIngress(ctx context.Context, namespace, deploymentID string) error {
	if err := c.check(); err != nil {
		return err
	}
	name := naming.CustomIngressName(deploymentID)
	err := c.Clientset.NetworkingV1().Ingresses(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete ingress %s/%s: %w", namespace, name, err)
	}
	return nil
}

// IngressURL reads the primary ingress back and returns its external URL, or
// "" when the ingress has no host yet.
func (c *Client) IngressURL(ctx context.Context, namespace, deploymentID string) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	name := naming.IngressName(deploymentID)
	ing, err := c.Clientset.NetworkingV1().Ingresses(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("get ingress %s/%s: %w", namespace, name, err)
	}
	for _, rule := range ing.Spec.Rules {
		if rule.Host != "" {
			return "http://" + rule.Host, nil
		}
	}
	return "", nil
}
