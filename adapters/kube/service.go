package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/container-engine/container-engine/internal/naming"
)

// CreateService exposes a workload inside the cluster on port 80, targeting
// the container port (idempotent).
func (c *Client) CreateService(ctx context.Context, namespace string, spec *WorkloadSpec) error {
	if err := c.check(); err != nil {
		return err
	}
	app := naming.SanitizeAppName(spec.AppName)
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:   naming.ServiceName(spec.DeploymentID),
			Labels: managedLabels(app, spec.DeploymentID),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: map[string]string{LabelApp: app},
			Ports: []corev1.ServicePort{{
				Name:       "http",
				Port:       80,
				TargetPort: intstr.FromInt32(spec.Port),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}
	_, err := c.Clientset.CoreV1().Services(namespace).Create(ctx, svc, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("create service %s/%s: %w", namespace, svc.Name, err)
	}
	return nil
}
