package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// CreateTLSSecret stores certificate material as a kubernetes.io/tls secret.
// An existing secret with the same name is replaced so renewals take effect.
func (c *Client) CreateTLSSecret(ctx context.Context, namespace, name string, certPEM, keyPEM []byte) error {
	if err := c.check(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("secret name is empty")
	}
	sec := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{LabelManagedBy: ManagedByValue},
		},
		Type: corev1.SecretTypeTLS,
		Data: map[string][]byte{
			corev1.TLSCertKey:       certPEM,
			corev1.TLSPrivateKeyKey: keyPEM,
		},
	}
	_, err := c.Clientset.CoreV1().Secrets(namespace).Create(ctx, sec, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			if _, uerr := c.Clientset.CoreV1().Secrets(namespace).Update(ctx, sec, metav1.UpdateOptions{}); uerr != nil {
				return fmt.Errorf("update tls secret %s/%s: %w", namespace, name, uerr)
			}
			return nil
		}
		return fmt.Errorf("create tls secret %s/%s: %w", namespace, name, err)
	}
	return nil
}

// DeleteTLSSecret removes a TLS secret. A missing secret is not an error so
// removal stays idempotent.
func (c *Client) DeleteTLSSecret(ctx context.Context, namespace, name string) error {
	if err := c.check(); err != nil {
		return err
	}
	err := c.Clientset.CoreV1().Secrets(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete tls secret %s/%s: %w", namespace, name, err)
	}
	return nil
}
