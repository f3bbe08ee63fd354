package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDeploymentNotFound  = errors.New("deployment not found")
	ErrDomainNotFound      = errors.New("domain not found")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrWebhookNotFound     = errors.New("webhook not found")
	ErrAppNameConflict     = errors.New("app name already in use")
	ErrDomainConflict      = errors.New("domain already registered")
	ErrQueueSaturated      = errors.New("job queue is full")
)

// ValidationError rejects malformed input before any work is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ClusterOperationError wraps a failure talking to the Kubernetes API,
// recording which resource operation failed.
type ClusterOperationError struct {
	Op  string
	Err error
}

func (e *ClusterOperationError) Error() string {
	return fmt.Sprintf("cluster operation %s: %v", e.Op, e.Err)
}

func (e *ClusterOperationError) Unwrap() error { return e.Err }

// VerificationTimeoutError reports that a rollout or propagation check did
// not converge within its budget.
type VerificationTimeoutError struct {
	Subject string
	Detail  string
}

func (e *VerificationTimeoutError) Error() string {
	return fmt.Sprintf("verification timed out for %s: %s", e.Subject, e.Detail)
}

// PartialFailureError reports an operation that succeeded against one system
// but failed against another, leaving state for the operator to reconcile.
type PartialFailureError struct {
	Completed []string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure after %s: %v", strings.Join(e.Completed, ", "), e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
