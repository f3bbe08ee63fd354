package naming

// Package naming centralizes derivation of Kubernetes resource names and
// external hostnames from opaque deployment identifiers. Every name is a pure
// function of its inputs so repeated lookups for the same deployment resolve
// to the same cluster objects.

import (
	"strings"
	"unicode"
)

// ID prefix lengths used in generated resource names. The namespace keeps a
// longer prefix because it must be unique across all tenants; per-namespace
// object names only need to be unique within the namespace.
const (
	namespaceIDLength = 12
	resourceIDLength  = 8
)

// compactID strips separators from an opaque identifier (typically a UUID)
// and returns the first n characters.
func compactID(id string, n int) string {
	s := strings.ReplaceAll(id, "-", "")
	if n > len(s) {
		n = len(s)
	}
	return strings.ToLower(s[:n])
}

// DeploymentNamespace returns the dedicated namespace for a deployment.
func DeploymentNamespace(deploymentID string) string {
	return "container-engine-deploy-" + compactID(deploymentID, namespaceIDLength)
}

// DeploymentName returns the Deployment object name for a deployment.
func DeploymentName(deploymentID string) string {
	return "app-" + compactID(deploymentID, resourceIDLength)
}

// ServiceName returns the Service object name for a deployment.
func ServiceName(deploymentID string) string {
	return "svc-" + compactID(deploymentID, resourceIDLength)
}

// IngressName returns the primary Ingress object name for a deployment.
func IngressName(deploymentID string) string {
	return "ing-" + compactID(deploymentID, resourceIDLength)
}

// CustomIngressName returns the custom-domain Ingress object name for a deployment.
func CustomIngressName(deploymentID string) string {
	return "custom-" + IngressName(deploymentID)
}

// TLSSecretName returns the TLS Secret name holding certificate material for
// a custom domain attached to a deployment.
func TLSSecretName(deploymentID, domain string) string {
	return "tls-" + compactID(deploymentID, resourceIDLength) + "-" + SanitizeAppName(domain)
}

// SanitizeAppName lowercases an application name and replaces every character
// that is not valid in a DNS label or hostname segment with a hyphen.
func SanitizeAppName(appName string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(strings.ReplaceAll(appName, " ", "-")) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '-' || c == '.' {
			b.WriteRune(c)
		} else {
			b.WriteRune('-')
		}
	}
	return b.String()
}

// Hostname synthesizes the externally reachable hostname for a deployment:
// <sanitized app name>-<short id>.<cluster domain>.
func Hostname(appName, deploymentID, clusterDomain string) string {
	return SanitizeAppName(appName) + "-" + compactID(deploymentID, resourceIDLength) + "." + clusterDomain
}
