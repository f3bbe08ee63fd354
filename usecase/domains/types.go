package domains

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/internal/certs"
	"github.com/container-engine/container-engine/internal/dnsverify"
)

// Repos holds repositories needed for custom domain use cases.
type Repos struct {
	Domain      domain.DomainRepository
	Certificate domain.CertificateRepository
	Deployment  domain.DeploymentRepository
}

// ClusterPort is the cluster surface the provisioner needs: TLS secret and
// custom-domain ingress management. *kube.Client satisfies it.
type ClusterPort interface {
	CreateTLSSecret(ctx context.Context, namespace, name string, certPEM, keyPEM []byte) error
	DeleteTLSSecret(ctx context.Context, namespace, name string) error
	CreateCustomDomainIngress(ctx context.Context, namespace, deploymentID, appName, host, tlsSecretName string) error
	DeleteCustomDomainIngress(ctx context.Context, namespace, deploymentID string) error
}

// UseCase wires repositories, DNS verification, certificate issuance, and
// cluster access for custom domain provisioning.
type UseCase struct {
	Repos    *Repos
	Verifier *dnsverify.Verifier
	Issuer   *certs.Issuer
	Cluster  ClusterPort
	// ClusterTarget is the address users point their DNS records at.
	ClusterTarget string
	// Dispatcher, when set, receives domain and certificate webhook events.
	Dispatcher domain.WebhookDispatcher

	renewal *cron.Cron
}

func NewUseCase(repos *Repos, verifier *dnsverify.Verifier, issuer *certs.Issuer, cluster ClusterPort, clusterTarget string) *UseCase {
	return &UseCase{
		Repos:         repos,
		Verifier:      verifier,
		Issuer:        issuer,
		Cluster:       cluster,
		ClusterTarget: clusterTarget,
	}
}
