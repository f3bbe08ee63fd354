package domains

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/dnsverify"
	"github.com/container-engine/container-engine/internal/logging"
	"github.com/container-engine/container-engine/internal/naming"
)

// AddInput attaches a custom domain to a deployment.
type AddInput struct {
	UserID       string
	DeploymentID string
	Domain       string
	EnableSSL    bool
}

// AddOutput carries the pending registration and the DNS records the user
// must publish before verification can succeed.
type AddOutput struct {
	Domain    *model.CustomDomain        `json:"domain"`
	Challenge *model.ValidationChallenge `json:"challenge"`
	Records   []model.DNSRecord          `json:"records"`
}

// Add validates the domain, persists a pending registration, and returns the
// challenge records. Verification runs separately via Provision so the
// request is never blocked on DNS propagation.
func (u *UseCase) Add(ctx context.Context, in *AddInput) (*AddOutput, error) {
	if err := dnsverify.ValidateDomain(in.Domain); err != nil {
		return nil, err
	}
	d, err := u.Repos.Deployment.Get(ctx, in.DeploymentID)
	if err != nil {
		return nil, err
	}
	if in.UserID != "" && d.UserID != in.UserID {
		return nil, model.ErrDeploymentNotFound
	}
	if existing, err := u.Repos.Domain.GetByDomain(ctx, in.Domain); err == nil && existing != nil {
		return nil, model.ErrDomainConflict
	} else if err != nil && !errors.Is(err, model.ErrDomainNotFound) {
		return nil, fmt.Errorf("check domain registration: %w", err)
	}

	now := time.Now().UTC()
	reg := &model.CustomDomain{
		DeploymentID: in.DeploymentID,
		UserID:       d.UserID,
		Domain:       in.Domain,
		Status:       model.DomainPending,
		SSLEnabled:   in.EnableSSL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.Repos.Domain.Create(ctx, reg); err != nil {
		return nil, err
	}
	ch, err := dnsverify.NewChallenge(in.Domain, now)
	if err != nil {
		return nil, err
	}
	return &AddOutput{
		Domain:    reg,
		Challenge: ch,
		Records:   dnsverify.Records(ch, u.ClusterTarget),
	}, nil
}

// Provision runs the verification workflow for a pending registration: wait
// for the challenge TXT record, issue the certificate, store the TLS secret,
// and bind the custom-domain ingress. Failures are recorded on the
// registration and returned.
func (u *UseCase) Provision(ctx context.Context, domainID string, ch *model.ValidationChallenge) error {
	logger := logging.FromContext(ctx)
	reg, err := u.Repos.Domain.Get(ctx, domainID)
	if err != nil {
		return err
	}
	d, err := u.Repos.Deployment.Get(ctx, reg.DeploymentID)
	if err != nil {
		return u.markFailed(ctx, reg, err)
	}

	reg.Status = model.DomainValidating
	reg.UpdatedAt = time.Now().UTC()
	if err := u.Repos.Domain.Update(ctx, reg); err != nil {
		return err
	}
	if err := u.Verifier.WaitPropagation(ctx, ch); err != nil {
		return u.markFailed(ctx, reg, err)
	}

	ns := naming.DeploymentNamespace(d.ID)
	secretName := ""
	if reg.SSLEnabled {
		cert, err := u.Issuer.Issue(reg.ID, reg.Domain)
		if err != nil {
			return u.markFailed(ctx, reg, err)
		}
		if err := u.Repos.Certificate.Create(ctx, cert); err != nil {
			return u.markFailed(ctx, reg, err)
		}
		secretName = naming.TLSSecretName(d.ID, reg.Domain)
		if err := u.Cluster.CreateTLSSecret(ctx, ns, secretName, []byte(cert.CertPEM), []byte(cert.KeyPEM)); err != nil {
			return u.markFailed(ctx, reg, err)
		}
	}
	if err := u.Cluster.CreateCustomDomainIngress(ctx, ns, d.ID, d.AppName, reg.Domain, secretName); err != nil {
		return u.markFailed(ctx, reg, err)
	}

	reg.Status = model.DomainVerified
	reg.UpdatedAt = time.Now().UTC()
	if err := u.Repos.Domain.Update(ctx, reg); err != nil {
		return err
	}
	logger.Info(ctx, "custom domain provisioned", "domain", reg.Domain, "deploymentID", d.ID, "ssl", reg.SSLEnabled)
	u.dispatch(ctx, d, model.EventDomainVerified)
	if reg.SSLEnabled {
		u.dispatch(ctx, d, model.EventCertIssued)
	}
	return nil
}

func (u *UseCase) dispatch(ctx context.Context, d *model.Deployment, eventType string) {
	if u.Dispatcher == nil {
		return
	}
	u.Dispatcher.Dispatch(ctx, model.Event{
		DeploymentID: d.ID,
		UserID:       d.UserID,
		Type:         eventType,
		Status:       d.Status,
		AppName:      d.AppName,
		URL:          d.URL,
		Timestamp:    time.Now(),
	})
}

func (u *UseCase) markFailed(ctx context.Context, reg *model.CustomDomain, cause error) error {
	logging.FromContext(ctx).Error(ctx, "domain provisioning failed", "domain", reg.Domain, "error", cause)
	reg.Status = model.DomainFailed
	reg.UpdatedAt = time.Now().UTC()
	if err := u.Repos.Domain.Update(ctx, reg); err != nil {
		logging.FromContext(ctx).Error(ctx, "record domain failure", "domain", reg.Domain, "error", err)
	}
	return cause
}

// Remove detaches a custom domain: the dedicated ingress and its TLS secret
// are deleted best-effort before the records go away.
func (u *UseCase) Remove(ctx context.Context, userID, domainID string) error {
	logger := logging.FromContext(ctx)
	reg, err := u.Repos.Domain.Get(ctx, domainID)
	if err != nil {
		return err
	}
	if userID != "" && reg.UserID != userID {
		return model.ErrDomainNotFound
	}
	ns := naming.DeploymentNamespace(reg.DeploymentID)
	if err := u.Cluster.DeleteCustomDomainIngress(ctx, ns, reg.DeploymentID); err != nil {
		// Record removal takes precedence over cluster cleanup.
		logger.Warn(ctx, "delete custom ingress failed", "domain", reg.Domain, "error", err)
	}
	if reg.SSLEnabled {
		if err := u.Cluster.DeleteTLSSecret(ctx, ns, naming.TLSSecretName(reg.DeploymentID, reg.Domain)); err != nil {
			logger.Warn(ctx, "delete tls secret failed", "domain", reg.Domain, "error", err)
		}
	}
	if cert, err := u.Repos.Certificate.GetByDomain(ctx, reg.Domain); err == nil {
		if err := u.Repos.Certificate.Delete(ctx, cert.ID); err != nil {
			logger.Warn(ctx, "delete certificate record failed", "domain", reg.Domain, "error", err)
		}
	}
	return u.Repos.Domain.Delete(ctx, reg.ID)
}

// List returns the domains attached to a deployment.
func (u *UseCase) List(ctx context.Context, deploymentID string) ([]*model.CustomDomain, error) {
	return u.Repos.Domain.ListByDeployment(ctx, deploymentID)
}
