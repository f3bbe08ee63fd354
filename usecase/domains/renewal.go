package domains

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/certs"
	"github.com/container-engine/container-engine/internal/logging"
	"github.com/container-engine/container-engine/internal/naming"
)

// DefaultRenewalSchedule runs the certificate sweep once a day.
const DefaultRenewalSchedule = "@daily"

// StartRenewal schedules the certificate renewal sweep. The returned stop
// function halts the scheduler and waits for a running sweep to finish.
func (u *UseCase) StartRenewal(ctx context.Context, schedule string) (func(), error) {
	if schedule == "" {
		schedule = DefaultRenewalSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := u.RenewDue(ctx); err != nil {
			logging.FromContext(ctx).Error(ctx, "certificate renewal sweep failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule renewal sweep: %w", err)
	}
	u.renewal = c
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}

// RenewDue renews every certificate inside its renewal window and replaces
// the corresponding TLS secrets. Individual failures are logged and skipped
// so one bad domain cannot block the rest of the sweep.
func (u *UseCase) RenewDue(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	list, err := u.Repos.Certificate.List(ctx)
	if err != nil {
		return fmt.Errorf("list certificates: %w", err)
	}
	now := time.Now().UTC()
	for _, cert := range list {
		if !cert.AutoRenew || !cert.NeedsRenewal(now, certs.RenewalWindow) {
			continue
		}
		if err := u.renewOne(ctx, cert); err != nil {
			logger.Error(ctx, "certificate renewal failed", "domain", cert.Domain, "error", err)
		}
	}
	return nil
}

func (u *UseCase) renewOne(ctx context.Context, cert *model.Certificate) error {
	logger := logging.FromContext(ctx)
	reg, err := u.Repos.Domain.Get(ctx, cert.DomainID)
	if err != nil {
		return fmt.Errorf("lookup domain for certificate %s: %w", cert.ID, err)
	}
	fresh, err := u.Issuer.Renew(cert)
	if err != nil {
		return fmt.Errorf("renew certificate for %s: %w", cert.Domain, err)
	}
	if err := u.Repos.Certificate.Update(ctx, fresh); err != nil {
		return fmt.Errorf("persist renewed certificate for %s: %w", cert.Domain, err)
	}
	ns := naming.DeploymentNamespace(reg.DeploymentID)
	secretName := naming.TLSSecretName(reg.DeploymentID, reg.Domain)
	if err := u.Cluster.CreateTLSSecret(ctx, ns, secretName, []byte(fresh.CertPEM), []byte(fresh.KeyPEM)); err != nil {
		return fmt.Errorf("replace TLS secret for %s: %w", cert.Domain, err)
	}
	logger.Info(ctx, "certificate renewed", "domain", cert.Domain, "expiresAt", fresh.ExpiresAt)
	return nil
}
