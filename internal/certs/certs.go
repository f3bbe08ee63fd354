package certs

// Package certs issues and renews TLS certificates for verified custom
// domains. Certificates are self-signed; the issuing flow mirrors an ACME
// issuance so a real CA can be slotted in behind the same interface.

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/container-engine/container-engine/domain/model"
)

const (
	// Validity is the lifetime of an issued certificate.
	Validity = 90 * 24 * time.Hour
	// RenewalWindow is how long before expiry a certificate is renewed.
	RenewalWindow = 30 * 24 * time.Hour

	keyBits = 2048
)

// Issuer mints certificates for domains.
type Issuer struct {
	// Organization appears in the issued certificate subject.
	Organization string
	// Now is the clock, overridable in tests.
	Now func() time.Time
}

// NewIssuer returns an Issuer with the default clock.
func NewIssuer(organization string) *Issuer {
	return &Issuer{Organization: organization, Now: time.Now}
}

// Issue mints a certificate for the domain, valid for Validity from now.
func (i *Issuer) Issue(domainID, domain string) (*model.Certificate, error) {
	now := i.Now()
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("generate key for %s: %w", domain, err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial for %s: %w", domain, err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   domain,
			Organization: []string{i.Organization},
		},
		DNSNames:              []string{domain},
		NotBefore:             now,
		NotAfter:              now.Add(Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate for %s: %w", domain, err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return &model.Certificate{
		ID:        uuid.NewString(),
		DomainID:  domainID,
		Domain:    domain,
		Issuer:    i.Organization,
		CertPEM:   string(certPEM),
		KeyPEM:    string(keyPEM),
		AutoRenew: true,
		IssuedAt:  now,
		ExpiresAt: now.Add(Validity),
	}, nil
}

// Renew mints a replacement certificate carrying over the identity of the
// old one.
func (i *Issuer) Renew(old *model.Certificate) (*model.Certificate, error) {
	fresh, err := i.Issue(old.DomainID, old.Domain)
	if err != nil {
		return nil, err
	}
	fresh.ID = old.ID
	fresh.AutoRenew = old.AutoRenew
	return fresh, nil
}
