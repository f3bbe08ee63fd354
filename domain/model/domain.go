package model

import "time"

// DomainStatus enumerates the verification states of a custom domain.
type DomainStatus string

const (
	DomainPending    DomainStatus = "pending"
	DomainValidating DomainStatus = "validating"
	DomainVerified   DomainStatus = "verified"
	DomainFailed     DomainStatus = "failed"
)

// CustomDomain attaches a user-owned hostname to a deployment.
type CustomDomain struct {
	ID           string
	DeploymentID string
	UserID       string
	Domain       string
	Status       DomainStatus
	SSLEnabled   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DNSRecord is one record the user must create to pass domain validation or
// route traffic to the cluster.
type DNSRecord struct {
	Type  string // "A", "CNAME" or "TXT"
	Name  string
	Value string
	TTL   int
}

// ValidationChallenge is a pending DNS-01 style ownership proof for a domain.
// The user publishes the token digest in a TXT record; the challenge expires
// if unverified within its window.
type ValidationChallenge struct {
	Domain           string
	Token            string
	KeyAuthorization string
	RecordName       string
	RecordValue      string
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// Certificate holds issued TLS material for a verified custom domain.
type Certificate struct {
	ID        string
	DomainID  string
	Domain    string
	Issuer    string
	CertPEM   string
	KeyPEM    string
	AutoRenew bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NeedsRenewal reports whether the certificate is inside its renewal window.
func (c *Certificate) NeedsRenewal(now time.Time, window time.Duration) bool {
	return c.ExpiresAt.Sub(now) < window
}
