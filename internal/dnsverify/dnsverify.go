package dnsverify

// Package dnsverify implements DNS-based ownership proofs for custom domains:
// hostname format validation, challenge generation, TXT record lookup, and
// the propagation wait loop.

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/logging"
	"github.com/container-engine/container-engine/internal/retry"
)

const (
	// ChallengeTTL is the TTL suggested for the validation TXT record.
	ChallengeTTL = 120
	// ChallengeValidity is how long a pending challenge can be verified.
	ChallengeValidity = 24 * time.Hour

	challengePrefix = "_acme-challenge."

	maxDomainLength = 253
	maxLabelLength  = 63
)

// reservedDomains can never be registered as custom domains.
var reservedDomains = map[string]bool{
	"localhost":   true,
	"example.com": true,
	"test":        true,
}

// Resolver is the DNS lookup surface used during verification. *net.Resolver
// satisfies it; tests substitute a fake.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Verifier validates domains and checks challenge propagation.
type Verifier struct {
	resolver Resolver
	// PollInterval is the delay between propagation checks.
	PollInterval time.Duration
	// MaxAttempts bounds propagation checks per wait.
	MaxAttempts int
}

// New returns a Verifier backed by the system resolver.
func New() *Verifier {
	return NewWithResolver(net.DefaultResolver)
}

// NewWithResolver returns a Verifier with a custom resolver.
func NewWithResolver(r Resolver) *Verifier {
	return &Verifier{resolver: r, PollInterval: 30 * time.Second, MaxAttempts: 10}
}

// ValidateDomain checks hostname syntax and the reserved list. Errors are
// *model.ValidationError.
func ValidateDomain(domain string) error {
	d := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if d == "" {
		return &model.ValidationError{Field: "domain", Reason: "domain is empty"}
	}
	if len(d) > maxDomainLength {
		return &model.ValidationError{Field: "domain", Reason: fmt.Sprintf("domain exceeds %d characters", maxDomainLength)}
	}
	if reservedDomains[d] {
		return &model.ValidationError{Field: "domain", Reason: fmt.Sprintf("domain %q is reserved", d)}
	}
	labels := strings.Split(d, ".")
	if len(labels) < 2 {
		return &model.ValidationError{Field: "domain", Reason: "domain must have at least two labels"}
	}
	for _, label := range labels {
		if err := validateLabel(label); err != nil {
			return err
		}
	}
	return nil
}

func validateLabel(label string) error {
	if label == "" {
		return &model.ValidationError{Field: "domain", Reason: "domain contains an empty label"}
	}
	if len(label) > maxLabelLength {
		return &model.ValidationError{Field: "domain", Reason: fmt.Sprintf("label %q exceeds %d characters", label, maxLabelLength)}
	}
	if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
		return &model.ValidationError{Field: "domain", Reason: fmt.Sprintf("label %q starts or ends with a hyphen", label)}
	}
	for _, c := range label {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			continue
		}
		return &model.ValidationError{Field: "domain", Reason: fmt.Sprintf("label %q contains invalid character %q", label, c)}
	}
	return nil
}

// NewChallenge generates a fresh ownership challenge for a validated domain.
func NewChallenge(domain string, now time.Time) (*model.ValidationChallenge, error) {
	if err := ValidateDomain(domain); err != nil {
		return nil, err
	}
	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("generate challenge token: %w", err)
	}
	tok := hex.EncodeToString(token)
	keyAuth := tok + "." + domain
	return &model.ValidationChallenge{
		Domain:           domain,
		Token:            tok,
		KeyAuthorization: keyAuth,
		RecordName:       challengePrefix + domain,
		RecordValue:      ChallengeDigest(keyAuth),
		CreatedAt:        now,
		ExpiresAt:        now.Add(ChallengeValidity),
	}, nil
}

// ChallengeDigest computes the TXT record value for a key authorization:
// unpadded base64url of its SHA-256 digest.
func ChallengeDigest(keyAuthorization string) string {
	sum := sha256.Sum256([]byte(keyAuthorization))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Records returns the DNS records the user must publish: the challenge TXT
// plus the routing record pointing the domain at the cluster.
func Records(ch *model.ValidationChallenge, clusterTarget string) []model.DNSRecord {
	records := []model.DNSRecord{{
		Type:  "TXT",
		Name:  ch.RecordName,
		Value: ch.RecordValue,
		TTL:   ChallengeTTL,
	}}
	if clusterTarget != "" {
		typ := "CNAME"
		if net.ParseIP(clusterTarget) != nil {
			typ = "A"
		}
		records = append(records, model.DNSRecord{Type: typ, Name: ch.Domain, Value: clusterTarget, TTL: 300})
	}
	return records
}

// Check performs a single verification of the challenge TXT record.
func (v *Verifier) Check(ctx context.Context, ch *model.ValidationChallenge) (bool, error) {
	if time.Now().After(ch.ExpiresAt) {
		return false, fmt.Errorf("challenge for %s expired at %s", ch.Domain, ch.ExpiresAt.Format(time.RFC3339))
	}
	txts, err := v.resolver.LookupTXT(ctx, ch.RecordName)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false, nil
		}
		return false, fmt.Errorf("lookup TXT %s: %w", ch.RecordName, err)
	}
	for _, txt := range txts {
		if strings.TrimSpace(txt) == ch.RecordValue {
			return true, nil
		}
	}
	return false, nil
}

// WaitPropagation polls the challenge record until it matches or the attempt
// budget runs out, reported as *model.VerificationTimeoutError.
func (v *Verifier) WaitPropagation(ctx context.Context, ch *model.ValidationChallenge) error {
	logger := logging.FromContext(ctx)
	err := retry.Poll(ctx, retry.Config{Interval: v.PollInterval, MaxAttempts: v.MaxAttempts}, func(ctx context.Context) (bool, error) {
		ok, err := v.Check(ctx, ch)
		if err != nil {
			return false, err
		}
		if !ok {
			logger.Debug(ctx, "challenge record not yet visible", "domain", ch.Domain)
		}
		return ok, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return &model.VerificationTimeoutError{
			Subject: "domain " + ch.Domain,
			Detail:  fmt.Sprintf("TXT record %s did not propagate after %d attempts", ch.RecordName, v.MaxAttempts),
		}
	}
	return err
}
