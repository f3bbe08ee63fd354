package dnsverify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/container-engine/container-engine/domain/model"
)

type fakeResolver struct {
	records map[string][]string
	err     error
}

func (f *fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[name], nil
}

func TestValidateDomain(t *testing.T) {
	valid := []string{"example.org", "app.my-site.io", "a.b.c.d.example.net"}
	for _, d := range valid {
		if err := ValidateDomain(d); err != nil {
			t.Errorf("ValidateDomain(%q) = %v, want nil", d, err)
		}
	}
	invalid := []string{
		"",
		"localhost",
		"example.com",
		"test",
		"single-label",
		"-bad.example.org",
		"bad-.example.org",
		"под.example.org",
		"spa ce.example.org",
	}
	for _, d := range invalid {
		err := ValidateDomain(d)
		if err == nil {
			t.Errorf("ValidateDomain(%q) = nil, want error", d)
			continue
		}
		var ve *model.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("ValidateDomain(%q) error type = %T", d, err)
		}
	}
}

func TestNewChallenge(t *testing.T) {
	now := time.Now()
	ch, err := NewChallenge("app.example.org", now)
	if err != nil {
		t.Fatalf("NewChallenge() error = %v", err)
	}
	if ch.RecordName != "_acme-challenge.app.example.org" {
		t.Fatalf("record name = %s", ch.RecordName)
	}
	if ch.RecordValue != ChallengeDigest(ch.KeyAuthorization) {
		t.Fatalf("record value does not match key authorization digest")
	}
	if !ch.ExpiresAt.Equal(now.Add(ChallengeValidity)) {
		t.Fatalf("expiry = %s", ch.ExpiresAt)
	}

	other, err := NewChallenge("app.example.org", now)
	if err != nil {
		t.Fatalf("NewChallenge() error = %v", err)
	}
	if other.Token == ch.Token {
		t.Fatalf("tokens are not unique")
	}
}

func TestNewChallengeRejectsReserved(t *testing.T) {
	if _, err := NewChallenge("example.com", time.Now()); err == nil {
		t.Fatalf("expected error for reserved domain")
	}
}

func TestRecords(t *testing.T) {
	ch, _ := NewChallenge("app.example.org", time.Now())
	recs := Records(ch, "203.0.113.10")
	if len(recs) != 2 {
		t.Fatalf("records = %v", recs)
	}
	if recs[0].Type != "TXT" || recs[0].TTL != ChallengeTTL {
		t.Fatalf("txt record = %+v", recs[0])
	}
	if recs[1].Type != "A" || recs[1].Value != "203.0.113.10" {
		t.Fatalf("routing record = %+v", recs[1])
	}
	recs = Records(ch, "ingress.example.net")
	if recs[1].Type != "CNAME" {
		t.Fatalf("routing record type = %s, want CNAME", recs[1].Type)
	}
}

func TestCheckMatchesDigest(t *testing.T) {
	ch, _ := NewChallenge("app.example.org", time.Now())
	v := NewWithResolver(&fakeResolver{records: map[string][]string{
		ch.RecordName: {"unrelated", ch.RecordValue},
	}})
	ok, err := v.Check(context.Background(), ch)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Fatalf("Check() = false, want true")
	}
}

func TestCheckExpiredChallenge(t *testing.T) {
	ch, _ := NewChallenge("app.example.org", time.Now().Add(-25*time.Hour))
	v := NewWithResolver(&fakeResolver{})
	if _, err := v.Check(context.Background(), ch); err == nil {
		t.Fatalf("expected error for expired challenge")
	}
}

func TestWaitPropagationTimesOut(t *testing.T) {
	ch, _ := NewChallenge("app.example.org", time.Now())
	v := NewWithResolver(&fakeResolver{})
	v.PollInterval = time.Millisecond
	v.MaxAttempts = 3
	err := v.WaitPropagation(context.Background(), ch)
	var vt *model.VerificationTimeoutError
	if !errors.As(err, &vt) {
		t.Fatalf("error = %v, want *model.VerificationTimeoutError", err)
	}
}

func TestWaitPropagationSucceeds(t *testing.T) {
	ch, _ := NewChallenge("app.example.org", time.Now())
	v := NewWithResolver(&fakeResolver{records: map[string][]string{
		ch.RecordName: {ch.RecordValue},
	}})
	v.PollInterval = time.Millisecond
	v.MaxAttempts = 3
	if err := v.WaitPropagation(context.Background(), ch); err != nil {
		t.Fatalf("WaitPropagation() error = %v", err)
	}
}
