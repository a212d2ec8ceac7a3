package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueParseRoundTrip(t *testing.T) {
	j := NewJWTer("test-secret", "campus-notice")
	tok, err := j.Issue("a@x.edu", "user", PurposeSession, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := j.ParseFor(tok, "user", PurposeSession)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Email != "a@x.edu" || c.Kind != "user" || c.Purpose != PurposeSession {
		t.Fatalf("unexpected claims %+v", c)
	}
}

func TestParseRejectsWrongPurposeAndKind(t *testing.T) {
	j := NewJWTer("test-secret", "campus-notice")
	verify, _ := j.Issue("a@x.edu", "user", PurposeVerify, time.Hour)
	if _, err := j.ParseFor(verify, "user", PurposeSession); !errors.Is(err, ErrWrongToken) {
		t.Fatalf("verification token accepted as session: %v", err)
	}
	if _, err := j.ParseFor(verify, "admin", PurposeVerify); !errors.Is(err, ErrWrongToken) {
		t.Fatalf("user token accepted for admin: %v", err)
	}
}

func TestParseRejectsExpiredAndForeign(t *testing.T) {
	j := NewJWTer("test-secret", "campus-notice")
	old, _ := j.Issue("a@x.edu", "user", PurposeSession, -2*time.Hour)
	if _, err := j.Parse(old); err == nil {
		t.Fatalf("expired token accepted")
	}
	other := NewJWTer("other-secret", "campus-notice")
	foreign, _ := other.Issue("a@x.edu", "user", PurposeSession, time.Hour)
	if _, err := j.Parse(foreign); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}
	if _, err := j.Parse("not-a-token"); err == nil {
		t.Fatalf("garbage accepted")
	}
}
