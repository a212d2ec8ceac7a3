package utils

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	h, err := HashPassword("Secret#123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h == "Secret#123" {
		t.Fatalf("hash must not equal plaintext")
	}
	if !CheckPassword("Secret#123", h) {
		t.Fatalf("expected password to match")
	}
	if CheckPassword("secret#123", h) {
		t.Fatalf("expected mismatch for different password")
	}
}

func TestPasswordProblems(t *testing.T) {
	cases := []struct {
		pw   string
		want string // substring of a problem, empty means valid
	}{
		{"Secret#123", ""},
		{"Ab1!", "at least 8"},
		{"secret#123", "uppercase"},
		{"SECRET#123", "lowercase"},
		{"Secret#abc", "digit"},
		{"Secret1234", "special"},
		{"Secret\\123", ""},
		{"Secret~123", "special"},
	}
	for _, tc := range cases {
		got := PasswordProblems(tc.pw)
		if tc.want == "" {
			if len(got) != 0 {
				t.Fatalf("%q: expected valid, got %v", tc.pw, got)
			}
			continue
		}
		if !strings.Contains(strings.Join(got, ","), tc.want) {
			t.Fatalf("%q: expected problem %q, got %v", tc.pw, tc.want, got)
		}
	}
}

func TestNewIDOrdered(t *testing.T) {
	a, b := NewID(), NewID()
	if len(a) != 36 || a == b {
		t.Fatalf("unexpected ids %q %q", a, b)
	}
	if a > b {
		t.Fatalf("v7 ids should sort by creation: %q > %q", a, b)
	}
}
