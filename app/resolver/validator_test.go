package resolver

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
)

func TestValidator_Validate_SchemeAndShape(t *testing.T) {
	v := NewValidator()
	v.lookup = func(host string) ([]net.IP, error) {
		t.Fatalf("DNS lookup should not run for %s", host)
		return nil, nil
	}

	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"oversized", "https://example.com/" + strings.Repeat("a", MaxURLLength)},
		{"no scheme", "example.com/path"},
		{"ftp scheme", "ftp://example.com/file"},
		{"file scheme", "file:///etc/passwd"},
		{"javascript scheme", "javascript://alert(1)"},
		{"scheme only", "https://"},
		{"no host", "http:///path"},
	}

	for _, tt := range tests {
		err := v.Validate(tt.url)
		if err == nil {
			t.Errorf("%s: expected rejection for %q", tt.name, tt.url)
			continue
		}
		var perr *PolicyError
		if !errors.As(err, &perr) {
			t.Errorf("%s: expected *PolicyError, got %T", tt.name, err)
		}
	}
}

func TestValidator_Validate_BlockedLiterals(t *testing.T) {
	v := NewValidator()

	blocked := []string{
		"http://10.1.2.3/",
		"http://172.16.0.1/admin",
		"http://192.168.1.1/",
		"http://127.0.0.1:8080/internal",
		"http://169.254.169.254/latest/meta-data/",
		"http://0.0.0.0/",
		"http://[::1]/",
		"http://[fc00::1]/",
		"http://[fe80::1]/",
	}

	for _, url := range blocked {
		if err := v.Validate(url); err == nil {
			t.Errorf("Expected %q to be rejected", url)
		}
	}
}

func TestValidator_Validate_PublicLiteral(t *testing.T) {
	v := NewValidator()

	if err := v.Validate("https://93.184.216.34/article"); err != nil {
		t.Errorf("Expected public IP literal to pass, got: %v", err)
	}
}

func TestValidator_Validate_HostnameResolution(t *testing.T) {
	v := NewValidator()

	v.lookup = func(host string) ([]net.IP, error) {
		return []net.IP{net.ParseIP("93.184.216.34")}, nil
	}
	if err := v.Validate("https://news.example.com/story"); err != nil {
		t.Errorf("Expected publicly resolving host to pass, got: %v", err)
	}

	// Hosts resolving into a blocked range are rejected even when one
	// record is public.
	v.lookup = func(host string) ([]net.IP, error) {
		return []net.IP{
			net.ParseIP("93.184.216.34"),
			net.ParseIP("10.0.0.5"),
		}, nil
	}
	if err := v.Validate("https://rebind.example.com/story"); err == nil {
		t.Error("Expected host resolving to private range to be rejected")
	}

	v.lookup = func(host string) ([]net.IP, error) {
		return nil, fmt.Errorf("no such host: %s", host)
	}
	if err := v.Validate("https://does-not-resolve.example.com/"); err == nil {
		t.Error("Expected unresolvable host to be rejected")
	}
}
