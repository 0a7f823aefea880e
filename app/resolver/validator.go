package resolver

import (
	"net"
	"net/netip"
	"net/url"
	"strings"
)

const MaxURLLength = 2000

// PolicyError marks a URL rejected by the outbound safety policy. Callers
// must treat it as permanent and never retry.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return "URL blocked by outbound policy: " + e.Reason
}

// Validator performs the pre-flight safety check for any outbound URL:
// scheme, length, host, DNS resolution, and the blocked-range guard. The
// DNS lookup runs on every call; caching a verdict would let a rebinding
// host reuse it after pointing at a blocked range.
type Validator struct {
	guard  *RangeGuard
	lookup func(host string) ([]net.IP, error)
}

func NewValidator() *Validator {
	return &Validator{
		guard:  NewRangeGuard(),
		lookup: net.LookupIP,
	}
}

// Validate returns a *PolicyError if rawURL must not be fetched. The scheme
// is checked before generic URL parsing: malformed scheme-like prefixes can
// otherwise slip through url.Parse.
func (v *Validator) Validate(rawURL string) error {
	if rawURL == "" {
		return &PolicyError{Reason: "empty URL"}
	}
	if len(rawURL) > MaxURLLength {
		return &PolicyError{Reason: "URL exceeds maximum length"}
	}

	sep := strings.Index(rawURL, "://")
	if sep <= 0 {
		return &PolicyError{Reason: "missing URL scheme"}
	}
	scheme := strings.ToLower(rawURL[:sep])
	if scheme != "http" && scheme != "https" {
		return &PolicyError{Reason: "disallowed URL scheme: " + scheme}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &PolicyError{Reason: "invalid URL: " + err.Error()}
	}

	host := parsed.Hostname()
	if host == "" {
		return &PolicyError{Reason: "URL has no host"}
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if v.guard.IsBlocked(addr) {
			return &PolicyError{Reason: "address in blocked range: " + addr.String()}
		}
		return nil
	}

	ips, err := v.lookup(host)
	if err != nil || len(ips) == 0 {
		return &PolicyError{Reason: "host does not resolve: " + host}
	}

	for _, ip := range ips {
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			return &PolicyError{Reason: "host resolves to unusable address: " + host}
		}
		if v.guard.IsBlocked(addr) {
			return &PolicyError{Reason: "host resolves to blocked range: " + addr.String()}
		}
	}

	return nil
}
