package resolver

import "net/netip"

// blockedRanges covers private, loopback, link-local (including cloud
// metadata endpoints at 169.254.169.254), and unspecified ranges for both
// address families.
var blockedRanges = []netip.Prefix{
	// IPv4
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("0.0.0.0/8"),

	// IPv6
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("::/128"),
}

type RangeGuard struct {
	blocked []netip.Prefix
}

func NewRangeGuard() *RangeGuard {
	return &RangeGuard{blocked: blockedRanges}
}

// IsBlocked reports whether addr falls inside a disallowed network range.
// IPv4-mapped IPv6 addresses are unmapped first so ::ffff:127.0.0.1 cannot
// slip past the IPv4 ranges.
func (g *RangeGuard) IsBlocked(addr netip.Addr) bool {
	if addr.Is4In6() {
		addr = netip.AddrFrom4(addr.As4())
	}

	for _, p := range g.blocked {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
