package admission

import (
	"net"
	"strings"
)

// Identity carries the attributes of a request that admission buckets can be
// derived from. It is supplied by the authentication/routing collaborators;
// the engine never reads business records.
type Identity struct {
	// RemoteAddr is the client address, with or without a port.
	RemoteAddr string
	// CallerID is the authenticated caller, empty for anonymous traffic.
	CallerID string
	// Method and Path describe the target route, for per-endpoint policies.
	Method string
	Path   string
}

// Addr returns the host part of RemoteAddr, tolerating a missing port.
func (id Identity) Addr() string {
	addr := strings.TrimSpace(id.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}

// KeyStrategy derives a stable bucket key from a request's identity.
// Strategies must be deterministic and side-effect free: the same logical
// caller always lands in the same bucket. Policy separation is handled by the
// limiters, which prefix every key with their own namespace.
type KeyStrategy func(id Identity) string

// ByAddress buckets by client address alone.
func ByAddress(id Identity) string {
	return id.Addr()
}

// ByCaller buckets by authenticated caller id, falling back to the address so
// anonymous traffic is still throttled, just more coarsely.
func ByCaller(id Identity) string {
	if c := strings.TrimSpace(id.CallerID); c != "" {
		return c
	}
	return id.Addr()
}

// ByCallerAndAddress buckets by caller and address together. A known caller
// rotating addresses and many accounts sharing one address both stay in
// distinguishable buckets.
func ByCallerAndAddress(id Identity) string {
	return ByCaller(id) + "|" + id.Addr()
}

// ByTarget buckets by address, method and route path, for granular
// per-endpoint throttling.
func ByTarget(id Identity) string {
	return id.Addr() + "|" + id.Method + "|" + id.Path
}

// Composed builds a custom strategy from a base plus a second identity drawn
// from elsewhere in the request, e.g. caller+counterparty for contact-style
// actions. An empty extra leaves the base key untouched.
func Composed(base KeyStrategy, extra func(Identity) string) KeyStrategy {
	return func(id Identity) string {
		key := base(id)
		if e := strings.TrimSpace(extra(id)); e != "" {
			key += "|" + e
		}
		return key
	}
}
