package admission

import "strings"

// Access is the override layer's verdict for an identity.
type Access int

const (
	// AccessUnrestricted applies the configured limits unmodified.
	AccessUnrestricted Access = iota
	// AccessAllow bypasses all limiters for this request.
	AccessAllow
	// AccessDeny keeps the request flowing through the limiter, but with the
	// limit scaled down by the deny-list multiplier.
	AccessDeny
)

// Overrides holds the allow and deny lists consulted before limiter
// evaluation. Entries are identity strings (addresses and/or caller ids),
// normalized to lower case. The lists are static or slowly changing; they are
// not time-windowed.
type Overrides struct {
	allow map[string]struct{}
	deny  map[string]struct{}

	// DenyMultiplier scales the limit for deny-listed identities instead of
	// hard-blocking them (default 0.1).
	DenyMultiplier float64
}

// NewOverrides builds the override lists. A denyMultiplier outside (0, 1]
// falls back to 0.1.
func NewOverrides(allow, deny []string, denyMultiplier float64) *Overrides {
	if denyMultiplier <= 0 || denyMultiplier > 1 {
		denyMultiplier = 0.1
	}
	o := &Overrides{
		allow:          make(map[string]struct{}, len(allow)),
		deny:           make(map[string]struct{}, len(deny)),
		DenyMultiplier: denyMultiplier,
	}
	for _, e := range allow {
		if e = normalizeEntry(e); e != "" {
			o.allow[e] = struct{}{}
		}
	}
	for _, e := range deny {
		if e = normalizeEntry(e); e != "" {
			o.deny[e] = struct{}{}
		}
	}
	return o
}

// Resolve checks the given identity strings against the lists. The allow list
// wins: an identity on both lists is allowed. Empty strings are ignored.
func (o *Overrides) Resolve(identities ...string) Access {
	if o == nil {
		return AccessUnrestricted
	}
	for _, id := range identities {
		if id = normalizeEntry(id); id == "" {
			continue
		}
		if _, ok := o.allow[id]; ok {
			return AccessAllow
		}
	}
	for _, id := range identities {
		if id = normalizeEntry(id); id == "" {
			continue
		}
		if _, ok := o.deny[id]; ok {
			return AccessDeny
		}
	}
	return AccessUnrestricted
}

func normalizeEntry(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
