package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverrides_Resolve(t *testing.T) {
	o := NewOverrides(
		[]string{"10.0.0.1", "Partner_Bot"},
		[]string{"203.0.113.9", "scraper_7"},
		0.1,
	)

	tests := []struct {
		name       string
		identities []string
		want       Access
	}{
		{"unlisted", []string{"192.0.2.1", "user_1"}, AccessUnrestricted},
		{"allow by address", []string{"10.0.0.1"}, AccessAllow},
		{"allow entries are case-insensitive", []string{"partner_bot"}, AccessAllow},
		{"deny by address", []string{"203.0.113.9"}, AccessDeny},
		{"deny by caller", []string{"192.0.2.1", "scraper_7"}, AccessDeny},
		{"allow wins over deny", []string{"10.0.0.1", "scraper_7"}, AccessAllow},
		{"empty identities ignored", []string{"", "  "}, AccessUnrestricted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, o.Resolve(tt.identities...))
		})
	}
}

func TestOverrides_NilResolvesUnrestricted(t *testing.T) {
	var o *Overrides
	assert.Equal(t, AccessUnrestricted, o.Resolve("10.0.0.1"))
}

func TestOverrides_MultiplierFallback(t *testing.T) {
	assert.Equal(t, 0.1, NewOverrides(nil, nil, 0).DenyMultiplier)
	assert.Equal(t, 0.1, NewOverrides(nil, nil, -3).DenyMultiplier)
	assert.Equal(t, 0.1, NewOverrides(nil, nil, 2).DenyMultiplier)
	assert.Equal(t, 0.25, NewOverrides(nil, nil, 0.25).DenyMultiplier)
}
