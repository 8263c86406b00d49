package provider

import (
	"fmt"
	"strings"
)

// Tier is the ordered subscription tier of a provider.
type Tier int

// Subscription tiers, ordered from lowest to highest.
const (
	TierFree Tier = iota
	TierStandard
	TierGold
	TierPlatinum
)

// AllTiers lists every tier in ascending order.
var AllTiers = []Tier{TierFree, TierStandard, TierGold, TierPlatinum}

var tierNames = [...]string{"Free", "Standard", "Gold", "Platinum"}

// IsValid reports whether t is a known tier.
func (t Tier) IsValid() bool { return t >= TierFree && t <= TierPlatinum }

func (t Tier) String() string {
	if !t.IsValid() {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier parses a tier name case-insensitively.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown subscription tier %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
