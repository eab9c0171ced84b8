package plans

import (
	"encoding/json"
	"fmt"
)

// UnlimitedValue is the wire sentinel for an unlimited numeric limit.
const UnlimitedValue int64 = -1

type limitKind uint8

const (
	kindDisabled limitKind = iota
	kindEnabled
	kindMax
	kindUnlimited
)

// Limit is a per-feature allowance: a boolean switch, a numeric maximum,
// or unlimited. The zero value is disabled.
type Limit struct {
	kind limitKind
	max  int64
}

// Enabled returns a boolean-true limit.
func Enabled() Limit { return Limit{kind: kindEnabled} }

// Disabled returns a boolean-false limit.
func Disabled() Limit { return Limit{kind: kindDisabled} }

// Unlimited returns the unlimited sentinel.
func Unlimited() Limit { return Limit{kind: kindUnlimited, max: UnlimitedValue} }

// Max returns a numeric limit. Negative values mean unlimited.
func Max(n int64) Limit {
	if n < 0 {
		return Unlimited()
	}
	return Limit{kind: kindMax, max: n}
}

// IsEnabled reports a boolean-true limit.
func (l Limit) IsEnabled() bool { return l.kind == kindEnabled }

// IsUnlimited reports the unlimited sentinel.
func (l Limit) IsUnlimited() bool { return l.kind == kindUnlimited }

// Numeric returns the numeric maximum, if the limit is numeric or unlimited.
func (l Limit) Numeric() (int64, bool) {
	switch l.kind {
	case kindMax:
		return l.max, true
	case kindUnlimited:
		return UnlimitedValue, true
	default:
		return 0, false
	}
}

func (l Limit) String() string {
	switch l.kind {
	case kindEnabled:
		return "true"
	case kindUnlimited:
		return "unlimited"
	case kindMax:
		return fmt.Sprintf("%d", l.max)
	default:
		return "false"
	}
}

// MarshalJSON encodes booleans as true/false and numbers as-is (-1 for unlimited).
func (l Limit) MarshalJSON() ([]byte, error) {
	switch l.kind {
	case kindEnabled:
		return []byte("true"), nil
	case kindDisabled:
		return []byte("false"), nil
	default:
		n, _ := l.Numeric()
		return json.Marshal(n)
	}
}

// Limits is the exhaustive feature table of a plan.
type Limits struct {
	MaxPlans             Limit
	MaxExports           Limit
	MaxCollaborators     Limit
	FinancialProjections Limit
	AIAssistant          Limit
	Sharing              Limit
	CustomBranding       Limit
	PrioritySupport      Limit
}

// For returns the limit configured for f. Unknown features are disabled.
func (l Limits) For(f Feature) Limit {
	switch f {
	case FeatureMaxPlans:
		return l.MaxPlans
	case FeatureMaxExports:
		return l.MaxExports
	case FeatureMaxCollaborators:
		return l.MaxCollaborators
	case FeatureFinancialProjections:
		return l.FinancialProjections
	case FeatureAIAssistant:
		return l.AIAssistant
	case FeatureSharing:
		return l.Sharing
	case FeatureCustomBranding:
		return l.CustomBranding
	case FeaturePrioritySupport:
		return l.PrioritySupport
	default:
		return Disabled()
	}
}

// MarshalJSON renders the table keyed by feature wire name.
func (l Limits) MarshalJSON() ([]byte, error) {
	out := make(map[Feature]Limit, len(Features))
	for _, f := range Features {
		out[f] = l.For(f)
	}
	return json.Marshal(out)
}
