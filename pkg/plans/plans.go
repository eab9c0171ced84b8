// Package plans holds the static plan catalog shared by the entitlement
// resolver and the checkout session issuer.
//
// Plans and features are closed sets. Adding a plan means adding an ID
// constant and a case in Catalog.lookup; adding a feature means adding a
// Feature constant, a Limits field and a case in Limits.For. Both switches
// fail loudly in tests when a case is missing.
package plans

import "strings"

// ID identifies a catalog plan.
type ID string

const (
	Free     ID = "free"
	Pro      ID = "pro"
	Business ID = "business"
)

// All lists every plan in display order.
var All = []ID{Free, Pro, Business}

// Feature names a gated capability or a numeric limit.
type Feature string

const (
	FeatureMaxPlans             Feature = "maxPlans"
	FeatureMaxExports           Feature = "maxExports"
	FeatureMaxCollaborators     Feature = "maxCollaborators"
	FeatureFinancialProjections Feature = "financial_projections"
	FeatureAIAssistant          Feature = "ai_assistant"
	FeatureSharing              Feature = "sharing"
	FeatureCustomBranding       Feature = "custom_branding"
	FeaturePrioritySupport      Feature = "priority_support"
)

// Features lists every known feature.
var Features = []Feature{
	FeatureMaxPlans,
	FeatureMaxExports,
	FeatureMaxCollaborators,
	FeatureFinancialProjections,
	FeatureAIAssistant,
	FeatureSharing,
	FeatureCustomBranding,
	FeaturePrioritySupport,
}

// ParseFeature converts a wire name into a Feature.
func ParseFeature(s string) (Feature, bool) {
	for _, f := range Features {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Plan is one catalog entry. Price is in minor currency units.
type Plan struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
	PriceID     string `json:"priceId,omitempty"`
	Limits      Limits `json:"limits"`
}

// IsPaid reports whether the plan goes through checkout.
func (p Plan) IsPaid() bool {
	return p.ID != Free
}

// Catalog resolves plans by ID or by billing-provider price ID.
type Catalog struct {
	priceIDs map[ID]string
}

// NewCatalog builds a catalog; priceIDs maps paid plans to provider price IDs.
func NewCatalog(priceIDs map[ID]string) *Catalog {
	ids := make(map[ID]string, len(priceIDs))
	for id, price := range priceIDs {
		ids[id] = strings.TrimSpace(price)
	}
	return &Catalog{priceIDs: ids}
}

// Get returns the plan for a catalog ID.
func (c *Catalog) Get(id ID) (Plan, bool) {
	p, ok := lookup(id)
	if !ok {
		return Plan{}, false
	}
	if c != nil {
		p.PriceID = c.priceIDs[id]
	}
	return p, true
}

// Free returns the free plan.
func (c *Catalog) Free() Plan {
	p, _ := c.Get(Free)
	return p
}

// ByPriceID finds the paid plan whose provider price ID matches.
func (c *Catalog) ByPriceID(priceID string) (Plan, bool) {
	if c == nil || priceID == "" {
		return Plan{}, false
	}
	for _, id := range All {
		if c.priceIDs[id] != "" && c.priceIDs[id] == priceID {
			return c.Get(id)
		}
	}
	return Plan{}, false
}

// Resolve maps a stored plan reference (price ID, plan ID, empty or
// "free") to a catalog plan. Unknown references resolve to free.
func (c *Catalog) Resolve(ref string) Plan {
	ref = strings.TrimSpace(ref)
	if p, ok := c.ByPriceID(ref); ok {
		return p
	}
	if p, ok := c.Get(ID(strings.ToLower(ref))); ok {
		return p
	}
	return c.Free()
}

// List returns every plan in display order.
func (c *Catalog) List() []Plan {
	out := make([]Plan, 0, len(All))
	for _, id := range All {
		p, _ := c.Get(id)
		out = append(out, p)
	}
	return out
}

func lookup(id ID) (Plan, bool) {
	switch id {
	case Free:
		return Plan{
			ID:          Free,
			Name:        "Free",
			Description: "Draft your first restaurant plan",
			Price:       0,
			Currency:    "usd",
			Limits: Limits{
				MaxPlans:             Max(1),
				MaxExports:           Max(3),
				MaxCollaborators:     Max(0),
				FinancialProjections: Enabled(),
				AIAssistant:          Disabled(),
				Sharing:              Disabled(),
				CustomBranding:       Disabled(),
				PrioritySupport:      Disabled(),
			},
		}, true
	case Pro:
		return Plan{
			ID:          Pro,
			Name:        "Pro",
			Description: "For owners preparing a lender-ready plan",
			Price:       1900,
			Currency:    "usd",
			Limits: Limits{
				MaxPlans:             Max(10),
				MaxExports:           Max(50),
				MaxCollaborators:     Max(3),
				FinancialProjections: Enabled(),
				AIAssistant:          Enabled(),
				Sharing:              Enabled(),
				CustomBranding:       Disabled(),
				PrioritySupport:      Disabled(),
			},
		}, true
	case Business:
		return Plan{
			ID:          Business,
			Name:        "Business",
			Description: "For restaurant groups and consultants",
			Price:       4900,
			Currency:    "usd",
			Limits: Limits{
				MaxPlans:             Unlimited(),
				MaxExports:           Unlimited(),
				MaxCollaborators:     Unlimited(),
				FinancialProjections: Enabled(),
				AIAssistant:          Enabled(),
				Sharing:              Enabled(),
				CustomBranding:       Enabled(),
				PrioritySupport:      Enabled(),
			},
		}, true
	default:
		return Plan{}, false
	}
}
