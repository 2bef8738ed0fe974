package model

// Tier selects a row of the pricing table.
type Tier string

const (
	TierTest      Tier = "test"
	TierBasic     Tier = "basic"
	TierStandard  Tier = "standard"
	TierPremium   Tier = "premium"
	TierUnlimited Tier = "unlimited"
)

// Plan is an immutable eSIM catalog entry. Its price is not stored here;
// it is looked up by tier and currency whenever the plan is displayed.
type Plan struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Duration string   `json:"duration"`
	Data     string   `json:"data"`
	Tier     Tier     `json:"tier"`
	Features []string `json:"features"`
}

// PricedPlan is a Plan as rendered for one currency.
type PricedPlan struct {
	Plan
	Price          float64 `json:"price"`
	Currency       string  `json:"currency"`
	FormattedPrice string  `json:"formatted_price"`
}

// Catalog returns a fresh copy of the static plan list.
func Catalog() []Plan {
	return []Plan{
		{
			ID: 1, Name: "Basic", Duration: "7 days", Data: "1GB", Tier: TierBasic,
			Features: []string{"4G/LTE", "Hotspot", "Instant QR delivery"},
		},
		{
			ID: 2, Name: "Standard", Duration: "15 days", Data: "5GB", Tier: TierStandard,
			Features: []string{"4G/LTE", "Hotspot", "Instant QR delivery", "Top-up anytime"},
		},
		{
			ID: 3, Name: "Premium", Duration: "30 days", Data: "20GB", Tier: TierPremium,
			Features: []string{"5G where available", "Hotspot", "Instant QR delivery", "Top-up anytime", "Priority support"},
		},
		{
			ID: 4, Name: "Unlimited", Duration: "30 days", Data: "Unlimited", Tier: TierUnlimited,
			Features: []string{"5G where available", "Hotspot", "Fair-use unlimited data", "Priority support"},
		},
		{
			ID: 99, Name: "Test", Duration: "1 day", Data: "100MB", Tier: TierTest,
			Features: []string{"Free trial"},
		},
	}
}

// FindPlan looks a plan up by id in plans.
func FindPlan(plans []Plan, id int) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
