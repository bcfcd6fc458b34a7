// internal/billing/tier.go
package billing

// Tier is a specialist's service level. It drives both the consumption
// multiplier charged against a company's minute allowance and the hourly
// payout rate earned by the specialist.
type Tier string

const (
	TierStandard Tier = "standard"
	TierAdvanced Tier = "advanced"
	TierExpert   Tier = "expert"
	TierMaster   Tier = "master"
)

type tierRate struct {
	Multiplier float64
	PayoutRate float64 // dollars per session-hour
}

// tierRates is static; changing it is a deployment-time change, not a
// runtime operation.
var tierRates = map[Tier]tierRate{
	TierStandard: {Multiplier: 1.0, PayoutRate: 60},
	TierAdvanced: {Multiplier: 1.6, PayoutRate: 96},
	TierExpert:   {Multiplier: 2.4, PayoutRate: 144},
	TierMaster:   {Multiplier: 3.2, PayoutRate: 192},
}

// ParseTier maps a raw tier string to a Tier. Unknown, empty, or null
// values collapse to TierStandard: tier lookups fail open so that bad
// specialist data can never block a session from completing.
func ParseTier(raw string) Tier {
	t := Tier(raw)
	if _, ok := tierRates[t]; ok {
		return t
	}
	return TierStandard
}

// MultiplierFor returns the consumption multiplier for a tier,
// defaulting to the standard multiplier for unrecognized tiers.
func MultiplierFor(t Tier) float64 {
	if r, ok := tierRates[t]; ok {
		return r.Multiplier
	}
	return tierRates[TierStandard].Multiplier
}

// PayoutRateFor returns the hourly payout rate for a tier, defaulting
// to the standard rate for unrecognized tiers.
func PayoutRateFor(t Tier) float64 {
	if r, ok := tierRates[t]; ok {
		return r.PayoutRate
	}
	return tierRates[TierStandard].PayoutRate
}
