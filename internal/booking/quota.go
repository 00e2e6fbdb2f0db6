package booking

// Tier quota policy. Free visitors cannot book meetings at all; paid tiers
// share a fixed cap on live (pending or confirmed) appointments.
var tierQuotas = map[Tier]int{
	TierFree:    0,
	TierPremium: 10,
	TierVIP:     10,
}

// AllowedQuota returns the number of live appointments a visitor of the
// given tier may hold. Unknown tiers are treated as the most restrictive.
func AllowedQuota(tier Tier) int {
	return tierQuotas[tier]
}

// HasCapacity reports whether a visitor with the given live-appointment
// count may create one more. A false result is a business-rule rejection,
// not an error.
func HasCapacity(usage int, tier Tier) bool {
	return usage < AllowedQuota(tier)
}
