package core

// tierRank orders tiers from worst to best survival state. Both the
// Survival Controller (hysteresis comparisons) and the Inference Router
// (tierMinimum eligibility) need this ordering, so it lives on the shared
// Tier type rather than being duplicated per package.
var tierRank = map[Tier]int{
	TierDead:       0,
	TierCritical:   1,
	TierLowCompute: 2,
	TierNormal:     3,
	TierHigh:       4,
}

// TierRank returns a tier's position in the worst-to-best ordering. An
// unrecognized tier ranks below TierDead so it never passes an eligibility
// check by accident.
func TierRank(t Tier) int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return -1
}

// TierAtLeast reports whether t is at or above the min tier in the
// worst-to-best ordering — used to check a model registry row's
// tierMinimum against the current operating tier.
func TierAtLeast(t, min Tier) bool {
	return TierRank(t) >= TierRank(min)
}
