package matching

import "time"

// Candidate filter thresholds. MinCompletionScore is the single
// authoritative completion gate for both the seeker check and the
// candidate query.
const (
	// MaxAgeGap is the widest allowed age difference, in years, between
	// seeker and candidate.
	MaxAgeGap = 8

	// MinCompletionScore is the least number of populated profile fields a
	// profile needs to search or be suggested.
	MinCompletionScore = 7

	// MinInterests is the least number of interest tags a seeker needs
	// before searching.
	MinInterests = 3
)

// Scoring weights. The compatibility score is the sum of the weighted
// signals below, capped at MaxCompatibilityScore. These are the most
// likely numbers to be retuned.
const (
	WeightArchetypeMatch    = 30
	WeightMBTIMatch         = 30
	WeightPerMutualInterest = 4
	MaxInterestPoints       = 20
	MaxAgeProximityPoints   = 10
	MaxCompletionPoints     = 10
	MaxCompatibilityScore   = 100
)

// Cache and cooldown windows
const (
	// MatchListTTL bounds staleness of a cached ranked match list.
	MatchListTTL = 5 * time.Minute

	// ExclusionCountTTL bounds staleness of the cached exclusion-set size.
	ExclusionCountTTL = time.Hour

	// FindCooldown is the minimum spacing between two searches by the
	// same seeker.
	FindCooldown = 2 * time.Minute
)
