package matching

import (
	"sort"
	"time"

	"github.com/matchfound/matchfound/internal/database"
)

// Rank scores every candidate against the seeker, assigns priority tiers
// and returns the ordered result. Candidates matching neither archetype
// nor MBTI are dropped, not demoted. Order: tier ascending, completion
// score descending, age gap ascending; ties keep input order.
func Rank(scorer *Scorer, seeker *database.UserProfile, candidates []*database.UserProfile, now time.Time) []*database.MatchUser {
	seekerAge := seeker.Age(now)

	ranked := make([]*database.MatchUser, 0, len(candidates))
	for _, candidate := range candidates {
		breakdown := scorer.Score(seeker, candidate, now)

		priority, ok := priorityFor(breakdown)
		if !ok {
			continue
		}

		ranked = append(ranked, &database.MatchUser{
			Profile:            candidate,
			Age:                candidate.Age(now),
			MatchPriority:      priority,
			CompatibilityScore: breakdown.CompatibilityScore,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.MatchPriority != b.MatchPriority {
			return a.MatchPriority < b.MatchPriority
		}
		if a.Profile.CompletionScore != b.Profile.CompletionScore {
			return a.Profile.CompletionScore > b.Profile.CompletionScore
		}
		return ageGap(seekerAge, a.Age) < ageGap(seekerAge, b.Age)
	})

	return ranked
}

func priorityFor(breakdown ScoreBreakdown) (int, bool) {
	switch {
	case breakdown.ArchetypeMatch && breakdown.MBTIMatch:
		return database.PriorityArchetypeAndMBTI, true
	case breakdown.ArchetypeMatch:
		return database.PriorityArchetypeOnly, true
	case breakdown.MBTIMatch:
		return database.PriorityMBTIOnly, true
	default:
		return 0, false
	}
}

func ageGap(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
