package matching

import (
	"strings"
	"time"

	"github.com/matchfound/matchfound/internal/database"
)

// ScoreBreakdown is the result of comparing two profiles. A missing quiz
// result on either side makes that signal false; it is never an error.
type ScoreBreakdown struct {
	ArchetypeMatch     bool
	MBTIMatch          bool
	MutualInterests    int
	CompatibilityScore int
}

// Scorer computes pairwise compatibility from the fixed pairing tables
type Scorer struct {
	tables *CompatibilityTables
}

func NewScorer(tables *CompatibilityTables) *Scorer {
	return &Scorer{tables: tables}
}

// Score compares seeker and candidate. Pure: no I/O, no mutation.
func (s *Scorer) Score(seeker, candidate *database.UserProfile, now time.Time) ScoreBreakdown {
	breakdown := ScoreBreakdown{
		ArchetypeMatch:  s.archetypeMatch(seeker, candidate),
		MBTIMatch:       s.mbtiMatch(seeker, candidate),
		MutualInterests: seeker.Interests.Intersection(candidate.Interests),
	}

	score := 0
	if breakdown.ArchetypeMatch {
		score += WeightArchetypeMatch
	}
	if breakdown.MBTIMatch {
		score += WeightMBTIMatch
	}

	interestPoints := breakdown.MutualInterests * WeightPerMutualInterest
	if interestPoints > MaxInterestPoints {
		interestPoints = MaxInterestPoints
	}
	score += interestPoints

	score += ageProximityPoints(seeker.Age(now), candidate.Age(now))
	score += candidate.CompletionScore * MaxCompletionPoints / database.MaxCompletionScore

	if score > MaxCompatibilityScore {
		score = MaxCompatibilityScore
	}
	breakdown.CompatibilityScore = score
	return breakdown
}

// archetypeMatch applies the gender-sensitive archetype rule: same gender
// requires identical archetypes, different genders consult the pairing
// table keyed by the seeker's archetype.
func (s *Scorer) archetypeMatch(seeker, candidate *database.UserProfile) bool {
	if seeker.Archetype == nil || candidate.Archetype == nil {
		return false
	}
	if seeker.Gender != nil && candidate.Gender != nil && *seeker.Gender == *candidate.Gender {
		return strings.EqualFold(strings.TrimSpace(*seeker.Archetype), strings.TrimSpace(*candidate.Archetype))
	}
	return s.tables.ArchetypeListed(*seeker.Archetype, *candidate.Archetype)
}

func (s *Scorer) mbtiMatch(seeker, candidate *database.UserProfile) bool {
	if seeker.MBTI == nil || candidate.MBTI == nil {
		return false
	}
	return s.tables.MBTIListed(*seeker.MBTI, *candidate.MBTI)
}

func ageProximityPoints(seekerAge, candidateAge int) int {
	gap := seekerAge - candidateAge
	if gap < 0 {
		gap = -gap
	}
	if gap >= MaxAgeGap {
		return 0
	}
	return (MaxAgeGap - gap) * MaxAgeProximityPoints / MaxAgeGap
}
