package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchfound/matchfound/internal/database"
)

func strPtr(s string) *string { return &s }

// buildProfile creates a minimal valid profile for scoring tests
func buildProfile(id int64, gender string, age int, opts ...func(*database.UserProfile)) *database.UserProfile {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	birthDate := now.AddDate(-age, 0, -1)
	p := &database.UserProfile{
		ID:        id,
		Username:  strPtr("user"),
		Gender:    &gender,
		BirthDate: &birthDate,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func withArchetype(a string) func(*database.UserProfile) {
	return func(p *database.UserProfile) { p.Archetype = &a }
}

func withMBTI(m string) func(*database.UserProfile) {
	return func(p *database.UserProfile) { p.MBTI = &m }
}

func withInterests(tags ...string) func(*database.UserProfile) {
	return func(p *database.UserProfile) { p.Interests = tags }
}

func withCompletion(score int) func(*database.UserProfile) {
	return func(p *database.UserProfile) { p.CompletionScore = score }
}

func testNow() time.Time {
	return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
}

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	tables, err := LoadTables()
	require.NoError(t, err)
	return NewScorer(tables)
}

func TestScorer_SameGenderRequiresIdenticalArchetype(t *testing.T) {
	scorer := newTestScorer(t)

	seeker := buildProfile(1, database.GenderFemale, 25, withArchetype("sage"))
	identical := buildProfile(2, database.GenderFemale, 25, withArchetype("sage"))
	tableListed := buildProfile(3, database.GenderFemale, 25, withArchetype("innocent"))

	assert.True(t, scorer.Score(seeker, identical, testNow()).ArchetypeMatch)
	// innocent is in sage's pairing list, but same-gender pairs ignore the table
	assert.False(t, scorer.Score(seeker, tableListed, testNow()).ArchetypeMatch)
}

func TestScorer_SameGenderArchetypeIgnoresCaseAndWhitespace(t *testing.T) {
	scorer := newTestScorer(t)

	seeker := buildProfile(1, database.GenderFemale, 25, withArchetype("Sage"))
	padded := buildProfile(2, database.GenderFemale, 25, withArchetype(" sage "))
	other := buildProfile(3, database.GenderFemale, 25, withArchetype("Explorer"))

	assert.True(t, scorer.Score(seeker, padded, testNow()).ArchetypeMatch)
	assert.False(t, scorer.Score(seeker, other, testNow()).ArchetypeMatch)
}

func TestScorer_CrossGenderUsesPairingTable(t *testing.T) {
	scorer := newTestScorer(t)

	seeker := buildProfile(1, database.GenderMale, 30, withArchetype("innocent"))
	listed := buildProfile(2, database.GenderFemale, 30, withArchetype("caregiver"))
	unlisted := buildProfile(3, database.GenderFemale, 30, withArchetype("rebel"))

	assert.True(t, scorer.Score(seeker, listed, testNow()).ArchetypeMatch)
	assert.False(t, scorer.Score(seeker, unlisted, testNow()).ArchetypeMatch)
}

func TestScorer_CrossGenderArchetypeIsDirectional(t *testing.T) {
	scorer := newTestScorer(t)

	// ruler lists sage, sage does not list ruler
	ruler := buildProfile(1, database.GenderMale, 30, withArchetype("ruler"))
	sage := buildProfile(2, database.GenderFemale, 30, withArchetype("sage"))

	assert.True(t, scorer.Score(ruler, sage, testNow()).ArchetypeMatch)
	assert.False(t, scorer.Score(sage, ruler, testNow()).ArchetypeMatch)
}

func TestScorer_MissingQuizResultsNeverMatch(t *testing.T) {
	scorer := newTestScorer(t)

	seeker := buildProfile(1, database.GenderMale, 30, withArchetype("hero"), withMBTI("INTJ"))
	blank := buildProfile(2, database.GenderFemale, 30)

	breakdown := scorer.Score(seeker, blank, testNow())
	assert.False(t, breakdown.ArchetypeMatch)
	assert.False(t, breakdown.MBTIMatch)
}

func TestScorer_MBTIMatchIsCaseInsensitive(t *testing.T) {
	scorer := newTestScorer(t)

	seeker := buildProfile(1, database.GenderMale, 30, withMBTI("intj"))
	candidate := buildProfile(2, database.GenderFemale, 30, withMBTI("enfp"))

	assert.True(t, scorer.Score(seeker, candidate, testNow()).MBTIMatch)
}

func TestScorer_FullScoreComposition(t *testing.T) {
	scorer := newTestScorer(t)

	seeker := buildProfile(1, database.GenderMale, 30,
		withArchetype("innocent"), withMBTI("INTJ"),
		withInterests("hiking", "jazz", "cooking", "films", "chess"))
	candidate := buildProfile(2, database.GenderFemale, 30,
		withArchetype("caregiver"), withMBTI("ENFP"),
		withInterests("hiking", "jazz", "cooking", "films", "chess"),
		withCompletion(database.MaxCompletionScore))

	breakdown := scorer.Score(seeker, candidate, testNow())
	assert.True(t, breakdown.ArchetypeMatch)
	assert.True(t, breakdown.MBTIMatch)
	assert.Equal(t, 5, breakdown.MutualInterests)
	// 30 archetype + 30 mbti + 20 interests (capped) + 10 age + 10 completion
	assert.Equal(t, MaxCompatibilityScore, breakdown.CompatibilityScore)
}

func TestScorer_InterestPointsAreCapped(t *testing.T) {
	scorer := newTestScorer(t)

	tags := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	seeker := buildProfile(1, database.GenderMale, 30, withInterests(tags...))
	candidate := buildProfile(2, database.GenderFemale, 30, withInterests(tags...))

	breakdown := scorer.Score(seeker, candidate, testNow())
	assert.Equal(t, 10, breakdown.MutualInterests)
	// capped interests 20 + age proximity 10
	assert.Equal(t, MaxInterestPoints+MaxAgeProximityPoints, breakdown.CompatibilityScore)
}

func TestAgeProximityPoints(t *testing.T) {
	tests := []struct {
		name       string
		seekerAge  int
		matchAge   int
		wantPoints int
	}{
		{"same age", 30, 30, MaxAgeProximityPoints},
		{"one year apart", 30, 31, 8},
		{"half the window", 30, 34, 5},
		{"at the window edge", 30, 38, 0},
		{"beyond the window", 30, 45, 0},
		{"younger candidate", 30, 26, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantPoints, ageProximityPoints(tt.seekerAge, tt.matchAge))
		})
	}
}
