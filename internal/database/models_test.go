package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestUserProfile_Age(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		birthDate time.Time
		want      int
	}{
		{"birthday already passed this year", time.Date(1996, 3, 1, 0, 0, 0, 0, time.UTC), 30},
		{"birthday later this year", time.Date(1996, 9, 1, 0, 0, 0, 0, time.UTC), 29},
		{"birthday today", time.Date(1996, 6, 15, 0, 0, 0, 0, time.UTC), 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &UserProfile{BirthDate: &tt.birthDate}
			assert.Equal(t, tt.want, p.Age(now))
		})
	}
}

func TestUserProfile_Age_NoBirthDate(t *testing.T) {
	p := &UserProfile{}
	assert.Equal(t, 0, p.Age(time.Now()))
}

func TestUserProfile_CountPopulatedFields(t *testing.T) {
	empty := &UserProfile{}
	assert.Equal(t, 0, empty.CountPopulatedFields())

	birthDate := time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC)
	partial := &UserProfile{
		Username:  ptr("alice"),
		Gender:    ptr(GenderFemale),
		BirthDate: &birthDate,
		Interests: Interests{"hiking"},
	}
	assert.Equal(t, 4, partial.CountPopulatedFields())

	full := &UserProfile{
		Username:         ptr("alice"),
		DisplayName:      ptr("Alice"),
		Bio:              ptr("hi"),
		PhotoFileID:      ptr("file123"),
		BirthDate:        &birthDate,
		Gender:           ptr(GenderFemale),
		LookingFor:       ptr(GenderMale),
		Archetype:        ptr("sage"),
		MBTI:             ptr("INTJ"),
		CognitiveStyle:   ptr("analytical"),
		Enneagram:        ptr("5w4"),
		PoliticalCompass: ptr(`{"quadrant":"lib-left"}`),
		BigFive:          ptr(`{"openness":80}`),
		Mood:             ptr("chat"),
		Interests:        Interests{"hiking", "jazz"},
		Location:         ptr("Berlin"),
	}
	assert.Equal(t, MaxCompletionScore, full.CountPopulatedFields())
}

func TestUserProfile_EmptyInterestsDoNotCount(t *testing.T) {
	p := &UserProfile{Interests: Interests{}}
	assert.Equal(t, 0, p.CountPopulatedFields())
}

func TestInterests_ScanAndValue(t *testing.T) {
	original := Interests{"hiking", "jazz"}

	value, err := original.Value()
	require.NoError(t, err)

	var scanned Interests
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, original, scanned)
}

func TestInterests_ScanNil(t *testing.T) {
	scanned := Interests{"stale"}
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestInterests_ScanUnsupportedType(t *testing.T) {
	var scanned Interests
	assert.Error(t, scanned.Scan(42))
}

func TestInterests_Intersection(t *testing.T) {
	a := Interests{"hiking", "jazz", "cooking"}
	b := Interests{"jazz", "cooking", "chess"}

	assert.Equal(t, 2, a.Intersection(b))
	assert.Equal(t, 2, b.Intersection(a))
	assert.Equal(t, 0, a.Intersection(nil))
	assert.Equal(t, 0, Interests(nil).Intersection(b))
}

func TestBan_Active(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Ban{}).Active(now), "permanent ban is always active")
	assert.True(t, (&Ban{BannedUntil: &future}).Active(now))
	assert.False(t, (&Ban{BannedUntil: &past}).Active(now))
}
