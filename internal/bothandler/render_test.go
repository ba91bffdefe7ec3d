package bothandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/matchfound/matchfound/internal/database"
)

func strPtr(s string) *string { return &s }

func TestExtractCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"Plain command", "/find", "find"},
		{"Command with argument", "/find now", "find"},
		{"Group mention", "/find@matchfound_bot", "find"},
		{"Uppercase", "/FIND", "find"},
		{"Not a command", "hello", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractCommand(tt.text))
		})
	}
}

func TestParseInterests(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected database.Interests
	}{
		{"Simple list", "music, hiking, coffee", database.Interests{"music", "hiking", "coffee"}},
		{"Normalizes case and whitespace", "  Music ,HIKING ", database.Interests{"music", "hiking"}},
		{"Drops duplicates", "music, music, hiking", database.Interests{"music", "hiking"}},
		{"Drops empty segments", "music,,  ,hiking", database.Interests{"music", "hiking"}},
		{"Empty input", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseInterests(tt.text))
		})
	}
}

func TestYearsSince(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 30, yearsSince(time.Date(1996, 3, 1, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 29, yearsSince(time.Date(1996, 9, 1, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 30, yearsSince(time.Date(1996, 6, 15, 0, 0, 0, 0, time.UTC), now))
}

func TestDisplayName(t *testing.T) {
	t.Run("Prefers display name", func(t *testing.T) {
		p := &database.UserProfile{DisplayName: strPtr("Ada"), Username: strPtr("ada95")}
		assert.Equal(t, "Ada", displayName(p))
	})

	t.Run("Falls back to username", func(t *testing.T) {
		p := &database.UserProfile{Username: strPtr("ada95")}
		assert.Equal(t, "@ada95", displayName(p))
	})

	t.Run("Empty display name falls through", func(t *testing.T) {
		p := &database.UserProfile{DisplayName: strPtr(""), Username: strPtr("ada95")}
		assert.Equal(t, "@ada95", displayName(p))
	})

	t.Run("Anonymous", func(t *testing.T) {
		assert.Equal(t, "Someone", displayName(&database.UserProfile{}))
	})
}

func TestContactLine(t *testing.T) {
	p := &database.UserProfile{DisplayName: strPtr("Ada"), Username: strPtr("ada95")}
	assert.Equal(t, "@ada95", contactLine(p))

	noHandle := &database.UserProfile{DisplayName: strPtr("Ada")}
	assert.Equal(t, "Ada", contactLine(noHandle))
}

func TestTierLabel(t *testing.T) {
	assert.Equal(t, "⭐ Great match", tierLabel(database.PriorityArchetypeAndMBTI))
	assert.Equal(t, "Archetype match", tierLabel(database.PriorityArchetypeOnly))
	assert.Equal(t, "Personality match", tierLabel(database.PriorityMBTIOnly))
	assert.Equal(t, "Match", tierLabel(0))
}

func TestRenderMatchCard(t *testing.T) {
	birthDate := time.Now().AddDate(-28, 0, -1)
	p := &database.UserProfile{
		DisplayName: strPtr("Ada"),
		Username:    strPtr("ada95"),
		BirthDate:   &birthDate,
		Bio:         strPtr("Coffee and compilers."),
		Location:    strPtr("Berlin"),
		Interests:   database.Interests{"music", "hiking"},
		Archetype:   strPtr("sage"),
		MBTI:        strPtr("INTJ"),
	}

	card := renderMatchCard(p, database.PriorityArchetypeAndMBTI, 87)

	assert.Contains(t, card, "Ada, 28")
	assert.Contains(t, card, "⭐ Great match · compatibility 87")
	assert.Contains(t, card, "Coffee and compilers.")
	assert.Contains(t, card, "📍 Berlin")
	assert.Contains(t, card, "🏷 music, hiking")
	assert.Contains(t, card, "🎭 sage")
	assert.Contains(t, card, "🧠 INTJ")
}

func TestRenderProfileSummary_NoBirthDate(t *testing.T) {
	p := &database.UserProfile{Username: strPtr("ada95")}

	summary := renderProfileSummary(p)

	assert.Contains(t, summary, "@ada95")
	assert.NotContains(t, summary, ",")
}

type stubExclusionCounter struct {
	count int
	err   error
}

func (s *stubExclusionCounter) CachedCount(ctx context.Context, seekerID int64) (int, error) {
	return s.count, s.err
}

func TestNoMatchesMessage(t *testing.T) {
	t.Run("Includes seen count when counter is wired", func(t *testing.T) {
		h := &Handler{exclusionCounter: &stubExclusionCounter{count: 12}}
		assert.Contains(t, h.noMatchesMessage(context.Background(), 1), "already gone through 12 people")
	})

	t.Run("Plain message without a counter", func(t *testing.T) {
		h := &Handler{}
		msg := h.noMatchesMessage(context.Background(), 1)
		assert.Contains(t, msg, "No matches right now")
		assert.NotContains(t, msg, "already gone through")
	})

	t.Run("Plain message when nothing excluded yet", func(t *testing.T) {
		h := &Handler{exclusionCounter: &stubExclusionCounter{count: 0}}
		assert.NotContains(t, h.noMatchesMessage(context.Background(), 1), "already gone through")
	})

	t.Run("Counter failure falls back to plain message", func(t *testing.T) {
		h := &Handler{exclusionCounter: &stubExclusionCounter{err: errors.New("redis down")}}
		msg := h.noMatchesMessage(context.Background(), 1)
		assert.Contains(t, msg, "No matches right now")
		assert.NotContains(t, msg, "already gone through")
	})
}
