package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// UserProfile represents a user profile row. The ID is the numeric Telegram
// user ID; every optional field is nullable and counts toward the
// completion score when populated.
type UserProfile struct {
	ID               int64      `json:"id" db:"id"`
	Username         *string    `json:"username" db:"username"`
	DisplayName      *string    `json:"display_name" db:"display_name"`
	Bio              *string    `json:"bio" db:"bio"`
	PhotoFileID      *string    `json:"photo_file_id" db:"photo_file_id"`
	BirthDate        *time.Time `json:"birth_date" db:"birth_date"`
	Gender           *string    `json:"gender" db:"gender"`
	LookingFor       *string    `json:"looking_for" db:"looking_for"`
	Archetype        *string    `json:"archetype" db:"archetype"`
	MBTI             *string    `json:"mbti" db:"mbti"`
	CognitiveStyle   *string    `json:"cognitive_style" db:"cognitive_style"`
	Enneagram        *string    `json:"enneagram" db:"enneagram"`
	PoliticalCompass *string    `json:"political_compass" db:"political_compass"`
	BigFive          *string    `json:"big_five" db:"big_five"`
	Mood             *string    `json:"mood" db:"mood"`
	Interests        Interests  `json:"interests" db:"interests"`
	Location         *string    `json:"location" db:"location"`
	CompletionScore  int        `json:"completion_score" db:"completion_score"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Gender values
const (
	GenderMale   = "male"
	GenderFemale = "female"
	LookingBoth  = "both"
)

// Age derives the user's age in whole years at the given instant.
// Returns 0 when the birth date is not set.
func (u *UserProfile) Age(now time.Time) int {
	if u.BirthDate == nil {
		return 0
	}
	age := now.Year() - u.BirthDate.Year()
	anniversary := time.Date(now.Year(), u.BirthDate.Month(), u.BirthDate.Day(), 0, 0, 0, 0, time.UTC)
	if now.Before(anniversary) {
		age--
	}
	return age
}

// CountPopulatedFields returns the number of populated optional fields.
// The SQL completion recompute in ProfileService mirrors this predicate
// field for field.
func (u *UserProfile) CountPopulatedFields() int {
	count := 0
	for _, set := range []bool{
		u.Username != nil,
		u.DisplayName != nil,
		u.Bio != nil,
		u.PhotoFileID != nil,
		u.BirthDate != nil,
		u.Gender != nil,
		u.LookingFor != nil,
		u.Archetype != nil,
		u.MBTI != nil,
		u.CognitiveStyle != nil,
		u.Enneagram != nil,
		u.PoliticalCompass != nil,
		u.BigFive != nil,
		u.Mood != nil,
		len(u.Interests) > 0,
		u.Location != nil,
	} {
		if set {
			count++
		}
	}
	return count
}

// MaxCompletionScore is the number of optional fields a profile can populate
const MaxCompletionScore = 16

// Interests is an order-irrelevant set of tags stored as a JSON array
type Interests []string

func (i Interests) Value() (driver.Value, error) {
	if i == nil {
		return nil, nil
	}
	return json.Marshal(i)
}

func (i *Interests) Scan(value interface{}) error {
	if value == nil {
		*i = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, i)
	case string:
		return json.Unmarshal([]byte(v), i)
	default:
		return fmt.Errorf("cannot scan %T into Interests", value)
	}
}

// Contains reports whether the tag is present
func (i Interests) Contains(tag string) bool {
	for _, t := range i {
		if t == tag {
			return true
		}
	}
	return false
}

// Intersection counts tags present in both sets
func (i Interests) Intersection(other Interests) int {
	seen := make(map[string]struct{}, len(i))
	for _, t := range i {
		seen[t] = struct{}{}
	}
	count := 0
	for _, t := range other {
		if _, ok := seen[t]; ok {
			count++
		}
	}
	return count
}

// Like is a directed edge: user_id liked liked_user_id. Unique per pair,
// never deleted (a dislike adds an Ignore, it does not remove the Like).
type Like struct {
	UserID      int64     `json:"user_id" db:"user_id"`
	LikedUserID int64     `json:"liked_user_id" db:"liked_user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Ignore is a directed edge: user_id never wants ignored_user_id suggested
// again. Exclusion is applied in both directions at query time.
type Ignore struct {
	UserID        int64     `json:"user_id" db:"user_id"`
	IgnoredUserID int64     `json:"ignored_user_id" db:"ignored_user_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Ban blocks a user from matching. A nil BannedUntil means permanent.
type Ban struct {
	ID           string     `json:"id" db:"id"`
	BannedUserID int64      `json:"banned_user_id" db:"banned_user_id"`
	BannerID     int64      `json:"banner_id" db:"banner_id"`
	BannedUntil  *time.Time `json:"banned_until" db:"banned_until"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Active reports whether the ban is in effect at the given instant
func (b *Ban) Active(now time.Time) bool {
	return b.BannedUntil == nil || b.BannedUntil.After(now)
}

// Match priority tiers, 1 is best
const (
	PriorityArchetypeAndMBTI = 1
	PriorityArchetypeOnly    = 2
	PriorityMBTIOnly         = 3
)

// MatchUser is a scored candidate, derived per search and never persisted
type MatchUser struct {
	Profile            *UserProfile `json:"profile"`
	Age                int          `json:"age"`
	MatchPriority      int          `json:"match_priority"`
	CompatibilityScore int          `json:"compatibility_score"`
}
