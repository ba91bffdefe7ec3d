package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/matchfound/matchfound/internal/database"
	"github.com/matchfound/matchfound/internal/errors"
	"github.com/matchfound/matchfound/internal/matching"
	"github.com/matchfound/matchfound/internal/telemetry"
)

type UserProfile = database.UserProfile
type Interests = database.Interests

// CacheInvalidator drops the derived caches for a set of users. Satisfied
// by cache.MatchCache; profile writes call it before returning so stale
// ranked lists never outlive an edit.
type CacheInvalidator interface {
	InvalidateForUsers(ctx context.Context, userIDs ...int64) error
}

const profileColumns = `
	id, username, display_name, bio, photo_file_id, birth_date,
	gender, looking_for, archetype, mbti, cognitive_style, enneagram,
	political_compass, big_five, mood, interests, location,
	completion_score, created_at, updated_at`

// profileFieldColumns whitelists the string fields writable through
// UpdateField. Quiz results go through SetQuizResult instead.
var profileFieldColumns = map[string]string{
	"username":      "username",
	"display_name":  "display_name",
	"bio":           "bio",
	"photo_file_id": "photo_file_id",
	"gender":        "gender",
	"looking_for":   "looking_for",
	"mood":          "mood",
	"location":      "location",
}

var quizColumns = map[database.QuizKind]string{
	database.QuizArchetype: "archetype",
	database.QuizMBTI:      "mbti",
	database.QuizCognitive: "cognitive_style",
	database.QuizEnneagram: "enneagram",
	database.QuizPolitical: "political_compass",
	database.QuizBigFive:   "big_five",
}

// ProfileService owns the profiles table. Every field write recomputes
// the completion score in the same transaction, so the stored score is
// always consistent with field presence at read time.
type ProfileService struct {
	db    *database.DB
	cache CacheInvalidator
}

func NewProfileService(db *database.DB, cache CacheInvalidator) *ProfileService {
	return &ProfileService{db: db, cache: cache}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*UserProfile, error) {
	profile := &UserProfile{}
	err := row.Scan(
		&profile.ID, &profile.Username, &profile.DisplayName, &profile.Bio,
		&profile.PhotoFileID, &profile.BirthDate, &profile.Gender,
		&profile.LookingFor, &profile.Archetype, &profile.MBTI,
		&profile.CognitiveStyle, &profile.Enneagram, &profile.PoliticalCompass,
		&profile.BigFive, &profile.Mood, &profile.Interests, &profile.Location,
		&profile.CompletionScore, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	query := `SELECT` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := scanProfile(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("profile")
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// CreateProfile inserts a fresh profile row for a Telegram user. Idempotent
// under retry: an existing row is left untouched.
func (s *ProfileService) CreateProfile(ctx context.Context, userID int64, username *string) (*UserProfile, error) {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"user_id":   userID,
		"operation": "create_profile",
	})

	now := time.Now()
	query := `
		INSERT INTO profiles (id, username, completion_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO NOTHING
	`
	completion := 0
	if username != nil {
		completion = 1
	}
	if _, err := s.db.ExecContext(ctx, query, userID, username, completion, now); err != nil {
		logger.WithError(err).Error("Failed to create profile")
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	logger.Info("Profile created")
	return s.GetProfile(ctx, userID)
}

// UpdateField writes one whitelisted string field (nil clears it),
// recomputes the completion score and invalidates the user's caches.
func (s *ProfileService) UpdateField(ctx context.Context, userID int64, field string, value *string) error {
	column, ok := profileFieldColumns[field]
	if !ok {
		return errors.NewValidationError(field, fmt.Sprintf("unknown profile field: %s", field))
	}

	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"user_id":   userID,
		"field":     field,
		"operation": "update_profile_field",
	})

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		query := fmt.Sprintf(`UPDATE profiles SET %s = $1, updated_at = $2 WHERE id = $3`, column)
		if _, err := tx.ExecContext(ctx, query, value, time.Now(), userID); err != nil {
			return fmt.Errorf("failed to update %s: %w", field, err)
		}
		return recomputeCompletion(ctx, tx, userID)
	})
	if err != nil {
		logger.WithError(err).Error("Failed to update profile field")
		return err
	}

	s.invalidate(ctx, userID)
	logger.Debug("Profile field updated")
	return nil
}

// SetBirthDate writes the birth date, recomputes completion and
// invalidates caches
func (s *ProfileService) SetBirthDate(ctx context.Context, userID int64, birthDate time.Time) error {
	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		query := `UPDATE profiles SET birth_date = $1, updated_at = $2 WHERE id = $3`
		if _, err := tx.ExecContext(ctx, query, birthDate, time.Now(), userID); err != nil {
			return fmt.Errorf("failed to update birth date: %w", err)
		}
		return recomputeCompletion(ctx, tx, userID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// SetInterests replaces the interest tag set
func (s *ProfileService) SetInterests(ctx context.Context, userID int64, interests Interests) error {
	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		query := `UPDATE profiles SET interests = $1, updated_at = $2 WHERE id = $3`
		if _, err := tx.ExecContext(ctx, query, interests, time.Now(), userID); err != nil {
			return fmt.Errorf("failed to update interests: %w", err)
		}
		return recomputeCompletion(ctx, tx, userID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// SetQuizResult stores one quiz outcome in its column, encoded per kind
func (s *ProfileService) SetQuizResult(ctx context.Context, userID int64, result *database.QuizResult) error {
	column, ok := quizColumns[result.Kind]
	if !ok {
		return errors.NewValidationError(string(result.Kind), "unknown quiz kind")
	}

	encoded, err := database.EncodeQuizResult(result)
	if err != nil {
		return errors.NewValidationError(string(result.Kind), err.Error())
	}

	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		query := fmt.Sprintf(`UPDATE profiles SET %s = $1, updated_at = $2 WHERE id = $3`, column)
		if _, err := tx.ExecContext(ctx, query, encoded, time.Now(), userID); err != nil {
			return fmt.Errorf("failed to update %s result: %w", result.Kind, err)
		}
		return recomputeCompletion(ctx, tx, userID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// QueryCandidates returns every profile passing the seeker's demographic
// filters that is not in the exclusion set. Ordering is left to the
// ranker. The seeker is assumed validated (non-nil gender, looking_for,
// birth date).
func (s *ProfileService) QueryCandidates(ctx context.Context, seeker *UserProfile, excluded []int64) ([]*UserProfile, error) {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"user_id":   seeker.ID,
		"excluded":  len(excluded),
		"operation": "query_candidates",
	})

	seekerAge := seeker.Age(time.Now())

	genders := []string{database.GenderMale, database.GenderFemale}
	if *seeker.LookingFor != database.LookingBoth {
		genders = []string{*seeker.LookingFor}
	}

	query := `
		SELECT` + profileColumns + `
		FROM profiles
		WHERE username IS NOT NULL
		  AND gender IS NOT NULL
		  AND birth_date IS NOT NULL
		  AND gender = ANY($1)
		  AND floor(date_part('year', age(birth_date)))::int BETWEEN $2 AND $3
		  AND completion_score >= $4
		  AND NOT (id = ANY($5))
	`

	rows, err := s.db.QueryContext(ctx, query,
		pq.Array(genders),
		seekerAge-matching.MaxAgeGap, seekerAge+matching.MaxAgeGap,
		matching.MinCompletionScore,
		pq.Array(excluded),
	)
	if err != nil {
		logger.WithError(err).Error("Failed to query candidates")
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*UserProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, profile)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	logger.WithField("count", len(candidates)).Debug("Candidate query complete")
	return candidates, nil
}

// TouchLastSeen updates the last-seen timestamp. Best effort: callers
// swallow its error.
func (s *ProfileService) TouchLastSeen(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE profiles SET updated_at = $1 WHERE id = $2`, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to touch last seen: %w", err)
	}
	return nil
}

// recomputeCompletion rewrites completion_score from field presence. Must
// mirror UserProfile.CountPopulatedFields.
func recomputeCompletion(ctx context.Context, tx *sql.Tx, userID int64) error {
	query := `
		UPDATE profiles SET completion_score =
			  (username IS NOT NULL)::int
			+ (display_name IS NOT NULL)::int
			+ (bio IS NOT NULL)::int
			+ (photo_file_id IS NOT NULL)::int
			+ (birth_date IS NOT NULL)::int
			+ (gender IS NOT NULL)::int
			+ (looking_for IS NOT NULL)::int
			+ (archetype IS NOT NULL)::int
			+ (mbti IS NOT NULL)::int
			+ (cognitive_style IS NOT NULL)::int
			+ (enneagram IS NOT NULL)::int
			+ (political_compass IS NOT NULL)::int
			+ (big_five IS NOT NULL)::int
			+ (mood IS NOT NULL)::int
			+ (CASE WHEN interests IS NOT NULL AND jsonb_array_length(interests) > 0 THEN 1 ELSE 0 END)
			+ (location IS NOT NULL)::int
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to recompute completion score: %w", err)
	}
	return nil
}

func (s *ProfileService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateForUsers(ctx, userID); err != nil {
		telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
			"user_id":   userID,
			"operation": "invalidate_profile_caches",
		}).WithError(err).Warn("Cache invalidation failed after profile write")
	}
}
