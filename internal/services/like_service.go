package services

import (
	"context"
	"fmt"
	"time"

	"github.com/matchfound/matchfound/internal/database"
	"github.com/matchfound/matchfound/internal/telemetry"
)

// LikeResult reports the outcome of recording a like. Mutual is set when
// the target had already liked the actor, which is the bot's cue to
// exchange contact handles.
type LikeResult struct {
	Mutual bool
	Target *UserProfile
}

// LikeService owns the likes and ignores edge tables. All writes are
// idempotent and invalidate the derived caches of both parties, since a
// new edge changes the exclusion set on each side.
type LikeService struct {
	db    *database.DB
	cache CacheInvalidator
}

func NewLikeService(db *database.DB, cache CacheInvalidator) *LikeService {
	return &LikeService{db: db, cache: cache}
}

// RecordLike upserts a like edge from actor to target and reports
// whether the reverse edge already exists. Re-liking the same target is
// a no-op that still reports mutuality.
func (s *LikeService) RecordLike(ctx context.Context, actorID, targetID int64) (*LikeResult, error) {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"actor_id":  actorID,
		"target_id": targetID,
		"operation": "record_like",
	})

	query := `
		INSERT INTO likes (user_id, liked_user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, liked_user_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, actorID, targetID, time.Now()); err != nil {
		logger.WithError(err).Error("Failed to record like")
		return nil, fmt.Errorf("failed to record like: %w", err)
	}

	var mutual bool
	reverseQuery := `SELECT EXISTS(SELECT 1 FROM likes WHERE user_id = $1 AND liked_user_id = $2)`
	if err := s.db.QueryRowContext(ctx, reverseQuery, targetID, actorID).Scan(&mutual); err != nil {
		logger.WithError(err).Error("Failed to check reverse like")
		return nil, fmt.Errorf("failed to check mutual like: %w", err)
	}

	s.invalidateBoth(ctx, actorID, targetID)

	result := &LikeResult{Mutual: mutual}
	if mutual {
		target, err := s.fetchProfile(ctx, targetID)
		if err != nil {
			logger.WithError(err).Warn("Failed to load target profile for mutual like")
		} else {
			result.Target = target
		}
	}
	logger.WithField("mutual", mutual).Info("Like recorded")
	return result, nil
}

// RecordIgnore upserts an ignore edge. Ignores are symmetric at query
// time: either direction removes the pair from both users' candidate
// pools.
func (s *LikeService) RecordIgnore(ctx context.Context, actorID, targetID int64) error {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"actor_id":  actorID,
		"target_id": targetID,
		"operation": "record_ignore",
	})

	query := `
		INSERT INTO ignores (user_id, ignored_user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, ignored_user_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, actorID, targetID, time.Now()); err != nil {
		logger.WithError(err).Error("Failed to record ignore")
		return fmt.Errorf("failed to record ignore: %w", err)
	}

	s.invalidateBoth(ctx, actorID, targetID)
	logger.Info("Ignore recorded")
	return nil
}

// GetLikedBy lists the IDs of users who liked userID and have not been
// liked back, newest first. Feeds the /liked browsing session.
func (s *LikeService) GetLikedBy(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT l.user_id
		FROM likes l
		WHERE l.liked_user_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM likes r
			WHERE r.user_id = $1 AND r.liked_user_id = l.user_id
		  )
		ORDER BY l.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked-by: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan liked-by row: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating liked-by rows: %w", err)
	}
	return ids, nil
}

// HasLiked reports whether an edge from actor to target exists
func (s *LikeService) HasLiked(ctx context.Context, actorID, targetID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM likes WHERE user_id = $1 AND liked_user_id = $2)`
	if err := s.db.QueryRowContext(ctx, query, actorID, targetID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check like edge: %w", err)
	}
	return exists, nil
}

func (s *LikeService) fetchProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	query := `SELECT` + profileColumns + ` FROM profiles WHERE id = $1`
	profile, err := scanProfile(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %d: %w", userID, err)
	}
	return profile, nil
}

func (s *LikeService) invalidateBoth(ctx context.Context, actorID, targetID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateForUsers(ctx, actorID, targetID); err != nil {
		telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
			"actor_id":  actorID,
			"target_id": targetID,
			"operation": "invalidate_edge_caches",
		}).WithError(err).Warn("Cache invalidation failed after edge write")
	}
}
