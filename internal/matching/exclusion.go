package matching

import (
	"context"
	"fmt"

	"github.com/matchfound/matchfound/internal/database"
	"github.com/matchfound/matchfound/internal/telemetry"
)

// ExclusionCountCache caches the size of a user's exclusion set. A miss
// returns ok=false; writes are best effort.
type ExclusionCountCache interface {
	GetExclusionCount(ctx context.Context, userID int64) (int, bool)
	SetExclusionCount(ctx context.Context, userID int64, count int)
}

// ExclusionBuilder computes the set of user IDs that must never surface
// as candidates for a seeker: the seeker itself, everyone the seeker has
// liked, and every user joined to the seeker by an ignore edge in either
// direction.
type ExclusionBuilder struct {
	db     *database.DB
	counts ExclusionCountCache
}

func NewExclusionBuilder(db *database.DB, counts ExclusionCountCache) *ExclusionBuilder {
	return &ExclusionBuilder{db: db, counts: counts}
}

// Build returns the exclusion set for seekerID. The returned slice always
// contains at least the seeker. The set size is cached as a cheap
// audience-health signal; the IDs themselves always come from Postgres so
// a stale count can never leak an excluded candidate.
func (b *ExclusionBuilder) Build(ctx context.Context, seekerID int64) ([]int64, error) {
	query := `
		SELECT liked_user_id FROM likes WHERE user_id = $1
		UNION
		SELECT ignored_user_id FROM ignores WHERE user_id = $1
		UNION
		SELECT user_id FROM ignores WHERE ignored_user_id = $1
	`
	rows, err := b.db.QueryContext(ctx, query, seekerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exclusion set: %w", err)
	}
	defer rows.Close()

	excluded := []int64{seekerID}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan exclusion row: %w", err)
		}
		if id != seekerID {
			excluded = append(excluded, id)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exclusion rows: %w", err)
	}

	if b.counts != nil {
		b.counts.SetExclusionCount(ctx, seekerID, len(excluded)-1)
	}

	telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"user_id":   seekerID,
		"excluded":  len(excluded) - 1,
		"operation": "build_exclusions",
	}).Debug("Exclusion set built")

	return excluded, nil
}

// CachedCount returns the cached exclusion-set size when present,
// otherwise builds the set and returns its size.
func (b *ExclusionBuilder) CachedCount(ctx context.Context, seekerID int64) (int, error) {
	if b.counts != nil {
		if count, ok := b.counts.GetExclusionCount(ctx, seekerID); ok {
			return count, nil
		}
	}
	excluded, err := b.Build(ctx, seekerID)
	if err != nil {
		return 0, err
	}
	return len(excluded) - 1, nil
}
