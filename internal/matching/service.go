package matching

import (
	"context"
	"time"

	"github.com/matchfound/matchfound/internal/cache"
	"github.com/matchfound/matchfound/internal/database"
	"github.com/matchfound/matchfound/internal/errors"
	"github.com/matchfound/matchfound/internal/telemetry"
)

// ProfileSource supplies profile reads and the filtered candidate query
type ProfileSource interface {
	GetProfile(ctx context.Context, userID int64) (*database.UserProfile, error)
	QueryCandidates(ctx context.Context, seeker *database.UserProfile, excluded []int64) ([]*database.UserProfile, error)
}

// BanChecker reports whether a user is currently banned
type BanChecker interface {
	IsBanned(ctx context.Context, userID int64) (bool, *time.Time, error)
}

// ExclusionSource produces the seeker's exclusion set
type ExclusionSource interface {
	Build(ctx context.Context, seekerID int64) ([]int64, error)
}

// MatchListCache caches ranked match lists per seeker and arbitrates the
// find cooldown. Reads fail open.
type MatchListCache interface {
	GetMatches(ctx context.Context, seekerID int64) ([]cache.CachedMatch, bool)
	SetMatches(ctx context.Context, seekerID int64, entries []cache.CachedMatch)
	AcquireFindSlot(ctx context.Context, seekerID int64, window time.Duration) (time.Duration, bool, error)
}

// Observer receives cache outcome signals from the pipeline. Optional;
// satisfied by monitoring.MatchInstrumentation.
type Observer interface {
	RecordCacheHit(ctx context.Context)
	RecordCacheMiss(ctx context.Context)
}

// Service runs the full match pipeline: eligibility checks, cooldown,
// cache read-through, exclusion, candidate query, scoring and ranking.
type Service struct {
	profiles   ProfileSource
	bans       BanChecker
	exclusions ExclusionSource
	cache      MatchListCache
	scorer     *Scorer
	cooldown   time.Duration
	observer   Observer
}

func NewService(profiles ProfileSource, bans BanChecker, exclusions ExclusionSource, matchCache MatchListCache, scorer *Scorer) *Service {
	return &Service{
		profiles:   profiles,
		bans:       bans,
		exclusions: exclusions,
		cache:      matchCache,
		scorer:     scorer,
		cooldown:   FindCooldown,
	}
}

// WithCooldown overrides the find cooldown window. Zero disables rate
// limiting; used by admin flows and tests.
func (s *Service) WithCooldown(d time.Duration) *Service {
	s.cooldown = d
	return s
}

// WithObserver attaches a pipeline observer
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// FindMatches returns the ranked match list for seekerID. Eligibility is
// checked first (ban, then required fields), then the per-seeker cooldown
// is claimed atomically, then the cached list is consulted before any
// scoring happens. Cache entries are rehydrated through profile reads so
// a deleted profile silently drops out of a cached list.
func (s *Service) FindMatches(ctx context.Context, seekerID int64) ([]*database.MatchUser, error) {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"user_id":   seekerID,
		"operation": "find_matches",
	})

	banned, until, err := s.bans.IsBanned(ctx, seekerID)
	if err != nil {
		return nil, errors.NewDatabaseError("check ban status", err)
	}
	if banned {
		return nil, errors.NewBannedError(until)
	}

	seeker, err := s.profiles.GetProfile(ctx, seekerID)
	if err != nil {
		return nil, err
	}
	if err := validateSeeker(seeker); err != nil {
		return nil, err
	}

	if s.cooldown > 0 {
		retryAfter, ok, err := s.cache.AcquireFindSlot(ctx, seekerID, s.cooldown)
		if err != nil {
			// cooldown is a courtesy limit, not a security boundary
			logger.WithError(err).Warn("Cooldown check unavailable, allowing request")
		} else if !ok {
			return nil, errors.NewRateLimitError(retryAfter)
		}
	}

	now := time.Now()

	if cached, ok := s.cache.GetMatches(ctx, seekerID); ok {
		if s.observer != nil {
			s.observer.RecordCacheHit(ctx)
		}
		matches := s.rehydrate(ctx, cached, now)
		logger.WithField("count", len(matches)).Debug("Served matches from cache")
		return matches, nil
	}
	if s.observer != nil {
		s.observer.RecordCacheMiss(ctx)
	}

	excluded, err := s.exclusions.Build(ctx, seekerID)
	if err != nil {
		return nil, errors.NewDatabaseError("build exclusion set", err)
	}

	candidates, err := s.profiles.QueryCandidates(ctx, seeker, excluded)
	if err != nil {
		return nil, errors.NewDatabaseError("query candidates", err)
	}

	matches := Rank(s.scorer, seeker, candidates, now)

	entries := make([]cache.CachedMatch, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, cache.CachedMatch{
			ID:       m.Profile.ID,
			Priority: m.MatchPriority,
			Score:    m.CompatibilityScore,
		})
	}
	s.cache.SetMatches(ctx, seekerID, entries)

	logger.WithFields(map[string]interface{}{
		"candidates": len(candidates),
		"matches":    len(matches),
	}).Info("Match list computed")
	return matches, nil
}

// rehydrate turns cached (id, priority, score) entries back into full
// match records. Entries whose profile no longer resolves are skipped.
func (s *Service) rehydrate(ctx context.Context, entries []cache.CachedMatch, now time.Time) []*database.MatchUser {
	matches := make([]*database.MatchUser, 0, len(entries))
	for _, e := range entries {
		profile, err := s.profiles.GetProfile(ctx, e.ID)
		if err != nil {
			if errors.IsErrorType(err, errors.ErrorTypeNotFound) {
				continue
			}
			telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
				"match_id":  e.ID,
				"operation": "rehydrate_match",
			}).WithError(err).Warn("Skipping cached match entry")
			continue
		}
		matches = append(matches, &database.MatchUser{
			Profile:            profile,
			Age:                profile.Age(now),
			MatchPriority:      e.Priority,
			CompatibilityScore: e.Score,
		})
	}
	return matches
}

// validateSeeker enforces the minimum profile needed to enter matching
func validateSeeker(seeker *database.UserProfile) error {
	switch {
	case seeker.Gender == nil:
		return errors.NewIncompleteProfileError("gender")
	case seeker.LookingFor == nil:
		return errors.NewIncompleteProfileError("looking_for")
	case seeker.BirthDate == nil:
		return errors.NewIncompleteProfileError("birth_date")
	case len(seeker.Interests) < MinInterests:
		return errors.NewIncompleteProfileError("interests")
	case seeker.CompletionScore < MinCompletionScore:
		return errors.NewIncompleteProfileError("completion_score")
	}
	return nil
}
