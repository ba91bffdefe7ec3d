package interfaces

import (
	"context"
	"time"

	"github.com/matchfound/matchfound/internal/database"
	"github.com/matchfound/matchfound/internal/services"
)

// ProfileServiceInterface defines the interface for profile operations
type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, userID int64) (*database.UserProfile, error)
	CreateProfile(ctx context.Context, userID int64, username *string) (*database.UserProfile, error)
	UpdateField(ctx context.Context, userID int64, field string, value *string) error
	SetBirthDate(ctx context.Context, userID int64, birthDate time.Time) error
	SetInterests(ctx context.Context, userID int64, interests database.Interests) error
	SetQuizResult(ctx context.Context, userID int64, result *database.QuizResult) error
	QueryCandidates(ctx context.Context, seeker *database.UserProfile, excluded []int64) ([]*database.UserProfile, error)
	TouchLastSeen(ctx context.Context, userID int64) error
}

// MatchingServiceInterface defines the interface for the match pipeline
type MatchingServiceInterface interface {
	FindMatches(ctx context.Context, seekerID int64) ([]*database.MatchUser, error)
}

// LikeServiceInterface defines the interface for like and ignore edges
type LikeServiceInterface interface {
	RecordLike(ctx context.Context, actorID, targetID int64) (*services.LikeResult, error)
	RecordIgnore(ctx context.Context, actorID, targetID int64) error
	GetLikedBy(ctx context.Context, userID int64) ([]int64, error)
}

// BanServiceInterface defines the interface for ban checks
type BanServiceInterface interface {
	IsBanned(ctx context.Context, userID int64) (bool, *time.Time, error)
}
