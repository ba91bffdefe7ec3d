package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matchfound/matchfound/internal/database"
	"github.com/matchfound/matchfound/internal/telemetry"
)

// BanService owns the bans table. A row with a NULL banned_until is a
// permanent ban; otherwise the ban lapses once the timestamp passes.
type BanService struct {
	db *database.DB
}

func NewBanService(db *database.DB) *BanService {
	return &BanService{db: db}
}

// IsBanned reports whether the user currently has an active ban and, for
// temporary bans, when it ends.
func (s *BanService) IsBanned(ctx context.Context, userID int64) (bool, *time.Time, error) {
	query := `
		SELECT banned_until FROM bans
		WHERE banned_user_id = $1
		  AND (banned_until IS NULL OR banned_until > $2)
	`
	var until sql.NullTime
	err := s.db.QueryRowContext(ctx, query, userID, time.Now()).Scan(&until)
	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to check ban status: %w", err)
	}
	if until.Valid {
		return true, &until.Time, nil
	}
	return true, nil, nil
}

// Ban records a ban issued by bannerID. A nil until bans permanently;
// calling again replaces the previous expiry.
func (s *BanService) Ban(ctx context.Context, userID, bannerID int64, until *time.Time) error {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"user_id":   userID,
		"banner_id": bannerID,
		"operation": "ban_user",
	})

	query := `
		INSERT INTO bans (banned_user_id, banner_id, banned_until, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (banned_user_id) DO UPDATE
		SET banner_id = EXCLUDED.banner_id, banned_until = EXCLUDED.banned_until
	`
	if _, err := s.db.ExecContext(ctx, query, userID, bannerID, until, time.Now()); err != nil {
		logger.WithError(err).Error("Failed to ban user")
		return fmt.Errorf("failed to ban user: %w", err)
	}
	logger.Warn("User banned")
	return nil
}

// Unban lifts any ban on the user
func (s *BanService) Unban(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bans WHERE banned_user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to unban user: %w", err)
	}
	return nil
}
