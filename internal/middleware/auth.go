package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/matchfound/matchfound/internal/interfaces"
	"github.com/matchfound/matchfound/internal/telemetry"
)

// ProfileMiddleware guarantees a profile row exists for the sender
// before any handler runs, so handlers never deal with first-contact
// bootstrap themselves.
type ProfileMiddleware struct {
	profiles interfaces.ProfileServiceInterface
}

func NewProfileMiddleware(profiles interfaces.ProfileServiceInterface) *ProfileMiddleware {
	return &ProfileMiddleware{profiles: profiles}
}

func (m *ProfileMiddleware) Middleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if userID, username, ok := senderOf(update); ok {
			if _, err := m.profiles.CreateProfile(ctx, userID, username); err != nil {
				telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
					"user_id":   userID,
					"operation": "ensure_profile",
				}).WithError(err).Error("Failed to ensure profile row")
				// handlers surface the real failure on their own reads
			} else if err := m.profiles.TouchLastSeen(ctx, userID); err != nil {
				telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
					"user_id":   userID,
					"operation": "touch_last_seen",
				}).WithError(err).Warn("Failed to update last seen")
			}
		}
		next(ctx, b, update)
	}
}

func senderOf(update *models.Update) (userID int64, username *string, ok bool) {
	var from *models.User
	switch {
	case update.Message != nil:
		from = update.Message.From
	case update.CallbackQuery != nil:
		from = &update.CallbackQuery.From
	default:
		return 0, nil, false
	}
	if from == nil || from.IsBot {
		return 0, nil, false
	}
	if from.Username != "" {
		u := from.Username
		username = &u
	}
	return from.ID, username, true
}
