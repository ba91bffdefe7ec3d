package middleware

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/matchfound/matchfound/internal/telemetry"
)

// BotLoggingMiddleware tags every update with a correlation ID and logs
// the update lifecycle. Must sit outermost in the chain so every later
// log line carries the ID.
type BotLoggingMiddleware struct{}

func NewBotLoggingMiddleware() *BotLoggingMiddleware {
	return &BotLoggingMiddleware{}
}

func (m *BotLoggingMiddleware) Middleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		ctx = telemetry.WithCorrelationID(ctx, telemetry.NewCorrelationID())
		logger := telemetry.GetContextualLogger(ctx)

		start := time.Now()
		m.logIncomingUpdate(ctx, update)

		next(ctx, b, update)

		logger.WithFields(map[string]interface{}{
			"update_id":   update.ID,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Update processed")
	}
}

func (m *BotLoggingMiddleware) logIncomingUpdate(ctx context.Context, update *models.Update) {
	logger := telemetry.GetContextualLogger(ctx).WithField("update_id", update.ID)

	switch {
	case update.Message != nil:
		fields := map[string]interface{}{
			"chat_id":     update.Message.Chat.ID,
			"update_type": "message",
		}
		// From is nil for channel posts and anonymous senders
		if update.Message.From != nil {
			fields["user_id"] = update.Message.From.ID
		}
		logger.WithFields(fields).Info("Incoming update")
	case update.CallbackQuery != nil:
		logger.WithFields(map[string]interface{}{
			"user_id":     update.CallbackQuery.From.ID,
			"update_type": "callback_query",
		}).Info("Incoming update")
	default:
		logger.WithField("update_type", "other").Debug("Incoming update")
	}
}
