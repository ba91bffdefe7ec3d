package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/matchfound/matchfound/internal/telemetry"
)

const floodKeyPrefix = "flood:"

// FloodLimiter claims short per-user windows. Satisfied by
// cache.RedisService through SetNX.
type FloodLimiter interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}

// RateLimitMiddleware throttles raw update volume per user with an
// atomic Redis window. This is coarse flood control for every update;
// the /find cooldown is enforced separately inside the match pipeline.
// When Redis is unreachable the limiter fails open.
type RateLimitMiddleware struct {
	limiter  FloodLimiter
	limit    int
	window   time.Duration
	perSpace time.Duration
}

// NewRateLimitMiddleware allows limit updates per window per user
func NewRateLimitMiddleware(limiter FloodLimiter, limit int, window time.Duration) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:  limiter,
		limit:    limit,
		window:   window,
		perSpace: window / time.Duration(limit),
	}
}

func (m *RateLimitMiddleware) Middleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		userID, _, ok := senderOf(update)
		if !ok {
			next(ctx, b, update)
			return
		}

		// one slot per spacing interval approximates limit/window
		slot := time.Now().UnixNano() / int64(m.perSpace)
		key := fmt.Sprintf("%s%d:%d", floodKeyPrefix, userID, slot)

		acquired, err := m.limiter.SetNX(ctx, key, 1, m.window)
		if err != nil {
			telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
				"user_id":   userID,
				"operation": "flood_check",
			}).WithError(err).Warn("Flood limiter unavailable, allowing update")
			next(ctx, b, update)
			return
		}
		if !acquired {
			telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
				"user_id":   userID,
				"operation": "flood_check",
			}).Warn("Update dropped by flood limiter")
			return
		}

		next(ctx, b, update)
	}
}
