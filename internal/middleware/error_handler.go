package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/matchfound/matchfound/internal/errors"
	"github.com/matchfound/matchfound/internal/telemetry"
)

// ErrorHandlerMiddleware provides centralized error handling for bot
// operations. Handlers bubble AppErrors up; this layer logs them and
// turns them into user-facing chat replies.
type ErrorHandlerMiddleware struct{}

func NewErrorHandlerMiddleware() *ErrorHandlerMiddleware {
	return &ErrorHandlerMiddleware{}
}

// Middleware returns the error handling middleware function. Panics are
// recovered and reported as internal errors.
func (m *ErrorHandlerMiddleware) Middleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		defer func() {
			if r := recover(); r != nil {
				telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
					"operation":   "error_handler_panic",
					"panic_value": fmt.Sprintf("%v", r),
					"stack_trace": string(debug.Stack()),
				}).Error("Panic recovered in bot handler")

				err := errors.NewInternalError(fmt.Sprintf("panic in handler: %v", r), nil)
				m.HandleError(ctx, b, update, err)
			}
		}()

		next(ctx, b, update)
	}
}

// HandleError logs an error and sends the matching user-facing reply
func (m *ErrorHandlerMiddleware) HandleError(ctx context.Context, b *bot.Bot, update *models.Update, err error) {
	appErr := asAppError(err)

	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation":  "handle_error",
		"error_type": string(appErr.Type),
		"error_code": appErr.Code,
	})
	if chatID, userID, ok := updateOrigin(update); ok {
		logger = logger.WithFields(map[string]interface{}{
			"chat_id": chatID,
			"user_id": userID,
		})
	}
	for k, v := range appErr.Metadata {
		logger = logger.WithField(k, v)
	}

	switch appErr.Type {
	case errors.ErrorTypeValidation, errors.ErrorTypeIncompleteProfile,
		errors.ErrorTypeRateLimit, errors.ErrorTypeNotFound:
		logger.WithError(appErr).Warn("Handler returned user error")
	default:
		logger.WithError(appErr).Error("Handler returned error")
	}

	chatID, _, ok := updateOrigin(update)
	if !ok {
		return
	}
	if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   userMessageFor(appErr),
	}); sendErr != nil {
		logger.WithError(sendErr).Error("Failed to send error reply")
	}
}

func asAppError(err error) *errors.AppError {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	return errors.NewInternalError("an unexpected error occurred", err)
}

// userMessageFor maps an error to the chat reply the user sees. Internal
// detail never leaks into these strings.
func userMessageFor(appErr *errors.AppError) string {
	switch appErr.Type {
	case errors.ErrorTypeIncompleteProfile:
		if field, ok := appErr.Metadata["field"].(string); ok {
			return fmt.Sprintf("Your profile is missing %s. Fill it in with /profile before searching.", fieldLabel(field))
		}
		return "Your profile is not complete enough to search yet. Fill it in with /profile."
	case errors.ErrorTypeRateLimit:
		if secs, ok := appErr.Metadata["retry_after_seconds"].(int); ok && secs > 0 {
			return fmt.Sprintf("Easy there. Try /find again in %s.", (time.Duration(secs) * time.Second).Round(time.Second))
		}
		return "Easy there. Try /find again in a bit."
	case errors.ErrorTypeBanned:
		if until, ok := appErr.Metadata["banned_until"].(string); ok {
			return fmt.Sprintf("Your account is suspended until %s.", until)
		}
		return "Your account has been suspended."
	case errors.ErrorTypeNotFound:
		return "That profile is no longer available."
	case errors.ErrorTypeValidation:
		return appErr.Message
	default:
		return "Something went wrong on our side. Please try again later."
	}
}

func fieldLabel(field string) string {
	switch field {
	case "gender":
		return "your gender"
	case "looking_for":
		return "who you are looking for"
	case "birth_date":
		return "your birth date"
	case "interests":
		return "a few interests"
	case "completion_score":
		return "a few more details"
	default:
		return field
	}
}

func updateOrigin(update *models.Update) (chatID, userID int64, ok bool) {
	switch {
	case update == nil:
		return 0, 0, false
	case update.Message != nil:
		return update.Message.Chat.ID, update.Message.From.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID, update.CallbackQuery.From.ID, true
	default:
		return 0, 0, false
	}
}
