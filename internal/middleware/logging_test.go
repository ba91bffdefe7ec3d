package middleware

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
)

func TestBotLoggingMiddleware_PassesUpdateThrough(t *testing.T) {
	m := NewBotLoggingMiddleware()

	calls := 0
	handler := m.Middleware(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		calls++
	})
	handler(context.Background(), nil, messageUpdate(1))

	assert.Equal(t, 1, calls)
}

func TestBotLoggingMiddleware_HandlesMessageWithoutSender(t *testing.T) {
	m := NewBotLoggingMiddleware()

	// channel posts and anonymous admin messages carry no From
	update := &models.Update{
		Message: &models.Message{Chat: models.Chat{ID: 42}},
	}

	calls := 0
	handler := m.Middleware(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		calls++
	})
	assert.NotPanics(t, func() {
		handler(context.Background(), nil, update)
	})
	assert.Equal(t, 1, calls)
}

func TestBotLoggingMiddleware_HandlesEmptyUpdate(t *testing.T) {
	m := NewBotLoggingMiddleware()

	handler := m.Middleware(func(ctx context.Context, b *bot.Bot, update *models.Update) {})
	assert.NotPanics(t, func() {
		handler(context.Background(), nil, &models.Update{})
	})
}
