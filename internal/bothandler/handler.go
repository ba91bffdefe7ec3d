package bothandler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.opentelemetry.io/otel/trace"

	"github.com/matchfound/matchfound/internal/database"
	"github.com/matchfound/matchfound/internal/errors"
	"github.com/matchfound/matchfound/internal/interfaces"
	"github.com/matchfound/matchfound/internal/middleware"
	"github.com/matchfound/matchfound/internal/monitoring"
	"github.com/matchfound/matchfound/internal/session"
	"github.com/matchfound/matchfound/internal/telemetry"
)

const minAge = 18

// ExclusionCounter reports how many users are already out of a seeker's
// pool, preferring a cached count over a fresh build.
type ExclusionCounter interface {
	CachedCount(ctx context.Context, seekerID int64) (int, error)
}

type Handler struct {
	bot             *bot.Bot
	profileService  interfaces.ProfileServiceInterface
	matchingService interfaces.MatchingServiceInterface
	likeService     interfaces.LikeServiceInterface
	sessions        session.Store
	states          *StateManager

	loggingMiddleware   *middleware.BotLoggingMiddleware
	rateLimitMiddleware *middleware.RateLimitMiddleware
	errorMiddleware     *middleware.ErrorHandlerMiddleware
	profileMiddleware   *middleware.ProfileMiddleware

	instrumentation  *monitoring.MatchInstrumentation
	exclusionCounter ExclusionCounter

	chained bot.HandlerFunc
}

func NewHandler(
	b *bot.Bot,
	profileService interfaces.ProfileServiceInterface,
	matchingService interfaces.MatchingServiceInterface,
	likeService interfaces.LikeServiceInterface,
	sessions session.Store,
	limiter middleware.FloodLimiter,
) *Handler {
	states := NewStateManager(30 * time.Minute)
	states.StartCleanupRoutine(10 * time.Minute)

	h := &Handler{
		bot:                 b,
		profileService:      profileService,
		matchingService:     matchingService,
		likeService:         likeService,
		sessions:            sessions,
		states:              states,
		loggingMiddleware:   middleware.NewBotLoggingMiddleware(),
		rateLimitMiddleware: middleware.NewRateLimitMiddleware(limiter, 20, time.Minute),
		errorMiddleware:     middleware.NewErrorHandlerMiddleware(),
		profileMiddleware:   middleware.NewProfileMiddleware(profileService),
	}
	h.chained = h.chainMiddleware(h.processUpdate)
	return h
}

// SetInstrumentation attaches the OpenTelemetry instrumentation
func (h *Handler) SetInstrumentation(instr *monitoring.MatchInstrumentation) {
	h.instrumentation = instr
}

// SetExclusionCounter enables the "already seen" line in the empty
// /find reply.
func (h *Handler) SetExclusionCounter(counter ExclusionCounter) {
	h.exclusionCounter = counter
}

// HandleWebhook accepts a Telegram update over HTTP
func (h *Handler) HandleWebhook(c *gin.Context) {
	var update models.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		telemetry.GetContextualLogger(c.Request.Context()).WithError(err).Error("Failed to parse webhook JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	h.chained(c.Request.Context(), h.bot, &update)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterHandlers registers the middleware-wrapped handlers for polling
func (h *Handler) RegisterHandlers() {
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, h.chained)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, h.chained)
}

// chainMiddleware applies all middleware, outermost first
func (h *Handler) chainMiddleware(handler bot.HandlerFunc) bot.HandlerFunc {
	wrapped := handler
	wrapped = h.profileMiddleware.Middleware(wrapped)
	wrapped = h.errorMiddleware.Middleware(wrapped)
	wrapped = h.rateLimitMiddleware.Middleware(wrapped)
	wrapped = h.loggingMiddleware.Middleware(wrapped)
	return wrapped
}

func (h *Handler) processUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	switch {
	case update.Message != nil:
		if h.instrumentation != nil {
			h.instrumentation.RecordUpdate(ctx, "message")
		}
		h.handleMessage(ctx, update)
	case update.CallbackQuery != nil:
		if h.instrumentation != nil {
			h.instrumentation.RecordUpdate(ctx, "callback_query")
		}
		h.handleCallbackQuery(ctx, update)
	}
}

func (h *Handler) handleMessage(ctx context.Context, update *models.Update) {
	message := update.Message
	if message.From == nil {
		return
	}

	if strings.HasPrefix(message.Text, "/") {
		h.states.Clear(message.From.ID)
		h.handleCommand(ctx, update)
		return
	}

	h.handleEditReply(ctx, update)
}

func (h *Handler) handleCommand(ctx context.Context, update *models.Update) {
	message := update.Message
	chatID := message.Chat.ID
	userID := message.From.ID
	command := extractCommand(message.Text)

	if h.instrumentation != nil {
		var span trace.Span
		ctx, span = h.instrumentation.StartCommandSpan(ctx, command, userID)
		defer h.instrumentation.EndCommandSpan(ctx, span, command, nil)
	}

	switch command {
	case "start":
		h.handleStartCommand(ctx, chatID)
	case "find":
		h.handleFindCommand(ctx, update, chatID, userID)
	case "liked":
		h.handleLikedCommand(ctx, update, chatID, userID)
	case "profile":
		h.handleProfileCommand(ctx, update, chatID, userID)
	case "help":
		h.handleHelpCommand(ctx, chatID)
	default:
		h.sendMessage(ctx, chatID, "Unknown command. Type /help for available commands.")
	}
}

func (h *Handler) handleStartCommand(ctx context.Context, chatID int64) {
	h.sendMessage(ctx, chatID,
		"Welcome to MatchFound!\n\n"+
			"Fill in your profile with /profile, then use /find to browse compatible people. "+
			"When two people like each other you both get the other's contact.\n\n"+
			"Type /help for the full command list.")
}

func (h *Handler) handleHelpCommand(ctx context.Context, chatID int64) {
	h.sendMessage(ctx, chatID,
		"Available commands:\n\n"+
			"/find - browse compatible profiles\n"+
			"/liked - see who liked you\n"+
			"/profile - view and edit your profile\n"+
			"/help - this message")
}

func (h *Handler) handleFindCommand(ctx context.Context, update *models.Update, chatID, userID int64) {
	start := time.Now()

	matches, err := h.matchingService.FindMatches(ctx, userID)
	if h.instrumentation != nil {
		h.instrumentation.RecordFind(ctx, time.Since(start), len(matches), err)
	}
	if err != nil {
		h.errorMiddleware.HandleError(ctx, h.bot, update, err)
		return
	}

	if len(matches) == 0 {
		if err := h.sessions.DeleteMatchSession(ctx, userID); err != nil {
			telemetry.GetContextualLogger(ctx).WithError(err).Warn("Failed to clear match session")
		}
		h.sendMessage(ctx, chatID, h.noMatchesMessage(ctx, userID))
		return
	}

	entries := make([]session.Entry, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, session.Entry{
			ID:       m.Profile.ID,
			Priority: m.MatchPriority,
			Score:    m.CompatibilityScore,
		})
	}
	sess := &session.MatchSession{Entries: entries}
	if err := h.sessions.SetMatchSession(ctx, userID, sess); err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).Warn("Failed to persist match session")
	}

	h.sendMessage(ctx, chatID, fmt.Sprintf("Found %d people for you.", len(matches)))
	h.showCurrentMatch(ctx, chatID, userID, sess)
}

// noMatchesMessage builds the empty /find reply. When an exclusion
// counter is wired it tells the user how many people they have already
// gone through; a counter failure falls back to the plain message.
func (h *Handler) noMatchesMessage(ctx context.Context, userID int64) string {
	base := "No matches right now. Check back later, or add more to your profile to widen the pool."
	if h.exclusionCounter == nil {
		return base
	}
	count, err := h.exclusionCounter.CachedCount(ctx, userID)
	if err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).Warn("Failed to read exclusion count")
		return base
	}
	if count <= 0 {
		return base
	}
	return fmt.Sprintf("No matches right now. You've already gone through %d people. Check back later, or add more to your profile to widen the pool.", count)
}

// showCurrentMatch renders the session's current candidate. Candidates
// whose profile has vanished since ranking are skipped in place.
func (h *Handler) showCurrentMatch(ctx context.Context, chatID, userID int64, sess *session.MatchSession) {
	for {
		entry, ok := sess.Current()
		if !ok {
			if err := h.sessions.DeleteMatchSession(ctx, userID); err != nil {
				telemetry.GetContextualLogger(ctx).WithError(err).Warn("Failed to clear match session")
			}
			h.sendMessage(ctx, chatID, "That's everyone for now. Run /find again later.")
			return
		}

		profile, err := h.profileService.GetProfile(ctx, entry.ID)
		if err != nil {
			if errors.IsErrorType(err, errors.ErrorTypeNotFound) {
				sess.Advance()
				continue
			}
			telemetry.GetContextualLogger(ctx).WithError(err).Error("Failed to load match profile")
			h.sendMessage(ctx, chatID, "Something went wrong showing this match. Try /find again.")
			return
		}

		if err := h.sessions.SetMatchSession(ctx, userID, sess); err != nil {
			telemetry.GetContextualLogger(ctx).WithError(err).Warn("Failed to persist match session")
		}

		text := renderMatchCard(profile, entry.Priority, entry.Score)
		keyboard := models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "❤️ Like", CallbackData: fmt.Sprintf("like:%d", profile.ID)},
				{Text: "👎 Pass", CallbackData: fmt.Sprintf("skip:%d", profile.ID)},
				{Text: "➡️ Next", CallbackData: "next"},
			}},
		}
		h.sendMessageWithKeyboard(ctx, chatID, text, keyboard)
		return
	}
}

func (h *Handler) handleLikedCommand(ctx context.Context, update *models.Update, chatID, userID int64) {
	ids, err := h.likeService.GetLikedBy(ctx, userID)
	if err != nil {
		h.errorMiddleware.HandleError(ctx, h.bot, update, errors.NewDatabaseError("list liked-by", err))
		return
	}

	if len(ids) == 0 {
		h.sendMessage(ctx, chatID, "Nobody new has liked you yet. Keep browsing with /find.")
		return
	}

	sess := &session.LikedBySession{UserIDs: ids}
	if err := h.sessions.SetLikedBySession(ctx, userID, sess); err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).Warn("Failed to persist liked-by session")
	}

	h.sendMessage(ctx, chatID, fmt.Sprintf("%d people liked you.", len(ids)))
	h.showCurrentLikedBy(ctx, chatID, userID, sess)
}

func (h *Handler) showCurrentLikedBy(ctx context.Context, chatID, userID int64, sess *session.LikedBySession) {
	for {
		likerID, ok := sess.Current()
		if !ok {
			if err := h.sessions.DeleteLikedBySession(ctx, userID); err != nil {
				telemetry.GetContextualLogger(ctx).WithError(err).Warn("Failed to clear liked-by session")
			}
			h.sendMessage(ctx, chatID, "That's everyone who liked you.")
			return
		}

		profile, err := h.profileService.GetProfile(ctx, likerID)
		if err != nil {
			if errors.IsErrorType(err, errors.ErrorTypeNotFound) {
				sess.Advance()
				continue
			}
			telemetry.GetContextualLogger(ctx).WithError(err).Error("Failed to load liker profile")
			h.sendMessage(ctx, chatID, "Something went wrong. Try /liked again.")
			return
		}

		if err := h.sessions.SetLikedBySession(ctx, userID, sess); err != nil {
			telemetry.GetContextualLogger(ctx).WithError(err).Warn("Failed to persist liked-by session")
		}

		text := "This person liked you:\n\n" + renderProfileSummary(profile)
		keyboard := models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "❤️ Like back", CallbackData: fmt.Sprintf("likeback:%d", profile.ID)},
				{Text: "👎 Pass", CallbackData: fmt.Sprintf("pass:%d", profile.ID)},
				{Text: "➡️ Next", CallbackData: "nextliked"},
			}},
		}
		h.sendMessageWithKeyboard(ctx, chatID, text, keyboard)
		return
	}
}

func (h *Handler) handleProfileCommand(ctx context.Context, update *models.Update, chatID, userID int64) {
	profile, err := h.profileService.GetProfile(ctx, userID)
	if err != nil {
		h.errorMiddleware.HandleError(ctx, h.bot, update, err)
		return
	}

	text := fmt.Sprintf("Your profile (%d/%d complete):\n\n%s",
		profile.CompletionScore, database.MaxCompletionScore, renderProfileSummary(profile))
	keyboard := models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Name", CallbackData: "edit:name"},
				{Text: "Bio", CallbackData: "edit:bio"},
				{Text: "Birth date", CallbackData: "edit:birth_date"},
			},
			{
				{Text: "Interests", CallbackData: "edit:interests"},
				{Text: "Location", CallbackData: "edit:location"},
				{Text: "Mood", CallbackData: "edit:mood"},
			},
			{
				{Text: "I'm a man", CallbackData: "gender:male"},
				{Text: "I'm a woman", CallbackData: "gender:female"},
			},
			{
				{Text: "Seeking men", CallbackData: "seeking:male"},
				{Text: "Seeking women", CallbackData: "seeking:female"},
				{Text: "Seeking both", CallbackData: "seeking:both"},
			},
		},
	}
	h.sendMessageWithKeyboard(ctx, chatID, text, keyboard)
}

func (h *Handler) handleCallbackQuery(ctx context.Context, update *models.Update) {
	callback := update.CallbackQuery
	userID := callback.From.ID

	if _, err := h.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	}); err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).Warn("Failed to answer callback query")
	}

	if callback.Message.Message == nil {
		return
	}
	chatID := callback.Message.Message.Chat.ID

	action, arg, _ := strings.Cut(callback.Data, ":")
	switch action {
	case "like":
		h.handleLikeCallback(ctx, update, chatID, userID, arg, false)
	case "skip":
		h.handleSkipCallback(ctx, update, chatID, userID, arg)
	case "next":
		h.advanceMatchSession(ctx, chatID, userID)
	case "likeback":
		h.handleLikeCallback(ctx, update, chatID, userID, arg, true)
	case "pass":
		h.handlePassCallback(ctx, update, chatID, userID, arg)
	case "nextliked":
		h.advanceLikedBySession(ctx, chatID, userID)
	case "edit":
		h.promptEdit(ctx, chatID, userID, arg)
	case "gender":
		h.setEnumField(ctx, update, chatID, userID, "gender", arg)
	case "seeking":
		h.setEnumField(ctx, update, chatID, userID, "looking_for", arg)
	}
}

func (h *Handler) handleLikeCallback(ctx context.Context, update *models.Update, chatID, userID int64, arg string, fromLikedBy bool) {
	targetID, err := parseUserID(arg)
	if err != nil {
		return
	}

	result, err := h.likeService.RecordLike(ctx, userID, targetID)
	if err != nil {
		h.errorMiddleware.HandleError(ctx, h.bot, update, err)
		return
	}
	if h.instrumentation != nil {
		h.instrumentation.RecordLike(ctx, result.Mutual)
	}

	if result.Mutual {
		h.announceMutualLike(ctx, chatID, userID, targetID, result.Target)
	} else {
		h.sendMessage(ctx, chatID, "Liked! If they like you back you'll both be notified.")
	}

	if fromLikedBy {
		h.advanceLikedBySession(ctx, chatID, userID)
	} else {
		h.advanceMatchSession(ctx, chatID, userID)
	}
}

func (h *Handler) handleSkipCallback(ctx context.Context, update *models.Update, chatID, userID int64, arg string) {
	targetID, err := parseUserID(arg)
	if err != nil {
		return
	}
	if err := h.likeService.RecordIgnore(ctx, userID, targetID); err != nil {
		h.errorMiddleware.HandleError(ctx, h.bot, update, errors.NewDatabaseError("record ignore", err))
		return
	}
	h.advanceMatchSession(ctx, chatID, userID)
}

func (h *Handler) handlePassCallback(ctx context.Context, update *models.Update, chatID, userID int64, arg string) {
	targetID, err := parseUserID(arg)
	if err != nil {
		return
	}
	if err := h.likeService.RecordIgnore(ctx, userID, targetID); err != nil {
		h.errorMiddleware.HandleError(ctx, h.bot, update, errors.NewDatabaseError("record ignore", err))
		return
	}
	h.advanceLikedBySession(ctx, chatID, userID)
}

func (h *Handler) advanceMatchSession(ctx context.Context, chatID, userID int64) {
	sess, err := h.sessions.GetMatchSession(ctx, userID)
	if err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).Warn("Failed to load match session")
	}
	if sess == nil {
		h.sendMessage(ctx, chatID, "Your browsing session expired. Run /find to start over.")
		return
	}
	sess.Advance()
	h.showCurrentMatch(ctx, chatID, userID, sess)
}

func (h *Handler) advanceLikedBySession(ctx context.Context, chatID, userID int64) {
	sess, err := h.sessions.GetLikedBySession(ctx, userID)
	if err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).Warn("Failed to load liked-by session")
	}
	if sess == nil {
		h.sendMessage(ctx, chatID, "Your session expired. Run /liked to start over.")
		return
	}
	sess.Advance()
	h.showCurrentLikedBy(ctx, chatID, userID, sess)
}

// announceMutualLike tells both parties and exchanges contact handles
func (h *Handler) announceMutualLike(ctx context.Context, chatID, userID, targetID int64, target *database.UserProfile) {
	if target == nil {
		var err error
		target, err = h.profileService.GetProfile(ctx, targetID)
		if err != nil {
			telemetry.GetContextualLogger(ctx).WithError(err).Error("Failed to load mutual like target")
			h.sendMessage(ctx, chatID, "It's a match! 🎉")
			return
		}
	}
	self, err := h.profileService.GetProfile(ctx, userID)
	if err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).Error("Failed to load mutual like actor")
	}

	h.sendMessage(ctx, chatID, fmt.Sprintf("It's a match! 🎉 Say hi to %s.", contactLine(target)))

	// private chat IDs equal user IDs
	if self != nil {
		h.sendMessage(ctx, targetID, fmt.Sprintf("It's a match! 🎉 %s liked you back. Say hi to %s.",
			displayName(self), contactLine(self)))
	}
}

func (h *Handler) promptEdit(ctx context.Context, chatID, userID int64, field string) {
	prompts := map[string]struct {
		state EditState
		text  string
	}{
		"name":       {EditStateName, "What should we call you?"},
		"bio":        {EditStateBio, "Send a short bio."},
		"birth_date": {EditStateBirthDate, "Send your birth date as YYYY-MM-DD."},
		"interests":  {EditStateInterests, "Send your interests separated by commas, at least three."},
		"location":   {EditStateLocation, "Where are you based?"},
		"mood":       {EditStateMood, "What are you in the mood for? (e.g. chat, date, friends)"},
	}
	prompt, ok := prompts[field]
	if !ok {
		return
	}
	h.states.Set(userID, prompt.state)
	h.sendMessage(ctx, chatID, prompt.text)
}

func (h *Handler) setEnumField(ctx context.Context, update *models.Update, chatID, userID int64, field, value string) {
	if field == "gender" && value != database.GenderMale && value != database.GenderFemale {
		return
	}
	if field == "looking_for" && value != database.GenderMale && value != database.GenderFemale && value != database.LookingBoth {
		return
	}
	if err := h.profileService.UpdateField(ctx, userID, field, &value); err != nil {
		h.errorMiddleware.HandleError(ctx, h.bot, update, err)
		return
	}
	h.sendMessage(ctx, chatID, "Saved.")
}

func (h *Handler) handleEditReply(ctx context.Context, update *models.Update) {
	message := update.Message
	chatID := message.Chat.ID
	userID := message.From.ID
	text := strings.TrimSpace(message.Text)

	state := h.states.Get(userID)
	if state == EditStateNone {
		h.sendMessage(ctx, chatID, "I didn't catch that. Type /help for available commands.")
		return
	}

	var err error
	switch state {
	case EditStateName:
		err = h.profileService.UpdateField(ctx, userID, "display_name", &text)
	case EditStateBio:
		err = h.profileService.UpdateField(ctx, userID, "bio", &text)
	case EditStateBirthDate:
		var birthDate time.Time
		birthDate, err = time.Parse("2006-01-02", text)
		if err != nil {
			h.sendMessage(ctx, chatID, "That doesn't look like a date. Use YYYY-MM-DD, e.g. 1995-04-23.")
			return
		}
		if age := yearsSince(birthDate, time.Now()); age < minAge {
			h.states.Clear(userID)
			h.sendMessage(ctx, chatID, fmt.Sprintf("You must be at least %d to use this bot.", minAge))
			return
		}
		err = h.profileService.SetBirthDate(ctx, userID, birthDate)
	case EditStateInterests:
		interests := parseInterests(text)
		if len(interests) == 0 {
			h.sendMessage(ctx, chatID, "Send at least one interest, separated by commas.")
			return
		}
		err = h.profileService.SetInterests(ctx, userID, interests)
	case EditStateLocation:
		err = h.profileService.UpdateField(ctx, userID, "location", &text)
	case EditStateMood:
		err = h.profileService.UpdateField(ctx, userID, "mood", &text)
	}

	if err != nil {
		h.errorMiddleware.HandleError(ctx, h.bot, update, err)
		return
	}

	h.states.Clear(userID)
	h.sendMessage(ctx, chatID, "Saved. View your profile with /profile.")
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
			"chat_id":   chatID,
			"operation": "send_message",
		}).WithError(err).Error("Failed to send message")
	}
}

func (h *Handler) sendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard models.InlineKeyboardMarkup) {
	if _, err := h.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	}); err != nil {
		telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
			"chat_id":   chatID,
			"operation": "send_message_with_keyboard",
		}).WithError(err).Error("Failed to send message with keyboard")
	}
}
