package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/matchfound/matchfound/internal/bothandler"
	"github.com/matchfound/matchfound/internal/cache"
	"github.com/matchfound/matchfound/internal/database"
	"github.com/matchfound/matchfound/internal/matching"
	"github.com/matchfound/matchfound/internal/monitoring"
	"github.com/matchfound/matchfound/internal/services"
	"github.com/matchfound/matchfound/internal/session"
	"github.com/matchfound/matchfound/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}

	if err := telemetry.InitGlobalLogger(telemetry.DefaultLogConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	ctx := context.Background()
	logger := telemetry.GetContextualLogger(ctx)

	shutdownOtel, err := telemetry.InitializeOpenTelemetry(ctx, telemetry.LoadConfigFromEnv())
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize OpenTelemetry")
	}
	defer shutdownOtel()

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("TELEGRAM_BOT_TOKEN environment variable is required")
	}
	webhookURL := os.Getenv("TELEGRAM_WEBHOOK_URL")
	port := os.Getenv("BOT_PORT")
	if port == "" {
		port = "8081"
	}

	db, err := database.NewInstrumentedConnection(database.ConfigFromEnv())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisService, err := cache.NewInstrumentedRedisService(cache.ConfigFromEnv())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisService.Close()

	tables, err := matching.LoadTables()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load compatibility tables")
	}
	logger.WithField("tables_version", tables.Version).Info("Compatibility tables loaded")

	instr, err := monitoring.NewMatchInstrumentation()
	if err != nil {
		logger.WithError(err).Fatal("Failed to create instrumentation")
	}

	matchCache := cache.NewMatchCache(redisService, matching.MatchListTTL, matching.ExclusionCountTTL)
	sessionStore := session.NewRedisStore(redisService, session.BrowseTTL)

	profileService := services.NewProfileService(db, matchCache)
	likeService := services.NewLikeService(db, matchCache)
	banService := services.NewBanService(db)

	exclusions := matching.NewExclusionBuilder(db, matchCache)
	scorer := matching.NewScorer(tables)
	matchingService := matching.NewService(profileService, banService, exclusions, matchCache, scorer).
		WithObserver(instr)

	botAPI, err := bot.New(botToken)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create bot")
	}
	botInfo, err := botAPI.GetMe(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get bot info")
	}
	logger.WithField("bot_username", botInfo.Username).Info("Bot authorized")

	handler := bothandler.NewHandler(botAPI, profileService, matchingService, likeService, sessionStore, redisService)
	handler.SetInstrumentation(instr)
	handler.SetExclusionCounter(exclusions)

	health := monitoring.NewHealthChecker()
	health.Register("postgres", func(ctx context.Context) error { return db.Health() })
	health.Register("redis", func(ctx context.Context) error { return redisService.HealthCheck(ctx) })

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("matchfound-bot"))

	router.GET("/health", health.HealthHandler)
	router.GET("/health/live", health.LivenessHandler)
	router.GET("/health/ready", health.ReadinessHandler)
	router.POST("/webhook", handler.HandleWebhook)

	botCtx, cancelBot := context.WithCancel(ctx)
	defer cancelBot()

	if webhookURL != "" {
		if _, err := botAPI.SetWebhook(ctx, &bot.SetWebhookParams{URL: webhookURL + "/webhook"}); err != nil {
			logger.WithError(err).Fatal("Failed to set webhook")
		}
		logger.WithField("url", webhookURL+"/webhook").Info("Webhook configured")
	} else {
		if _, err := botAPI.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
			logger.WithError(err).Warn("Failed to remove webhook")
		}
		handler.RegisterHandlers()
		go botAPI.Start(botCtx)
		logger.Info("Bot started in polling mode")
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
	go func() {
		logger.WithField("port", port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	cancelBot()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
