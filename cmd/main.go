package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"promptbot/internal/config"
	"promptbot/internal/entities"
	"promptbot/internal/infrastructure"
	"promptbot/internal/interfaces"
	"promptbot/internal/interfaces/http"
	"promptbot/internal/logging"
	"promptbot/internal/metrics"
	"promptbot/internal/repository"
	"promptbot/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	pgClient, err := infrastructure.NewPostgresClient(ctx, cfg.Database.URL, cfg.Database.Production)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	// Initialize Repositories
	promptRepo := repository.NewPromptRepository(pgClient.Pool)
	historyRepo := repository.NewHistoryRepository(pgClient.Pool)
	userRepo := repository.NewUserRepository(pgClient.Pool)
	ledgerRepo := repository.NewLedgerRepository(pgClient.Pool)
	usageRepo := repository.NewUsageRepository(pgClient.Pool)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	completion, err := newCompletionClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create completion client")
	}

	// Initialize Usecases
	authUsecase := usecases.NewAuthUsecase(userRepo, cfg.Auth.JWTSecret)
	pipeline := usecases.NewMessagePipeline(authUsecase, promptRepo, historyRepo, completion, usecases.PipelineOptions{
		HistoryLimit:      cfg.Pipeline.HistoryLimit,
		DefaultPromptID:   cfg.Pipeline.DefaultPromptID,
		Language:          cfg.Pipeline.Language,
		MaxTokens:         cfg.Completion.MaxTokens,
		CompletionTimeout: cfg.Completion.Timeout,
	})
	pipeline.Ledger = ledgerRepo
	pipeline.Usage = usageRepo
	pipeline.Sequencer = infrastructure.NewConversationSequencer()
	pipeline.Metrics = appMetrics

	deps := http.Dependencies{
		Pipeline: pipeline,
		Verifier: usecases.NewWebhookVerifier(cfg.Webhook.VerifyToken),
		Webhook:  cfg.Webhook,
		Usage:    usageRepo,
		Health:   pgClient,
		Gatherer: registry,
	}

	if cfg.Webhook.Enabled {
		cloud := infrastructure.NewWhatsAppCloudClient(cfg.Webhook.APIURL, cfg.Webhook.SenderID, cfg.Webhook.BearerToken)
		throttle := infrastructure.NewDeliveryThrottle(cloud, cfg.Delivery.Rate, cfg.Delivery.Burst)
		go throttle.RunSweeper(ctx, 5*time.Minute)
		pipeline.RegisterChannel(usecases.ChannelWebhook, throttle)
		deps.Outbound = throttle
		log.Info().Str("sender_id", cfg.Webhook.SenderID).Msg("webhook channel enabled")
	}

	var telegram *infrastructure.TelegramChannel
	if cfg.Telegram.Token != "" {
		tg, err := infrastructure.NewTelegramChannel(cfg.Telegram.Token)
		if err != nil {
			log.Error().Err(err).Msg("telegram disabled")
		} else {
			tg.Handler = channelHandler(pipeline, "telegram", cfg.Telegram.UserID)
			pipeline.RegisterChannel("telegram", tg)
			telegram = tg
		}
	}

	if cfg.WhatsApp.UserID > 0 {
		device, err := infrastructure.NewWhatsAppDevice(ctx, cfg.WhatsApp.DeviceDB)
		if err != nil {
			log.Error().Err(err).Msg("whatsapp device disabled")
		} else {
			device.Handler = channelHandler(pipeline, "whatsapp", cfg.WhatsApp.UserID)
			throttle := infrastructure.NewDeliveryThrottle(device, cfg.Delivery.Rate, cfg.Delivery.Burst)
			go throttle.RunSweeper(ctx, 5*time.Minute)
			pipeline.RegisterChannel("whatsapp", throttle)
			if err := device.Connect(ctx); err != nil {
				log.Error().Err(err).Msg("whatsapp device connect failed")
			}
			defer device.Disconnect()
			deps.Device = device
		}
	}

	// Pollers start once every channel is registered.
	if telegram != nil {
		go telegram.Run(ctx)
	}

	// Setup HTTP server
	r := gin.New()
	r.Use(gin.Recovery())
	http.SetupRoutes(r, deps, http.NewMiddleware(authUsecase, appMetrics))

	srv := &nethttp.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("provider", completion.Name()).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
}

func newCompletionClient(cfg *config.Config) (interfaces.CompletionClient, error) {
	switch cfg.Completion.Provider {
	case "openai":
		return infrastructure.NewOpenAIClient(cfg.Completion.APIKey, cfg.Completion.BaseURL)
	case "ollama":
		return infrastructure.NewOllamaClient(cfg.Completion.BaseURL, "")
	default:
		return infrastructure.NewOpenRouterClient(cfg.Completion.APIKey, cfg.Completion.BaseURL, cfg.Completion.Timeout), nil
	}
}

// channelHandler runs the pipeline for messages polled from a channel bound to one
// owning user, and delivers replies back through the same channel.
func channelHandler(pipeline *usecases.MessagePipeline, channel string, userID int) infrastructure.InboundHandler {
	return func(ctx context.Context, msg entities.IncomingMessage) {
		result, err := pipeline.Run(ctx, usecases.PipelineRequest{
			Message:     msg,
			Channel:     channel,
			Credentials: usecases.Credentials{UserID: userID},
			Deliver:     true,
		})
		if err != nil {
			log.Error().Err(err).Str("channel", channel).Str("from", msg.From).Msg("channel message failed")
			return
		}
		log.Debug().Str("channel", channel).Str("outcome", result.Outcome).Bool("delivered", result.Delivered).Msg("channel message handled")
	}
}
