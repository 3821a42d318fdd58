package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/storeassist/internal/adapters/cache"
	"github.com/zatekoja/storeassist/internal/adapters/database"
	"github.com/zatekoja/storeassist/internal/api/handlers"
	"github.com/zatekoja/storeassist/internal/api/middleware"
	"github.com/zatekoja/storeassist/internal/api/routes"
	"github.com/zatekoja/storeassist/internal/application/services"
	"github.com/zatekoja/storeassist/internal/domain/providers"
	"github.com/zatekoja/storeassist/internal/infrastructure/clients/gemini"
	"github.com/zatekoja/storeassist/internal/infrastructure/clients/openai"
	"github.com/zatekoja/storeassist/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/storeassist/internal/infrastructure/clients/redis"
	"github.com/zatekoja/storeassist/internal/infrastructure/clients/woocommerce"
	"github.com/zatekoja/storeassist/internal/infrastructure/observability"
	"github.com/zatekoja/storeassist/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.App.Name, cfg.App.Env, cfg.App.LogLevel)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	if err := database.EnsureSchema(ctx, pgClient.DB()); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	log.Info().Msg("PostgreSQL ready")

	// Redis is optional; rate limits fall back to process memory without it
	var cacheProvider providers.CacheProvider
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing without shared cache")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient, cfg.App.Name)
			log.Info().Msg("Redis ready")
		}
	}

	chatModel, closeModel := newChatModel(ctx, &cfg.LLM)
	defer closeModel()

	contentIndex := database.NewContentIndexAdapter(pgClient, metrics)
	conversations := database.NewConversationAdapter(pgClient)

	recommendationService := services.NewRecommendationService(contentIndex, cfg.Recommendation, cfg.Store.Currency, metrics)
	chatService := services.NewChatService(chatModel, conversations, recommendationService, services.ChatSettings{
		Store:        cfg.Store,
		Timeout:      cfg.LLM.Timeout,
		QuickReplies: cfg.Recommendation.EnableQuickReplies,

		Suggestions:     cfg.Recommendation.EnableProductSuggestions,
		SuggestionCount: cfg.Recommendation.SuggestionCount,
	})
	chatService.SetModelFactory(func(ctx context.Context, apiKey string) (providers.ChatModel, error) {
		llm := cfg.LLM
		llm.APIKey = apiKey
		return buildChatModel(ctx, &llm)
	})
	conversationService := services.NewConversationService(conversations)

	// Without store credentials the index is still served, only not refreshed
	var source providers.ContentSource
	if store, err := woocommerce.NewClient(&cfg.WooCommerce); err != nil {
		log.Warn().Err(err).Msg("store API not configured, indexing disabled")
	} else {
		source = store
		chatService.SetProductSearcher(store)
	}
	indexingService := services.NewIndexingService(source, contentIndex, cacheProvider, cfg.Indexing.PageSize, metrics)
	if source != nil && cfg.Indexing.Periodic {
		indexingService.StartPeriodicIndexing(ctx, cfg.Indexing.Interval)
	}

	chatHandler := handlers.NewChatHandler(chatService, cacheProvider, cfg.RateLimit)
	adminHandler := handlers.NewAdminHandler(conversationService, indexingService)

	var webhookHandler *handlers.WebhookHandler
	if source != nil {
		webhookHandler = handlers.NewWebhookHandler(indexingService, cfg.Indexing.WebhookSecret)
	}

	checks := map[string]handlers.Pinger{"postgres": pgClient}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	healthHandler := handlers.NewHealthHandler(checks)

	router := routes.NewRouter(
		chatHandler,
		adminHandler,
		webhookHandler,
		healthHandler,
		middleware.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.AdminRole),
		cfg.Server,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}

// newChatModel picks the completion backend. It returns a nil model when no
// API key is set so the chat service answers with its not-configured reply.
func newChatModel(ctx context.Context, cfg *config.LLMConfig) (providers.ChatModel, func()) {
	noop := func() {}
	if cfg.APIKey == "" {
		log.Warn().Msg("LLM_API_KEY is not set; chat replies are disabled")
		return nil, noop
	}

	model, err := buildChatModel(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("provider", cfg.Provider).Msg("failed to initialize chat model")
		return nil, noop
	}
	log.Info().Str("provider", model.Provider()).Str("model", model.Model()).Msg("chat model ready")

	if closer, ok := model.(io.Closer); ok {
		return model, func() {
			if err := closer.Close(); err != nil {
				log.Error().Err(err).Msg("error closing chat model")
			}
		}
	}
	return model, noop
}

func buildChatModel(ctx context.Context, cfg *config.LLMConfig) (providers.ChatModel, error) {
	switch cfg.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		client, err := openai.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
