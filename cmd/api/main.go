// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/capitalize-ai/powerlunch/internal/config"
	"github.com/capitalize-ai/powerlunch/internal/handler"
	"github.com/capitalize-ai/powerlunch/internal/llm"
	"github.com/capitalize-ai/powerlunch/internal/lock"
	"github.com/capitalize-ai/powerlunch/internal/middleware"
	"github.com/capitalize-ai/powerlunch/internal/model"
	natsclient "github.com/capitalize-ai/powerlunch/internal/nats"
	"github.com/capitalize-ai/powerlunch/internal/push"
	"github.com/capitalize-ai/powerlunch/internal/service"
	"github.com/capitalize-ai/powerlunch/internal/store"
	"github.com/capitalize-ai/powerlunch/pkg/logger"
	"github.com/capitalize-ai/powerlunch/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting power lunch API server")

	if cfg.AdminAPIKey == "" && cfg.JWTSecret == "" {
		log.Warn("neither ADMIN_API_KEY nor JWT_SECRET configured, admin endpoints will reject every request")
	}

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "powerlunch", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Firebase backs the Firestore store and push delivery
	var app *firebase.App
	if cfg.FirebaseProjectID != "" || cfg.FirebaseCredentialsFile != "" {
		app, err = newFirebaseApp(ctx, cfg)
		if err != nil {
			log.Warn("failed to initialize Firebase", zap.Error(err))
		}
	}

	st := newStore(ctx, cfg, app, log)

	// Connect to NATS
	var (
		natsClient *natsclient.Client
		events     service.EventPublisher
		reader     handler.EventReader
		natsHealth handler.ConnChecker
	)
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
			Name:     "powerlunch",
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		// Ensure JetStream stream exists
		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
		events, reader, natsHealth = streamManager, streamManager, natsClient
	} else {
		log.Info("NATS disabled, match events will not be published")
	}

	// Run lock
	var locker service.Locker = service.NoopLocker{}
	if cfg.RedisAddr != "" {
		rdb, err := lock.NewClient(ctx, lock.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, runs are serialized by the store transaction only", zap.Error(err))
		} else {
			defer rdb.Close()
			locker = lock.NewRedisLocker(rdb)
		}
	}

	// Initialize LLM client
	llmClient, err := newLLMClient(cfg)
	if err != nil {
		log.Warn("no LLM client configured, matching runs will fail", zap.Error(err))
		llmClient = nil
	}

	// Push delivery
	var sender push.Sender = push.Disabled{}
	if app != nil {
		msgClient, err := app.Messaging(ctx)
		if err != nil {
			log.Warn("failed to create FCM client, notifications disabled", zap.Error(err))
		} else {
			sender = push.NewFCMSender(msgClient)
		}
	}

	// Initialize services
	matchingCfg := service.DefaultMatchingConfig()
	matchingCfg.Constraints = model.MatchingConstraints{
		MinGroupSize:                cfg.MinGroupSize,
		MaxGroupSize:                cfg.MaxGroupSize,
		PrioritizeTopicOverlap:      true,
		PrioritizeDiverseExperience: true,
	}
	matchingCfg.OracleTimeout = cfg.OracleTimeout
	matchingCfg.CommitTimeout = cfg.CommitTimeout
	matchingCfg.LockTTL = cfg.RunLockTTL

	strategy := service.NewLLMStrategy(llmClient, cfg.MatchingModel, log)
	matchingSvc := service.NewMatchingService(st, strategy, locker, events, matchingCfg, log)
	notifier := service.NewNotifier(st, sender, events, cfg.NotifyConcurrency, log)
	networking := service.NewNetworkingService(st, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(st, natsHealth)
	adminHandler := handler.NewAdminHandler(matchingSvc, notifier, reader, log)
	networkingHandler := handler.NewNetworkingHandler(networking, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Admin routes
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminAPIKey, cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/match-lunches", adminHandler.Docs)
		r.Post("/match-lunches", adminHandler.MatchLunches)

		r.Route("/power-lunches", func(r chi.Router) {
			r.Post("/reminders", adminHandler.Reminder)
			r.Get("/{conferenceId}/groups/{groupId}", adminHandler.GroupDetails)
			r.Get("/{conferenceId}/events", adminHandler.Events)
		})
	})

	// Attendee-facing AI routes
	r.Route("/api/ai", func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.JWTSecret, middleware.NetworkingScope, middleware.AdminScope))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/suggest-networking", networkingHandler.Suggest)
		r.Post("/suggest-networking", networkingHandler.SuggestFromToolCall)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func newFirebaseApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	return firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
}

// newStore selects the registration store. Misconfiguration yields a store
// that fails every call with ErrStoreUnavailable so the server still starts
// and runs report the problem.
func newStore(ctx context.Context, cfg *config.Config, app *firebase.App, log *logger.Logger) store.Store {
	log = log.With(zap.String("backend", cfg.StoreBackend))

	switch cfg.StoreBackend {
	case config.StoreDynamoDB:
		client, err := store.NewDynamoClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			log.Error("failed to create DynamoDB client", zap.Error(err))
			return store.Unavailable{Reason: err}
		}
		log.Info("using DynamoDB store", zap.String("table", cfg.DynamoDBTable))
		return store.NewDynamoStore(client, cfg.DynamoDBTable)

	case config.StoreFirestore:
		if app == nil {
			log.Error("Firestore store requires Firebase configuration")
			return store.Unavailable{Reason: errors.New("firebase not configured")}
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			log.Error("failed to create Firestore client", zap.Error(err))
			return store.Unavailable{Reason: err}
		}
		log.Info("using Firestore store")
		return store.NewFirestoreStore(client)

	case config.StoreMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore()

	default:
		log.Error("unknown store backend")
		return store.Unavailable{Reason: fmt.Errorf("unknown store backend %q", cfg.StoreBackend)}
	}
}

// newLLMClient prefers DEFAULT_LLM and falls back to whichever provider has
// a key.
func newLLMClient(cfg *config.Config) (llm.Client, error) {
	keys := map[llm.Provider]string{
		llm.ProviderAnthropic: cfg.AnthropicAPIKey,
		llm.ProviderOpenAI:    cfg.OpenAIAPIKey,
	}

	preferred := llm.Provider(cfg.DefaultLLM)
	if key := keys[preferred]; key != "" {
		return llm.NewClient(preferred, key)
	}
	for _, p := range []llm.Provider{llm.ProviderAnthropic, llm.ProviderOpenAI} {
		if key := keys[p]; key != "" {
			return llm.NewClient(p, key)
		}
	}
	return nil, fmt.Errorf("no API key for %s or any other provider", cfg.DefaultLLM)
}
