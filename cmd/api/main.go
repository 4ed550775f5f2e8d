// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/safetalk/mediation-platform/internal/agent"
	"github.com/safetalk/mediation-platform/internal/config"
	"github.com/safetalk/mediation-platform/internal/handler"
	"github.com/safetalk/mediation-platform/internal/middleware"
	natsclient "github.com/safetalk/mediation-platform/internal/nats"
	"github.com/safetalk/mediation-platform/internal/push"
	"github.com/safetalk/mediation-platform/internal/service"
	"github.com/safetalk/mediation-platform/internal/store"
	"github.com/safetalk/mediation-platform/pkg/logger"
	"github.com/safetalk/mediation-platform/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "mediation-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	streamManager := natsclient.NewStreamManager(natsClient.JetStream(), log)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	agents, err := buildAgents(cfg)
	if err != nil {
		log.Error("failed to create agent backend", zap.Error(err))
		os.Exit(1)
	}
	var classifier agent.SafetyClassifier = agents
	if cfg.SafetyBackend == "patterns" {
		classifier = agent.NewPatternClassifier()
	}

	var pusher service.Pusher = push.Noop{}
	if cfg.FCMServerKey != "" {
		pusher = push.NewFCMClient(cfg.FCMServerKey, log)
	}

	locks := service.NewIssueLocks()
	notificationSvc := service.NewNotificationService(st, pusher, streamManager, log)
	pairingSvc := service.NewPairingService(st, notificationSvc, log)
	issueSvc := service.NewIssueService(st, notificationSvc, log)
	messageSvc := service.NewMessageService(st, classifier, agents, locks, streamManager, log, cfg.AgentTimeout, cfg.MediatorTriggerEvery)
	mediatorSvc := service.NewMediatorService(st, agents, locks, notificationSvc, log, service.MediatorConfig{
		ScoreThreshold:  cfg.MediatorScoreThreshold,
		MaxAttempts:     cfg.MediatorMaxAttempts,
		CompromiseAfter: cfg.MediatorCompromiseAfter,
		AgentTimeout:    cfg.AgentTimeout,
	})
	voteSvc := service.NewVoteService(st, locks, streamManager, notificationSvc, log, cfg.MediatorMaxAttempts)

	worker := natsclient.NewWorker(natsClient.JetStream(), mediatorSvc, log)
	if err := worker.Start(ctx); err != nil {
		log.Error("failed to start mediator worker", zap.Error(err))
		os.Exit(1)
	}
	defer worker.Stop()

	healthHandler := handler.NewHealthHandler(st, natsClient)
	partnerHandler := handler.NewPartnerHandler(pairingSvc, log)
	issueHandler := handler.NewIssueHandler(issueSvc, log)
	messageHandler := handler.NewMessageHandler(messageSvc, log)
	voteHandler := handler.NewVoteHandler(voteSvc, log)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).
			Post("/users", partnerHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Get("/me", issueHandler.Me)
			r.Post("/partners/connect", partnerHandler.Connect)
			r.Post("/push-tokens", notificationHandler.RegisterPushToken)

			r.Route("/issues", func(r chi.Router) {
				r.Post("/", issueHandler.Create)
				r.Post("/{issueID}/messages", messageHandler.Send)
			})

			r.Post("/proposals/{proposalID}/votes", voteHandler.Submit)
			r.Post("/notifications/{notificationID}/read", notificationHandler.MarkRead)
		})
	})

	r.Route("/internal/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RequireScope("notifications:send"))

		r.Post("/notifications", notificationHandler.Send)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func buildAgents(cfg *config.Config) (agent.Agents, error) {
	provider := agent.Provider(cfg.AgentProvider)
	key := cfg.OpenAIAPIKey
	if provider == agent.ProviderAnthropic {
		key = cfg.AnthropicAPIKey
	}
	return agent.New(provider, key)
}
