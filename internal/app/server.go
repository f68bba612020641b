// Package app wires configuration, logging, storage, the provider clients,
// and the HTTP surface into a runnable server.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pageforge/hybridgate/internal/events"
	"github.com/pageforge/hybridgate/internal/httpapi"
	"github.com/pageforge/hybridgate/internal/logging"
	"github.com/pageforge/hybridgate/internal/metrics"
	"github.com/pageforge/hybridgate/internal/providers/deepseek"
	"github.com/pageforge/hybridgate/internal/providers/openai"
	"github.com/pageforge/hybridgate/internal/ratelimit"
	"github.com/pageforge/hybridgate/internal/router"
	"github.com/pageforge/hybridgate/internal/split"
	"github.com/pageforge/hybridgate/internal/store"
	"github.com/pageforge/hybridgate/internal/tracing"
	"github.com/pageforge/hybridgate/internal/usagelog"
)

type Server struct {
	cfg Config

	r *chi.Mux

	store   store.Store
	limiter *ratelimit.Limiter
	logger  *slog.Logger

	tracingShutdown func(context.Context) error
}

func NewServer(cfg Config) (*Server, error) {
	logger := logging.Setup(cfg.LogLevel)

	tracingShutdown, err := tracing.Setup(tracing.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: "hybridgate",
	})
	if err != nil {
		return nil, err
	}

	corsOrigins := cfg.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	db, err := store.NewSQLite(cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database initialized", slog.String("dsn", cfg.DBDSN))

	usage := usagelog.New(
		usagelog.WithMaxEntries(cfg.UsageLogMaxEntries),
		usagelog.WithSink(logger),
	)

	splits := split.New(split.Config{
		DeepSeekPercent: cfg.DeepSeekPercent,
		OpenAIPercent:   cfg.OpenAIPercent,
		DeepSeekAPIKey:  cfg.DeepSeekAPIKey,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
	})
	restoreSplit(db, splits, logger)

	m := metrics.New()
	bus := events.NewBus()

	// One instrumented HTTP client shared by both providers.
	timeout := time.Duration(cfg.ProviderTimeoutSecs) * time.Second
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: tracing.HTTPTransport(nil),
	}

	ds := deepseek.New(deepseek.Config{
		Key: func() string {
			c, _ := splits.Current()
			return c.DeepSeekAPIKey
		},
		BaseURL:    cfg.DeepSeekBaseURL,
		HTTPClient: httpClient,
		Usage:      usage,
		Logger:     logger,
	})
	oa := openai.New(openai.Config{
		Key: func() string {
			c, _ := splits.Current()
			return c.OpenAIAPIKey
		},
		Model:      cfg.OpenAIModel,
		BaseURL:    cfg.OpenAIBaseURL,
		HTTPClient: httpClient,
		Usage:      usage,
		Logger:     logger,
	})

	rt := router.New(splits, ds, oa, router.WithLogger(logger))

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, time.Second,
		ratelimit.WithCounter(m.RateLimitedTotal))

	if cfg.AdminToken == "" {
		logger.Warn("HYBRIDGATE_ADMIN_TOKEN not set, admin endpoints are unauthenticated")
	}

	httpapi.MountRoutes(r, httpapi.Dependencies{
		Router:          rt,
		Splits:          splits,
		Usage:           usage,
		Store:           db,
		Metrics:         m,
		EventBus:        bus,
		Logger:          logger,
		AdminToken:      cfg.AdminToken,
		ExposeAdminKeys: cfg.ExposeAdminKeys,
		RateLimit:       limiter.Middleware,
	})

	return &Server{
		cfg:             cfg,
		r:               r,
		store:           db,
		limiter:         limiter,
		logger:          logger,
		tracingShutdown: tracingShutdown,
	}, nil
}

// restoreSplit replaces the env-seeded percentages with the persisted pair,
// if any. API keys stay env-seeded; they are never persisted.
func restoreSplit(db store.Store, splits *split.Provider, logger *slog.Logger) {
	rec, err := db.LoadSplit(context.Background())
	if err != nil {
		logger.Warn("failed to load persisted split", slog.String("error", err.Error()))
		return
	}
	if rec == nil {
		return
	}
	if err := splits.SetPercentages(rec.DeepSeekPercent, rec.OpenAIPercent); err != nil {
		logger.Warn("persisted split invalid, keeping seed",
			slog.Int("deepseek_percent", rec.DeepSeekPercent),
			slog.Int("openai_percent", rec.OpenAIPercent),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Info("restored persisted split",
		slog.Int("deepseek_percent", rec.DeepSeekPercent),
		slog.Int("openai_percent", rec.OpenAIPercent),
	)
}

func (s *Server) Router() http.Handler { return s.r }

func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.tracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.tracingShutdown(ctx)
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
