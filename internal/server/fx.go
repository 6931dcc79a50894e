// Package server provides the core application server and dependency injection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-insight/internal/agents"
	"github.com/JakeFAU/site-insight/internal/api"
	"github.com/JakeFAU/site-insight/internal/cache"
	"github.com/JakeFAU/site-insight/internal/clock/system"
	"github.com/JakeFAU/site-insight/internal/config"
	collyfetcher "github.com/JakeFAU/site-insight/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/site-insight/internal/fetcher/headless"
	"github.com/JakeFAU/site-insight/internal/headless/detector"
	"github.com/JakeFAU/site-insight/internal/id/uuid"
	"github.com/JakeFAU/site-insight/internal/llm"
	"github.com/JakeFAU/site-insight/internal/logging"
	"github.com/JakeFAU/site-insight/internal/metrics"
	"github.com/JakeFAU/site-insight/internal/orchestrator"
	"github.com/JakeFAU/site-insight/internal/policy/politeness"
	memorypublisher "github.com/JakeFAU/site-insight/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/site-insight/internal/publisher/pubsub"
	"github.com/JakeFAU/site-insight/internal/ratelimit"
	"github.com/JakeFAU/site-insight/internal/retry"
	"github.com/JakeFAU/site-insight/internal/scraper"
	gcsstorage "github.com/JakeFAU/site-insight/internal/storage/gcs"
	localstorage "github.com/JakeFAU/site-insight/internal/storage/local"
	memorystorage "github.com/JakeFAU/site-insight/internal/storage/memory"
	pgstore "github.com/JakeFAU/site-insight/internal/storage/postgres"
)

// App contains the application's dependencies.
type App struct {
	cfg             *config.Config
	logger          *zap.Logger
	apiServer       *api.Server
	orchestrator    *orchestrator.Orchestrator
	scraper         *scraper.Scraper
	headless        *headlessfetcher.Fetcher
	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsub.Publisher
	storage         *storage.Client
	pgStore         *pgstore.Store
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger.Info("creating application", zap.Any("config", cfg.Public()))
	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Orchestrator returns the analysis orchestrator. It is nil for scrape-only apps.
func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orchestrator }

// Scraper returns the page scraper.
func (a *App) Scraper() *scraper.Scraper { return a.scraper }

// Run starts the HTTP server and blocks until the context is canceled or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	if a.apiServer == nil {
		return errors.New("api server not built")
	}
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close(shutdownCtx)
}

// Close releases clients in reverse order of construction.
func (a *App) Close(_ context.Context) error {
	a.closeInfrastructure()
	a.closeObservability()
	return nil
}

func (a *App) closeInfrastructure() {
	if a.headless != nil {
		a.headless.Close()
	}
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
}

func (a *App) closeObservability() {
	a.logger.Info("shutdown complete")
	// Sync fails on non-file stderr; nothing useful can be done about it here.
	_ = a.logger.Sync()
}

// Build creates every dependency of the analysis service, including the HTTP server.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	app, err := buildBase(cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	metrics.Init()

	app.logger.Info("building application dependencies")
	app.scraper, err = setupScraper(app)
	if err != nil {
		return nil, err
	}

	resultCache, err := setupCache(ctx, app)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	app.orchestrator, err = setupOrchestrator(ctx, app, resultCache, publisher)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	app.apiServer = api.NewServer(app.orchestrator, app.scraper, *cfg, app.logger)
	return app, nil
}

// BuildScraper creates only the logger and scraper. It needs no model credentials.
func BuildScraper(cfg *config.Config) (*App, error) {
	app, err := buildBase(cfg)
	if err != nil {
		return nil, err
	}
	app.scraper, err = setupScraper(app)
	if err != nil {
		return nil, err
	}
	return app, nil
}

func buildBase(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app init failed: %w", err)
	}
	return app, nil
}

func setupScraper(app *App) (*scraper.Scraper, error) {
	static := collyfetcher.New(collyfetcher.Config{
		UserAgent:     app.cfg.Scraper.UserAgent,
		RespectRobots: app.cfg.Scraper.RespectRobots,
		Timeout:       app.cfg.ScrapeTimeout(),
	})
	app.logger.Info("using colly fetcher", zap.String("user_agent", app.cfg.Scraper.UserAgent))

	opts := scraper.Options{
		MaxContentChars: app.cfg.Scraper.MaxContentChars,
		Logger:          app.logger,
		Pacer: politeness.New(politeness.Config{
			RPS:   app.cfg.Scraper.PerHostRPS,
			Burst: app.cfg.Scraper.PerHostBurst,
		}),
	}
	if app.cfg.Headless.Enabled {
		headless, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       app.cfg.Headless.MaxParallel,
			UserAgent:         app.cfg.Scraper.UserAgent,
			NavigationTimeout: app.cfg.NavTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("headless fetcher init failed: %w", err)
		}
		app.headless = headless
		opts.Headless = headless
		opts.Detector = detector.NewHeuristic(app.cfg.Headless.PromotionThresh)
		app.logger.Info("using headless fetcher",
			zap.Int("max_parallel", app.cfg.Headless.MaxParallel),
			zap.Int("promotion_threshold", app.cfg.Headless.PromotionThresh),
		)
	}
	return scraper.New(static, opts), nil
}

func setupCache(ctx context.Context, app *App) (*cache.Cache, error) {
	var backend cache.Backend
	var err error
	switch app.cfg.Cache.Backend {
	case config.BackendGCS:
		app.logger.Info("using GCS cache backend")
		app.storage, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		backend, err = gcsstorage.New(app.storage, gcsstorage.Config{
			Bucket: app.cfg.Cache.GCS.Bucket,
			Prefix: app.cfg.Cache.GCS.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs cache init failed: %w", err)
		}
		app.logger.Debug("GCS cache backend", zap.String("bucket", app.cfg.Cache.GCS.Bucket))
	case config.BackendFile:
		app.logger.Info("using file cache backend")
		backend, err = localstorage.New(localstorage.Config{BaseDir: app.cfg.Cache.File.Dir})
		if err != nil {
			return nil, fmt.Errorf("file cache init failed: %w", err)
		}
		app.logger.Debug("file cache backend", zap.String("path", app.cfg.Cache.File.Dir))
	case config.BackendPostgres:
		app.logger.Info("using postgres cache backend")
		app.pgStore, err = pgstore.New(ctx, pgstore.Config{
			DSN:             app.cfg.Cache.Postgres.DSN,
			Table:           app.cfg.Cache.Postgres.Table,
			MaxConns:        app.cfg.Cache.Postgres.MaxConns,
			MinConns:        app.cfg.Cache.Postgres.MinConns,
			MaxConnLifetime: app.cfg.Cache.Postgres.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres cache init failed: %w", err)
		}
		backend = app.pgStore
		app.logger.Debug("postgres cache backend", zap.String("table", app.cfg.Cache.Postgres.Table))
	default:
		app.logger.Info("using in-memory cache backend")
		backend = memorystorage.New()
	}
	return cache.New(backend, cache.Options{
		MaxSize:    app.cfg.Cache.MaxSize,
		DefaultTTL: app.cfg.CacheTTL(),
		Logger:     app.logger.Named("cache"),
	}), nil
}

func setupPublisher(ctx context.Context, app *App) (orchestrator.Publisher, error) {
	if app.cfg.PubSub.TopicName == "" || app.cfg.PubSub.ProjectID == "" {
		app.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(0), nil
	}
	var err error
	app.pubsubClient, err = pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubPublisher = app.pubsubClient.Publisher(app.cfg.PubSub.TopicName)
	app.logger.Info(
		"Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return gcppublisher.New(app.pubsubPublisher), nil
}

func setupOrchestrator(
	ctx context.Context,
	app *App,
	resultCache *cache.Cache,
	publisher orchestrator.Publisher,
) (*orchestrator.Orchestrator, error) {
	client, err := llm.NewOpenAI(ctx, llm.Config{
		BaseURL:           app.cfg.LLM.BaseURL,
		APIKey:            app.cfg.LLM.APIKey,
		Model:             app.cfg.LLM.Model,
		Temperature:       app.cfg.LLM.Temperature,
		RequestsPerMinute: app.cfg.LLM.RequestsPerMinute,
		Timeout:           app.cfg.LLMTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("llm client init failed: %w", err)
	}
	app.logger.Info("llm client initialized",
		zap.String("model", app.cfg.LLM.Model),
		zap.Int("requests_per_minute", app.cfg.LLM.RequestsPerMinute),
	)

	set := agents.NewSet(client, app.logger)
	limiter := ratelimit.New(ratelimit.Config{
		MaxRequests:  app.cfg.Orchestrator.RateLimitPerMinute,
		Window:       app.cfg.RateWindow(),
		PollInterval: app.cfg.PollInterval(),
		Scope:        "orchestrator",
	})

	policy := retry.Default()
	policy.MaxAttempts = app.cfg.Retry.MaxAttempts
	policy.BaseDelay, policy.MaxDelay = app.cfg.RetryDelays()

	return orchestrator.New(orchestrator.Deps{
		Scraper: app.scraper,
		Agents: orchestrator.Agents{
			Classifier:    set.Classifier,
			Summarizer:    set.Summarizer,
			UXReviewer:    set.UXReviewer,
			DesignAdvisor: set.DesignAdvisor,
		},
		Cache:     resultCache,
		Limiter:   limiter,
		Publisher: publisher,
		IDs:       uuid.NewUUIDGenerator(),
		Clock:     system.New(),
		Logger:    app.logger,
	}, orchestrator.Config{
		CacheTTL: app.cfg.CacheTTL(),
		Retry:    policy,
		Topic:    app.cfg.PubSub.TopicName,

		// Shared runs are detached from requests but keep the request budget.
		RunTimeout: app.cfg.RequestTimeout(),
	})
}
