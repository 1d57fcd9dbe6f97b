package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/Strob0t/CareerForge/internal/adapter/http"
	"github.com/Strob0t/CareerForge/internal/adapter/litellm"
	cfnats "github.com/Strob0t/CareerForge/internal/adapter/nats"
	"github.com/Strob0t/CareerForge/internal/adapter/natskv"
	cfotel "github.com/Strob0t/CareerForge/internal/adapter/otel"
	"github.com/Strob0t/CareerForge/internal/adapter/ristretto"
	"github.com/Strob0t/CareerForge/internal/adapter/tiered"
	"github.com/Strob0t/CareerForge/internal/adapter/ws"
	"github.com/Strob0t/CareerForge/internal/config"
	"github.com/Strob0t/CareerForge/internal/extract"
	"github.com/Strob0t/CareerForge/internal/logger"
	"github.com/Strob0t/CareerForge/internal/middleware"
	"github.com/Strob0t/CareerForge/internal/port/cache"
	"github.com/Strob0t/CareerForge/internal/port/messagequeue"
	"github.com/Strob0t/CareerForge/internal/resilience"
	"github.com/Strob0t/CareerForge/internal/service"
)

// idempotencyTTL is how long a mutating response stays replayable.
const idempotencyTTL = 24 * time.Hour

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	var err error
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		err = runAdmin(os.Args[2:])
	} else {
		err = run()
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer closeLog.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"log_level", cfg.Logging.Level,
		"auth", cfg.Auth.Enabled,
		"jobs", cfg.Jobs.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var queue messagequeue.Queue
	var natsQueue *cfnats.Queue
	if cfg.NATS.URL != "" {
		natsQueue, err = cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		queue = natsQueue
		defer func() {
			if err := natsQueue.Drain(); err != nil {
				slog.Warn("nats drain", "error", err)
			}
		}()
	} else {
		slog.Info("nats disabled, events are not published")
	}

	l1, err := ristretto.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()
	var viewCache cache.Cache = l1
	if natsQueue != nil {
		l2, err := natskv.Open(ctx, natsQueue.JetStream(), cfg.NATS.KVBucket, cfg.Cache.TTL)
		if err != nil {
			slog.Warn("nats kv cache unavailable, using in-process cache only", "error", err)
		} else {
			viewCache = tiered.New(l1, l2, cfg.Cache.TTL)
		}
	}

	// --- Text generation ---

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	llm := litellm.NewClient(cfg.LiteLLM)
	llm.SetBreaker(breaker)
	llm.SetHTTPClient(cfotel.HTTPClient(&http.Client{Timeout: cfg.LiteLLM.Timeout}))
	ext := extract.New(cfg.Extract.MaxInputBytes, extract.Prefer(cfg.Extract.Prefer), metrics)

	// --- Services ---

	hub := ws.NewHub()
	hub.AllowOrigins(cfg.Server.CORSOrigin)
	defer hub.Close()

	roadmaps := service.NewRoadmapService(store, llm, ext)
	roadmaps.SetCache(viewCache, cfg.Cache.TTL)
	roadmaps.SetBroadcaster(hub)
	roadmaps.SetMetrics(metrics)
	if queue != nil {
		roadmaps.SetQueue(queue)
	}

	insights := service.NewInsightService(store, llm, ext, cfg.Jobs.InsightConcurrency, cfg.Jobs.InsightRefreshAfter)
	insights.SetCache(viewCache, cfg.Cache.TTL)
	insights.SetMetrics(metrics)
	if queue != nil {
		insights.SetQueue(queue)
	}

	profiles := service.NewProfileService(store)
	reminders := service.NewReminderService(store, queue)

	jobsCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	var scheduler *service.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = service.NewScheduler(
			service.Job{Name: "reminders", Interval: cfg.Jobs.ReminderInterval, Run: func(ctx context.Context) error {
				_, err := reminders.Run(ctx)
				return err
			}},
			service.Job{Name: "insights", Interval: cfg.Jobs.InsightInterval, Run: func(ctx context.Context) error {
				_, err := insights.Run(ctx)
				return err
			}},
		)
		scheduler.Start(jobsCtx)
	}

	// --- HTTP ---

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	handlers := &cfhttp.Handlers{
		Roadmaps:  roadmaps,
		Profiles:  profiles,
		Insights:  insights,
		Hub:       hub,
		Store:     store,
		Queue:     queue,
		Breaker:   breaker,
		BodyLimit: cfg.Server.MaxBodyBytes,
	}

	r := chi.NewRouter()
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.Auth(cfg.Auth))

	cfhttp.MountRoutes(r, handlers,
		chimw.Timeout(cfg.Server.RequestTimeout),
		limiter.Handler,
		middleware.Idempotency(viewCache, idempotencyTTL),
	)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	stopJobs()
	if scheduler != nil {
		scheduler.Wait()
	}
	return err
}
