package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/application"
	"github.com/beachmessages/relay/internal/config"
	"github.com/beachmessages/relay/internal/events"
	"github.com/beachmessages/relay/internal/handler"
	"github.com/beachmessages/relay/internal/kafka"
	"github.com/beachmessages/relay/internal/observability"
	"github.com/beachmessages/relay/internal/repository"
	"github.com/beachmessages/relay/internal/repository/memory"
	"github.com/beachmessages/relay/internal/repository/postgres"
	"github.com/beachmessages/relay/internal/repository/redisstore"
)

func main() {
	cfg := config.Load()

	// Observability
	observability.InitLogger(cfg.ServiceName)
	log := observability.Log
	defer log.Sync()

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error("failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, closeRepo := openRepository(ctx, cfg, log)
	defer closeRepo()

	// Metrics & health
	obsMux := chi.NewRouter()
	obsMux.Handle("/metrics", promhttp.Handler())
	obsMux.Get("/health/live", observability.HealthLiveHandler)
	obsMux.Get("/health/ready", observability.HealthReadyHandler(repo))

	go func() {
		log.Info("HTTP observability server started", zap.String("addr", cfg.ObsHTTPAddr))
		if err := http.ListenAndServe(cfg.ObsHTTPAddr, obsMux); err != nil {
			log.Error("HTTP observability server failed", zap.Error(err))
		}
	}()

	// Queue events
	var publisher events.Publisher = events.Noop{}
	if cfg.KafkaBrokers != "" {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
		log.Info("publishing queue events", zap.String("topic", cfg.KafkaTopic))
	}

	svc := application.New(repo, publisher, log)

	mux := handler.NewRouter(handler.NewMessageHandler(svc), svc, handler.RouterConfig{
		ServiceName:       cfg.ServiceName,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		RequestTimeout:    cfg.RequestTimeout,
		DeliverJWTSecret:  cfg.DeliverJWTSecret,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("queue HTTP started",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("received signal, initiating shutdown")
	cancel()

	ctxShut, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()

	_ = srv.Shutdown(ctxShut)
	log.Info("queue stopped")
}

func openRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Repository, func()) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("db open failed", zap.Error(err))
		}
		repo := postgres.New(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatal("db migrate failed", zap.Error(err))
		}
		return repo, func() { db.Close() }

	case config.BackendRedis:
		rdb, err := redisstore.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		return redisstore.New(rdb), func() { rdb.Close() }

	default:
		log.Warn("using in-memory store, messages are lost on restart",
			zap.String("backend", strings.ToLower(cfg.StoreBackend)))
		return memory.New(), func() {}
	}
}
