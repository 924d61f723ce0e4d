package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/client"
	"github.com/beachmessages/relay/internal/config"
	"github.com/beachmessages/relay/internal/console"
	"github.com/beachmessages/relay/internal/history"
	"github.com/beachmessages/relay/internal/kafka"
	"github.com/beachmessages/relay/internal/observability"
	"github.com/beachmessages/relay/internal/peripheral"
	"github.com/beachmessages/relay/internal/relay"
	"github.com/beachmessages/relay/internal/repository/redisstore"
)

func main() {
	cfg := config.LoadRelay()

	observability.InitLogger(cfg.ServiceName)
	log := observability.Log
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store history.Store = history.NewMemory()
	if cfg.HistoryBackend == config.BackendRedis {
		rdb, err := redisstore.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer rdb.Close()
		store = history.NewRedis(rdb, "")
	}

	successRate := cfg.SendSuccessRate
	machine := peripheral.NewMachine(peripheral.Options{
		ScanDelay:    cfg.ScanDelay,
		ConnectDelay: cfg.ConnectDelay,
		SendDelay:    cfg.SendDelay,
		SuccessRate:  &successRate,
		DeviceName:   cfg.DeviceName,
	}, log.Named("peripheral"))

	machine.Subscribe(func(s peripheral.State) {
		log.Info("display link state", zap.String("state", string(s)))
	})

	queue := client.New(cfg.QueueURL)
	queue.SetToken(cfg.RelayToken)

	worker := relay.NewWorker(queue, machine, relay.Options{
		PollInterval: cfg.PollInterval,
		AutoDeliver:  cfg.AutoDeliver,
	}, log.Named("relay"))

	// Queue events shorten the wait for new messages. Polling still runs without them.
	if cfg.KafkaBrokers != "" {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup, worker, log.Named("kafka"))
		if err != nil {
			log.Fatal("kafka consumer init failed", zap.Error(err))
		}
		defer consumer.Close()
		go consumer.Run(ctx)
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(ctx); err != nil {
			log.Error("relay worker failed", zap.Error(err))
		}
	}()

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Mount("/", console.NewRouter(console.NewHandler(machine, worker, store), cfg.ServiceName))

	srv := &http.Server{
		Addr:              cfg.ConsoleHTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("device console started",
			zap.String("addr", cfg.ConsoleHTTPAddr),
			zap.String("queue_url", cfg.QueueURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("console server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("received signal, initiating shutdown")
	cancel()
	<-workerDone
	machine.Disconnect()

	ctxShut, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()

	_ = srv.Shutdown(ctxShut)
	log.Info("relay stopped")
}
