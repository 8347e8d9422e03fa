package main

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"holdfast/internal/holder/adapters"
	"holdfast/internal/holder/handler"
	holdermetrics "holdfast/internal/holder/metrics"
	"holdfast/internal/holder/service"
	"holdfast/internal/holder/store"
	"holdfast/internal/holder/wallet"
	"holdfast/internal/platform/config"
	"holdfast/internal/platform/kafka/producer"
	"holdfast/internal/platform/logger"
	"holdfast/internal/platform/redis"
	"holdfast/internal/records"
	recordsadapters "holdfast/internal/records/adapters"
	recordsmetrics "holdfast/internal/records/metrics"
)

func main() {
	cfg := config.FromEnv()
	log := logger.NewWithLevel(cfg.LogLevel)

	storage := records.NewMemoryStorage()
	storeOpts := []records.StoreOption{
		records.WithLogger(log),
		records.WithMetrics(recordsmetrics.New()),
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // best-effort shutdown
		storeOpts = append(storeOpts, records.WithCache(recordsadapters.NewRedisCache(redisClient, "")))
	}

	if cfg.KafkaBrokers != "" {
		kafkaProducer, err := producer.New(producer.Config{
			Brokers:         cfg.KafkaBrokers,
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		storeOpts = append(storeOpts, records.WithResponder(recordsadapters.NewKafkaResponder(kafkaProducer, "holdfast.")))
	}
	if cfg.WebhookTrim {
		storeOpts = append(storeOpts, records.WithWebhookTrim())
	}

	metadata, err := store.NewMetadataStore(storage, storeOpts...)
	if err != nil {
		log.Error("metadata store init failed", "error", err)
		os.Exit(1)
	}

	holder := service.NewService(
		wallet.NewInMemory(),
		metadata,
		service.WithTailsResolver(adapters.LocalTailsResolver{}),
		service.WithLogger(log),
		service.WithMetrics(holdermetrics.New()),
	)

	r := chi.NewRouter()
	handler.New(holder, handler.WithLogger(log)).Register(r)
	r.Handle("/metrics", promhttp.Handler())

	log.Info("holder admin surface listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
