package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/account"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	httptransport "github.com/vladislavdragonenkov/storefront/internal/transport/http"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	PostgresDSN string
	// KafkaBrokers — список брокеров через запятую; пусто — Kafka выключена.
	KafkaBrokers string
}

// DefaultConfig возвращает базовые адреса для HTTP API и метрик.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
	}
}

// Run собирает и запускает приложение витрины; блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	var (
		deps *Dependencies
		err  error
	)
	if cfg.PostgresDSN != "" {
		deps, err = NewPostgresDependencies(ctx, cfg.PostgresDSN, logger)
	} else {
		deps, err = NewMemoryDependencies(ctx, logger)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	// Kafka опциональна: без неё события копятся в outbox до появления брокера.
	var kafkaProducer *kafka.Producer
	if cfg.KafkaBrokers != "" {
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		producer, kafkaErr := kafka.NewProducer(brokers)
		if kafkaErr != nil {
			logger.WithError(kafkaErr).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			kafkaProducer = producer
			logger.WithField("brokers", brokers).Info("kafka producer initialized")
		}
	}

	validator := cart.NewValidator(deps.Store, logger)
	synchronizer := cart.NewSynchronizer(deps.Store, logger)

	var orchestrator *checkout.Orchestrator
	var lifecycle *order.Lifecycle
	if kafkaProducer != nil {
		orchestrator = checkout.NewOrchestratorWithKafka(
			deps.Store, validator, deps.Addresses, deps.Payments, deps.Users,
			deps.OutboxRepo, deps.TimelineRepo, kafkaProducer, logger,
		)
		lifecycle = order.NewLifecycleWithKafka(deps.Store, deps.OutboxRepo, deps.TimelineRepo, kafkaProducer, logger)
	} else {
		orchestrator = checkout.NewOrchestrator(
			deps.Store, validator, deps.Addresses, deps.Payments, deps.Users,
			deps.OutboxRepo, deps.TimelineRepo, logger,
		)
		lifecycle = order.NewLifecycle(deps.Store, deps.OutboxRepo, deps.TimelineRepo, logger)
	}
	cleaner := account.NewCleaner(deps.Store, deps.Users, logger)

	// Фоновые воркеры: публикация outbox и очистка ключей идемпотентности.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
		worker := outbox.NewWorker(deps.OutboxRepo, publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlqPublisher),
		)
		go worker.Run(workerCtx)
	} else {
		logger.Info("outbox worker is idle: kafka is not configured")
	}

	cleanupWorker := idempotency.NewCleanupWorker(deps.IdempotencyRepo,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup-worker")),
	)
	go cleanupWorker.Run(workerCtx)

	// HTTP health checks.
	healthHandler := healthcheck.NewHandler(version.String())
	healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return deps.Ping(pingCtx)
	}))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	handler := httptransport.NewHandler(validator, synchronizer, orchestrator, lifecycle, cleaner, logger)
	router := httptransport.NewRouter(handler, deps.IdempotencyRepo, logger)

	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		stopWorkers()

		if kafkaProducer != nil {
			if err := kafkaProducer.Close(); err != nil {
				logger.WithError(err).Warn("failed to close kafka producer")
			} else {
				logger.Info("kafka producer closed")
			}
		}
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		stopWorkers()

		if kafkaProducer != nil {
			if closeErr := kafkaProducer.Close(); closeErr != nil {
				logger.WithError(closeErr).Warn("failed to close kafka producer")
			}
		}

		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
