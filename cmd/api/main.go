package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	httpapi "github.com/wms-platform/asrs-service/internal/api/http"
	"github.com/wms-platform/asrs-service/internal/application"
	"github.com/wms-platform/asrs-service/internal/bootstrap"
	"github.com/wms-platform/asrs-service/internal/config"
	temporaldispatch "github.com/wms-platform/asrs-service/internal/infrastructure/temporal"
	"github.com/wms-platform/asrs-service/pkg/kafka"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
	"github.com/wms-platform/asrs-service/pkg/outbox"
	"github.com/wms-platform/asrs-service/pkg/resilience"
	"github.com/wms-platform/asrs-service/pkg/temporal"
	"github.com/wms-platform/asrs-service/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), cfg, signalCh); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, signalCh <-chan os.Signal) error {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(cfg.ServiceName)
	logConfig.Level = logging.ParseLevel(cfg.Logging.Level)
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting ASRS API", "store", cfg.Store.Backend, "dispatcher", cfg.Dispatcher)

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(cfg.ServiceName)
	tracingConfig.OTLPEndpoint = cfg.Tracing.Endpoint
	tracingConfig.Environment = cfg.Environment
	tracingConfig.SampleRate = cfg.Tracing.SampleRate
	tracingConfig.Enabled = cfg.Tracing.Enabled

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	m := metrics.New(metrics.DefaultConfig(cfg.ServiceName))

	backend, err := bootstrap.OpenBackend(ctx, cfg, m, logger)
	if err != nil {
		return err
	}
	defer backend.Close(context.Background())

	locker, closeLocker, err := bootstrap.NewLocker(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize locks")
		return err
	}
	defer closeLocker()

	services := bootstrap.NewServices(cfg, backend, locker, m, logger)

	// Commands run either in this process or on Temporal workers
	var inProcess *application.InProcessDispatcher
	switch cfg.Dispatcher {
	case config.DispatcherTemporal:
		temporalClient, err := temporal.NewClient(ctx, &temporal.Config{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Identity:  cfg.ServiceName + "-api",
		})
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Temporal")
			return fmt.Errorf("failed to connect to temporal: %w", err)
		}
		defer temporalClient.Close()

		breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("temporal"), logger.Logger, m.SetCircuitBreakerState)
		services.Scheduler.SetDispatcher(
			temporaldispatch.NewDispatcher(temporalClient, breaker, logger).
				WithTaskQueue(cfg.Temporal.TaskQueue).
				WithMetrics(m),
		)
		logger.Info("Dispatching commands to Temporal", "hostPort", cfg.Temporal.HostPort, "taskQueue", cfg.Temporal.TaskQueue)
	default:
		inProcess = application.NewInProcessDispatcher(services.Executor, logger)
		services.Scheduler.SetDispatcher(inProcess)
	}

	// Relay the outbox to Kafka
	if cfg.Kafka.Enabled {
		kafkaConfig := kafka.DefaultConfig()
		kafkaConfig.Brokers = cfg.Kafka.Brokers
		kafkaConfig.ClientID = cfg.Kafka.ClientID
		producer := kafka.NewProducer(kafkaConfig)
		defer producer.Close()

		breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("kafka"), logger.Logger, m.SetCircuitBreakerState)
		relayConfig := outbox.DefaultPublisherConfig()
		if cfg.Kafka.PollInterval > 0 {
			relayConfig.PollInterval = cfg.Kafka.PollInterval
		}
		relay := outbox.NewPublisher(backend.Outbox, kafka.NewGuardedProducer(producer, breaker, m), logger, m, relayConfig)
		if err := relay.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start outbox publisher")
			return fmt.Errorf("failed to start outbox publisher: %w", err)
		}
		defer func() {
			_ = relay.Stop()
			logger.Info("Outbox publisher stopped", "stats", relay.Stats())
		}()
		logger.Info("Outbox publisher started", "brokers", cfg.Kafka.Brokers)
	}

	if err := services.Monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start command monitor: %w", err)
	}
	defer services.Monitor.Stop()

	gin.SetMode(gin.ReleaseMode)
	handlers := httpapi.NewHandlers(services.Fulfillment, services.Robots, services.Commands, services.Inventory, logger)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		ServiceName:   cfg.ServiceName,
		Logger:        logger,
		Metrics:       m,
		EnableTracing: cfg.Tracing.Enabled,
		Ready: func() error {
			checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return backend.HealthCheck(checkCtx)
		},
	}, handlers)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	logger.Info("Server started", "addr", cfg.Server.Addr)

	select {
	case <-signalCh:
	case <-ctx.Done():
	case err := <-serverErr:
		logger.WithError(err).Error("Server error")
		return err
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if inProcess != nil {
		if err := inProcess.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Commands still running at shutdown")
		}
	}

	logger.Info("Server stopped")
	return nil
}
