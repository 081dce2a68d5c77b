package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/asrs-service/internal/activities"
	"github.com/wms-platform/asrs-service/internal/bootstrap"
	"github.com/wms-platform/asrs-service/internal/config"
	"github.com/wms-platform/asrs-service/internal/workflows"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
	"github.com/wms-platform/asrs-service/pkg/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), cfg, quit); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, quit <-chan os.Signal) error {
	logConfig := logging.DefaultConfig(cfg.ServiceName + "-worker")
	logConfig.Level = logging.ParseLevel(cfg.Logging.Level)
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting ASRS command worker")

	// Workers share state with the API, so they need the shared store
	if cfg.Store.Backend != config.BackendMongoDB {
		err := fmt.Errorf("worker requires the %s store, got %q", config.BackendMongoDB, cfg.Store.Backend)
		logger.WithError(err).Error("Unsupported store")
		return err
	}

	m := metrics.New(metrics.DefaultConfig(cfg.ServiceName + "-worker"))

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

	temporalClient, err := temporal.NewClient(ctx, &temporal.Config{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Identity:  cfg.ServiceName + "-worker",
	})
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		return err
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "hostPort", cfg.Temporal.HostPort, "namespace", cfg.Temporal.Namespace)

	w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(cfg.Temporal.TaskQueue))

	w.RegisterWorkflowWithOptions(workflows.RobotCommandWorkflow, workflow.RegisterOptions{
		Name: temporal.WorkflowNames.RobotCommand,
	})
	commandActivities := activities.NewCommandActivities(services.Executor, logger).WithMetrics(m)
	w.RegisterActivityWithOptions(commandActivities.ExecuteRobotCommand, activity.RegisterOptions{
		Name: temporal.ActivityNames.ExecuteRobotCommand,
	})
	logger.Info("Registered workflows and activities",
		"workflow", temporal.WorkflowNames.RobotCommand,
		"activity", temporal.ActivityNames.ExecuteRobotCommand,
	)

	if err := w.Start(); err != nil {
		logger.WithError(err).Error("Worker failed to start")
		return err
	}
	logger.Info("Worker started", "taskQueue", cfg.Temporal.TaskQueue)

	<-quit
	logger.Info("Shutting down worker...")

	w.Stop()
	logger.Info("Worker stopped")
	return nil
}
