// Package bootstrap wires the configured backends and application services
// shared by the API and worker binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/wms-platform/asrs-service/internal/application"
	"github.com/wms-platform/asrs-service/internal/config"
	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/internal/infrastructure/eventing"
	"github.com/wms-platform/asrs-service/internal/infrastructure/memory"
	mongostore "github.com/wms-platform/asrs-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/asrs-service/internal/infrastructure/redislock"
	"github.com/wms-platform/asrs-service/pkg/cloudevents"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
	"github.com/wms-platform/asrs-service/pkg/mongodb"
	"github.com/wms-platform/asrs-service/pkg/outbox"
)

// Backend is the persistence layer selected by store.backend
type Backend struct {
	Name       string
	Transactor domain.Transactor
	Layout     domain.LayoutRepository
	Items      domain.ItemRepository
	Stock      domain.StockRepository
	Movements  domain.MovementRepository
	Plans      domain.PlanRepository
	Robots     domain.RobotRepository
	Commands   domain.CommandRepository
	Shipments  domain.ShipmentLookup
	Outbox     outbox.Repository

	health func(ctx context.Context) error
	close  func(ctx context.Context) error
}

// HealthCheck reports whether the store is reachable
func (b *Backend) HealthCheck(ctx context.Context) error {
	if b.health == nil {
		return nil
	}
	return b.health(ctx)
}

// Close releases the store connection
func (b *Backend) Close(ctx context.Context) error {
	if b.close == nil {
		return nil
	}
	return b.close(ctx)
}

// OpenBackend connects the configured store. The mongodb backend also
// creates its indexes. m may be nil.
func OpenBackend(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *logging.Logger) (*Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		store := memory.NewStore(cfg.Layout)
		logger.Warn("Using the in-memory store; state is lost on restart")
		return &Backend{
			Name:       config.BackendMemory,
			Transactor: store,
			Layout:     store.Layout(),
			Items:      store.Items(),
			Stock:      store.Stock(),
			Movements:  store.Movements(),
			Plans:      store.Plans(),
			Robots:     store.Robots(),
			Commands:   store.Commands(),
			Shipments:  store,
			Outbox:     store.Outbox(),
		}, nil

	case config.BackendMongoDB:
		mongoConfig := mongodb.DefaultConfig()
		mongoConfig.URI = cfg.MongoDB.URI
		mongoConfig.Database = cfg.MongoDB.Database
		if cfg.MongoDB.ConnectTimeout > 0 {
			mongoConfig.ConnectTimeout = cfg.MongoDB.ConnectTimeout
		}

		client, err := mongodb.NewClient(ctx, mongoConfig, m)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}

		store := mongostore.NewStore(client)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		logger.Info("Connected to MongoDB", "database", mongoConfig.Database)

		return &Backend{
			Name:       config.BackendMongoDB,
			Transactor: store,
			Layout:     store.Layout(),
			Items:      store.Items(),
			Stock:      store.Stock(),
			Movements:  store.Movements(),
			Plans:      store.Plans(),
			Robots:     store.Robots(),
			Commands:   store.Commands(),
			Shipments:  store,
			Outbox:     store.Outbox(),
			health:     client.HealthCheck,
			close:      client.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// NewLocker returns the redis locker when redis.addr is set and the
// in-process locker otherwise. The returned close func is never nil.
func NewLocker(ctx context.Context, cfg *config.Config, logger *logging.Logger) (domain.Locker, func() error, error) {
	if cfg.Redis.Addr == "" {
		return memory.NewLocker(), func() error { return nil }, nil
	}

	lockConfig := redislock.DefaultConfig()
	lockConfig.Addr = cfg.Redis.Addr
	lockConfig.Password = cfg.Redis.Password
	lockConfig.DB = cfg.Redis.DB
	if cfg.Redis.WaitTimeout > 0 {
		lockConfig.WaitTimeout = cfg.Redis.WaitTimeout
	}

	locker := redislock.New(lockConfig)
	if err := locker.Ping(ctx); err != nil {
		_ = locker.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info("Using redis locks", "addr", cfg.Redis.Addr)
	return locker, locker.Close, nil
}

// Services holds the application layer. The scheduler has no dispatcher
// until the caller sets one.
type Services struct {
	Publisher   *eventing.OutboxPublisher
	Scheduler   *application.TaskScheduler
	Executor    *application.CommandExecutor
	Fulfillment *application.FulfillmentApplicationService
	Commands    *application.CommandApplicationService
	Robots      *application.RobotApplicationService
	Inventory   *application.InventoryApplicationService
	Monitor     *application.StalledCommandMonitor
}

// NewServices builds the application services over backend. m may be nil.
func NewServices(cfg *config.Config, backend *Backend, locker domain.Locker, m *metrics.Metrics, logger *logging.Logger) *Services {
	publisher := eventing.NewOutboxPublisher(backend.Outbox, cloudevents.NewEventFactory("/"+cfg.ServiceName))
	lockTTL := cfg.Redis.LockTTL

	stockOps := application.NewStockOperations(backend.Transactor, backend.Layout, backend.Stock, backend.Items,
		publisher, locker, lockTTL, logger)
	execution := application.NewExecutionTransaction(backend.Transactor, backend.Stock, backend.Layout, backend.Movements,
		publisher, locker, lockTTL, m, logger)
	scheduler := application.NewTaskScheduler(backend.Robots, backend.Commands, publisher, locker, nil, lockTTL, logger)
	executor := application.NewCommandExecutor(backend.Robots, backend.Commands, backend.Layout, backend.Items,
		backend.Shipments, stockOps, publisher, application.ClockSleeper{}, cfg.Executor(), m, logger)

	fulfillment := application.NewFulfillmentApplicationService(
		application.NewInventoryAllocator(backend.Stock, backend.Layout, backend.Items, logger),
		application.NewRouteOptimizer(cfg.Routing),
		application.NewPlanAggregator(application.RatioScorer{UnitDistance: cfg.Scoring.UnitDistance}),
		execution,
		scheduler,
		backend.Plans,
		backend.Movements,
		backend.Robots,
		backend.Transactor,
		publisher,
		m,
		logger,
	)

	robots := application.NewRobotApplicationService(backend.Robots, backend.Commands, backend.Layout, publisher, logger).
		WithDefaultSpeed(cfg.Robot.DefaultSpeed)
	inventory := application.NewInventoryApplicationService(backend.Transactor, backend.Layout, backend.Items,
		backend.Stock, stockOps, cfg.Layout, logger)

	return &Services{
		Publisher:   publisher,
		Scheduler:   scheduler,
		Executor:    executor,
		Fulfillment: fulfillment,
		Commands:    application.NewCommandApplicationService(scheduler, backend.Commands, backend.Robots, publisher, logger),
		Robots:      robots,
		Inventory:   inventory,
		Monitor:     application.NewStalledCommandMonitor(backend.Commands, cfg.Monitor, m, logger),
	}
}
