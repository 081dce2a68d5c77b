package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/internal/infrastructure/eventing"
	"github.com/wms-platform/asrs-service/internal/infrastructure/memory"
	"github.com/wms-platform/asrs-service/pkg/cloudevents"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
)

// recordingDispatcher keeps dispatched commands so tests can run them on demand
type recordingDispatcher struct {
	mu         sync.Mutex
	dispatched []string
	err        error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, cmd *domain.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.dispatched = append(d.dispatched, cmd.ID)
	return nil
}

// recordingSleeper returns immediately and remembers the requested waits
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

type harness struct {
	store      *memory.Store
	metrics    *metrics.Metrics
	dispatcher *recordingDispatcher
	sleeper    *recordingSleeper

	allocator   *InventoryAllocator
	stockOps    *StockOperations
	execution   *ExecutionTransaction
	scheduler   *TaskScheduler
	executor    *CommandExecutor
	fulfillment *FulfillmentApplicationService
	commands    *CommandApplicationService
	robots      *RobotApplicationService
	inventory   *InventoryApplicationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := logging.New(logging.DefaultConfig("test"))
	store := memory.NewStore(domain.DefaultLayoutGeometry())
	m := metrics.New(metrics.DefaultConfig("test"))
	locker := memory.NewLocker()
	publisher := eventing.NewOutboxPublisher(store.Outbox(), cloudevents.NewEventFactory("/asrs-service/test"))

	h := &harness{
		store:      store,
		metrics:    m,
		dispatcher: &recordingDispatcher{},
		sleeper:    &recordingSleeper{},
	}

	h.allocator = NewInventoryAllocator(store.Stock(), store.Layout(), store.Items(), logger)
	h.stockOps = NewStockOperations(store, store.Layout(), store.Stock(), store.Items(), publisher, locker, time.Second, logger)
	h.execution = NewExecutionTransaction(store, store.Stock(), store.Layout(), store.Movements(), publisher, locker, time.Second, m, logger)
	h.scheduler = NewTaskScheduler(store.Robots(), store.Commands(), publisher, locker, h.dispatcher, time.Second, logger)
	h.executor = NewCommandExecutor(store.Robots(), store.Commands(), store.Layout(), store.Items(), store,
		h.stockOps, publisher, h.sleeper, DefaultExecutorConfig(), m, logger)
	h.fulfillment = NewFulfillmentApplicationService(
		h.allocator,
		NewRouteOptimizer(DefaultRouteConfig()),
		NewPlanAggregator(nil),
		h.execution,
		h.scheduler,
		store.Plans(),
		store.Movements(),
		store.Robots(),
		store,
		publisher,
		m,
		logger,
	)
	h.commands = NewCommandApplicationService(h.scheduler, store.Commands(), store.Robots(), publisher, logger)
	h.robots = NewRobotApplicationService(store.Robots(), store.Commands(), store.Layout(), publisher, logger)
	h.inventory = NewInventoryApplicationService(store, store.Layout(), store.Items(), store.Stock(), h.stockOps,
		domain.DefaultLayoutGeometry(), logger)

	return h
}

// bin seeds a bin in zone A, aisle 1, rack 1
func (h *harness) bin(t *testing.T, id string, level, position, capacity int) {
	t.Helper()
	_, err := h.inventory.CreateBin(context.Background(), CreateBinCommand{
		ZoneID: "Z-A", ZoneCode: "A",
		AisleID: "AI-1", AisleNumber: 1,
		RackID: "R-1", RackNumber: 1,
		BinID: id, Level: level, Position: position, Capacity: capacity,
		Barcode: "BC-" + id,
	})
	require.NoError(t, err)
}

func (h *harness) item(t *testing.T, id string, weight float64) {
	t.Helper()
	_, err := h.inventory.RegisterItem(context.Background(), RegisterItemCommand{
		ItemID: id, SKU: "SKU-" + id, Name: id, Barcode: "IT-" + id, Weight: weight,
	})
	require.NoError(t, err)
}

func (h *harness) stock(t *testing.T, binID, itemID string, qty int, expiry *time.Time) {
	t.Helper()
	_, err := h.inventory.ReceiveStock(context.Background(), ReceiveStockCommand{
		BinID: binID, ItemID: itemID, Quantity: qty, ExpiryDate: expiry,
	})
	require.NoError(t, err)
}

func (h *harness) robot(t *testing.T, id string) {
	t.Helper()
	_, err := h.robots.RegisterRobot(context.Background(), RegisterRobotCommand{RobotID: id, AssignedZone: "A"})
	require.NoError(t, err)
}

func (h *harness) unit(t *testing.T, binID, itemID string) int {
	t.Helper()
	u, err := h.store.Stock().FindOne(context.Background(), binID, itemID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0
	}
	require.NoError(t, err)
	return u.Quantity
}

func (h *harness) load(t *testing.T, binID string) int {
	t.Helper()
	b, err := h.store.Layout().FindBin(context.Background(), binID)
	require.NoError(t, err)
	return b.CurrentLoad
}

func (h *harness) robotStatus(t *testing.T, id string) domain.RobotStatus {
	t.Helper()
	r, err := h.store.Robots().FindByID(context.Background(), id)
	require.NoError(t, err)
	return r.Status
}

func day(offset int) *time.Time {
	d := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &d
}
