package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/asrs-service/internal/application"
	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/internal/infrastructure/eventing"
	"github.com/wms-platform/asrs-service/internal/infrastructure/memory"
	"github.com/wms-platform/asrs-service/pkg/cloudevents"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
	"github.com/wms-platform/asrs-service/pkg/middleware"
)

// heldDispatcher accepts commands without running them, leaving them PENDING
type heldDispatcher struct{}

func (heldDispatcher) Dispatch(ctx context.Context, cmd *domain.Command) error { return nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.New(logging.DefaultConfig("test"))
	geometry := domain.DefaultLayoutGeometry()
	store := memory.NewStore(geometry)
	m := metrics.New(metrics.DefaultConfig("test"))
	locker := memory.NewLocker()
	publisher := eventing.NewOutboxPublisher(store.Outbox(), cloudevents.NewEventFactory("/asrs-service/test"))

	stockOps := application.NewStockOperations(store, store.Layout(), store.Stock(), store.Items(), publisher, locker, time.Second, logger)
	execution := application.NewExecutionTransaction(store, store.Stock(), store.Layout(), store.Movements(), publisher, locker, time.Second, m, logger)
	scheduler := application.NewTaskScheduler(store.Robots(), store.Commands(), publisher, locker, heldDispatcher{}, time.Second, logger)

	fulfillment := application.NewFulfillmentApplicationService(
		application.NewInventoryAllocator(store.Stock(), store.Layout(), store.Items(), logger),
		application.NewRouteOptimizer(application.DefaultRouteConfig()),
		application.NewPlanAggregator(nil),
		execution,
		scheduler,
		store.Plans(),
		store.Movements(),
		store.Robots(),
		store,
		publisher,
		m,
		logger,
	)
	commands := application.NewCommandApplicationService(scheduler, store.Commands(), store.Robots(), publisher, logger)
	robots := application.NewRobotApplicationService(store.Robots(), store.Commands(), store.Layout(), publisher, logger)
	inventory := application.NewInventoryApplicationService(store, store.Layout(), store.Items(), store.Stock(), stockOps, geometry, logger)

	handlers := NewHandlers(fulfillment, robots, commands, inventory, logger)
	return NewRouter(RouterConfig{ServiceName: "asrs-test", Logger: logger, Metrics: m}, handlers)
}

func performRequest(router *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func mustDo(t *testing.T, router *gin.Engine, method, path, body string, status int) *httptest.ResponseRecorder {
	t.Helper()
	rec := performRequest(router, method, path, body)
	require.Equal(t, status, rec.Code, rec.Body.String())
	return rec
}

// seed creates two bins in aisle 1 holding 30 units of ITEM-1 between them
func seed(t *testing.T, router *gin.Engine) {
	t.Helper()
	for _, bin := range []string{
		`{"zoneId":"Z-A","zoneCode":"A","aisleId":"AI-1","aisleNumber":1,"rackId":"RK-1","rackNumber":1,"binId":"B1","level":1,"position":1,"capacity":100}`,
		`{"zoneId":"Z-A","zoneCode":"A","aisleId":"AI-1","aisleNumber":1,"rackId":"RK-1","rackNumber":1,"binId":"B2","level":1,"position":2,"capacity":100}`,
	} {
		mustDo(t, router, http.MethodPost, "/api/v1/layout/bins", bin, http.StatusCreated)
	}
	mustDo(t, router, http.MethodPost, "/api/v1/items", `{"itemId":"ITEM-1","sku":"SKU-1","name":"Widget","weight":2}`, http.StatusCreated)
	mustDo(t, router, http.MethodPost, "/api/v1/stock/receive", `{"binId":"B1","itemId":"ITEM-1","quantity":10,"expiryDate":"2026-03-01T00:00:00Z"}`, http.StatusOK)
	mustDo(t, router, http.MethodPost, "/api/v1/stock/receive", `{"binId":"B2","itemId":"ITEM-1","quantity":20,"expiryDate":"2026-06-01T00:00:00Z"}`, http.StatusOK)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	mustDo(t, router, http.MethodGet, "/health", "", http.StatusOK)
	mustDo(t, router, http.MethodGet, "/ready", "", http.StatusOK)
	rec := mustDo(t, router, http.MethodGet, "/metrics", "", http.StatusOK)
	assert.Contains(t, rec.Body.String(), "# TYPE")
}

func TestPlanAndExecuteByID(t *testing.T) {
	router := newTestRouter(t)
	seed(t, router)

	rec := mustDo(t, router, http.MethodPost, "/api/v1/fulfillment/plans",
		`{"requestId":"REQ-1","lines":[{"itemId":"ITEM-1","quantity":15,"priority":"HIGH"}]}`, http.StatusCreated)
	plan := decode[application.FulfillmentPlanDTO](t, rec)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "B1", plan.Steps[0].BinID, "earliest expiry first")
	assert.Equal(t, 10, plan.Steps[0].Quantity)
	assert.Equal(t, 5, plan.Steps[1].Quantity)

	mustDo(t, router, http.MethodGet, "/api/v1/fulfillment/plans/"+plan.PlanID, "", http.StatusOK)

	rec = mustDo(t, router, http.MethodPost, "/api/v1/fulfillment/plans/"+plan.PlanID+"/execute",
		`{"performedBy":"picker-7"}`, http.StatusOK)
	result := decode[application.ExecutionResultDTO](t, rec)
	assert.Len(t, result.Movements, 2)
	assert.Empty(t, result.CommandIDs)

	rec = mustDo(t, router, http.MethodGet, "/api/v1/stock?itemId=ITEM-1", "", http.StatusOK)
	levels := decode[application.StockLevelsDTO](t, rec)
	assert.Equal(t, 15, levels.Total)

	rec = mustDo(t, router, http.MethodGet, "/api/v1/movements?planId="+plan.PlanID+"&limit=1", "", http.StatusOK)
	page := decode[application.PageDTO[application.MovementRecordDTO]](t, rec)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 1)

	rec = mustDo(t, router, http.MethodPost, "/api/v1/fulfillment/plans/"+plan.PlanID+"/execute",
		`{"performedBy":"picker-7"}`, http.StatusConflict)
	body := decode[middleware.APIErrorResponse](t, rec)
	assert.Equal(t, "TRANSACTION_CONFLICT", body.Code)
}

func TestExecuteRequestErrors(t *testing.T) {
	router := newTestRouter(t)
	seed(t, router)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{
			name:   "insufficient stock",
			body:   `{"performedBy":"p","lines":[{"itemId":"ITEM-1","quantity":31}]}`,
			status: http.StatusUnprocessableEntity,
			code:   "INSUFFICIENT_STOCK",
		},
		{
			name:   "unknown item",
			body:   `{"performedBy":"p","lines":[{"itemId":"GHOST","quantity":1}]}`,
			status: http.StatusNotFound,
			code:   "RESOURCE_NOT_FOUND",
		},
		{
			name:   "missing performer",
			body:   `{"lines":[{"itemId":"ITEM-1","quantity":1}]}`,
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
		{
			name:   "no lines",
			body:   `{"performedBy":"p","lines":[]}`,
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
		{
			name:   "zero quantity",
			body:   `{"performedBy":"p","lines":[{"itemId":"ITEM-1","quantity":0}]}`,
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustDo(t, router, http.MethodPost, "/api/v1/fulfillment/execute", tt.body, tt.status)
			assert.Equal(t, tt.code, decode[middleware.APIErrorResponse](t, rec).Code)
		})
	}

	rec := mustDo(t, router, http.MethodGet, "/api/v1/stock?itemId=ITEM-1", "", http.StatusOK)
	assert.Equal(t, 30, decode[application.StockLevelsDTO](t, rec).Total, "failed requests leave stock untouched")
}

func TestCommandLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	seed(t, router)
	mustDo(t, router, http.MethodPost, "/api/v1/robots", `{"robotId":"R1","assignedZone":"A","startBinId":"B1"}`, http.StatusCreated)

	rec := mustDo(t, router, http.MethodPost, "/api/v1/robots/R1/commands",
		`{"type":"MOVE","parameters":{"destinationBinId":"B2"},"requestedBy":"ops"}`, http.StatusAccepted)
	cmd := decode[application.CommandDTO](t, rec)
	assert.Equal(t, "PENDING", cmd.Status)

	rec = mustDo(t, router, http.MethodGet, "/api/v1/robots/R1", "", http.StatusOK)
	assert.Equal(t, "WORKING", decode[application.RobotDTO](t, rec).Status)

	rec = mustDo(t, router, http.MethodPost, "/api/v1/robots/R1/commands", `{"type":"SCAN","parameters":{"barcode":"x"}}`, http.StatusConflict)
	assert.Equal(t, "ROBOT_UNAVAILABLE", decode[middleware.APIErrorResponse](t, rec).Code)

	rec = mustDo(t, router, http.MethodPatch, "/api/v1/commands/"+cmd.ID, `{"parameters":{"destinationBinId":"B1"}}`, http.StatusOK)
	updated := decode[application.UpdateParametersResultDTO](t, rec)
	assert.True(t, updated.Changed)
	assert.Equal(t, "B1", updated.Command.Parameters.DestinationBinID)

	rec = mustDo(t, router, http.MethodGet, "/api/v1/commands?robotId=R1&status=PENDING", "", http.StatusOK)
	assert.Equal(t, int64(1), decode[application.PageDTO[application.CommandDTO]](t, rec).Total)

	rec = mustDo(t, router, http.MethodPost, "/api/v1/commands/"+cmd.ID+"/cancel", `{"reason":"operator"}`, http.StatusOK)
	assert.Equal(t, "CANCELLED", decode[application.CommandDTO](t, rec).Status)

	rec = mustDo(t, router, http.MethodGet, "/api/v1/robots/R1", "", http.StatusOK)
	assert.Equal(t, "IDLE", decode[application.RobotDTO](t, rec).Status)

	mustDo(t, router, http.MethodDelete, "/api/v1/commands/"+cmd.ID, "", http.StatusNoContent)
	mustDo(t, router, http.MethodGet, "/api/v1/commands/"+cmd.ID, "", http.StatusNotFound)
}

func TestScheduleCommandValidation(t *testing.T) {
	router := newTestRouter(t)
	seed(t, router)
	mustDo(t, router, http.MethodPost, "/api/v1/robots", `{"robotId":"R1"}`, http.StatusCreated)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown type", "/api/v1/robots/R1/commands", `{"type":"DANCE"}`, http.StatusBadRequest, "UNKNOWN_COMMAND_TYPE"},
		{"missing type", "/api/v1/robots/R1/commands", `{}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing parameter", "/api/v1/robots/R1/commands", `{"type":"PICK","parameters":{"binId":"B1"}}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown robot", "/api/v1/robots/R9/commands", `{"type":"CALIBRATE"}`, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustDo(t, router, http.MethodPost, tt.path, tt.body, tt.status)
			assert.Equal(t, tt.code, decode[middleware.APIErrorResponse](t, rec).Code)
		})
	}
}

func TestRobotRecoveryOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	mustDo(t, router, http.MethodPost, "/api/v1/robots", `{"robotId":"R1","assignedZone":"A"}`, http.StatusCreated)
	mustDo(t, router, http.MethodPost, "/api/v1/robots", `{"robotId":"R2","assignedZone":"B"}`, http.StatusCreated)

	rec := mustDo(t, router, http.MethodPost, "/api/v1/robots/R1/status", `{"status":"WORKING"}`, http.StatusConflict)
	assert.Equal(t, "INVALID_STATE_TRANSITION", decode[middleware.APIErrorResponse](t, rec).Code)

	mustDo(t, router, http.MethodPost, "/api/v1/robots/R1/status", `{"status":"MAINTENANCE","reason":"inspection"}`, http.StatusOK)
	rec = mustDo(t, router, http.MethodGet, "/api/v1/robots?status=MAINTENANCE", "", http.StatusOK)
	page := decode[application.PageDTO[application.RobotDTO]](t, rec)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "R1", page.Items[0].ID)

	rec = mustDo(t, router, http.MethodGet, "/api/v1/robots?zone=B", "", http.StatusOK)
	assert.Equal(t, int64(1), decode[application.PageDTO[application.RobotDTO]](t, rec).Total)

	mustDo(t, router, http.MethodPost, "/api/v1/robots", `{"robotId":"R1"}`, http.StatusConflict)
}

func TestReceiveStockCapacityGuard(t *testing.T) {
	router := newTestRouter(t)
	seed(t, router)

	rec := mustDo(t, router, http.MethodPost, "/api/v1/stock/receive", `{"binId":"B1","itemId":"ITEM-1","quantity":91}`, http.StatusUnprocessableEntity)
	body := decode[middleware.APIErrorResponse](t, rec)
	assert.Equal(t, "CAPACITY_EXCEEDED", body.Code)

	rec = mustDo(t, router, http.MethodGet, "/api/v1/layout/bins/B1", "", http.StatusOK)
	bin := decode[application.BinDTO](t, rec)
	assert.Equal(t, 10, bin.CurrentLoad)
	assert.Equal(t, "A-1-1-1-1", bin.LocationCode)
}

func TestBadRequests(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"malformed json", http.MethodPost, "/api/v1/items", `{"itemId":}`, http.StatusBadRequest},
		{"negative limit", http.MethodGet, "/api/v1/commands?limit=-1", "", http.StatusBadRequest},
		{"non numeric offset", http.MethodGet, "/api/v1/robots?offset=abc", "", http.StatusBadRequest},
		{"stock without item", http.MethodGet, "/api/v1/stock", "", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/nowhere", "", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/v1/robots", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustDo(t, router, tt.method, tt.path, tt.body, tt.status)
		})
	}
}
