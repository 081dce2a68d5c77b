package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all service metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka / outbox metrics
	KafkaEventsPublished  *prometheus.CounterVec
	KafkaPublishDuration  *prometheus.HistogramVec
	OutboxPending         prometheus.Gauge
	OutboxRetries         *prometheus.CounterVec
	OutboxPublishDuration *prometheus.HistogramVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Temporal metrics
	WorkflowsStarted    *prometheus.CounterVec
	ActivitiesCompleted *prometheus.CounterVec
	ActivityDuration    *prometheus.HistogramVec

	// Fulfillment metrics
	PlansGenerated       *prometheus.CounterVec
	PlanEfficiency       prometheus.Histogram
	UnitsPicked          *prometheus.CounterVec
	TransactionConflicts *prometheus.CounterVec
	CommandsFinished     *prometheus.CounterVec
	CommandDuration      *prometheus.HistogramVec
	StalledCommands      prometheus.Gauge

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "asrs",
	}
}

// New creates a new Metrics instance backed by its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	ns := config.Namespace
	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"service", "method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"service", "method", "path"})

	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "http_requests_in_flight",
		Help:        "Number of HTTP requests currently being processed",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.KafkaEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "kafka_events_published_total",
		Help:      "Total number of Kafka events published",
	}, []string{"service", "topic", "event_type", "status"})

	m.KafkaPublishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "kafka_publish_duration_seconds",
		Help:      "Kafka publish duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"service", "topic"})

	m.OutboxPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "outbox_pending_events",
		Help:        "Unpublished outbox events seen in the last poll",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.OutboxRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "outbox_retries_total",
		Help:      "Outbox publish retries",
	}, []string{"service", "event_type"})

	m.OutboxPublishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "outbox_publish_duration_seconds",
		Help:      "Outbox relay publish duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"service", "event_type", "status"})

	m.MongoDBOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "mongodb_operations_total",
		Help:      "Total number of MongoDB operations",
	}, []string{"service", "collection", "operation", "status"})

	m.MongoDBOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "mongodb_operation_duration_seconds",
		Help:      "MongoDB operation duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"service", "collection", "operation"})

	m.WorkflowsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "temporal_workflows_started_total",
		Help:      "Total number of Temporal workflows started",
	}, []string{"service", "workflow_type"})

	m.ActivitiesCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "temporal_activities_completed_total",
		Help:      "Total number of Temporal activities completed",
	}, []string{"service", "activity_type", "status"})

	m.ActivityDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "temporal_activity_duration_seconds",
		Help:      "Temporal activity duration in seconds",
		Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300},
	}, []string{"service", "activity_type"})

	m.PlansGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "fulfillment_plans_generated_total",
		Help:      "Fulfillment plans generated",
	}, []string{"service", "status"})

	m.PlanEfficiency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   ns,
		Name:        "fulfillment_plan_efficiency_score",
		Help:        "Efficiency score of generated plans",
		Buckets:     []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.UnitsPicked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "units_picked_total",
		Help:      "Inventory units consumed by committed plans",
	}, []string{"service", "zone"})

	m.TransactionConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "transaction_conflicts_total",
		Help:      "Commit-time stock re-validation failures",
	}, []string{"service", "source"})

	m.CommandsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "robot_commands_total",
		Help:      "Robot commands by type and final status",
	}, []string{"service", "type", "status"})

	m.CommandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "robot_command_duration_seconds",
		Help:      "Robot command execution duration in seconds",
		Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
	}, []string{"service", "type"})

	m.StalledCommands = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "stalled_commands",
		Help:        "Commands stuck in EXECUTING beyond the stall threshold",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"service", "name"})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.OutboxPending,
		m.OutboxRetries,
		m.OutboxPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.WorkflowsStarted,
		m.ActivitiesCompleted,
		m.ActivityDuration,
		m.PlansGenerated,
		m.PlanEfficiency,
		m.UnitsPicked,
		m.TransactionConflicts,
		m.CommandsFinished,
		m.CommandDuration,
		m.StalledCommands,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordKafkaPublish records a Kafka publish
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// SetOutboxPending records how many outbox events were waiting on the last poll
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}

// RecordOutboxPublish records an outbox relay attempt
func (m *Metrics) RecordOutboxPublish(eventType string, success bool, duration time.Duration) {
	m.OutboxPublishDuration.WithLabelValues(m.serviceName, eventType, statusLabel(success)).Observe(duration.Seconds())
}

// RecordOutboxRetry records an outbox retry
func (m *Metrics) RecordOutboxRetry(eventType string) {
	m.OutboxRetries.WithLabelValues(m.serviceName, eventType).Inc()
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// RecordWorkflowStarted records a workflow start
func (m *Metrics) RecordWorkflowStarted(workflowType string) {
	m.WorkflowsStarted.WithLabelValues(m.serviceName, workflowType).Inc()
}

// RecordActivityCompleted records an activity completion
func (m *Metrics) RecordActivityCompleted(activityType string, success bool, duration time.Duration) {
	m.ActivitiesCompleted.WithLabelValues(m.serviceName, activityType, statusLabel(success)).Inc()
	m.ActivityDuration.WithLabelValues(m.serviceName, activityType).Observe(duration.Seconds())
}

// RecordPlanGenerated records a planning attempt and, on success, its score
func (m *Metrics) RecordPlanGenerated(success bool, efficiency float64) {
	m.PlansGenerated.WithLabelValues(m.serviceName, statusLabel(success)).Inc()
	if success {
		m.PlanEfficiency.Observe(efficiency)
	}
}

// RecordUnitsPicked records units consumed from a zone
func (m *Metrics) RecordUnitsPicked(zone string, count int) {
	m.UnitsPicked.WithLabelValues(m.serviceName, zone).Add(float64(count))
}

// RecordTransactionConflict records a commit-time conflict
func (m *Metrics) RecordTransactionConflict(source string) {
	m.TransactionConflicts.WithLabelValues(m.serviceName, source).Inc()
}

// RecordCommandFinished records a command reaching a terminal status
func (m *Metrics) RecordCommandFinished(commandType, status string, duration time.Duration) {
	m.CommandsFinished.WithLabelValues(m.serviceName, commandType, status).Inc()
	m.CommandDuration.WithLabelValues(m.serviceName, commandType).Observe(duration.Seconds())
}

// SetStalledCommands sets the stalled command gauge
func (m *Metrics) SetStalledCommands(count int) {
	m.StalledCommands.Set(float64(count))
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}
