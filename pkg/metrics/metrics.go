package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the fulfilment service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// MongoDB metrics
	mongoOperationsTotal   *prometheus.CounterVec
	mongoOperationDuration *prometheus.HistogramVec

	// Kafka metrics
	kafkaPublishTotal    *prometheus.CounterVec
	kafkaPublishDuration *prometheus.HistogramVec

	// Outbox metrics
	outboxPendingEvents prometheus.Gauge
	outboxPublishTotal  *prometheus.CounterVec

	// Business metrics
	tasksGeneratedTotal *prometheus.CounterVec
	tasksClaimedTotal   *prometheus.CounterVec
	taskTransitionsTotal *prometheus.CounterVec
	boxesPlannedTotal   prometheus.Counter
	piecesDroppedTotal  prometheus.Counter
	planDuration        prometheus.Histogram
}

// New creates and registers all metrics for the given service
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: registry,

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),

		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"}),

		httpRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being served",
			ConstLabels: constLabels,
		}),

		mongoOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "mongodb_operations_total",
			Help:        "Total number of MongoDB operations",
			ConstLabels: constLabels,
		}, []string{"operation", "collection", "status"}),

		mongoOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "mongodb_operation_duration_seconds",
			Help:        "MongoDB operation latency in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation", "collection"}),

		kafkaPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "kafka_publish_total",
			Help:        "Total number of Kafka publish attempts",
			ConstLabels: constLabels,
		}, []string{"topic", "status"}),

		kafkaPublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "kafka_publish_duration_seconds",
			Help:        "Kafka publish latency in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic"}),

		outboxPendingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "outbox_pending_events",
			Help:        "Number of outbox events waiting to be published",
			ConstLabels: constLabels,
		}),

		outboxPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "outbox_publish_total",
			Help:        "Total number of outbox events processed",
			ConstLabels: constLabels,
		}, []string{"status"}),

		tasksGeneratedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fulfillment_tasks_generated_total",
			Help:        "Total number of fulfilment tasks generated",
			ConstLabels: constLabels,
		}, []string{"work_center", "shift"}),

		tasksClaimedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fulfillment_tasks_claimed_total",
			Help:        "Total number of fulfilment tasks claimed by pickers",
			ConstLabels: constLabels,
		}, []string{"work_center", "shift"}),

		taskTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fulfillment_task_transitions_total",
			Help:        "Total number of task status transitions",
			ConstLabels: constLabels,
		}, []string{"from", "to"}),

		boxesPlannedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "packing_boxes_planned_total",
			Help:        "Total number of boxes produced by the packing engine",
			ConstLabels: constLabels,
		}),

		piecesDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "packing_pieces_dropped_total",
			Help:        "Total number of pieces dropped as unplaceable",
			ConstLabels: constLabels,
		}),

		planDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "packing_plan_duration_seconds",
			Help:        "Packing plan computation latency in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.mongoOperationsTotal,
		m.mongoOperationDuration,
		m.kafkaPublishTotal,
		m.kafkaPublishDuration,
		m.outboxPendingEvents,
		m.outboxPublishTotal,
		m.tasksGeneratedTotal,
		m.tasksClaimedTotal,
		m.taskTransitionsTotal,
		m.boxesPlannedTotal,
		m.piecesDroppedTotal,
		m.planDuration,
	)

	return m
}

// Registry returns the underlying registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncHTTPInFlight increments the in-flight request gauge
func (m *Metrics) IncHTTPInFlight() { m.httpRequestsInFlight.Inc() }

// DecHTTPInFlight decrements the in-flight request gauge
func (m *Metrics) DecHTTPInFlight() { m.httpRequestsInFlight.Dec() }

// RecordMongoOperation records a MongoDB operation
func (m *Metrics) RecordMongoOperation(operation, collection string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.mongoOperationsTotal.WithLabelValues(operation, collection, status).Inc()
	m.mongoOperationDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
}

// RecordKafkaPublish records a Kafka publish attempt
func (m *Metrics) RecordKafkaPublish(topic string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.kafkaPublishTotal.WithLabelValues(topic, status).Inc()
	m.kafkaPublishDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// SetOutboxPending sets the pending outbox events gauge
func (m *Metrics) SetOutboxPending(count int) {
	m.outboxPendingEvents.Set(float64(count))
}

// RecordOutboxPublish records an outbox publish outcome
func (m *Metrics) RecordOutboxPublish(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.outboxPublishTotal.WithLabelValues(status).Inc()
}

// RecordTasksGenerated records tasks generated for a shift scope
func (m *Metrics) RecordTasksGenerated(workCenter, shift string, count int) {
	m.tasksGeneratedTotal.WithLabelValues(workCenter, shift).Add(float64(count))
}

// RecordTaskClaimed records a successful claim
func (m *Metrics) RecordTaskClaimed(workCenter, shift string) {
	m.tasksClaimedTotal.WithLabelValues(workCenter, shift).Inc()
}

// RecordTaskTransition records a task status transition
func (m *Metrics) RecordTaskTransition(from, to string) {
	m.taskTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordPlan records the outcome of one packing plan computation
func (m *Metrics) RecordPlan(boxes, dropped int, duration time.Duration) {
	m.boxesPlannedTotal.Add(float64(boxes))
	m.piecesDroppedTotal.Add(float64(dropped))
	m.planDuration.Observe(duration.Seconds())
}
