package observability

import (
	"time"

	"github.com/boddenberg/bankapp-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Operation names used as metric labels.
const (
	OpDeposit  = "deposit"
	OpWithdraw = "withdraw"
	OpBalance  = "balance"
	OpTransfer = "transfer"
)

var operations = []string{OpDeposit, OpWithdraw, OpBalance, OpTransfer}

// Metrics holds all Prometheus metrics for the bank app.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	operationsTotal   *prometheus.CounterVec
	auditEvents       *prometheus.CounterVec
	auditForward      *prometheus.CounterVec
	replays           prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankapp_operation_duration_seconds",
				Help:    "Duration of banking operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankapp_operations_total",
				Help: "Total banking operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		auditEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankapp_audit_events_total",
				Help: "Total audit events recorded.",
			},
			[]string{"kind"},
		),
		auditForward: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankapp_audit_forward_total",
				Help: "Audit events handed to the remote collector, by outcome.",
			},
			[]string{"status"},
		),
		replays: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bankapp_idempotent_replays_total",
				Help: "Requests answered from the idempotency cache.",
			},
		),
	}
}

// RecordOperation records the duration and outcome of an operation.
func (m *Metrics) RecordOperation(operation string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// IncrAuditEvent counts a recorded audit event.
func (m *Metrics) IncrAuditEvent(kind domain.EventKind) {
	m.auditEvents.WithLabelValues(string(kind)).Inc()
}

// AddAuditForwarded counts events by forwarding outcome: sent, failed or dropped.
func (m *Metrics) AddAuditForwarded(status string, n int) {
	m.auditForward.WithLabelValues(status).Add(float64(n))
}

// IncrReplay counts an idempotent replay.
func (m *Metrics) IncrReplay() {
	m.replays.Inc()
}

// Snapshot returns the counters in the shape served by
// GET /v1/metrics/operations.
func (m *Metrics) Snapshot() *domain.OperationsMetrics {
	snap := &domain.OperationsMetrics{
		Operations:  make(map[string]domain.OperationCounts, len(operations)),
		AuditEvents: make(map[string]int64, 4),
	}
	for _, op := range operations {
		snap.Operations[op] = domain.OperationCounts{
			Success: int64(getCounterValue(m.operationsTotal, op, "success")),
			Error:   int64(getCounterValue(m.operationsTotal, op, "error")),
		}
	}
	for _, kind := range []domain.EventKind{domain.EventDeposit, domain.EventWithdraw, domain.EventBalance, domain.EventTransfer} {
		snap.AuditEvents[string(kind)] = int64(getCounterValue(m.auditEvents, string(kind)))
	}
	snap.Forwarded = int64(getCounterValue(m.auditForward, "sent"))
	snap.ForwardFailed = int64(getCounterValue(m.auditForward, "failed"))
	snap.ForwardDropped = int64(getCounterValue(m.auditForward, "dropped"))
	snap.Replays = int64(readCounter(m.replays))
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	return readCounter(cv.WithLabelValues(labels...))
}

func readCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
