package service

import (
	"context"
	"time"

	"github.com/boddenberg/bankapp-go/internal/domain"
	"github.com/boddenberg/bankapp-go/internal/infra/observability"
	"github.com/boddenberg/bankapp-go/internal/port"

	"go.uber.org/zap"
)

// drainTimeout bounds the final flush after Run's context is cancelled.
const drainTimeout = 5 * time.Second

// AuditDispatcher ships recorded audit events to a sink in batches, in the
// order they were recorded. The in-memory log is never affected by
// forwarding failures.
type AuditDispatcher struct {
	sink      port.AuditSink
	queue     chan domain.AuditEvent
	batchSize int
	interval  time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewAuditDispatcher creates a dispatcher. Subscribe its Enqueue method to
// the AuditService and start Run in its own goroutine.
func NewAuditDispatcher(sink port.AuditSink, queueSize, batchSize int, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) *AuditDispatcher {
	if batchSize < 1 {
		batchSize = 1
	}
	if queueSize < batchSize {
		queueSize = batchSize
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &AuditDispatcher{
		sink:      sink,
		queue:     make(chan domain.AuditEvent, queueSize),
		batchSize: batchSize,
		interval:  interval,
		metrics:   metrics,
		logger:    logger,
	}
}

// Enqueue hands an event to the dispatcher without blocking. When the
// queue is full the event is not forwarded.
func (d *AuditDispatcher) Enqueue(e domain.AuditEvent) {
	select {
	case d.queue <- e:
	default:
		d.metrics.AddAuditForwarded("dropped", 1)
		d.logger.Warn("audit forward queue full, event not forwarded", zap.String("id", e.ID))
	}
}

// Run forwards batches until ctx is cancelled, then flushes what is queued.
// Cancelling ctx never aborts a batch already taken off the queue; only
// drainTimeout bounds the final drain.
func (d *AuditDispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	flushCtx := context.WithoutCancel(ctx)
	batch := make([]domain.AuditEvent, 0, d.batchSize)
	for {
		if ctx.Err() != nil {
			return d.drain(flushCtx, batch)
		}
		select {
		case e := <-d.queue:
			batch = append(batch, e)
			if len(batch) >= d.batchSize {
				d.flush(flushCtx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.flush(flushCtx, batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			return d.drain(flushCtx, batch)
		}
	}
}

// drain flushes batch and everything still queued.
func (d *AuditDispatcher) drain(ctx context.Context, batch []domain.AuditEvent) error {
	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	for {
		select {
		case e := <-d.queue:
			batch = append(batch, e)
			if len(batch) >= d.batchSize {
				d.flush(drainCtx, batch)
				batch = batch[:0]
			}
		default:
			d.flush(drainCtx, batch)
			return nil
		}
	}
}

func (d *AuditDispatcher) flush(ctx context.Context, batch []domain.AuditEvent) {
	if len(batch) == 0 {
		return
	}
	events := make([]domain.AuditEvent, len(batch))
	copy(events, batch)
	if err := d.sink.Publish(ctx, events); err != nil {
		d.metrics.AddAuditForwarded("failed", len(batch))
		d.logger.Error("audit forward failed",
			zap.Int("events", len(batch)),
			zap.String("first_id", batch[0].ID),
			zap.Error(err),
		)
		return
	}
	d.metrics.AddAuditForwarded("sent", len(batch))
	d.logger.Debug("audit batch forwarded", zap.Int("events", len(batch)))
}
