// Package service provides the business logic layer: the client registry,
// the banking operations and the audit trail they write to.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/bankapp-go/internal/domain"
	"github.com/boddenberg/bankapp-go/internal/infra/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var auditTracer = otel.Tracer("service/audit")

// AuditService is an append-only, in-memory log of audit events.
// Insertion order is operation order.
type AuditService struct {
	mu          sync.Mutex
	events      []domain.AuditEvent
	subscribers []func(domain.AuditEvent)

	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuditService creates an empty audit log.
func NewAuditService(metrics *observability.Metrics, logger *zap.Logger) *AuditService {
	return &AuditService{
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// RecordEvent appends event to the log, filling in its ID and timestamp
// when unset, and returns the stored event.
func (s *AuditService) RecordEvent(ctx context.Context, event domain.AuditEvent) domain.AuditEvent {
	_, span := auditTracer.Start(ctx, "AuditService.RecordEvent")
	defer span.End()

	if err := event.Validate(); err != nil {
		s.logger.Warn("recording malformed audit event", zap.Error(err))
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}

	// Subscribers run under the lock so they observe events in log order.
	s.mu.Lock()
	s.events = append(s.events, event)
	for _, fn := range s.subscribers {
		fn(event)
	}
	s.mu.Unlock()

	span.SetAttributes(
		attribute.String("audit.kind", string(event.Kind)),
		attribute.String("audit.id", event.ID),
	)
	s.metrics.IncrAuditEvent(event.Kind)
	s.logger.Debug("audit event recorded",
		zap.String("id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.String("stage", string(event.Stage)),
		zap.Int("account_id", event.AccountID),
	)
	return event
}

// Subscribe registers fn to be called for every event recorded from now on.
// fn runs while the log is locked: it must not block or call back into the
// AuditService.
func (s *AuditService) Subscribe(fn func(domain.AuditEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Events returns the recorded events in order. The result is a view of the
// log, not a copy; callers must not modify it.
func (s *AuditService) Events() []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[:len(s.events):len(s.events)]
}

// Len returns the number of recorded events.
func (s *AuditService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Filter returns a copy of the most recent events, oldest first. An empty
// kind matches every event; limit <= 0 means no limit.
func (s *AuditService) Filter(kind domain.EventKind, limit int) []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.AuditEvent, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if kind == "" || s.events[i].Kind == kind {
			out = append(out, s.events[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
