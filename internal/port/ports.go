// Package port defines the interfaces (ports) between the service layer and
// its collaborators. Concrete implementations live under internal/infra.
package port

import (
	"context"

	"github.com/boddenberg/bankapp-go/internal/domain"
)

// AuditRecorder appends events to the audit trail.
type AuditRecorder interface {
	RecordEvent(ctx context.Context, event domain.AuditEvent) domain.AuditEvent
}

// AuditSink ships a batch of audit events somewhere outside the process.
type AuditSink interface {
	Publish(ctx context.Context, events []domain.AuditEvent) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
