package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/bankapp-go/internal/domain"
	"github.com/boddenberg/bankapp-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

const auditService = "audit-collector"

// auditBatch is the request body accepted by the remote collector.
type auditBatch struct {
	Events []domain.AuditEvent `json:"events"`
}

// AuditForwarder posts audit event batches to a remote collector.
type AuditForwarder struct {
	httpClient *http.Client
	url        string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
}

// NewAuditForwarder creates a new AuditForwarder.
func NewAuditForwarder(httpClient *http.Client, url string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *AuditForwarder {
	return &AuditForwarder{
		httpClient: httpClient,
		url:        url,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
	}
}

// Publish sends events with retry, circuit breaker, bulkhead and tracing.
// A 4xx answer is not retried.
func (c *AuditForwarder) Publish(ctx context.Context, events []domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "AuditForwarder.Publish")
	defer span.End()
	span.SetAttributes(attribute.Int("audit.batch_size", len(events)))

	body, err := json.Marshal(auditBatch{Events: events})
	if err != nil {
		return fmt.Errorf("encode audit batch: %w", err)
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer c.bulkhead.Release()

	_, err = c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			return c.post(ctx, body)
		})
	})
	if err != nil {
		span.RecordError(err)
		if resilience.IsBreakerOpen(err) {
			return &domain.ErrCircuitOpen{Service: auditService}
		}
		return &domain.ErrExternalService{Service: auditService, Err: err}
	}
	return nil
}

func (c *AuditForwarder) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return resilience.Permanent(fmt.Errorf("audit collector returned status %d", resp.StatusCode))
	default:
		return fmt.Errorf("audit collector returned status %d", resp.StatusCode)
	}
}
