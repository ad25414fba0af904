package handler

import (
	"bytes"
	"net/http"

	"github.com/boddenberg/bankapp-go/internal/infra/observability"
	"github.com/boddenberg/bankapp-go/internal/port"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

// CachedResponse is what the idempotency store keeps per key. A pending
// entry marks a request that is still being processed.
type CachedResponse struct {
	Pending    bool
	StatusCode int
	Body       []byte
}

// IdempotencyStore is satisfied by cache.InMemory[*CachedResponse].
type IdempotencyStore interface {
	port.Cache[*CachedResponse]
	SetIfAbsent(key string, value *CachedResponse) (*CachedResponse, bool)
}

// Idempotency replays the stored response for a repeated Idempotency-Key so
// the operation behind it (and its audit events) happens once. 5xx
// responses are not stored, allowing the client to retry.
func Idempotency(store IdempotencyStore, metrics *observability.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			scoped := r.Method + " " + r.URL.Path + " " + key

			existing, stored := store.SetIfAbsent(scoped, &CachedResponse{Pending: true})
			if !stored {
				if existing.Pending {
					writeError(w, http.StatusConflict, "a request with this Idempotency-Key is still in progress")
					return
				}
				metrics.IncrReplay()
				logger.Info("idempotency cache hit", zap.String("key", key), zap.String("path", r.URL.Path))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotent-Replay", "true")
				w.WriteHeader(existing.StatusCode)
				if _, err := w.Write(existing.Body); err != nil {
					logger.Error("failed to write cached response", zap.Error(err))
				}
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			body := &bytes.Buffer{}
			ww.Tee(body)

			defer func() {
				if rec := recover(); rec != nil {
					store.Delete(scoped)
					panic(rec)
				}
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				if status >= 500 {
					store.Delete(scoped)
					return
				}
				store.Set(scoped, &CachedResponse{StatusCode: status, Body: body.Bytes()})
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
