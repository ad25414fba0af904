package domain

// OperationsMetrics is the JSON view of the operation counters served by
// GET /v1/metrics/operations.
type OperationsMetrics struct {
	Operations     map[string]OperationCounts `json:"operations"`
	AuditEvents    map[string]int64           `json:"audit_events"`
	Forwarded      int64                      `json:"audit_forwarded"`
	ForwardFailed  int64                      `json:"audit_forward_failed"`
	ForwardDropped int64                      `json:"audit_forward_dropped"`
	Replays        int64                      `json:"idempotent_replays"`
}

// OperationCounts splits an operation's total by outcome.
type OperationCounts struct {
	Success int64 `json:"success"`
	Error   int64 `json:"error"`
}
