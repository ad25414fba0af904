package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/boddenberg/bankapp-go/internal/domain"
	"github.com/boddenberg/bankapp-go/internal/infra/observability"
	"github.com/boddenberg/bankapp-go/internal/service"

	"go.uber.org/zap"
)

func TestAuditService_RecordKeepsOrderAndFillsFields(t *testing.T) {
	audit := service.NewAuditService(observability.NewMetrics(), zap.NewNop())

	audit.RecordEvent(context.Background(), domain.NewDepositEvent(1, "", 10, 10))
	audit.RecordEvent(context.Background(), domain.NewBalanceEvent(1, "", 10))
	audit.RecordEvent(context.Background(), domain.NewWithdrawEvent(domain.StageAttempted, 1, "", 5, 10, nil))

	events := audit.Events()
	want := []domain.EventKind{domain.EventDeposit, domain.EventBalance, domain.EventWithdraw}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, k := range want {
		if events[i].Kind != k {
			t.Errorf("event %d: expected %s, got %s", i, k, events[i].Kind)
		}
		if events[i].ID == "" || events[i].Timestamp.IsZero() {
			t.Errorf("event %d: expected id and timestamp to be set", i)
		}
	}
	if events[0].ID == events[1].ID {
		t.Error("expected unique event ids")
	}
}

func TestAuditService_Filter(t *testing.T) {
	audit := service.NewAuditService(observability.NewMetrics(), zap.NewNop())
	for i := 1; i <= 5; i++ {
		audit.RecordEvent(context.Background(), domain.NewDepositEvent(i, "", 1, float64(i)))
		audit.RecordEvent(context.Background(), domain.NewBalanceEvent(i, "", float64(i)))
	}

	deposits := audit.Filter(domain.EventDeposit, 2)
	if len(deposits) != 2 {
		t.Fatalf("expected 2 deposits, got %d", len(deposits))
	}
	if deposits[0].AccountID != 4 || deposits[1].AccountID != 5 {
		t.Errorf("expected the two most recent deposits oldest first, got %d, %d", deposits[0].AccountID, deposits[1].AccountID)
	}
	if all := audit.Filter("", 0); len(all) != 10 {
		t.Errorf("expected 10 events, got %d", len(all))
	}
}

func TestAuditService_SubscribersSeeEveryEventInOrder(t *testing.T) {
	audit := service.NewAuditService(observability.NewMetrics(), zap.NewNop())

	var mu sync.Mutex
	var seen []int
	audit.Subscribe(func(e domain.AuditEvent) {
		mu.Lock()
		seen = append(seen, e.AccountID)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			audit.RecordEvent(context.Background(), domain.NewBalanceEvent(id, "", 0))
		}(i)
	}
	wg.Wait()

	events := audit.Events()
	if len(seen) != len(events) {
		t.Fatalf("expected %d notifications, got %d", len(events), len(seen))
	}
	for i := range events {
		if events[i].AccountID != seen[i] {
			t.Fatalf("subscriber order diverged from log at %d", i)
		}
	}
}
