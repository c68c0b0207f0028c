package memory

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOutboxEnqueueAndPullPending(t *testing.T) {
	repo := NewOutboxRepository()

	first, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.created",
		Payload:       []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected outbox id to be assigned")
	}

	time.Sleep(time.Millisecond)
	second, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.paid",
		Payload:       []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(pending))
	}
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Error("expected oldest message first")
	}
}

func TestOutboxMarkSentAndFailed(t *testing.T) {
	repo := NewOutboxRepository()

	sent, _ := repo.Enqueue(domain.OutboxMessage{EventType: "order.created"})
	failed, _ := repo.Enqueue(domain.OutboxMessage{EventType: "order.paid"})

	if err := repo.MarkSent(sent.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(failed.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected empty backlog, got %d messages", len(pending))
	}

	if err := repo.MarkSent("missing"); err == nil {
		t.Error("expected error for unknown outbox id")
	}
}

func TestOutboxStats(t *testing.T) {
	repo := NewOutboxRepository()

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	msg, _ := repo.Enqueue(domain.OutboxMessage{EventType: "order.created"})
	if _, err := repo.Enqueue(domain.OutboxMessage{EventType: "order.paid"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Errorf("expected 2 pending, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Error("expected oldest pending timestamp")
	}

	if err := repo.MarkSent(msg.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	stats, _ = repo.Stats()
	if stats.PendingCount != 1 {
		t.Errorf("expected 1 pending after mark sent, got %d", stats.PendingCount)
	}
}
