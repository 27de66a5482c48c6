package memory

import (
	"testing"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

func TestOutboxEnqueueAndPull(t *testing.T) {
	repo := NewOutboxRepository()

	first, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}

	if _, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-2",
		EventType:     "order.deleted",
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 2 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestOutboxMarkSentAndFailed(t *testing.T) {
	repo := NewOutboxRepository()

	msg, _ := repo.Enqueue(domain.OutboxMessage{AggregateID: "order-1", EventType: "order.created"})

	if err := repo.MarkSent(msg.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if pending := repo.AllPending(); len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(pending))
	}

	other, _ := repo.Enqueue(domain.OutboxMessage{AggregateID: "order-2", EventType: "order.updated"})
	if err := repo.MarkFailed(other.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if pending := repo.AllPending(); len(pending) != 0 {
		t.Fatalf("failed message must leave backlog, got %d", len(pending))
	}

	if err := repo.MarkSent("missing"); err == nil {
		t.Fatal("expected error for unknown id")
	}
}
