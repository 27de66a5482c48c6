package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

func makeOrder(id, customerID string, createdAt time.Time) domain.Order {
	order := domain.Order{
		ID:         id,
		CustomerID: customerID,
		Lines: []domain.OrderLine{
			{ItemID: 1, Qty: 1, PriceMinor: 1000},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	order.RecomputeTotals()
	return order
}

func TestOrderRepositoryCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	order := makeOrder("order-1", "customer-1", time.Now().UTC())

	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, order); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected conflict on duplicate create, got %v", err)
	}

	loaded, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.TotalMinor != 1000 || len(loaded.Lines) != 1 {
		t.Fatalf("unexpected order: %+v", loaded)
	}

	if err := repo.Delete(ctx, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on repeated delete, got %v", err)
	}
}

func TestOrderRepositorySaveVersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	order := makeOrder("order-1", "customer-1", time.Now().UTC())

	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}

	order.Lines[0].Qty = 2
	order.RecomputeTotals()
	saved, err := repo.Save(ctx, order)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Version != order.Version+1 {
		t.Fatalf("expected saved version %d, got %d", order.Version+1, saved.Version)
	}

	// Повторное сохранение со старой версией должно упасть.
	if _, err := repo.Save(ctx, order); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	loaded, _ := repo.Get(ctx, order.ID)
	if loaded.Version != 1 {
		t.Fatalf("expected version 1, got %d", loaded.Version)
	}
}

func TestOrderRepositoryListCopiesLines(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	order := makeOrder("order-1", "customer-1", time.Now().UTC())

	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Мутация строк из выборки не должна задевать хранимую запись.
	byCustomer, err := repo.ListByCustomer(ctx, "customer-1", 0)
	if err != nil {
		t.Fatalf("list by customer: %v", err)
	}
	byCustomer[0].Lines[0].Qty = 99

	page, err := repo.List(ctx, domain.PageParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	page.Orders[0].Lines[0].Qty = 99

	loaded, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Lines[0].Qty != 1 {
		t.Fatalf("stored order mutated through list result: %+v", loaded.Lines[0])
	}
}

func TestOrderRepositoryListByCustomer(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		customer := "customer-a"
		if i%2 == 1 {
			customer = "customer-b"
		}
		order := makeOrder(fmt.Sprintf("order-%d", i), customer, base.Add(time.Duration(i)*time.Second))
		if err := repo.Create(ctx, order); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	orders, err := repo.ListByCustomer(ctx, "customer-a", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	// Сортировка от новых к старым.
	if orders[0].ID != "order-4" {
		t.Fatalf("expected newest first, got %s", orders[0].ID)
	}

	limited, _ := repo.ListByCustomer(ctx, "customer-a", 2)
	if len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestOrderRepositoryListPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	base := time.Now().UTC()

	for i := 0; i < 7; i++ {
		order := makeOrder(fmt.Sprintf("order-%d", i), "customer-1", base.Add(time.Duration(i)*time.Second))
		if err := repo.Create(ctx, order); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := repo.List(ctx, domain.PageParams{Page: 2, Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 7 || len(page.Orders) != 3 {
		t.Fatalf("unexpected page: total=%d len=%d", page.TotalCount, len(page.Orders))
	}
	if page.Orders[0].ID != "order-3" {
		t.Fatalf("unexpected page start: %s", page.Orders[0].ID)
	}

	empty, _ := repo.List(ctx, domain.PageParams{Page: 4, Limit: 3})
	if len(empty.Orders) != 0 {
		t.Fatalf("expected empty page, got %d orders", len(empty.Orders))
	}
}
