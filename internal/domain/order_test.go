package domain_test

import (
	"testing"
	"time"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

// helper для создания базового заказа с двумя строками.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	order := domain.Order{
		ID:         "order-1",
		CustomerID: "customer-1",
		Lines: []domain.OrderLine{
			{ItemID: 1, Qty: 1, PriceMinor: 1999},
			{ItemID: 2, Qty: 2, PriceMinor: 1599},
		},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.RecomputeTotals()
	return order
}

func TestOrderRecomputeTotals(t *testing.T) {
	order := makeOrder()

	if order.TotalMinor != 5197 {
		t.Fatalf("expected total 5197, got %d", order.TotalMinor)
	}
	if order.TotalItems != 3 {
		t.Fatalf("expected 3 items, got %d", order.TotalItems)
	}
	if order.Lines[0].TotalMinor != 1999 || order.Lines[1].TotalMinor != 3198 {
		t.Fatalf("unexpected line totals: %d, %d", order.Lines[0].TotalMinor, order.Lines[1].TotalMinor)
	}
}

func TestOrderRecomputeTotals_OverwritesForgedValues(t *testing.T) {
	order := makeOrder()
	// Подделанные суммы не должны пережить пересчёт.
	order.TotalMinor = 0
	order.TotalItems = 99
	order.Lines[0].TotalMinor = 1

	order.RecomputeTotals()

	if order.TotalMinor != 5197 || order.TotalItems != 3 {
		t.Fatalf("forged totals survived recompute: total=%d items=%d", order.TotalMinor, order.TotalItems)
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no customer",
			mut: func(o *domain.Order) {
				o.CustomerID = ""
			},
		},
		{
			name: "no lines",
			mut: func(o *domain.Order) {
				o.Lines = nil
			},
		},
		{
			name: "qty invalid",
			mut: func(o *domain.Order) {
				o.Lines[0].Qty = 0
			},
		},
		{
			name: "price invalid",
			mut: func(o *domain.Order) {
				o.Lines[0].PriceMinor = -5
			},
		},
		{
			name: "total mismatch",
			mut: func(o *domain.Order) {
				o.TotalMinor = 999
			},
		},
		{
			name: "items mismatch",
			mut: func(o *domain.Order) {
				o.TotalItems = 42
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			// Изменяем состояние согласно сценарию.
			tc.mut(&order)

			if len(order.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestItemValidate(t *testing.T) {
	item := domain.Item{ID: 1, Name: "funko-batman", Quantity: 10, PriceMinor: 1999}
	if errs := item.Validate(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}

	item.Name = ""
	item.Quantity = -1
	if errs := item.Validate(); len(errs) != 2 {
		t.Fatalf("expected 2 validation errors, got %v", errs)
	}
}
