package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Binweiwang/nestFunko/internal/domain"
	"github.com/Binweiwang/nestFunko/internal/service/reservation"
	"github.com/Binweiwang/nestFunko/internal/storage/memory"
)

type seedableCatalog interface {
	domain.CatalogStore
	Seed(items ...domain.Item)
}

type inspectableOutbox interface {
	domain.OutboxRepository
	AllPending() []domain.OutboxMessage
}

type fixture struct {
	service Service
	catalog seedableCatalog
	orders  domain.OrderRepository
	outbox  inspectableOutbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	baseLogger := log.New()
	baseLogger.SetLevel(log.PanicLevel)
	logger := baseLogger.WithField("component", "order-service-test")

	catalog := memory.NewCatalogStore()
	catalog.Seed(
		domain.Item{ID: 1, Name: "funko-batman", Quantity: 10, PriceMinor: 1999, Active: true},
		domain.Item{ID: 2, Name: "funko-harley", Quantity: 10, PriceMinor: 1599, Active: true},
		domain.Item{ID: 3, Name: "funko-joker", Quantity: 1, PriceMinor: 2499, Active: true},
	)

	orders := memory.NewOrderRepository()
	outbox := memory.NewOutboxRepository()
	engine := reservation.NewEngine(catalog, logger)

	return &fixture{
		service: NewServiceWithoutMetrics(orders, engine, outbox, logger),
		catalog: catalog,
		orders:  orders,
		outbox:  outbox,
	}
}

func (f *fixture) quantity(t *testing.T, id int64) int32 {
	t.Helper()
	item, err := f.catalog.GetItem(context.Background(), id)
	require.NoError(t, err)
	return item.Quantity
}

// requireEvent проверяет, что в outbox лежит событие нужного типа по заказу.
func (f *fixture) requireEvent(t *testing.T, orderID, eventType string) {
	t.Helper()
	for _, msg := range f.outbox.AllPending() {
		if msg.AggregateID == orderID && msg.EventType == eventType {
			return
		}
	}
	t.Fatalf("expected %s event for order %s in outbox", eventType, orderID)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snapshot := json.RawMessage(`{"name":"Jane","email":"jane@example.com"}`)
	order, err := f.service.Create(ctx, "customer-1", snapshot, []domain.ProposedLine{
		{ItemID: 1, Qty: 1},
		{ItemID: 2, Qty: 2},
	})
	require.NoError(t, err)
	require.NotEmpty(t, order.ID)

	require.Equal(t, int64(5197), order.TotalMinor)
	require.Equal(t, int32(3), order.TotalItems)
	require.Equal(t, int64(1999), order.Lines[0].PriceMinor)
	require.Equal(t, int64(1599), order.Lines[1].PriceMinor)

	require.Equal(t, int32(9), f.quantity(t, 1))
	require.Equal(t, int32(8), f.quantity(t, 2))

	loaded, err := f.service.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.TotalMinor, loaded.TotalMinor)
	require.JSONEq(t, string(snapshot), string(loaded.CustomerSnapshot))

	f.requireEvent(t, order.ID, "order.created")
}

func TestCreateOrderRejectsEmpty(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), "customer-1", nil, nil)
	require.ErrorIs(t, err, domain.ErrEmptyOrder)

	require.Empty(t, f.outbox.AllPending())
	require.Equal(t, int32(10), f.quantity(t, 1))
}

func TestCreateOrderRequiresCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), "", nil, []domain.ProposedLine{{ItemID: 1, Qty: 1}})
	require.ErrorIs(t, err, domain.ErrCustomerRequired)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), "customer-1", nil, []domain.ProposedLine{
		{ItemID: 1, Qty: 1},
		{ItemID: 3, Qty: 5},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Отказ не должен оставить частичных списаний.
	require.Equal(t, int32(10), f.quantity(t, 1))
	require.Equal(t, int32(1), f.quantity(t, 3))
	require.Empty(t, f.outbox.AllPending())
}

// brokenOrderRepo имитирует сбой персистентности на создании.
type brokenOrderRepo struct {
	domain.OrderRepository
	createErr error
	deleteErr error
}

func (b *brokenOrderRepo) Create(ctx context.Context, order domain.Order) error {
	if b.createErr != nil {
		return b.createErr
	}
	return b.OrderRepository.Create(ctx, order)
}

func (b *brokenOrderRepo) Delete(ctx context.Context, id string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	return b.OrderRepository.Delete(ctx, id)
}

func TestCreateOrderPersistFailureReturnsStock(t *testing.T) {
	f := newFixture(t)
	broken := &brokenOrderRepo{OrderRepository: f.orders, createErr: errors.New("connection reset")}

	baseLogger := log.New()
	baseLogger.SetLevel(log.PanicLevel)
	logger := baseLogger.WithField("component", "order-service-test")
	svc := NewServiceWithoutMetrics(broken, reservation.NewEngine(f.catalog, logger), f.outbox, logger)

	_, err := svc.Create(context.Background(), "customer-1", nil, []domain.ProposedLine{{ItemID: 1, Qty: 3}})
	require.Error(t, err)

	// Резерв скомпенсирован, заказа и события нет.
	require.Equal(t, int32(10), f.quantity(t, 1))
	require.Empty(t, f.outbox.AllPending())
}

func TestUpdateOrderRepricesAtCurrentPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.service.Create(ctx, "customer-1", nil, []domain.ProposedLine{{ItemID: 1, Qty: 2}})
	require.NoError(t, err)
	require.Equal(t, int64(3998), order.TotalMinor)

	// Цена в каталоге изменилась между созданием и обновлением.
	f.catalog.Seed(domain.Item{ID: 1, Name: "funko-batman", Quantity: f.quantity(t, 1), PriceMinor: 2500, Active: true})

	updated, err := f.service.Update(ctx, order.ID, []domain.ProposedLine{{ItemID: 1, Qty: 2}})
	require.NoError(t, err)
	require.Equal(t, int64(5000), updated.TotalMinor)
	require.Equal(t, int32(8), f.quantity(t, 1))

	f.requireEvent(t, order.ID, "order.updated")
}

func TestUpdateOrderAdjustsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.service.Create(ctx, "customer-1", nil, []domain.ProposedLine{
		{ItemID: 1, Qty: 2},
		{ItemID: 2, Qty: 1},
	})
	require.NoError(t, err)
	require.Equal(t, int32(8), f.quantity(t, 1))
	require.Equal(t, int32(9), f.quantity(t, 2))

	updated, err := f.service.Update(ctx, order.ID, []domain.ProposedLine{{ItemID: 2, Qty: 4}})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)

	// Строка товара 1 ушла из заказа, его остаток восстановлен целиком.
	require.Equal(t, int32(10), f.quantity(t, 1))
	require.Equal(t, int32(6), f.quantity(t, 2))
}

func TestUpdateOrderReturnsPersistedVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.service.Create(ctx, "customer-1", nil, []domain.ProposedLine{{ItemID: 1, Qty: 1}})
	require.NoError(t, err)

	updated, err := f.service.Update(ctx, order.ID, []domain.ProposedLine{{ItemID: 2, Qty: 1}})
	require.NoError(t, err)

	// Возвращаемый документ совпадает с сохранённым, включая версию.
	stored, err := f.service.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, stored.Version, updated.Version)
	require.Equal(t, order.Version+1, updated.Version)

	// Событие order.updated тоже несёт версию сохранённого документа.
	for _, msg := range f.outbox.AllPending() {
		if msg.AggregateID != order.ID || msg.EventType != "order.updated" {
			continue
		}
		var event struct {
			Metadata map[string]interface{} `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		require.EqualValues(t, stored.Version, event.Metadata["version"])
		return
	}
	t.Fatal("expected order.updated event in outbox")
}

func TestUpdateOrderFailureRestoresOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.service.Create(ctx, "customer-1", nil, []domain.ProposedLine{{ItemID: 1, Qty: 2}})
	require.NoError(t, err)

	_, err = f.service.Update(ctx, order.ID, []domain.ProposedLine{{ItemID: 3, Qty: 5}})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Исходный резерв восстановлен, заказ не изменился.
	require.Equal(t, int32(8), f.quantity(t, 1))
	require.Equal(t, int32(1), f.quantity(t, 3))

	loaded, err := f.service.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.TotalMinor, loaded.TotalMinor)
	require.Equal(t, order.Version, loaded.Version)
}

func TestUpdateOrderNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Update(context.Background(), "missing", []domain.ProposedLine{{ItemID: 1, Qty: 1}})
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.service.Create(ctx, "customer-1", nil, []domain.ProposedLine{
		{ItemID: 1, Qty: 2},
		{ItemID: 2, Qty: 3},
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Cancel(ctx, order.ID))

	// Остатки вернулись, заказ удалён.
	require.Equal(t, int32(10), f.quantity(t, 1))
	require.Equal(t, int32(10), f.quantity(t, 2))

	_, err = f.service.Get(ctx, order.ID)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	f.requireEvent(t, order.ID, "order.deleted")
}

func TestCancelOrderNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.service.Cancel(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCancelDeleteFailureKeepsReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.service.Create(ctx, "customer-1", nil, []domain.ProposedLine{{ItemID: 1, Qty: 2}})
	require.NoError(t, err)

	baseLogger := log.New()
	baseLogger.SetLevel(log.PanicLevel)
	logger := baseLogger.WithField("component", "order-service-test")
	broken := &brokenOrderRepo{OrderRepository: f.orders, deleteErr: errors.New("connection reset")}
	svc := NewServiceWithoutMetrics(broken, reservation.NewEngine(f.catalog, logger), f.outbox, logger)

	err = svc.Cancel(ctx, order.ID)
	require.Error(t, err)

	// Возврат скомпенсирован повторным резервом: заказ и остатки согласованы.
	require.Equal(t, int32(8), f.quantity(t, 1))
	loaded, getErr := f.service.Get(ctx, order.ID)
	require.NoError(t, getErr)
	require.Equal(t, order.TotalMinor, loaded.TotalMinor)
}

func TestListByCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.service.Create(ctx, "customer-1", nil, []domain.ProposedLine{{ItemID: 1, Qty: 1}})
		require.NoError(t, err)
	}
	_, err := f.service.Create(ctx, "customer-2", nil, []domain.ProposedLine{{ItemID: 2, Qty: 1}})
	require.NoError(t, err)

	orders, err := f.service.ListByCustomer(ctx, "customer-1", 0)
	require.NoError(t, err)
	require.Len(t, orders, 3)

	_, err = f.service.ListByCustomer(ctx, "", 0)
	require.ErrorIs(t, err, domain.ErrCustomerRequired)

	page, err := f.service.List(ctx, domain.PageParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 4, page.TotalCount)
	require.Len(t, page.Orders, 2)
}
