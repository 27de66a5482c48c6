package cache

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Binweiwang/nestFunko/internal/domain"
	"github.com/Binweiwang/nestFunko/internal/storage/memory"
)

// Кэш строится на недоступном Redis: каждая операция должна прозрачно
// проваливаться в нижележащий репозиторий.
func newUnreachableCache(t *testing.T) *OrderCache {
	t.Helper()

	baseLogger := log.New()
	baseLogger.SetLevel(log.PanicLevel)

	client := NewRedisClient("127.0.0.1:1")
	t.Cleanup(func() { _ = client.Close() })

	return NewOrderCache(memory.NewOrderRepository(), client, baseLogger.WithField("component", "order-cache-test"))
}

func testOrder(id string) domain.Order {
	now := time.Now().UTC()
	order := domain.Order{
		ID:         id,
		CustomerID: "customer-1",
		Lines:      []domain.OrderLine{{ItemID: 1, Qty: 2, PriceMinor: 1999}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	order.RecomputeTotals()
	return order
}

func TestOrderCacheFallsBackWhenRedisUnavailable(t *testing.T) {
	ctx := context.Background()
	cached := newUnreachableCache(t)
	order := testOrder("order-1")

	require.NoError(t, cached.Create(ctx, order))

	loaded, err := cached.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.TotalMinor, loaded.TotalMinor)

	loaded.Lines[0].Qty = 3
	loaded.RecomputeTotals()
	saved, err := cached.Save(ctx, loaded)
	require.NoError(t, err)
	require.Equal(t, loaded.Version+1, saved.Version)

	updated, err := cached.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5997), updated.TotalMinor)

	require.NoError(t, cached.Delete(ctx, order.ID))
	_, err = cached.Get(ctx, order.ID)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderCachePropagatesRepositoryErrors(t *testing.T) {
	ctx := context.Background()
	cached := newUnreachableCache(t)

	_, err := cached.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = cached.Save(ctx, testOrder("missing"))
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	require.ErrorIs(t, cached.Delete(ctx, "missing"), domain.ErrOrderNotFound)
}

func TestOrderCacheListPassthrough(t *testing.T) {
	ctx := context.Background()
	cached := newUnreachableCache(t)

	require.NoError(t, cached.Create(ctx, testOrder("order-1")))
	require.NoError(t, cached.Create(ctx, testOrder("order-2")))

	orders, err := cached.ListByCustomer(ctx, "customer-1", 0)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	page, err := cached.List(ctx, domain.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, page.TotalCount)
}
