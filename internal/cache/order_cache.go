package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

const (
	// keyOrder — ключ кэша заказа: order:{order_id} -> JSON заказа.
	keyOrder = "order:%s"

	defaultTTL = 5 * time.Minute
)

// NewRedisClient создаёт подключение к Redis по адресу из конфигурации.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// OrderCache — read-through кэш поверх OrderRepository. Redis не является
// источником истины: любая ошибка кэша трактуется как промах, а запись в
// репозиторий инвалидирует ключ. Списки не кэшируются — они дешёвые и
// быстро устаревают.
type OrderCache struct {
	inner  domain.OrderRepository
	client *redis.Client
	ttl    time.Duration
	logger *log.Entry
}

// NewOrderCache оборачивает репозиторий заказов кэширующим декоратором.
func NewOrderCache(inner domain.OrderRepository, client *redis.Client, logger *log.Entry) *OrderCache {
	if logger == nil {
		logger = log.WithField("component", "order-cache")
	}
	return &OrderCache{
		inner:  inner,
		client: client,
		ttl:    defaultTTL,
		logger: logger,
	}
}

func (c *OrderCache) key(id string) string {
	return fmt.Sprintf(keyOrder, id)
}

// Create сохраняет заказ и кладёт его в кэш.
func (c *OrderCache) Create(ctx context.Context, order domain.Order) error {
	if err := c.inner.Create(ctx, order); err != nil {
		return err
	}
	c.store(ctx, order)
	return nil
}

// Get возвращает заказ из кэша или, при промахе, из репозитория.
func (c *OrderCache) Get(ctx context.Context, id string) (domain.Order, error) {
	if raw, err := c.client.Get(ctx, c.key(id)).Bytes(); err == nil {
		var order domain.Order
		if jsonErr := json.Unmarshal(raw, &order); jsonErr == nil {
			return order, nil
		}
		// Битая запись в кэше — удаляем и идём в репозиторий.
		c.invalidate(ctx, id)
	}

	order, err := c.inner.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	c.store(ctx, order)
	return order, nil
}

// Save применяет обновление и инвалидирует кэш до записи новой версии.
func (c *OrderCache) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	c.invalidate(ctx, order.ID)
	saved, err := c.inner.Save(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}
	return saved, nil
}

// Delete удаляет заказ из репозитория и кэша.
func (c *OrderCache) Delete(ctx context.Context, id string) error {
	c.invalidate(ctx, id)
	return c.inner.Delete(ctx, id)
}

// ListByCustomer проксирует выборку в репозиторий.
func (c *OrderCache) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	return c.inner.ListByCustomer(ctx, customerID, limit)
}

// List проксирует постраничную выборку в репозиторий.
func (c *OrderCache) List(ctx context.Context, params domain.PageParams) (domain.Page, error) {
	return c.inner.List(ctx, params)
}

func (c *OrderCache) store(ctx context.Context, order domain.Order) {
	raw, err := json.Marshal(order)
	if err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal order for cache")
		return
	}
	if err := c.client.Set(ctx, c.key(order.ID), raw, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Debug("cache set failed")
	}
}

func (c *OrderCache) invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		c.logger.WithError(err).WithField("order_id", id).Debug("cache invalidation failed")
	}
}

var _ domain.OrderRepository = (*OrderCache)(nil)
