package domain

import (
	"context"
	"time"
)

// CatalogStore описывает атомарные операции над остатками каталога.
// Это единственная точка мутации Item.Quantity во всём ядре.
type CatalogStore interface {
	// GetItem возвращает товар или ErrItemNotFound, если его нет.
	GetItem(ctx context.Context, id int64) (Item, error)
	// ConditionalDecrement атомарно уменьшает остаток на qty, если остатка
	// достаточно. Возвращает InsufficientStockError при нехватке и
	// ErrItemNotFound, если товара нет. Проверка и списание выполняются
	// как одна сериализованная операция по конкретному товару.
	ConditionalDecrement(ctx context.Context, id int64, qty int32) error
	// Increment безусловно возвращает qty единиц на остаток.
	// Единственная возможная ошибка — ErrItemNotFound.
	Increment(ctx context.Context, id int64, qty int32) error
}

// CategoryDirectory разрешает категории каталога в канонические записи.
type CategoryDirectory interface {
	// GetCategory возвращает категорию по идентификатору или ErrCategoryNotFound.
	GetCategory(ctx context.Context, id string) (Category, error)
	// GetCategoryByName ищет категорию по имени без учёта регистра.
	GetCategoryByName(ctx context.Context, name string) (Category, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
// Ядро только кладёт события в outbox; доставкой занимается отдельный worker,
// поэтому сбой публикации никогда не откатывает заказ.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
