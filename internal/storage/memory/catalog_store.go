package memory

import (
	"context"
	"sync"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

// itemRecord хранит товар вместе с собственным мьютексом, чтобы операции над
// остатком одного товара сериализовались, не блокируя остальные товары.
type itemRecord struct {
	mu   sync.Mutex
	item domain.Item
}

// catalogStoreInMemory — in-memory реализация CatalogStore для локальной
// разработки и тестов. Внешний RWMutex защищает только состав map; мутация
// остатка идёт под per-item мьютексом.
type catalogStoreInMemory struct {
	mu    sync.RWMutex
	items map[int64]*itemRecord
}

// NewCatalogStore возвращает пустой in-memory каталог.
func NewCatalogStore() *catalogStoreInMemory {
	return &catalogStoreInMemory{items: make(map[int64]*itemRecord)}
}

// Seed наполняет каталог начальными товарами (для локального запуска и тестов).
func (s *catalogStoreInMemory) Seed(items ...domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		s.items[item.ID] = &itemRecord{item: item}
	}
}

func (s *catalogStoreInMemory) record(id int64) (*itemRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[id]
	return rec, ok
}

// GetItem возвращает копию товара или ErrItemNotFound.
func (s *catalogStoreInMemory) GetItem(_ context.Context, id int64) (domain.Item, error) {
	rec, ok := s.record(id)
	if !ok {
		return domain.Item{}, &domain.ItemNotFoundError{ItemID: id}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.item, nil
}

// ConditionalDecrement списывает qty единиц, только если остатка достаточно.
// Проверка и списание выполняются под одним per-item мьютексом, поэтому два
// конкурентных списания по одному товару линеаризуются.
func (s *catalogStoreInMemory) ConditionalDecrement(_ context.Context, id int64, qty int32) error {
	rec, ok := s.record(id)
	if !ok {
		return &domain.ItemNotFoundError{ItemID: id}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.item.Quantity < qty {
		return &domain.InsufficientStockError{
			ItemID:    id,
			Requested: qty,
			Available: rec.item.Quantity,
		}
	}
	rec.item.Quantity -= qty
	return nil
}

// Increment безусловно возвращает qty единиц на остаток.
func (s *catalogStoreInMemory) Increment(_ context.Context, id int64, qty int32) error {
	rec, ok := s.record(id)
	if !ok {
		return &domain.ItemNotFoundError{ItemID: id}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.item.Quantity += qty
	return nil
}

var _ domain.CatalogStore = (*catalogStoreInMemory)(nil)
