package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		orders: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	// Сохраняем копию строк, чтобы избежать непредсказуемых мутаций извне.
	order.Lines = append([]domain.OrderLine(nil), order.Lines...)
	r.orders[order.ID] = order
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Lines = append([]domain.OrderLine(nil), order.Lines...)
	return order, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking), и
// возвращает сохранённое состояние с уже инкрементированной версией.
func (r *orderRepositoryInMemory) Save(_ context.Context, order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[order.ID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.Order{}, domain.ErrOrderVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	order.Version++
	order.Lines = append([]domain.OrderLine(nil), order.Lines...)
	r.orders[order.ID] = order

	saved := order
	saved.Lines = append([]domain.OrderLine(nil), order.Lines...)
	return saved, nil
}

// Delete удаляет заказ или возвращает ErrOrderNotFound.
func (r *orderRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.orders, id)
	return nil
}

// ListByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByCustomer(_ context.Context, customerID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if order.CustomerID != customerID {
			continue
		}
		order.Lines = append([]domain.OrderLine(nil), order.Lines...)
		result = append(result, order)
	}

	sortOrders(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// List возвращает страницу заказов, отсортированных от новых к старым.
func (r *orderRepositoryInMemory) List(_ context.Context, params domain.PageParams) (domain.Page, error) {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		order.Lines = append([]domain.OrderLine(nil), order.Lines...)
		all = append(all, order)
	}
	sortOrders(all)

	page := domain.Page{
		Page:       params.Page,
		Limit:      params.Limit,
		TotalCount: len(all),
		Orders:     []domain.Order{},
	}

	start := (params.Page - 1) * params.Limit
	if start < len(all) {
		end := start + params.Limit
		if end > len(all) {
			end = len(all)
		}
		page.Orders = all[start:end]
	}

	return page, nil
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
