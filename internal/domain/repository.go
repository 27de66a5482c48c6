package domain

import "context"

// PageParams задаёт параметры постраничной выборки заказов.
type PageParams struct {
	Page  int
	Limit int
}

// Page — одна страница результата с метаданными пагинации.
type Page struct {
	Orders     []Order
	Page       int
	Limit      int
	TotalCount int
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking и
	// возвращает сохранённое состояние (включая новую версию).
	Save(ctx context.Context, order Order) (Order, error)
	// Delete удаляет заказ или возвращает ErrOrderNotFound.
	Delete(ctx context.Context, id string) error
	// ListByCustomer возвращает заказы клиента с опциональным ограничением на количество.
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error)
	// List возвращает страницу заказов, отсортированных от новых к старым.
	List(ctx context.Context, params PageParams) (Page, error)
}
