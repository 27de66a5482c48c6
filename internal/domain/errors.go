package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyOrder возвращается, если заказ не содержит ни одной строки.
	ErrEmptyOrder = errors.New("order must contain at least one line")
	// ErrItemNotFound возвращается, если товар отсутствует в каталоге.
	ErrItemNotFound = errors.New("item not found")
	// ErrInsufficientStock возвращается, если запрошенное количество превышает остаток.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCategoryNotFound возвращается, если категория отсутствует в справочнике.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего имени товара.
	ErrItemNameRequired = errors.New("item name is required")
	// Ошибка отрицательного остатка товара.
	ErrItemQuantityNegative = errors.New("item quantity must be non-negative")
	// Ошибка при некорректном количестве в строке заказа (<= 0).
	ErrLineQtyInvalid = errors.New("line qty must be greater than zero")
	// Ошибка, если цена строки отрицательная.
	ErrLinePriceInvalid = errors.New("line price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм строк.
	ErrTotalMismatch = errors.New("order total does not match lines sum")
	// ErrStockIntegrity — нарушение целостности остатков: компенсация не смогла
	// вернуть каталог в согласованное состояние. Это не клиентская ошибка.
	ErrStockIntegrity = errors.New("stock integrity violation")
	// ErrEventPublish — ошибка при публикации события из outbox.
	ErrEventPublish = errors.New("event publish failed")
)

// ItemNotFoundError уточняет, какой именно товар отсутствует.
type ItemNotFoundError struct {
	ItemID int64
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %d not found", e.ItemID)
}

// Unwrap позволяет матчить ошибку через errors.Is(err, ErrItemNotFound).
func (e *ItemNotFoundError) Unwrap() error { return ErrItemNotFound }

// InsufficientStockError содержит детали отказа по остаткам: сколько запрошено
// и сколько реально доступно на момент проверки.
type InsufficientStockError struct {
	ItemID    int64
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// IntegrityError описывает сбой компенсирующей операции над остатками.
// Такие ошибки означают баг или повреждение хранилища и должны эскалироваться,
// а не возвращаться клиенту как обычный отказ валидации.
type IntegrityError struct {
	Op     string
	ItemID int64
	Err    error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("stock integrity violation during %s for item %d: %v", e.Op, e.ItemID, e.Err)
}

func (e *IntegrityError) Unwrap() error { return ErrStockIntegrity }

// IsClientError проверяет, относится ли ошибка к классу клиентских (ввод/валидация).
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyOrder) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCustomerRequired) ||
		errors.Is(err, ErrLineQtyInvalid)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
