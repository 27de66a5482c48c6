package domain

import "time"

// Item — складская единица каталога. Quantity мутируется только движком
// резервирования через атомарные операции CatalogStore; остальные поля —
// зона ответственности внешнего CRUD.
type Item struct {
	ID int64
	// Name — отображаемое имя товара.
	Name string
	// Quantity — доступный остаток, инвариант: никогда не меньше нуля.
	Quantity int32
	// PriceMinor — цена за единицу в минимальных денежных единицах (центах).
	PriceMinor int64
	// CategoryID связывает товар с категорией каталога.
	CategoryID string
	// Active — признак видимости товара в каталоге.
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет базовые инварианты товара и возвращает список замечаний.
func (i *Item) Validate() []error {
	var errs []error

	if i.Name == "" {
		errs = append(errs, ErrItemNameRequired)
	}
	if i.Quantity < 0 {
		errs = append(errs, ErrItemQuantityNegative)
	}
	if i.PriceMinor < 0 {
		errs = append(errs, ErrLinePriceInvalid)
	}

	return errs
}
