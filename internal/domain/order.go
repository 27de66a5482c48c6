package domain

import (
	"encoding/json"
	"time"
)

// ProposedLine — строка заказа в том виде, как её прислал клиент: только товар
// и количество. Цена и суммы назначаются движком резервирования, входные
// значения сумм никогда не используются.
type ProposedLine struct {
	ItemID int64
	Qty    int32
}

// OrderLine представляет одну зарезервированную строку заказа.
type OrderLine struct {
	// ItemID — идентификатор товара каталога.
	ItemID int64
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — цена за единицу, зафиксированная в момент резервирования.
	// Последующие изменения цены в каталоге на строку не влияют.
	PriceMinor int64
	// TotalMinor = Qty * PriceMinor; всегда пересчитывается движком.
	TotalMinor int64
}

// Order агрегирует состояние заказа и его строки.
type Order struct {
	ID         string
	CustomerID string
	// CustomerSnapshot — денормализованные данные клиента на момент заказа.
	// Ядро трактует их как непрозрачный документ.
	CustomerSnapshot json.RawMessage
	Lines            []OrderLine
	// TotalMinor — сумма TotalMinor всех строк; производное поле.
	TotalMinor int64
	// TotalItems — сумма Qty всех строк; производное поле.
	TotalItems int32
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RecomputeTotals пересчитывает производные суммы заказа по строкам.
// Суммы никогда не принимаются от вызывающей стороны.
func (o *Order) RecomputeTotals() {
	var total int64
	var items int32
	for i := range o.Lines {
		o.Lines[i].TotalMinor = int64(o.Lines[i].Qty) * o.Lines[i].PriceMinor
		total += o.Lines[i].TotalMinor
		items += o.Lines[i].Qty
	}
	o.TotalMinor = total
	o.TotalItems = items
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrEmptyOrder)
	}

	// Сверяем сумму заказа с суммой строк: qty * price.
	var calc int64
	var items int32
	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.PriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
		calc += int64(line.Qty) * line.PriceMinor
		items += line.Qty
	}
	if calc != o.TotalMinor || items != o.TotalItems {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
