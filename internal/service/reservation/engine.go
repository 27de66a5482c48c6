package reservation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

// Engine превращает набор предложенных строк заказа либо в полностью
// зарезервированный и оценённый заказ, либо в отказ — без частичных списаний.
// Это единственный компонент, которому позволено мутировать остатки каталога.
type Engine struct {
	catalog domain.CatalogStore
	logger  *log.Entry
}

// NewEngine создаёт движок резервирования поверх каталога.
func NewEngine(catalog domain.CatalogStore, logger *log.Entry) *Engine {
	if logger == nil {
		logger = log.WithField("component", "reservation")
	}
	return &Engine{
		catalog: catalog,
		logger:  logger,
	}
}

// ValidateAndPrice проверяет каждую строку по текущему состоянию каталога и
// фиксирует цену на момент резервирования. Метод только читает: упавшая
// валидация оставляет каталог нетронутым.
//
// Суммы строк вычисляются здесь и никогда не принимаются от вызывающей стороны.
func (e *Engine) ValidateAndPrice(ctx context.Context, proposed []domain.ProposedLine) ([]domain.OrderLine, error) {
	if len(proposed) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	lines := make([]domain.OrderLine, 0, len(proposed))
	for _, p := range proposed {
		if p.Qty <= 0 {
			return nil, fmt.Errorf("item %d: %w", p.ItemID, domain.ErrLineQtyInvalid)
		}

		item, err := e.catalog.GetItem(ctx, p.ItemID)
		if err != nil {
			return nil, err
		}
		// Снятый с продажи товар для новых заказов неотличим от отсутствующего.
		if !item.Active {
			return nil, &domain.ItemNotFoundError{ItemID: p.ItemID}
		}
		if p.Qty > item.Quantity {
			return nil, &domain.InsufficientStockError{
				ItemID:    p.ItemID,
				Requested: p.Qty,
				Available: item.Quantity,
			}
		}

		lines = append(lines, domain.OrderLine{
			ItemID:     p.ItemID,
			Qty:        p.Qty,
			PriceMinor: item.PriceMinor,
			TotalMinor: int64(p.Qty) * item.PriceMinor,
		})
	}

	return lines, nil
}

// Reserve атомарно (с точки зрения вызывающей стороны) списывает остатки по
// всем строкам. Достаточность перепроверяется в момент списания: конкурентный
// заказ мог съесть остаток после валидации. При сбое на середине все уже
// списанные строки возвращаются обратно до выхода из метода.
//
// Списания идут в порядке возрастания ItemID, чтобы два заказа с общими
// товарами не взаимоблокировались на сериализации по товару.
func (e *Engine) Reserve(ctx context.Context, lines []domain.OrderLine) error {
	ordered := append([]domain.OrderLine(nil), lines...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ItemID < ordered[j].ItemID })

	for idx, line := range ordered {
		err := e.catalog.ConditionalDecrement(ctx, line.ItemID, line.Qty)
		if err == nil {
			continue
		}

		if rbErr := e.rollback(ctx, ordered[:idx]); rbErr != nil {
			return rbErr
		}
		return err
	}

	return nil
}

// rollback возвращает уже списанные строки после сбоя Reserve. Откат не
// отменяется контекстом вызывающей стороны: целостность остатков важнее
// реакции на cancel.
func (e *Engine) rollback(ctx context.Context, applied []domain.OrderLine) error {
	rbCtx := context.WithoutCancel(ctx)
	for _, line := range applied {
		if err := e.catalog.Increment(rbCtx, line.ItemID, line.Qty); err != nil {
			e.logger.WithError(err).WithField("item_id", line.ItemID).
				Error("rollback increment failed, stock is inconsistent")
			return &domain.IntegrityError{Op: "reserve rollback", ItemID: line.ItemID, Err: err}
		}
	}
	return nil
}

// Return безусловно возвращает остатки по строкам заказа — компенсация для
// update/cancel. Исчезнувший из каталога товар логируется как нарушение
// целостности данных, но не прерывает операцию: заказ в любом случае
// удаляется или замещается. Сбой инкремента по существующему товару —
// фатальная ошибка целостности.
func (e *Engine) Return(ctx context.Context, lines []domain.OrderLine) error {
	for _, line := range lines {
		err := e.catalog.Increment(ctx, line.ItemID, line.Qty)
		if err == nil {
			continue
		}
		if errors.Is(err, domain.ErrItemNotFound) {
			e.logger.WithField("item_id", line.ItemID).
				Warn("returning stock for missing item, skipping")
			continue
		}
		return &domain.IntegrityError{Op: "return", ItemID: line.ItemID, Err: err}
	}
	return nil
}
