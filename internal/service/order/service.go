package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Binweiwang/nestFunko/internal/domain"
	"github.com/Binweiwang/nestFunko/internal/messaging/kafka"
	"github.com/Binweiwang/nestFunko/internal/metrics"
	"github.com/Binweiwang/nestFunko/internal/service/reservation"
)

// Service описывает операции жизненного цикла заказа.
type Service interface {
	Create(ctx context.Context, customerID string, snapshot json.RawMessage, proposed []domain.ProposedLine) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	Update(ctx context.Context, id string, proposed []domain.ProposedLine) (domain.Order, error)
	Cancel(ctx context.Context, id string) error
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
	List(ctx context.Context, params domain.PageParams) (domain.Page, error)
}

// service связывает движок резервирования, репозиторий заказов и outbox.
// Инвариант всех операций: либо заказ сохранён и остатки списаны, либо ни то,
// ни другое. Сбой на любом шаге компенсируется до выхода из метода.
type service struct {
	orders  domain.OrderRepository
	engine  *reservation.Engine
	outbox  domain.OutboxRepository
	logger  *log.Entry
	metrics *metrics.OrderMetrics
}

// NewService создаёт рабочий экземпляр сервиса заказов.
func NewService(
	orders domain.OrderRepository,
	engine *reservation.Engine,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	return &service{
		orders:  orders,
		engine:  engine,
		outbox:  outbox,
		logger:  logger,
		metrics: metrics.NewOrderMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	orders domain.OrderRepository,
	engine *reservation.Engine,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	return &service{
		orders: orders,
		engine: engine,
		outbox: outbox,
		logger: logger,
	}
}

// Create валидирует и резервирует строки, затем сохраняет заказ. Если
// сохранение падает после успешного резервирования, списанные остатки
// возвращаются компенсирующим Return.
func (s *service) Create(ctx context.Context, customerID string, snapshot json.RawMessage, proposed []domain.ProposedLine) (domain.Order, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordOperationStarted()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationFinished()
			s.metrics.RecordOperationDuration("create", time.Since(start))
		}
	}()

	if customerID == "" {
		s.recordRejection("customer_required")
		return domain.Order{}, domain.ErrCustomerRequired
	}

	lines, err := s.engine.ValidateAndPrice(ctx, proposed)
	if err != nil {
		s.recordRejection(rejectionReason(err))
		return domain.Order{}, err
	}

	reserveStart := time.Now()
	if err := s.engine.Reserve(ctx, lines); err != nil {
		s.recordRejection(rejectionReason(err))
		return domain.Order{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordReservationDuration(time.Since(reserveStart))
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:               uuid.NewString(),
		CustomerID:       customerID,
		CustomerSnapshot: snapshot,
		Lines:            lines,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	order.RecomputeTotals()

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("persist failed, returning reserved stock")
		if rtErr := s.engine.Return(context.WithoutCancel(ctx), lines); rtErr != nil {
			s.logger.WithError(rtErr).WithField("order_id", order.ID).Error("compensation after persist failure failed")
			return domain.Order{}, rtErr
		}
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.emitEvent(order, kafka.EventTypeOrderCreated)

	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"total_minor": order.TotalMinor,
		"total_items": order.TotalItems,
	}).Info("order created")

	return order, nil
}

// Get возвращает заказ по идентификатору.
func (s *service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.orders.Get(ctx, id)
}

// Update замещает строки заказа новым набором. Старые строки сначала
// возвращаются на остаток, новые резервируются по текущим ценам каталога.
// Любой сбой после возврата старых строк компенсируется их повторным
// резервированием, так что видимое состояние заказа не меняется.
func (s *service) Update(ctx context.Context, id string, proposed []domain.ProposedLine) (domain.Order, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordOperationStarted()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationFinished()
			s.metrics.RecordOperationDuration("update", time.Since(start))
		}
	}()

	existing, err := s.orders.Get(ctx, id)
	if err != nil {
		s.recordRejection(rejectionReason(err))
		return domain.Order{}, err
	}

	if err := s.engine.Return(ctx, existing.Lines); err != nil {
		return domain.Order{}, err
	}

	lines, err := s.engine.ValidateAndPrice(ctx, proposed)
	if err == nil {
		reserveStart := time.Now()
		err = s.engine.Reserve(ctx, lines)
		if err == nil && s.metrics != nil {
			s.metrics.RecordReservationDuration(time.Since(reserveStart))
		}
	}
	if err != nil {
		s.recordRejection(rejectionReason(err))
		if rsErr := s.restoreReservation(ctx, existing); rsErr != nil {
			return domain.Order{}, rsErr
		}
		return domain.Order{}, err
	}

	updated := existing
	updated.Lines = lines
	updated.UpdatedAt = time.Now().UTC()
	updated.RecomputeTotals()

	persisted, err := s.orders.Save(ctx, updated)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", id).Error("save failed, rolling back replacement")
		compCtx := context.WithoutCancel(ctx)
		if rtErr := s.engine.Return(compCtx, lines); rtErr != nil {
			return domain.Order{}, rtErr
		}
		if rsErr := s.restoreReservation(ctx, existing); rsErr != nil {
			return domain.Order{}, rsErr
		}
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordOrderUpdated()
	}
	s.emitEvent(persisted, kafka.EventTypeOrderUpdated)

	s.logger.WithFields(log.Fields{
		"order_id":    persisted.ID,
		"total_minor": persisted.TotalMinor,
		"total_items": persisted.TotalItems,
	}).Info("order updated")

	return persisted, nil
}

// Cancel возвращает строки заказа на остаток и удаляет заказ. Если удаление
// не удалось, возврат компенсируется повторным резервированием.
func (s *service) Cancel(ctx context.Context, id string) error {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordOperationStarted()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationFinished()
			s.metrics.RecordOperationDuration("cancel", time.Since(start))
		}
	}()

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		s.recordRejection(rejectionReason(err))
		return err
	}

	if err := s.engine.Return(ctx, order.Lines); err != nil {
		return err
	}

	if err := s.orders.Delete(ctx, id); err != nil {
		s.logger.WithError(err).WithField("order_id", id).Error("delete failed, re-reserving returned stock")
		if rsErr := s.restoreReservation(ctx, order); rsErr != nil {
			return rsErr
		}
		return fmt.Errorf("cancel order: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCanceled()
	}
	s.emitEvent(order, kafka.EventTypeOrderDeleted)

	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
	}).Info("order canceled")

	return nil
}

// ListByCustomer возвращает заказы клиента, новые первыми.
func (s *service) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	if customerID == "" {
		return nil, domain.ErrCustomerRequired
	}
	return s.orders.ListByCustomer(ctx, customerID, limit)
}

// List возвращает страницу всех заказов.
func (s *service) List(ctx context.Context, params domain.PageParams) (domain.Page, error) {
	return s.orders.List(ctx, params)
}

// restoreReservation повторно списывает строки заказа после неудачного
// замещения или удаления. Сбой здесь означает, что состояние каталога и
// заказа разошлись — это эскалируется как нарушение целостности.
func (s *service) restoreReservation(ctx context.Context, order domain.Order) error {
	compCtx := context.WithoutCancel(ctx)
	if err := s.engine.Reserve(compCtx, order.Lines); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).
			Error("failed to restore reservation, order and stock diverged")
		return &domain.IntegrityError{Op: "restore reservation", Err: err}
	}
	return nil
}

// emitEvent кладёт событие в outbox. Доставкой занимается отдельный worker,
// поэтому сбой здесь логируется, но не влияет на результат операции.
func (s *service) emitEvent(order domain.Order, eventType kafka.EventType) {
	event := kafka.NewOrderEvent(eventType, order.ID, order.CustomerID, map[string]interface{}{
		"total_minor": order.TotalMinor,
		"total_items": order.TotalItems,
		"version":     order.Version,
	})

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to marshal order event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"event_type": eventType,
		}).Error("failed to enqueue outbox event")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func (s *service) recordRejection(reason string) {
	if s.metrics != nil {
		s.metrics.RecordOrderRejected(reason)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyOrder):
		return "empty_order"
	case errors.Is(err, domain.ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, domain.ErrLineQtyInvalid):
		return "invalid_qty"
	case domain.IsVersionConflict(err):
		return "version_conflict"
	default:
		return "internal"
	}
}
