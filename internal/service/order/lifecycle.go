// Package order реализует операции жизненного цикла заказа после checkout.
package order

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Lifecycle управляет статусной машиной заказа: pending → paid → shipped →
// delivered, с отменой из pending и paid. Каждый переход проверяется против
// текущего статуса и выполняется в своей транзакции.
type Lifecycle struct {
	store         domain.UnitOfWork
	outbox        domain.OutboxRepository
	timeline      domain.TimelineRepository
	logger        *log.Entry
	metrics       *metrics.CheckoutMetrics
	kafkaProducer *kafka.Producer // опциональный Kafka producer
}

// NewLifecycle создаёт сервис жизненного цикла заказа.
func NewLifecycle(
	store domain.UnitOfWork,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Lifecycle {
	if logger == nil {
		logger = log.New().WithField("component", "order_lifecycle")
	}
	return &Lifecycle{
		store:    store,
		outbox:   outbox,
		timeline: timeline,
		logger:   logger,
		metrics:  metrics.NewCheckoutMetrics(),
	}
}

// NewLifecycleWithKafka создаёт сервис жизненного цикла с Kafka producer.
func NewLifecycleWithKafka(
	store domain.UnitOfWork,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) *Lifecycle {
	l := NewLifecycle(store, outbox, timeline, logger)
	l.kafkaProducer = kafkaProducer
	return l
}

// NewLifecycleWithoutMetrics создаёт сервис без метрик (для тестов).
func NewLifecycleWithoutMetrics(
	store domain.UnitOfWork,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Lifecycle {
	l := NewLifecycle(store, outbox, timeline, logger)
	l.metrics = nil
	return l
}

// Get возвращает заказ по идентификатору.
func (l *Lifecycle) Get(ctx context.Context, orderID string) (domain.Order, error) {
	var order domain.Order
	err := l.store.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		order, err = tx.Orders().Get(ctx, orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (l *Lifecycle) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	var orders []domain.Order
	err := l.store.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		orders, err = tx.Orders().ListByUser(ctx, userID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Timeline возвращает хронологию событий заказа.
func (l *Lifecycle) Timeline(orderID string) ([]domain.TimelineEvent, error) {
	return l.timeline.List(orderID)
}

// ConfirmPayment переводит заказ pending → paid.
func (l *Lifecycle) ConfirmPayment(ctx context.Context, orderID string) (domain.Order, error) {
	return l.transition(ctx, orderID, domain.OrderStatusPaid, kafka.EventTypeOrderPaid, "", nil)
}

// MarkAsShipped переводит заказ paid → shipped и фиксирует трек-номер.
func (l *Lifecycle) MarkAsShipped(ctx context.Context, orderID, trackingCode string) (domain.Order, error) {
	return l.transition(ctx, orderID, domain.OrderStatusShipped, kafka.EventTypeOrderShipped, "", func(order *domain.Order) {
		order.TrackingCode = trackingCode
	})
}

// MarkAsDelivered переводит заказ shipped → delivered.
func (l *Lifecycle) MarkAsDelivered(ctx context.Context, orderID string) (domain.Order, error) {
	return l.transition(ctx, orderID, domain.OrderStatusDelivered, kafka.EventTypeOrderDelivered, "", nil)
}

// Cancel отменяет заказ из pending или paid. Зарезервированные остатки
// возвращаются на склад в той же транзакции, что и смена статуса.
func (l *Lifecycle) Cancel(ctx context.Context, orderID, reason string) (domain.Order, error) {
	return l.transition(ctx, orderID, domain.OrderStatusCanceled, kafka.EventTypeOrderCanceled, reason, nil)
}

func (l *Lifecycle) transition(
	ctx context.Context,
	orderID string,
	next domain.OrderStatus,
	eventType kafka.EventType,
	reason string,
	mutate func(*domain.Order),
) (domain.Order, error) {
	var updated domain.Order

	err := l.store.WithinTx(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}

		if !order.Status.CanTransitionTo(next) {
			l.logger.WithFields(log.Fields{
				"order_id": order.ID,
				"from":     order.Status,
				"to":       next,
			}).Warn("invalid status transition")
			return domain.ErrInvalidTransition
		}

		if next == domain.OrderStatusCanceled {
			for _, line := range order.Lines {
				if err := tx.Stock().Release(ctx, line.ProductID, line.Qty); err != nil {
					return err
				}
			}
		}

		order.Status = next
		if mutate != nil {
			mutate(&order)
		}
		order.UpdatedAt = time.Now().UTC()

		if err := tx.Orders().Save(ctx, order); err != nil {
			return err
		}
		order.Version++
		updated = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	l.logger.WithFields(log.Fields{
		"order_id": updated.ID,
		"status":   updated.Status,
	}).Info("order status changed")

	if l.metrics != nil {
		l.metrics.RecordStatusTransition(string(next))
	}
	l.emitEvent(updated, eventType, reason)

	return updated, nil
}

func (l *Lifecycle) emitEvent(order domain.Order, eventType kafka.EventType, reason string) {
	payload := map[string]interface{}{
		"order_id": order.ID,
		"status":   string(order.Status),
		"ts":       order.UpdatedAt.Format(time.RFC3339Nano),
	}
	if reason != "" {
		payload["reason"] = reason
	}
	if order.TrackingCode != "" {
		payload["tracking_code"] = order.TrackingCode
	}

	data, err := json.Marshal(payload)
	if err != nil {
		l.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       data,
	}
	if _, err := l.outbox.Enqueue(msg); err != nil {
		l.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
	} else if l.metrics != nil {
		l.metrics.RecordOutboxEvent()
	}

	if l.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     string(eventType),
			Reason:   reason,
			Occurred: order.UpdatedAt,
		}
		if err := l.timeline.Append(event); err != nil {
			l.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if l.metrics != nil {
			l.metrics.RecordTimelineEvent()
		}
	}

	if l.kafkaProducer != nil {
		event := kafka.NewOrderEvent(eventType, order.ID, order.UserID, string(order.Status), nil)
		if err := l.kafkaProducer.PublishEvent(kafka.TopicOrderEvents, order.ID, event); err != nil {
			l.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Warn("failed to publish order event to kafka")
		}
	}
}
