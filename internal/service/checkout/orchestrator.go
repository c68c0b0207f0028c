// Package checkout реализует превращение корзины в заказ.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
)

// Request — параметры оформления заказа.
type Request struct {
	AddressID       string
	PaymentMethodID string
	ShippingMinor   int64
	DiscountMinor   int64
}

// Orchestrator оформляет заказ из корзины: сверяет её с каталогом, резервирует
// остатки, замораживает снапшоты и создаёт заказ — всё в одной транзакции.
type Orchestrator struct {
	store         domain.UnitOfWork
	validator     *cart.Validator
	addresses     domain.AddressBook
	payments      domain.PaymentMethodRegistry
	users         domain.UserDirectory
	outbox        domain.OutboxRepository
	timeline      domain.TimelineRepository
	logger        *log.Entry
	metrics       *metrics.CheckoutMetrics
	kafkaProducer *kafka.Producer // опциональный Kafka producer для event-driven архитектуры
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора checkout.
func NewOrchestrator(
	store domain.UnitOfWork,
	validator *cart.Validator,
	addresses domain.AddressBook,
	payments domain.PaymentMethodRegistry,
	users domain.UserDirectory,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Orchestrator{
		store:     store,
		validator: validator,
		addresses: addresses,
		payments:  payments,
		users:     users,
		outbox:    outbox,
		timeline:  timeline,
		logger:    logger,
		metrics:   metrics.NewCheckoutMetrics(),
	}
}

// NewOrchestratorWithKafka создаёт оркестратор с Kafka producer.
func NewOrchestratorWithKafka(
	store domain.UnitOfWork,
	validator *cart.Validator,
	addresses domain.AddressBook,
	payments domain.PaymentMethodRegistry,
	users domain.UserDirectory,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) *Orchestrator {
	o := NewOrchestrator(store, validator, addresses, payments, users, outbox, timeline, logger)
	o.kafkaProducer = kafkaProducer
	return o
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	store domain.UnitOfWork,
	validator *cart.Validator,
	addresses domain.AddressBook,
	payments domain.PaymentMethodRegistry,
	users domain.UserDirectory,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Orchestrator {
	o := NewOrchestrator(store, validator, addresses, payments, users, outbox, timeline, logger)
	o.metrics = nil
	return o
}

// Checkout превращает корзину пользователя в заказ со статусом pending.
// Корзина перед оформлением сверяется с каталогом заново: между просмотром
// и подтверждением могли измениться цены и остатки. Все записи и резервы
// выполняются в одной транзакции — при любой ошибке ничего не меняется.
func (o *Orchestrator) Checkout(ctx context.Context, userID string, req Request) (domain.Order, error) {
	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordCheckoutDuration(time.Since(start))
			o.metrics.RecordCheckoutFinished()
		}
	}()

	order, err := o.checkout(ctx, userID, req)
	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordCheckoutFailed()
		}
		return domain.Order{}, err
	}

	if o.metrics != nil {
		o.metrics.RecordCheckoutCompleted()
	}
	o.emitOrderCreated(order)

	return order, nil
}

func (o *Orchestrator) checkout(ctx context.Context, userID string, req Request) (domain.Order, error) {
	if req.ShippingMinor < 0 || req.DiscountMinor < 0 {
		return domain.Order{}, domain.ErrAmountNegative
	}

	var order domain.Order

	err := o.store.WithinTx(ctx, func(tx domain.Tx) error {
		// Корзина проверяется раньше реквизитов: без позиций заказ невозможен
		// независимо от адреса и способа оплаты.
		reconciled, view, err := o.validator.ReconcileInTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if view == nil || len(reconciled.Lines) == 0 {
			return domain.ErrCartEmpty
		}

		user, err := o.users.Get(ctx, userID)
		if err != nil {
			return err
		}

		// Адрес и способ оплаты должны принадлежать оформляющему пользователю.
		addr, err := o.addresses.Get(ctx, req.AddressID)
		if err != nil {
			return err
		}
		if addr.UserID != userID {
			return domain.ErrAddressNotOwned
		}

		method, err := o.payments.Get(ctx, req.PaymentMethodID)
		if err != nil {
			return err
		}
		if method.UserID != userID {
			return domain.ErrPaymentMethodNotOwned
		}

		now := time.Now().UTC()
		order = domain.Order{
			ID:     uuid.NewString(),
			UserID: userID,
			Status: domain.OrderStatusPending,
			Date:   now,
			ShippingAddress: domain.AddressSnapshot{
				Street: addr.Street,
				City:   addr.City,
				State:  addr.State,
				Zip:    addr.Zip,
			},
			Payment: domain.PaymentSnapshot{
				Description: fmt.Sprintf("%s - %s", method.Type, method.Description),
			},
			Customer: domain.CustomerSnapshot{
				Name:  user.DisplayName,
				TaxID: user.TaxID,
				Phone: user.Phone,
				Email: user.Email,
			},
			ShippingMinor: req.ShippingMinor,
			DiscountMinor: req.DiscountMinor,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		var sum int64
		for _, line := range reconciled.Lines {
			// Резерв и проверка остатка — одна атомарная операция хранилища.
			if err := tx.Stock().Reserve(ctx, line.ProductID, line.Qty); err != nil {
				return err
			}
			subtotal := int64(line.Qty) * line.PriceMinor
			order.Lines = append(order.Lines, domain.OrderLine{
				ID:             uuid.NewString(),
				ProductID:      line.ProductID,
				Qty:            line.Qty,
				UnitPriceMinor: line.PriceMinor,
				SubtotalMinor:  subtotal,
				CreatedAt:      now,
			})
			sum += subtotal
		}

		total := sum + order.ShippingMinor - order.DiscountMinor
		if total < 0 {
			total = 0
		}
		order.TotalMinor = total

		if errs := order.ValidateInvariants(); len(errs) > 0 {
			return errors.Join(errs...)
		}

		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		return tx.Carts().Delete(ctx, reconciled.ID)
	})
	if err != nil {
		o.logger.WithError(err).WithField("user_id", userID).Warn("checkout failed")
		return domain.Order{}, err
	}

	o.logger.WithFields(log.Fields{
		"user_id":     userID,
		"order_id":    order.ID,
		"total_minor": order.TotalMinor,
		"lines":       len(order.Lines),
	}).Info("order created")

	return order, nil
}

// emitOrderCreated публикует событие о новом заказе после коммита транзакции.
func (o *Orchestrator) emitOrderCreated(order domain.Order) {
	payload := map[string]interface{}{
		"order_id":    order.ID,
		"user_id":     order.UserID,
		"status":      string(order.Status),
		"total_minor": order.TotalMinor,
		"lines_count": len(order.Lines),
		"ts":          order.CreatedAt.Format(time.RFC3339Nano),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(kafka.EventTypeOrderCreated),
		Payload:       data,
	}
	if _, err := o.outbox.Enqueue(msg); err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Error("enqueue event failed")
	} else if o.metrics != nil {
		o.metrics.RecordOutboxEvent()
	}

	if o.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     string(kafka.EventTypeOrderCreated),
			Occurred: order.CreatedAt,
		}
		if err := o.timeline.Append(event); err != nil {
			o.logger.WithError(err).WithField("order_id", order.ID).Warn("append timeline event failed")
		} else if o.metrics != nil {
			o.metrics.RecordTimelineEvent()
		}
	}

	if o.kafkaProducer != nil {
		event := kafka.NewOrderEvent(kafka.EventTypeOrderCreated, order.ID, order.UserID, string(order.Status), map[string]interface{}{
			"total_minor": order.TotalMinor,
		})
		if err := o.kafkaProducer.PublishEvent(kafka.TopicOrderEvents, order.ID, event); err != nil {
			// Логируем ошибку, но не прерываем checkout - Kafka опциональный
			o.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to publish order event to kafka")
		}
	}
}
