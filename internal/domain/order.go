package domain

import "time"

// OrderStatus описывает жизненный цикл заказа витрины.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан на checkout, оплата ещё не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — оплата подтверждена.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusShipped — заказ передан в доставку, трек-номер зафиксирован.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен клиенту (терминальный статус).
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCanceled — заказ отменён, резервы возвращены на склад (терминальный статус).
	OrderStatusCanceled OrderStatus = "canceled"
)

// CanTransitionTo проверяет, допустим ли переход в следующий статус.
// Движение только вперёд: pending → paid → shipped → delivered;
// отмена возможна только из pending или paid.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPaid || next == OrderStatusCanceled
	case OrderStatusPaid:
		return next == OrderStatusShipped || next == OrderStatusCanceled
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	default:
		return false
	}
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// AddressSnapshot — копия адреса доставки на момент checkout.
// Хранится по значению: последующие правки адресной книги не меняют историю заказов.
type AddressSnapshot struct {
	Street string
	City   string
	State  string
	Zip    string
}

// PaymentSnapshot — человекочитаемое описание способа оплаты на момент checkout.
type PaymentSnapshot struct {
	Description string
}

// CustomerSnapshot — копия данных клиента на момент checkout.
type CustomerSnapshot struct {
	Name  string
	TaxID string
	Phone string
	Email string
}

// OrderLine представляет одну позицию заказа. Цена заморожена при checkout
// и после этого из каталога не перечитывается.
type OrderLine struct {
	ID             string
	ProductID      string
	Qty            int32
	UnitPriceMinor int64
	SubtotalMinor  int64
	CreatedAt      time.Time
}

// Order агрегирует состояние заказа и его позиции. После создания заказ
// неизменяем, кроме статуса, трек-номера и версии.
type Order struct {
	ID              string
	UserID          string
	Status          OrderStatus
	Date            time.Time
	Lines           []OrderLine
	ShippingAddress AddressSnapshot
	Payment         PaymentSnapshot
	Customer        CustomerSnapshot
	ShippingMinor   int64
	DiscountMinor   int64
	TotalMinor      int64
	TrackingCode    string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	if o.ShippingMinor < 0 || o.DiscountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrTotalNegative)
	}

	// Сверяем итог заказа с суммой позиций, доставкой и скидкой.
	var sum int64
	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.UnitPriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
		if line.SubtotalMinor != int64(line.Qty)*line.UnitPriceMinor {
			errs = append(errs, ErrLineSubtotalMismatch)
		}
		sum += line.SubtotalMinor
	}

	expected := sum + o.ShippingMinor - o.DiscountMinor
	if expected < 0 {
		expected = 0
	}
	if expected != o.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
