package domain

import "errors"

var (
	// ErrCartNotFound возвращается, если у пользователя нет сохранённой корзины.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartEmpty — checkout вызван без валидных позиций в корзине.
	ErrCartEmpty = errors.New("cart has no valid lines")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrProductNotFound возвращается, если товара нет в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrAddressNotFound возвращается, если адрес не найден в адресной книге.
	ErrAddressNotFound = errors.New("address not found")
	// ErrPaymentMethodNotFound возвращается, если способ оплаты не найден.
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	// ErrUserNotFound возвращается, если пользователь не найден в справочнике.
	ErrUserNotFound = errors.New("user not found")
	// ErrAddressNotOwned — адрес принадлежит другому пользователю.
	ErrAddressNotOwned = errors.New("address does not belong to user")
	// ErrPaymentMethodNotOwned — способ оплаты принадлежит другому пользователю.
	ErrPaymentMethodNotOwned = errors.New("payment method does not belong to user")
	// ErrInsufficientStock — запрошенное количество превышает доступный остаток.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition — операция жизненного цикла недопустима из текущего статуса.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки инвариантов заказа.

	// ErrUserRequired — отсутствует идентификатор клиента.
	ErrUserRequired = errors.New("user_id is required")
	// ErrLinesRequired — заказ должен содержать хотя бы одну позицию.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// ErrLineQtyInvalid — некорректное количество в позиции (<= 0).
	ErrLineQtyInvalid = errors.New("line qty must be greater than zero")
	// ErrLinePriceInvalid — отрицательная цена позиции.
	ErrLinePriceInvalid = errors.New("line price must be non-negative")
	// ErrLineSubtotalMismatch — подытог позиции не равен цене, умноженной на количество.
	ErrLineSubtotalMismatch = errors.New("line subtotal does not match unit price and qty")
	// ErrAmountNegative — отрицательная доставка или скидка.
	ErrAmountNegative = errors.New("amount must be non-negative")
	// ErrTotalNegative — отрицательный итог заказа.
	ErrTotalNegative = errors.New("order total must be non-negative")
	// ErrTotalMismatch — итог заказа не сходится с позициями, доставкой и скидкой.
	ErrTotalMismatch = errors.New("order total does not match lines, shipping and discount")

	// Ошибки идемпотентности.

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой hash запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — запись с таким ключом уже создана.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyKeyNotFound — запись с таким ключом отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsNotFound проверяет, относится ли ошибка к отсутствующей сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrAddressNotFound) ||
		errors.Is(err, ErrPaymentMethodNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsOwnershipViolation проверяет, является ли ошибка нарушением владения.
func IsOwnershipViolation(err error) bool {
	return errors.Is(err, ErrAddressNotOwned) || errors.Is(err, ErrPaymentMethodNotOwned)
}
