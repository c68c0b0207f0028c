package domain

import (
	"context"
	"time"
)

// AddressBook — адресная книга пользователей (внешний коллаборатор).
type AddressBook interface {
	// Get возвращает адрес или ErrAddressNotFound. Владение проверяет вызывающий.
	Get(ctx context.Context, id string) (Address, error)
}

// PaymentMethodRegistry — справочник сохранённых способов оплаты.
type PaymentMethodRegistry interface {
	// Get возвращает способ оплаты или ErrPaymentMethodNotFound.
	Get(ctx context.Context, id string) (PaymentMethod, error)
}

// UserDirectory — справочник клиентов для снапшотов и процедуры удаления аккаунта.
type UserDirectory interface {
	Get(ctx context.Context, id string) (User, error)
	// Delete удаляет пользователя. Вызывается последним шагом явной процедуры
	// очистки: корзина и ссылки заказов должны быть обработаны до него.
	Delete(ctx context.Context, id string) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
