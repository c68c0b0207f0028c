package domain

import "context"

// Repository — минимальный обобщённый CRUD-контракт хранилища.
// Конкретные справочники (адреса, способы оплаты, пользователи) реализуют его
// вместо наследования общего базового типа.
type Repository[E any, ID comparable] interface {
	Get(ctx context.Context, id ID) (E, error)
	Save(ctx context.Context, entity E) error
	Delete(ctx context.Context, id ID) error
}

// CartRepository описывает требования к хранилищу корзин.
type CartRepository interface {
	// FindByUser возвращает живую корзину пользователя или ErrCartNotFound.
	FindByUser(ctx context.Context, userID string) (Cart, error)
	// Save сохраняет корзину целиком (upsert); позиции перезаписываются.
	Save(ctx context.Context, cart Cart) error
	// Delete удаляет корзину вместе с позициями.
	Delete(ctx context.Context, id string) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает заказы клиента с опциональным ограничением на количество.
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(ctx context.Context, order Order) error
	// DetachUser отвязывает исторические заказы от пользователя, сохраняя снапшоты.
	DetachUser(ctx context.Context, userID string) error
}

// ProductCatalog — чтение каталога внутри транзакции. Остаток товара
// мутирует только StockLedger.
type ProductCatalog interface {
	// Get возвращает товар или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	// ListByIDs возвращает найденные товары по списку идентификаторов;
	// отсутствующие просто не попадают в результат.
	ListByIDs(ctx context.Context, ids []string) (map[string]Product, error)
}

// StockLedger владеет счётчиком остатка и его атомарными операциями.
type StockLedger interface {
	// Reserve атомарно списывает qty единиц или возвращает ErrInsufficientStock,
	// не меняя состояние. Проверка и списание — одна операция.
	Reserve(ctx context.Context, productID string, qty int32) error
	// Release возвращает qty единиц на остаток (откат ранее сделанного резерва).
	// Отсутствие товара в каталоге не ошибка: позиции заказа переживают
	// удаление товара, и отмена такого заказа обязана завершиться.
	Release(ctx context.Context, productID string, qty int32) error
}

// Tx даёт доступ к репозиториям, привязанным к одной транзакции.
type Tx interface {
	Carts() CartRepository
	Orders() OrderRepository
	Products() ProductCatalog
	Stock() StockLedger
}

// UnitOfWork — граница атомарности ядра: каждая публичная операция выполняется
// внутри одного WithinTx, так что резервы и записи коммитятся или откатываются вместе.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
