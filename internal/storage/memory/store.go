package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// state — всё tx-scoped состояние витрины: корзины, заказы и каталог с остатками.
type state struct {
	carts    map[string]domain.Cart
	orders   map[string]domain.Order
	products map[string]domain.Product
}

func newState() *state {
	return &state{
		carts:    make(map[string]domain.Cart),
		orders:   make(map[string]domain.Order),
		products: make(map[string]domain.Product),
	}
}

// clone делает глубокую копию состояния для отката транзакции.
func (s *state) clone() *state {
	dst := newState()
	for id, cart := range s.carts {
		dst.carts[id] = cloneCart(cart)
	}
	for id, order := range s.orders {
		dst.orders[id] = cloneOrder(order)
	}
	for id, product := range s.products {
		dst.products[id] = product
	}
	return dst
}

func cloneCart(src domain.Cart) domain.Cart {
	dst := src
	dst.Lines = append([]domain.CartLine(nil), src.Lines...)
	return dst
}

func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Lines = append([]domain.OrderLine(nil), src.Lines...)
	return dst
}

// Store — in-memory реализация UnitOfWork для локальной разработки и тестов.
// Один мьютекс сериализует транзакции; перед выполнением fn снимается снапшот
// состояния, который восстанавливается при ошибке. Так сохраняется контракт
// «всё или ничего» без настоящей СУБД.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{state: newState()}
}

// WithinTx выполняет fn атомарно: любая ошибка откатывает все изменения.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.state.clone()
	if err := fn(&memTx{state: s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// SeedProducts наполняет каталог (для демо-режима и тестов).
func (s *Store) SeedProducts(products ...domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		s.state.products[p.ID] = p
	}
}

// SeedCart кладёт готовую корзину в хранилище (для тестов).
func (s *Store) SeedCart(cart domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cart.ID == "" {
		cart.ID = uuid.NewString()
	}
	s.state.carts[cart.ID] = cloneCart(cart)
}

// memTx даёт репозиториям доступ к состоянию под уже взятым мьютексом Store.
type memTx struct {
	state *state
}

func (t *memTx) Carts() domain.CartRepository   { return &cartRepository{state: t.state} }
func (t *memTx) Orders() domain.OrderRepository { return &orderRepository{state: t.state} }
func (t *memTx) Products() domain.ProductCatalog {
	return &productCatalog{state: t.state}
}
func (t *memTx) Stock() domain.StockLedger { return &stockLedger{state: t.state} }

// cartRepository — корзины внутри транзакции.
type cartRepository struct {
	state *state
}

func (r *cartRepository) FindByUser(_ context.Context, userID string) (domain.Cart, error) {
	for _, cart := range r.state.carts {
		if cart.UserID == userID {
			return cloneCart(cart), nil
		}
	}
	return domain.Cart{}, domain.ErrCartNotFound
}

func (r *cartRepository) Save(_ context.Context, cart domain.Cart) error {
	if cart.ID == "" {
		cart.ID = uuid.NewString()
	}
	r.state.carts[cart.ID] = cloneCart(cart)
	return nil
}

func (r *cartRepository) Delete(_ context.Context, id string) error {
	delete(r.state.carts, id)
	return nil
}

// orderRepository — заказы внутри транзакции.
type orderRepository struct {
	state *state
}

func (r *orderRepository) Create(_ context.Context, order domain.Order) error {
	if _, exists := r.state.orders[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	r.state.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *orderRepository) Get(_ context.Context, id string) (domain.Order, error) {
	order, ok := r.state.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *orderRepository) ListByUser(_ context.Context, userID string, limit int) ([]domain.Order, error) {
	result := make([]domain.Order, 0, len(r.state.orders))
	for _, order := range r.state.orders {
		if order.UserID != userID {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Save перезаписывает заказ с проверкой версии (optimistic locking).
func (r *orderRepository) Save(_ context.Context, order domain.Order) error {
	current, ok := r.state.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	order.Version++
	r.state.orders[order.ID] = cloneOrder(order)
	return nil
}

// DetachUser обнуляет ссылку на пользователя, сохраняя снапшоты в заказах.
func (r *orderRepository) DetachUser(_ context.Context, userID string) error {
	for id, order := range r.state.orders {
		if order.UserID != userID {
			continue
		}
		order.UserID = ""
		r.state.orders[id] = order
	}
	return nil
}

// productCatalog — чтение каталога внутри транзакции.
type productCatalog struct {
	state *state
}

func (c *productCatalog) Get(_ context.Context, id string) (domain.Product, error) {
	product, ok := c.state.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (c *productCatalog) ListByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := c.state.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}

// stockLedger — атомарные операции над остатком внутри транзакции.
type stockLedger struct {
	state *state
}

func (l *stockLedger) Reserve(_ context.Context, productID string, qty int32) error {
	product, ok := l.state.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if product.Stock < qty {
		return domain.ErrInsufficientStock
	}
	product.Stock -= qty
	l.state.products[productID] = product
	return nil
}

func (l *stockLedger) Release(_ context.Context, productID string, qty int32) error {
	product, ok := l.state.products[productID]
	if !ok {
		// Товар удалён из каталога: возврат некуда записывать, но отмена
		// заказа из-за этого не блокируется.
		return nil
	}
	product.Stock += qty
	l.state.products[productID] = product
	return nil
}

var (
	_ domain.UnitOfWork     = (*Store)(nil)
	_ domain.Tx             = (*memTx)(nil)
	_ domain.CartRepository = (*cartRepository)(nil)
	_ domain.OrderRepository = (*orderRepository)(nil)
	_ domain.ProductCatalog  = (*productCatalog)(nil)
	_ domain.StockLedger     = (*stockLedger)(nil)
)
