package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// collection — обобщённое in-memory хранилище справочных сущностей.
// idFn извлекает ключ из сущности, notFound возвращается при промахе.
type collection[E any] struct {
	mu       sync.RWMutex
	items    map[string]E
	idFn     func(E) string
	setIDFn  func(*E, string)
	notFound error
}

func newCollection[E any](idFn func(E) string, setIDFn func(*E, string), notFound error) *collection[E] {
	return &collection[E]{
		items:    make(map[string]E),
		idFn:     idFn,
		setIDFn:  setIDFn,
		notFound: notFound,
	}
}

func (c *collection[E]) Get(_ context.Context, id string) (E, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	if !ok {
		var zero E
		return zero, c.notFound
	}
	return item, nil
}

func (c *collection[E]) Save(_ context.Context, entity E) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.idFn(entity) == "" {
		c.setIDFn(&entity, uuid.NewString())
	}
	c.items[c.idFn(entity)] = entity
	return nil
}

func (c *collection[E]) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return c.notFound
	}
	delete(c.items, id)
	return nil
}

// AddressBook — in-memory адресная книга.
type AddressBook struct {
	*collection[domain.Address]
}

// NewAddressBook создаёт пустую адресную книгу.
func NewAddressBook() *AddressBook {
	return &AddressBook{collection: newCollection(
		func(a domain.Address) string { return a.ID },
		func(a *domain.Address, id string) { a.ID = id },
		domain.ErrAddressNotFound,
	)}
}

// PaymentMethodRegistry — in-memory справочник способов оплаты.
type PaymentMethodRegistry struct {
	*collection[domain.PaymentMethod]
}

// NewPaymentMethodRegistry создаёт пустой справочник способов оплаты.
func NewPaymentMethodRegistry() *PaymentMethodRegistry {
	return &PaymentMethodRegistry{collection: newCollection(
		func(m domain.PaymentMethod) string { return m.ID },
		func(m *domain.PaymentMethod, id string) { m.ID = id },
		domain.ErrPaymentMethodNotFound,
	)}
}

// UserDirectory — in-memory справочник пользователей.
type UserDirectory struct {
	*collection[domain.User]
}

// NewUserDirectory создаёт пустой справочник пользователей.
func NewUserDirectory() *UserDirectory {
	return &UserDirectory{collection: newCollection(
		func(u domain.User) string { return u.ID },
		func(u *domain.User, id string) { u.ID = id },
		domain.ErrUserNotFound,
	)}
}

var (
	_ domain.Repository[domain.Address, string]       = (*AddressBook)(nil)
	_ domain.AddressBook                              = (*AddressBook)(nil)
	_ domain.Repository[domain.PaymentMethod, string] = (*PaymentMethodRegistry)(nil)
	_ domain.PaymentMethodRegistry                    = (*PaymentMethodRegistry)(nil)
	_ domain.Repository[domain.User, string]          = (*UserDirectory)(nil)
	_ domain.UserDirectory                            = (*UserDirectory)(nil)
)
