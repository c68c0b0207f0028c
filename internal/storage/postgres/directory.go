package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// AddressBook — PostgreSQL-реализация адресной книги.
type AddressBook struct {
	db *sql.DB
}

// NewAddressBook создаёт PostgreSQL-реализацию AddressBook.
func NewAddressBook(store *Store) *AddressBook {
	return &AddressBook{db: store.DB()}
}

func (b *AddressBook) Get(ctx context.Context, id string) (domain.Address, error) {
	var addr domain.Address
	err := b.db.QueryRowContext(ctx, `
		SELECT id, user_id, street, city, state, zip
		FROM addresses
		WHERE id = $1
	`, id).Scan(&addr.ID, &addr.UserID, &addr.Street, &addr.City, &addr.State, &addr.Zip)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Address{}, domain.ErrAddressNotFound
		}
		return domain.Address{}, fmt.Errorf("select address: %w", err)
	}
	return addr, nil
}

func (b *AddressBook) Save(ctx context.Context, addr domain.Address) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO addresses (id, user_id, street, city, state, zip)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			street = EXCLUDED.street,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			zip = EXCLUDED.zip
	`, addr.ID, addr.UserID, addr.Street, addr.City, addr.State, addr.Zip)
	if err != nil {
		return fmt.Errorf("upsert address: %w", err)
	}
	return nil
}

func (b *AddressBook) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, b.db, "addresses", id, domain.ErrAddressNotFound)
}

// PaymentMethodRegistry — PostgreSQL-справочник способов оплаты.
type PaymentMethodRegistry struct {
	db *sql.DB
}

// NewPaymentMethodRegistry создаёт PostgreSQL-реализацию PaymentMethodRegistry.
func NewPaymentMethodRegistry(store *Store) *PaymentMethodRegistry {
	return &PaymentMethodRegistry{db: store.DB()}
}

func (r *PaymentMethodRegistry) Get(ctx context.Context, id string) (domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, description
		FROM payment_methods
		WHERE id = $1
	`, id).Scan(&method.ID, &method.UserID, &method.Type, &method.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PaymentMethod{}, domain.ErrPaymentMethodNotFound
		}
		return domain.PaymentMethod{}, fmt.Errorf("select payment method: %w", err)
	}
	return method, nil
}

func (r *PaymentMethodRegistry) Save(ctx context.Context, method domain.PaymentMethod) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_methods (id, user_id, type, description)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			description = EXCLUDED.description
	`, method.ID, method.UserID, method.Type, method.Description)
	if err != nil {
		return fmt.Errorf("upsert payment method: %w", err)
	}
	return nil
}

func (r *PaymentMethodRegistry) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "payment_methods", id, domain.ErrPaymentMethodNotFound)
}

// UserDirectory — PostgreSQL-справочник пользователей.
type UserDirectory struct {
	db *sql.DB
}

// NewUserDirectory создаёт PostgreSQL-реализацию UserDirectory.
func NewUserDirectory(store *Store) *UserDirectory {
	return &UserDirectory{db: store.DB()}
}

func (d *UserDirectory) Get(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := d.db.QueryRowContext(ctx, `
		SELECT id, display_name, tax_id, phone, email
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.DisplayName, &user.TaxID, &user.Phone, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

func (d *UserDirectory) Save(ctx context.Context, user domain.User) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, tax_id, phone, email)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			tax_id = EXCLUDED.tax_id,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email
	`, user.ID, user.DisplayName, user.TaxID, user.Phone, user.Email)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Delete удаляет пользователя; адреса и способы оплаты удаляются каскадно.
func (d *UserDirectory) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, d.db, "users", id, domain.ErrUserNotFound)
}

func deleteByID(ctx context.Context, db *sql.DB, table, id string, notFound error) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}

	return nil
}

var (
	_ domain.Repository[domain.Address, string]       = (*AddressBook)(nil)
	_ domain.AddressBook                              = (*AddressBook)(nil)
	_ domain.Repository[domain.PaymentMethod, string] = (*PaymentMethodRegistry)(nil)
	_ domain.PaymentMethodRegistry                    = (*PaymentMethodRegistry)(nil)
	_ domain.Repository[domain.User, string]          = (*UserDirectory)(nil)
	_ domain.UserDirectory                            = (*UserDirectory)(nil)
)
