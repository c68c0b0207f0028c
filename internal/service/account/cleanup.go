// Package account реализует процедуру удаления аккаунта покупателя.
package account

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Cleaner удаляет аккаунт пользователя по явной процедуре: сначала в одной
// транзакции удаляется корзина и отвязываются заказы, затем удаляется сам
// пользователь. Заказы остаются в истории со снапшотами адреса, оплаты
// и данных клиента.
type Cleaner struct {
	store  domain.UnitOfWork
	users  domain.UserDirectory
	logger *log.Entry
}

// NewCleaner создаёт сервис удаления аккаунта.
func NewCleaner(store domain.UnitOfWork, users domain.UserDirectory, logger *log.Entry) *Cleaner {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Cleaner{
		store:  store,
		users:  users,
		logger: logger.WithField("component", "account_cleaner"),
	}
}

// PurgeAccount удаляет пользователя и все его оперативные данные.
// Возвращает ErrUserNotFound, если пользователя нет.
func (c *Cleaner) PurgeAccount(ctx context.Context, userID string) error {
	if _, err := c.users.Get(ctx, userID); err != nil {
		return err
	}

	err := c.store.WithinTx(ctx, func(tx domain.Tx) error {
		cart, err := tx.Carts().FindByUser(ctx, userID)
		switch {
		case err == nil:
			if err := tx.Carts().Delete(ctx, cart.ID); err != nil {
				return err
			}
		case !errors.Is(err, domain.ErrCartNotFound):
			return err
		}

		return tx.Orders().DetachUser(ctx, userID)
	})
	if err != nil {
		return err
	}

	if err := c.users.Delete(ctx, userID); err != nil {
		return err
	}

	c.logger.WithField("user_id", userID).Info("account purged")
	return nil
}
