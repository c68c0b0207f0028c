package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// LineInput — позиция корзины, присланная клиентом при синхронизации.
type LineInput struct {
	ProductID string
	Qty       int32
}

// Synchronizer принимает клиентское состояние корзины и перезаписывает
// серверное. Невалидные позиции отбрасываются молча: клиентская корзина —
// черновик, а не команда, и частичный результат здесь лучше отказа.
type Synchronizer struct {
	store  domain.UnitOfWork
	logger *log.Entry
}

// NewSynchronizer создаёт сервис синхронизации корзины.
func NewSynchronizer(store domain.UnitOfWork, logger *log.Entry) *Synchronizer {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Synchronizer{
		store:  store,
		logger: logger.WithField("component", "cart_synchronizer"),
	}
}

// SaveCart перезаписывает корзину пользователя присланными позициями.
// Цены всегда берутся из каталога, количество урезается до остатка,
// позиции с неизвестным товаром или неположительным количеством пропускаются.
// Если после фильтрации не осталось ни одной позиции, корзина удаляется
// и возвращается nil.
func (s *Synchronizer) SaveCart(ctx context.Context, userID string, lines []LineInput) (*domain.CartView, error) {
	var view *domain.CartView

	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		now := time.Now().UTC()

		existed := true
		cart, err := tx.Carts().FindByUser(ctx, userID)
		if err != nil {
			if !errors.Is(err, domain.ErrCartNotFound) {
				return err
			}
			existed = false
			cart = domain.Cart{ID: uuid.NewString(), UserID: userID, CreatedAt: now}
		}

		view = &domain.CartView{}
		cart.Lines = cart.Lines[:0]

		for _, input := range lines {
			if input.Qty <= 0 {
				s.logger.WithFields(log.Fields{
					"user_id":    userID,
					"product_id": input.ProductID,
				}).Debug("cart line skipped: non-positive qty")
				continue
			}

			product, err := tx.Products().Get(ctx, input.ProductID)
			if err != nil {
				if errors.Is(err, domain.ErrProductNotFound) {
					s.logger.WithFields(log.Fields{
						"user_id":    userID,
						"product_id": input.ProductID,
					}).Debug("cart line skipped: unknown product")
					continue
				}
				return err
			}

			if product.Stock <= 0 {
				s.logger.WithFields(log.Fields{
					"user_id":    userID,
					"product_id": input.ProductID,
				}).Debug("cart line skipped: out of stock")
				continue
			}

			qty := input.Qty
			var note domain.Adjustment
			if qty > product.Stock {
				qty = product.Stock
				note = domain.AdjustmentQtyClamped
			}

			cart.Lines = append(cart.Lines, domain.CartLine{
				ProductID:  product.ID,
				Qty:        qty,
				PriceMinor: product.PriceMinor,
			})
			view.Lines = append(view.Lines, domain.CartLineView{
				Product:       product,
				Qty:           qty,
				PriceMinor:    product.PriceMinor,
				SubtotalMinor: int64(qty) * product.PriceMinor,
				Adjustment:    note,
			})
			view.TotalMinor += int64(qty) * product.PriceMinor
		}

		if len(cart.Lines) == 0 {
			// Пустой результат синхронизации: существующая корзина удаляется,
			// новая не создаётся.
			view = nil
			if existed {
				return tx.Carts().Delete(ctx, cart.ID)
			}
			return nil
		}

		cart.UpdatedAt = now
		if err := tx.Carts().Save(ctx, cart); err != nil {
			return err
		}
		view.ID = cart.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DeleteCart удаляет корзину пользователя. Отсутствующая корзина не считается
// ошибкой: результат в обоих случаях одинаков.
func (s *Synchronizer) DeleteCart(ctx context.Context, userID string) error {
	return s.store.WithinTx(ctx, func(tx domain.Tx) error {
		cart, err := tx.Carts().FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrCartNotFound) {
				return nil
			}
			return err
		}
		return tx.Carts().Delete(ctx, cart.ID)
	})
}
