// Package cart реализует синхронизацию и сверку корзины с каталогом.
package cart

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Метки счётчика корректировок.
const (
	adjustmentPriceUpdated = "price_updated"
	adjustmentQtyClamped   = "qty_clamped"
	adjustmentLineDropped  = "line_dropped"
)

// Validator сверяет корзину с актуальным состоянием каталога и чинит её
// на месте: устаревшие цены обновляются, количества урезаются до остатка,
// позиции исчезнувших товаров удаляются.
type Validator struct {
	store   domain.UnitOfWork
	logger  *log.Entry
	metrics *metrics.CheckoutMetrics
}

// NewValidator создаёт сервис сверки корзины.
func NewValidator(store domain.UnitOfWork, logger *log.Entry) *Validator {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Validator{
		store:   store,
		logger:  logger.WithField("component", "cart_validator"),
		metrics: metrics.NewCheckoutMetrics(),
	}
}

// NewValidatorWithoutMetrics создаёт сервис сверки без метрик (для тестов).
func NewValidatorWithoutMetrics(store domain.UnitOfWork, logger *log.Entry) *Validator {
	v := NewValidator(store, logger)
	v.metrics = nil
	return v
}

func (v *Validator) recordAdjustment(kind string) {
	if v.metrics != nil {
		v.metrics.RecordCartAdjustment(kind)
	}
}

// GetAndValidateCart возвращает корзину пользователя после сверки с каталогом.
// Если корзины нет, возвращает nil без ошибки: отсутствие корзины — не сбой.
func (v *Validator) GetAndValidateCart(ctx context.Context, userID string) (*domain.CartView, error) {
	var view *domain.CartView

	err := v.store.WithinTx(ctx, func(tx domain.Tx) error {
		_, reconciled, err := v.ReconcileInTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		view = reconciled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ReconcileInTx выполняет сверку внутри уже открытой транзакции. Используется
// и при чтении корзины, и на checkout: оба пути проходят через одну и ту же
// логику починки. Возвращает исправленную корзину и её представление;
// при отсутствии корзины — нулевую корзину и nil. Корзина, опустевшая
// после починки, удаляется и тоже возвращается как nil.
func (v *Validator) ReconcileInTx(ctx context.Context, tx domain.Tx, userID string) (domain.Cart, *domain.CartView, error) {
	cart, err := tx.Carts().FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return domain.Cart{}, nil, nil
		}
		return domain.Cart{}, nil, err
	}

	ids := make([]string, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		ids = append(ids, line.ProductID)
	}
	products, err := tx.Products().ListByIDs(ctx, ids)
	if err != nil {
		return domain.Cart{}, nil, err
	}

	view := &domain.CartView{ID: cart.ID}
	kept := make([]domain.CartLine, 0, len(cart.Lines))
	dirty := false

	for _, line := range cart.Lines {
		product, ok := products[line.ProductID]
		if !ok {
			// Товар исчез из каталога: позиция тихо удаляется.
			v.logger.WithFields(log.Fields{
				"user_id":    userID,
				"product_id": line.ProductID,
			}).Info("cart line dropped: product removed from catalog")
			v.recordAdjustment(adjustmentLineDropped)
			dirty = true
			continue
		}

		var note domain.Adjustment

		if line.PriceMinor != product.PriceMinor {
			line.PriceMinor = product.PriceMinor
			note = domain.AdjustmentPriceUpdated
			v.recordAdjustment(adjustmentPriceUpdated)
			dirty = true
		}

		if line.Qty > product.Stock {
			if product.Stock <= 0 {
				v.logger.WithFields(log.Fields{
					"user_id":    userID,
					"product_id": line.ProductID,
				}).Info("cart line dropped: product out of stock")
				v.recordAdjustment(adjustmentLineDropped)
				dirty = true
				continue
			}
			line.Qty = product.Stock
			// Урезание количества перекрывает заметку об изменении цены:
			// на позицию приходится не более одного сообщения.
			note = domain.AdjustmentQtyClamped
			v.recordAdjustment(adjustmentQtyClamped)
			dirty = true
		}

		kept = append(kept, line)
		view.Lines = append(view.Lines, domain.CartLineView{
			Product:       product,
			Qty:           line.Qty,
			PriceMinor:    line.PriceMinor,
			SubtotalMinor: int64(line.Qty) * line.PriceMinor,
			Adjustment:    note,
		})
		view.TotalMinor += int64(line.Qty) * line.PriceMinor
	}

	cart.Lines = kept
	if len(kept) == 0 {
		// Полностью опустевшая корзина равнозначна отсутствующей и удаляется.
		if err := tx.Carts().Delete(ctx, cart.ID); err != nil {
			return domain.Cart{}, nil, err
		}
		return domain.Cart{}, nil, nil
	}
	if dirty {
		cart.UpdatedAt = time.Now().UTC()
		if err := tx.Carts().Save(ctx, cart); err != nil {
			return domain.Cart{}, nil, err
		}
	}

	return cart, view, nil
}
