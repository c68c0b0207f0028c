package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// productCatalog — чтение каталога внутри транзакции.
type productCatalog struct {
	q querier
}

func (c *productCatalog) Get(ctx context.Context, id string) (domain.Product, error) {
	var product domain.Product
	err := c.q.QueryRowContext(ctx, `
		SELECT id, name, price_minor, stock
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.Name, &product.PriceMinor, &product.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (c *productCatalog) ListByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := c.q.QueryContext(ctx, `
		SELECT id, name, price_minor, stock
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.PriceMinor, &product.Stock); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		result[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return result, nil
}

// stockLedger — атомарные операции над остатком. Проверка и списание
// выполняются одним условным UPDATE, так что гонка двух checkout невозможна.
type stockLedger struct {
	q querier
}

func (l *stockLedger) Reserve(ctx context.Context, productID string, qty int32) error {
	res, err := l.q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1
		  AND stock >= $2
	`, productID, qty)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := l.productExists(ctx, productID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrProductNotFound
		}
		return domain.ErrInsufficientStock
	}

	return nil
}

// Release не проверяет существование товара: строка каталога могла быть
// удалена после оформления заказа, и тогда возврат просто некуда записывать.
func (l *stockLedger) Release(ctx context.Context, productID string, qty int32) error {
	_, err := l.q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1
	`, productID, qty)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	return nil
}

func (l *stockLedger) productExists(ctx context.Context, productID string) (bool, error) {
	var id string
	err := l.q.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1`, productID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check product exists: %w", err)
}

var (
	_ domain.ProductCatalog = (*productCatalog)(nil)
	_ domain.StockLedger    = (*stockLedger)(nil)
)
