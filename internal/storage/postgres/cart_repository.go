package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// cartRepository — PostgreSQL-реализация CartRepository, живёт внутри транзакции.
type cartRepository struct {
	q querier
}

func (r *cartRepository) FindByUser(ctx context.Context, userID string) (domain.Cart, error) {
	var cart domain.Cart
	err := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT product_id, qty, price_minor
		FROM cart_lines
		WHERE cart_id = $1
		ORDER BY position ASC
	`, cart.ID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Qty, &line.PriceMinor); err != nil {
			return domain.Cart{}, fmt.Errorf("scan cart line: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("iterate cart lines: %w", err)
	}

	return cart, nil
}

// Save перезаписывает корзину целиком: заголовок через upsert по user_id,
// позиции удаляются и вставляются заново в порядке следования.
func (r *cartRepository) Save(ctx context.Context, cart domain.Cart) error {
	if cart.ID == "" {
		cart.ID = uuid.NewString()
	}

	err := r.q.QueryRowContext(ctx, `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id
	`, cart.ID, cart.UserID, cart.CreatedAt, cart.UpdatedAt).Scan(&cart.ID)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}

	for i, line := range cart.Lines {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO cart_lines (cart_id, position, product_id, qty, price_minor)
			VALUES ($1, $2, $3, $4, $5)
		`, cart.ID, i, line.ProductID, line.Qty, line.PriceMinor); err != nil {
			return fmt.Errorf("insert cart line: %w", err)
		}
	}

	return nil
}

func (r *cartRepository) Delete(ctx context.Context, id string) error {
	// Позиции удаляются каскадно.
	if _, err := r.q.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
