package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// orderRepository — PostgreSQL-реализация OrderRepository, живёт внутри транзакции.
type orderRepository struct {
	q querier
}

const orderColumns = `
	id, user_id, status, order_date,
	street, city, state, zip,
	payment_desc,
	customer_name, customer_tax_id, customer_phone, customer_email,
	shipping_minor, discount_minor, total_minor,
	tracking_code, version, created_at, updated_at
`

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	userID := sql.NullString{String: order.UserID, Valid: order.UserID != ""}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`,
		order.ID, userID, string(order.Status), order.Date,
		order.ShippingAddress.Street, order.ShippingAddress.City,
		order.ShippingAddress.State, order.ShippingAddress.Zip,
		order.Payment.Description,
		order.Customer.Name, order.Customer.TaxID, order.Customer.Phone, order.Customer.Email,
		order.ShippingMinor, order.DiscountMinor, order.TotalMinor,
		order.TrackingCode, order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO order_lines (id, order_id, product_id, qty, unit_price_minor, subtotal_minor, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, line.ID, order.ID, line.ProductID, line.Qty, line.UnitPriceMinor, line.SubtotalMinor, line.CreatedAt); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	order, err := r.scanOrder(r.q.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	lines, err := r.loadLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines

	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.q.QueryContext(ctx, query+" LIMIT $2", userID, limit)
	} else {
		rows, err = r.q.QueryContext(ctx, query, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		lines, err := r.loadLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}

	return orders, nil
}

// Save обновляет изменяемые поля заказа с проверкой версии (optimistic locking).
// Позиции и снапшоты после создания неизменяемы и не перезаписываются.
func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    tracking_code = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4
		  AND version = $5
	`, string(order.Status), order.TrackingCode, order.UpdatedAt, order.ID, order.Version)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.orderExists(ctx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}

	return nil
}

// DetachUser обнуляет ссылку на пользователя, сохраняя заказы как
// исторические записи со снапшотами.
func (r *orderRepository) DetachUser(ctx context.Context, userID string) error {
	if _, err := r.q.ExecContext(ctx, `
		UPDATE orders SET user_id = NULL WHERE user_id = $1
	`, userID); err != nil {
		return fmt.Errorf("detach user orders: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *orderRepository) scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		userID sql.NullString
		status string
	)
	err := row.Scan(
		&order.ID, &userID, &status, &order.Date,
		&order.ShippingAddress.Street, &order.ShippingAddress.City,
		&order.ShippingAddress.State, &order.ShippingAddress.Zip,
		&order.Payment.Description,
		&order.Customer.Name, &order.Customer.TaxID, &order.Customer.Phone, &order.Customer.Email,
		&order.ShippingMinor, &order.DiscountMinor, &order.TotalMinor,
		&order.TrackingCode, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	order.UserID = userID.String
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, product_id, qty, unit_price_minor, subtotal_minor, created_at
		FROM order_lines
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.ProductID, &line.Qty, &line.UnitPriceMinor, &line.SubtotalMinor, &line.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return lines, nil
}

func (r *orderRepository) orderExists(ctx context.Context, orderID string) (bool, error) {
	var id string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
