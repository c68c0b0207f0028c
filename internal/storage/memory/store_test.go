package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	store.SeedProducts(domain.Product{ID: "prod-1", Name: "Кружка", PriceMinor: 500, Stock: 10})

	wantErr := errors.New("boom")
	err := store.WithinTx(context.Background(), func(tx domain.Tx) error {
		if err := tx.Stock().Reserve(context.Background(), "prod-1", 4); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	// Резерв должен быть откачен.
	err = store.WithinTx(context.Background(), func(tx domain.Tx) error {
		product, err := tx.Products().Get(context.Background(), "prod-1")
		if err != nil {
			return err
		}
		if product.Stock != 10 {
			t.Fatalf("expected stock 10 after rollback, got %d", product.Stock)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStockLedgerReserve(t *testing.T) {
	store := NewStore()
	store.SeedProducts(domain.Product{ID: "prod-1", Stock: 3})

	err := store.WithinTx(context.Background(), func(tx domain.Tx) error {
		if err := tx.Stock().Reserve(context.Background(), "prod-1", 3); err != nil {
			return err
		}
		if err := tx.Stock().Reserve(context.Background(), "prod-1", 1); !errors.Is(err, domain.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		if err := tx.Stock().Reserve(context.Background(), "missing", 1); !errors.Is(err, domain.ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCartRepositoryLifecycle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx domain.Tx) error {
		if _, err := tx.Carts().FindByUser(ctx, "user-1"); !errors.Is(err, domain.ErrCartNotFound) {
			t.Fatalf("expected ErrCartNotFound, got %v", err)
		}

		cart := domain.Cart{
			UserID: "user-1",
			Lines:  []domain.CartLine{{ProductID: "prod-1", Qty: 2, PriceMinor: 100}},
		}
		if err := tx.Carts().Save(ctx, cart); err != nil {
			return err
		}

		stored, err := tx.Carts().FindByUser(ctx, "user-1")
		if err != nil {
			return err
		}
		if stored.ID == "" {
			t.Fatal("expected generated cart id")
		}
		if len(stored.Lines) != 1 || stored.Lines[0].Qty != 2 {
			t.Fatalf("unexpected cart lines: %+v", stored.Lines)
		}

		if err := tx.Carts().Delete(ctx, stored.ID); err != nil {
			return err
		}
		if _, err := tx.Carts().FindByUser(ctx, "user-1"); !errors.Is(err, domain.ErrCartNotFound) {
			t.Fatalf("expected ErrCartNotFound after delete, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOrderRepositoryOptimisticLocking(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx domain.Tx) error {
		order := domain.Order{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusPending}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		stale := order
		stale.Version = 7
		if err := tx.Orders().Save(ctx, stale); !domain.IsVersionConflict(err) {
			t.Fatalf("expected version conflict, got %v", err)
		}

		order.Status = domain.OrderStatusPaid
		if err := tx.Orders().Save(ctx, order); err != nil {
			return err
		}

		saved, err := tx.Orders().Get(ctx, "ord-1")
		if err != nil {
			return err
		}
		if saved.Version != 1 {
			t.Fatalf("expected version 1 after save, got %d", saved.Version)
		}
		if saved.Status != domain.OrderStatusPaid {
			t.Fatalf("expected status paid, got %s", saved.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOrderRepositoryDetachUser(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx domain.Tx) error {
		for _, id := range []string{"ord-1", "ord-2"} {
			if err := tx.Orders().Create(ctx, domain.Order{ID: id, UserID: "user-1"}); err != nil {
				return err
			}
		}
		if err := tx.Orders().Create(ctx, domain.Order{ID: "ord-3", UserID: "user-2"}); err != nil {
			return err
		}

		if err := tx.Orders().DetachUser(ctx, "user-1"); err != nil {
			return err
		}

		orders, err := tx.Orders().ListByUser(ctx, "user-1", 0)
		if err != nil {
			return err
		}
		if len(orders) != 0 {
			t.Fatalf("expected no orders for detached user, got %d", len(orders))
		}

		// Сами заказы сохраняются как исторические записи.
		detached, err := tx.Orders().Get(ctx, "ord-1")
		if err != nil {
			return err
		}
		if detached.UserID != "" {
			t.Fatalf("expected empty user id, got %q", detached.UserID)
		}

		other, err := tx.Orders().ListByUser(ctx, "user-2", 0)
		if err != nil {
			return err
		}
		if len(other) != 1 {
			t.Fatalf("expected user-2 orders untouched, got %d", len(other))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
