package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	logger.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	return log.NewEntry(logger)
}

func persistedCart(t *testing.T, store *memory.Store, userID string) (domain.Cart, error) {
	t.Helper()

	var cart domain.Cart
	err := store.WithinTx(context.Background(), func(tx domain.Tx) error {
		var err error
		cart, err = tx.Carts().FindByUser(context.Background(), userID)
		return err
	})
	return cart, err
}

func TestGetAndValidateCartAbsent(t *testing.T) {
	store := memory.NewStore()
	validator := NewValidatorWithoutMetrics(store, testLogger())

	view, err := validator.GetAndValidateCart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view != nil {
		t.Fatalf("expected nil view for absent cart, got %+v", view)
	}
}

func TestGetAndValidateCartUpdatesStalePrice(t *testing.T) {
	store := memory.NewStore()
	store.SeedProducts(domain.Product{ID: "p1", Name: "Кружка", PriceMinor: 1500, Stock: 10})
	store.SeedCart(domain.Cart{
		ID:     "cart-1",
		UserID: "u1",
		Lines:  []domain.CartLine{{ProductID: "p1", Qty: 2, PriceMinor: 1000}},
	})

	validator := NewValidatorWithoutMetrics(store, testLogger())

	view, err := validator.GetAndValidateCart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(view.Lines))
	}

	line := view.Lines[0]
	if line.PriceMinor != 1500 {
		t.Errorf("expected catalog price 1500, got %d", line.PriceMinor)
	}
	if line.Adjustment != domain.AdjustmentPriceUpdated {
		t.Errorf("expected price-updated note, got %q", line.Adjustment)
	}
	if view.TotalMinor != 3000 {
		t.Errorf("expected total 3000, got %d", view.TotalMinor)
	}

	// Починка должна быть сохранена: повторная сверка проходит без заметок.
	again, err := validator.GetAndValidateCart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	if again.Lines[0].Adjustment != "" {
		t.Errorf("expected no adjustment on second pass, got %q", again.Lines[0].Adjustment)
	}
}

func TestGetAndValidateCartClampOverridesPriceNote(t *testing.T) {
	store := memory.NewStore()
	store.SeedProducts(domain.Product{ID: "p1", PriceMinor: 2000, Stock: 3})
	store.SeedCart(domain.Cart{
		ID:     "cart-1",
		UserID: "u1",
		Lines:  []domain.CartLine{{ProductID: "p1", Qty: 5, PriceMinor: 1000}},
	})

	validator := NewValidatorWithoutMetrics(store, testLogger())

	view, err := validator.GetAndValidateCart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	line := view.Lines[0]
	if line.Qty != 3 {
		t.Errorf("expected qty clamped to 3, got %d", line.Qty)
	}
	if line.PriceMinor != 2000 {
		t.Errorf("expected catalog price 2000, got %d", line.PriceMinor)
	}
	if line.Adjustment != domain.AdjustmentQtyClamped {
		t.Errorf("expected qty-clamped note to win over price note, got %q", line.Adjustment)
	}
	if view.TotalMinor != 6000 {
		t.Errorf("expected total 6000, got %d", view.TotalMinor)
	}
}

func TestGetAndValidateCartDropsUnavailableLines(t *testing.T) {
	store := memory.NewStore()
	store.SeedProducts(
		domain.Product{ID: "kept", PriceMinor: 500, Stock: 5},
		domain.Product{ID: "sold-out", PriceMinor: 700, Stock: 0},
	)
	store.SeedCart(domain.Cart{
		ID:     "cart-1",
		UserID: "u1",
		Lines: []domain.CartLine{
			{ProductID: "vanished", Qty: 1, PriceMinor: 100},
			{ProductID: "sold-out", Qty: 2, PriceMinor: 700},
			{ProductID: "kept", Qty: 1, PriceMinor: 500},
		},
	})

	validator := NewValidatorWithoutMetrics(store, testLogger())

	view, err := validator.GetAndValidateCart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("expected 1 surviving line, got %d", len(view.Lines))
	}
	if view.Lines[0].Product.ID != "kept" {
		t.Errorf("expected line for %q, got %q", "kept", view.Lines[0].Product.ID)
	}

	cart, err := persistedCart(t, store, "u1")
	if err != nil {
		t.Fatalf("cart should survive reconciliation: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Errorf("expected dropped lines persisted, got %d lines", len(cart.Lines))
	}
}

func adjustmentCount(t *testing.T, kind string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "storefront_cart_adjustments_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "kind" && label.GetValue() == kind {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestGetAndValidateCartRecordsAdjustmentMetrics(t *testing.T) {
	store := memory.NewStore()
	store.SeedProducts(domain.Product{ID: "p1", PriceMinor: 2000, Stock: 3})
	store.SeedCart(domain.Cart{
		ID:     "cart-1",
		UserID: "u1",
		Lines: []domain.CartLine{
			{ProductID: "p1", Qty: 5, PriceMinor: 1000},
			{ProductID: "vanished", Qty: 1, PriceMinor: 100},
		},
	})

	priceBefore := adjustmentCount(t, "price_updated")
	clampBefore := adjustmentCount(t, "qty_clamped")
	dropBefore := adjustmentCount(t, "line_dropped")

	validator := NewValidator(store, testLogger())
	if _, err := validator.GetAndValidateCart(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := adjustmentCount(t, "price_updated") - priceBefore; got != 1 {
		t.Errorf("expected one price_updated adjustment, got %v", got)
	}
	if got := adjustmentCount(t, "qty_clamped") - clampBefore; got != 1 {
		t.Errorf("expected one qty_clamped adjustment, got %v", got)
	}
	if got := adjustmentCount(t, "line_dropped") - dropBefore; got != 1 {
		t.Errorf("expected one line_dropped adjustment, got %v", got)
	}
}

func TestGetAndValidateCartDeletesEmptiedCart(t *testing.T) {
	store := memory.NewStore()
	store.SeedProducts(domain.Product{ID: "sold-out", PriceMinor: 700, Stock: 0})
	store.SeedCart(domain.Cart{
		ID:     "cart-1",
		UserID: "u1",
		Lines: []domain.CartLine{
			{ProductID: "vanished", Qty: 1, PriceMinor: 100},
			{ProductID: "sold-out", Qty: 2, PriceMinor: 700},
		},
	})

	validator := NewValidatorWithoutMetrics(store, testLogger())

	view, err := validator.GetAndValidateCart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view != nil {
		t.Fatalf("expected nil view for emptied cart, got %+v", view)
	}

	if _, err := persistedCart(t, store, "u1"); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected emptied cart to be deleted, got %v", err)
	}
}
