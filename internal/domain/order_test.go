package domain

import (
	"errors"
	"testing"
	"time"
)

func TestOrderStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCanceled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusPaid, OrderStatusShipped, true},
		{OrderStatusPaid, OrderStatusCanceled, true},
		{OrderStatusPaid, OrderStatusDelivered, false},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCanceled, false},
		{OrderStatusDelivered, OrderStatusCanceled, false},
		{OrderStatusCanceled, OrderStatusPaid, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !OrderStatusDelivered.Terminal() {
		t.Error("delivered must be terminal")
	}
	if !OrderStatusCanceled.Terminal() {
		t.Error("canceled must be terminal")
	}
	if OrderStatusPending.Terminal() || OrderStatusPaid.Terminal() || OrderStatusShipped.Terminal() {
		t.Error("pending/paid/shipped must not be terminal")
	}
}

func validOrder() Order {
	now := time.Now()
	return Order{
		ID:     "ord-1",
		UserID: "user-1",
		Status: OrderStatusPending,
		Date:   now,
		Lines: []OrderLine{
			{ID: "line-1", ProductID: "prod-1", Qty: 2, UnitPriceMinor: 1500, SubtotalMinor: 3000},
			{ID: "line-2", ProductID: "prod-2", Qty: 1, UnitPriceMinor: 500, SubtotalMinor: 500},
		},
		ShippingMinor: 300,
		DiscountMinor: 100,
		TotalMinor:    3700,
	}
}

func TestOrderValidateInvariantsOK(t *testing.T) {
	order := validOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestOrderValidateInvariantsViolations(t *testing.T) {
	order := validOrder()
	order.UserID = ""
	order.Lines[0].Qty = 0
	order.Lines[0].SubtotalMinor = 1

	errs := order.ValidateInvariants()
	if len(errs) == 0 {
		t.Fatal("expected validation errors")
	}

	wantErrs := []error{ErrUserRequired, ErrLineQtyInvalid, ErrLineSubtotalMismatch, ErrTotalMismatch}
	for _, want := range wantErrs {
		found := false
		for _, got := range errs {
			if errors.Is(got, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected error %v in %v", want, errs)
		}
	}
}

func TestOrderValidateInvariantsClampedTotal(t *testing.T) {
	// Скидка больше суммы позиций и доставки: ожидаемый итог прижимается к нулю.
	order := Order{
		UserID: "user-1",
		Lines: []OrderLine{
			{ID: "line-1", ProductID: "prod-1", Qty: 1, UnitPriceMinor: 100, SubtotalMinor: 100},
		},
		ShippingMinor: 0,
		DiscountMinor: 500,
		TotalMinor:    0,
	}
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("clamped total must be valid, got %v", errs)
	}

	order.TotalMinor = -400
	errs := order.ValidateInvariants()
	found := false
	for _, got := range errs {
		if errors.Is(got, ErrTotalNegative) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrTotalNegative, got %v", errs)
	}
}
