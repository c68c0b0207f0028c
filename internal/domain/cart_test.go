package domain

import "testing"

func TestCartTotalMinor(t *testing.T) {
	cart := Cart{
		Lines: []CartLine{
			{ProductID: "prod-1", Qty: 3, PriceMinor: 250},
			{ProductID: "prod-2", Qty: 1, PriceMinor: 1000},
		},
	}
	if got := cart.TotalMinor(); got != 1750 {
		t.Fatalf("expected total 1750, got %d", got)
	}
}

func TestCartTotalMinorEmpty(t *testing.T) {
	var cart Cart
	if got := cart.TotalMinor(); got != 0 {
		t.Fatalf("expected total 0 for empty cart, got %d", got)
	}
}

func TestIdempotencyStatusValid(t *testing.T) {
	for _, s := range []IdempotencyStatus{IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed} {
		if !s.Valid() {
			t.Errorf("status %q must be valid", s)
		}
	}
	if IdempotencyStatus("unknown").Valid() {
		t.Error("unknown status must be invalid")
	}
}
