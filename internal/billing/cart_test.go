package billing

import "testing"

func TestCartAddOnEmptyCart(t *testing.T) {
	cart := NewCart(DefaultTaxRate)
	cart.Add(LineItem{Quantity: 2, UnitPriceCents: 1250})

	got := cart.Totals(0)
	if got.SubtotalCents != 2500 || got.TaxCents != 200 || got.TotalCents != 2700 {
		t.Fatalf("expected 25.00/2.00/27.00, got %+v", got)
	}
}

func TestCartRemoveRecomputes(t *testing.T) {
	cart := NewCart(DefaultTaxRate)
	cart.Add(LineItem{Quantity: 2, UnitPriceCents: 1250})
	cart.Add(LineItem{Quantity: 1, UnitPriceCents: 2500})
	cart.Add(LineItem{Quantity: 4, UnitPriceCents: 1875})

	if !cart.Remove(1) {
		t.Fatalf("expected remove to succeed")
	}

	remaining := cart.Items()
	if len(remaining) != 2 || remaining[0].UnitPriceCents != 1250 || remaining[1].UnitPriceCents != 1875 {
		t.Fatalf("expected order to be preserved, got %+v", remaining)
	}

	got := cart.Totals(100)
	want := Recompute(remaining, 100)
	if got != want {
		t.Fatalf("expected %+v after removal, got %+v", want, got)
	}
	if got.SubtotalCents != 2500+7500 {
		t.Fatalf("expected subtotal 10000, got %d", got.SubtotalCents)
	}
}

func TestCartRemoveOutOfRange(t *testing.T) {
	cart := NewCart(DefaultTaxRate)
	if cart.Remove(0) {
		t.Fatalf("expected remove on empty cart to fail")
	}
	cart.Add(LineItem{Quantity: 1, UnitPriceCents: 100})
	if cart.Remove(-1) || cart.Remove(1) {
		t.Fatalf("expected out of range removes to fail")
	}
	if cart.Len() != 1 {
		t.Fatalf("expected one item left, got %d", cart.Len())
	}
}
