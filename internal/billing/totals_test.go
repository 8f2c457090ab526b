package billing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRecomputeSingleItem(t *testing.T) {
	got := Recompute([]LineItem{{Quantity: 2, UnitPriceCents: 1250}}, 0)

	if got.SubtotalCents != 2500 || got.TaxCents != 200 || got.TotalCents != 2700 {
		t.Fatalf("expected 25.00/2.00/27.00, got %+v", got)
	}
	if FormatCents(got.TotalCents) != "27.00" {
		t.Fatalf("expected formatted total 27.00, got %s", FormatCents(got.TotalCents))
	}
}

func TestRecomputeSumsAllLines(t *testing.T) {
	items := []LineItem{
		{Quantity: 3, UnitPriceCents: 1875},
		{Quantity: 1, UnitPriceCents: 2500},
		{Quantity: 10, UnitPriceCents: 99},
	}
	got := Recompute(items, 0)

	want := int64(3*1875 + 2500 + 10*99)
	if got.SubtotalCents != want {
		t.Fatalf("expected subtotal %d, got %d", want, got.SubtotalCents)
	}
}

func TestTaxRoundsToNearestCent(t *testing.T) {
	cases := []struct {
		subtotal int64
		want     int64
	}{
		{subtotal: 119, want: 10},   // 9.52 cents
		{subtotal: 1231, want: 98},  // 98.48 cents
		{subtotal: 1250, want: 100}, // exact
		{subtotal: 3125, want: 250}, // exact
		{subtotal: 6, want: 0},      // 0.48 cents
		{subtotal: 0, want: 0},
	}
	for _, tc := range cases {
		if got := TaxCents(tc.subtotal, DefaultTaxRate); got != tc.want {
			t.Fatalf("subtotal %d: expected tax %d, got %d", tc.subtotal, tc.want, got)
		}
	}
}

func TestTaxRoundsHalfAwayFromZero(t *testing.T) {
	// 25 cents at 10% is 2.5 cents.
	rate := decimal.RequireFromString("0.10")
	if got := TaxCents(25, rate); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestRecomputeAllowsNegativeTotal(t *testing.T) {
	got := Recompute([]LineItem{{Quantity: 1, UnitPriceCents: 1000}}, 5000)

	if got.TotalCents != 1000+80-5000 {
		t.Fatalf("expected unfloored negative total, got %d", got.TotalCents)
	}
	if got.TotalCents >= 0 {
		t.Fatalf("expected negative total, got %d", got.TotalCents)
	}
}

func TestMissingValuesCountAsZero(t *testing.T) {
	got := Recompute([]LineItem{{Quantity: 4}, {UnitPriceCents: 700}, {Quantity: -2, UnitPriceCents: 100}}, 0)
	if got.SubtotalCents != 0 || got.TaxCents != 0 || got.TotalCents != 0 {
		t.Fatalf("expected zero totals, got %+v", got)
	}
}

func TestRecomputeEmpty(t *testing.T) {
	got := Recompute(nil, 0)
	if got != (Totals{}) {
		t.Fatalf("expected zero totals, got %+v", got)
	}
}

func TestRateFromPercent(t *testing.T) {
	if !RateFromPercent(8).Equal(DefaultTaxRate) {
		t.Fatalf("expected 8%% to equal default rate")
	}
	if got := TaxCents(10000, RateFromPercent(8.5)); got != 850 {
		t.Fatalf("expected 850, got %d", got)
	}
	if !RateFromPercent(-1).IsZero() {
		t.Fatalf("expected negative percent to give a zero rate")
	}
}

func TestParseAmount(t *testing.T) {
	cents, err := ParseAmount("12.50")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cents != 1250 {
		t.Fatalf("expected 1250, got %d", cents)
	}
	if _, err := ParseAmount("twelve"); err == nil {
		t.Fatalf("expected parse error")
	}
}
