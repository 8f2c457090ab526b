package stocklevel

import (
	"math"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		qty, min int
		want     Status
	}{
		{5, 20, Low},
		{20, 20, Low},
		{21, 20, Medium},
		{40, 20, Medium},
		{41, 20, InStock},
		{0, 0, Low},
		{1, 0, InStock},
		{-3, 0, Low},
		{150, 20, InStock},
		{5, -3, InStock},
		{math.MaxInt, -1, InStock},
		{math.MaxInt, math.MaxInt/2 + 1, Medium},
		{math.MaxInt - 1, math.MaxInt - 1, Low},
	}
	for _, tc := range cases {
		if got := Classify(tc.qty, tc.min); got != tc.want {
			t.Fatalf("Classify(%d, %d) = %s, want %s", tc.qty, tc.min, got, tc.want)
		}
	}
}

func TestNeedsAttention(t *testing.T) {
	if !NeedsAttention(Low) || !NeedsAttention(Medium) || NeedsAttention(InStock) {
		t.Fatalf("unexpected attention mapping")
	}
}

func TestExpiresWithin(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if !ExpiresWithin(now.AddDate(0, 0, 10), now, 30) {
		t.Fatalf("expected expiry in 10 days to be within 30")
	}
	if ExpiresWithin(now.AddDate(0, 0, 31), now, 30) {
		t.Fatalf("expected expiry in 31 days to be outside 30")
	}
	if !ExpiresWithin(now.AddDate(0, 0, -1), now, 30) {
		t.Fatalf("expected already expired item to match")
	}
	if ExpiresWithin(time.Time{}, now, 30) {
		t.Fatalf("expected zero expiry to never match")
	}
}
