package xid

import (
	"strings"
	"testing"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	a, b := New("sale"), New("sale")
	if !strings.HasPrefix(a, "sale_") {
		t.Fatalf("expected sale_ prefix, got %q", a)
	}
	if a == b {
		t.Fatalf("expected unique ids, got %q twice", a)
	}
}

func TestSequencePadsToThreeDigits(t *testing.T) {
	if got := Sequence("SAL", 7); got != "SAL007" {
		t.Fatalf("expected SAL007, got %q", got)
	}
	if got := Sequence("PO", 1234); got != "PO1234" {
		t.Fatalf("expected PO1234, got %q", got)
	}
}
