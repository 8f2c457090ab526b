// Package stocklevel buckets stock quantities against a minimum threshold.
package stocklevel

import "time"

type Status string

const (
	Low     Status = "low"
	Medium  Status = "medium"
	InStock Status = "in_stock"
)

// Classify reports Low at or below minimum, Medium up to twice the minimum
// and InStock above that. With minimum 0 the Medium band is empty.
func Classify(quantity, minimum int) Status {
	switch {
	case quantity <= minimum:
		return Low
	case minimum > 0 && quantity-minimum <= minimum:
		return Medium
	default:
		return InStock
	}
}

// NeedsAttention is true for Low and Medium.
func NeedsAttention(status Status) bool {
	return status == Low || status == Medium
}

// ExpiresWithin reports whether expiry falls on or before now+days.
// Already expired items are included; a zero expiry never matches.
func ExpiresWithin(expiry time.Time, now time.Time, days int) bool {
	if expiry.IsZero() {
		return false
	}
	if days < 0 {
		days = 0
	}
	cutoff := now.AddDate(0, 0, days)
	return !expiry.After(cutoff)
}
