package billing

import "github.com/shopspring/decimal"

// Cart is an ordered list of line items whose totals follow every change.
// It is not safe for concurrent use.
type Cart struct {
	items []LineItem
	rate  decimal.Decimal
}

func NewCart(rate decimal.Decimal) *Cart {
	return &Cart{rate: rate}
}

// Add appends an item and returns the new position.
func (c *Cart) Add(item LineItem) int {
	c.items = append(c.items, item)
	return len(c.items) - 1
}

// Remove drops the item at index, keeping the order of the rest.
// It reports false when index is out of range.
func (c *Cart) Remove(index int) bool {
	if index < 0 || index >= len(c.items) {
		return false
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return true
}

func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Totals(discountCents int64) Totals {
	return RecomputeAtRate(c.items, discountCents, c.rate)
}
