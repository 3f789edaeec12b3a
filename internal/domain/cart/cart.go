// Package cart implements the shopper's local cart and its reconciliation
// with the server-side cart.
//
// The local cart is authoritative while the shopper is anonymous. After login
// SyncToBackend pushes it to the server: the server cart is cleared and every
// local line is re-added with its exact quantity. The sync is not atomic.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Item is one cart line.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
	// StockLimit is informational; the server enforces stock.
	StockLimit int             `json:"stock_limit,omitempty"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

func (i *Item) recompute() {
	i.Subtotal = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the full cart state.
type Cart struct {
	Items      []Item          `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TotalItems int             `json:"total_items"`
}

// CalculateTotal derives TotalPrice and TotalItems from the items. Totals are
// always recomputed from scratch, never adjusted incrementally.
func (c *Cart) CalculateTotal() {
	total := decimal.Zero
	n := 0
	for _, it := range c.Items {
		total = total.Add(it.Subtotal)
		n += it.Quantity
	}
	c.TotalPrice = total
	c.TotalItems = n
}

func (c *Cart) index(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	out := c
	out.Items = append([]Item(nil), c.Items...)
	return out
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

// SyncError reports a partial SyncToBackend. The server cart holds the first
// Synced of Total local lines.
type SyncError struct {
	Synced int
	Total  int
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("cart sync: %d of %d items synced: %v", e.Synced, e.Total, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
