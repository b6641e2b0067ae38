package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CartLine pairs a product with a positive quantity.
type CartLine struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// MaxGuestLines caps a client-held cart sent for merge or quote.
const MaxGuestLines = 100

// GuestLine is a cart line as sent by a client. Quantity keeps the raw JSON number
// so a fractional or oversized value reaches quantity validation instead of
// failing the whole request body.
type GuestLine struct {
	ProductID uuid.UUID   `json:"productId"`
	Quantity  json.Number `json:"quantity"`
}

// CartLines is the ordered line list persisted as JSONB on the user row.
// At most one line exists per product.
type CartLines []CartLine

// IndexOf returns the position of the line for productID, or -1.
func (c CartLines) IndexOf(productID uuid.UUID) int {
	for i, line := range c {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// QuantityOf returns the quantity held for productID, or zero.
func (c CartLines) QuantityOf(productID uuid.UUID) int {
	if idx := c.IndexOf(productID); idx >= 0 {
		return c[idx].Quantity
	}
	return 0
}

// Clone returns an independent copy so callers can mutate without touching the source.
func (c CartLines) Clone() CartLines {
	out := make(CartLines, len(c))
	copy(out, c)
	return out
}

// TotalQuantity sums quantities across all lines.
func (c CartLines) TotalQuantity() int {
	total := 0
	for _, line := range c {
		total += line.Quantity
	}
	return total
}

// Value marshals the lines into JSON for Postgres.
func (c CartLines) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	buf, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the line list.
func (c *CartLines) Scan(value any) error {
	if value == nil {
		*c = CartLines{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cart lines: unsupported scan type %T", value)
	}

	result := CartLines{}
	if len(raw) == 0 {
		*c = result
		return nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*c = result
	return nil
}
