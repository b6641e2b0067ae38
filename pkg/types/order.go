package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is the denormalized copy of a cart line taken at checkout.
// Later catalog edits never change it.
type OrderItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is price × quantity, unrounded.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderItems is stored as JSONB via the gorm json serializer.
type OrderItems []OrderItem

// PaymentResult is the opaque confirmation handed back by the payment provider.
type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"updateTime"`
	EmailAddress string `json:"emailAddress"`
}

// Value marshals the payment result into JSON for Postgres. A nil pointer is stored as NULL.
func (p *PaymentResult) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	buf, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes the JSONB column.
func (p *PaymentResult) Scan(value any) error {
	if value == nil {
		*p = PaymentResult{}
		return nil
	}
	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("payment result: unsupported scan type %T", value)
	}
	var decoded PaymentResult
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fmt.Errorf("payment result: %w", err)
	}
	*p = decoded
	return nil
}
