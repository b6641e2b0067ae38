package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ShippingAddress is the free-text delivery address captured at checkout.
type ShippingAddress struct {
	Address    string `json:"address" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

// Normalize trims every field.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		Address:    strings.TrimSpace(a.Address),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

// Value marshals the address into JSON after checking required fields.
func (a ShippingAddress) Value() (driver.Value, error) {
	if strings.TrimSpace(a.Address) == "" {
		return nil, fmt.Errorf("shipping address: missing address")
	}
	if strings.TrimSpace(a.City) == "" {
		return nil, fmt.Errorf("shipping address: missing city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return nil, fmt.Errorf("shipping address: missing postal code")
	}
	if strings.TrimSpace(a.Country) == "" {
		return nil, fmt.Errorf("shipping address: missing country")
	}
	buf, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes the JSONB column.
func (a *ShippingAddress) Scan(value any) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("shipping address: unsupported scan type %T", value)
	}

	var decoded ShippingAddress
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fmt.Errorf("shipping address: %w", err)
	}
	*a = decoded
	return nil
}

func toString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
