package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopora-backend/pkg/config"
)

// Places is the precision of every stored monetary amount.
const Places int32 = 2

var (
	DefaultFreeShippingThreshold = decimal.NewFromInt(50)
	DefaultFlatShippingFee       = decimal.NewFromInt(10)
	DefaultTaxRate               = decimal.RequireFromString("0.10")
)

// Policy fixes the shipping and tax rules applied to a cart.
type Policy struct {
	// Shipping is free only when itemsPrice is strictly greater than this.
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	FlatShippingFee       decimal.Decimal `json:"flatShippingFee"`
	TaxRate               decimal.Decimal `json:"taxRate"`
}

// DefaultPolicy is 10 flat shipping under 50, 10% tax.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		FlatShippingFee:       DefaultFlatShippingFee,
		TaxRate:               DefaultTaxRate,
	}
}

// PolicyFromConfig parses the configured policy amounts.
func PolicyFromConfig(cfg config.PricingConfig) (Policy, error) {
	threshold, err := decimal.NewFromString(strings.TrimSpace(cfg.FreeShippingThreshold))
	if err != nil {
		return Policy{}, fmt.Errorf("free shipping threshold: %w", err)
	}
	fee, err := decimal.NewFromString(strings.TrimSpace(cfg.FlatShippingFee))
	if err != nil {
		return Policy{}, fmt.Errorf("flat shipping fee: %w", err)
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.TaxRate))
	if err != nil {
		return Policy{}, fmt.Errorf("tax rate: %w", err)
	}
	return Policy{
		FreeShippingThreshold: threshold,
		FlatShippingFee:       fee,
		TaxRate:               rate,
	}, nil
}

// Line is the priced view of one cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Breakdown holds the four checkout amounts.
type Breakdown struct {
	ItemsPrice    decimal.Decimal `json:"itemsPrice"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	TaxPrice      decimal.Decimal `json:"taxPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

// Totals exposes both the unrounded working values and the storage snapshot.
type Totals struct {
	Working Breakdown `json:"working"`
	Rounded Breakdown `json:"rounded"`
}

// Total is price × quantity, unrounded.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ItemsPrice sums price × quantity without rounding.
func ItemsPrice(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Total())
	}
	return sum
}

// Shipping returns zero above the threshold and the flat fee otherwise.
func (p Policy) Shipping(itemsPrice decimal.Decimal) decimal.Decimal {
	if itemsPrice.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee
}

// Tax applies the rate to the unrounded items price.
func (p Policy) Tax(itemsPrice decimal.Decimal) decimal.Decimal {
	return itemsPrice.Mul(p.TaxRate)
}

// Calculate derives the totals for the given lines. The rounded total is the
// sum of the independently rounded components, so it can differ by a cent
// from rounding the working total.
func (p Policy) Calculate(lines []Line) Totals {
	items := ItemsPrice(lines)
	shipping := p.Shipping(items)
	tax := p.Tax(items)

	working := Breakdown{
		ItemsPrice:    items,
		ShippingPrice: shipping,
		TaxPrice:      tax,
		TotalPrice:    items.Add(shipping).Add(tax),
	}

	rounded := Breakdown{
		ItemsPrice:    items.Round(Places),
		ShippingPrice: shipping.Round(Places),
		TaxPrice:      tax.Round(Places),
	}
	rounded.TotalPrice = rounded.ItemsPrice.Add(rounded.ShippingPrice).Add(rounded.TaxPrice)

	return Totals{Working: working, Rounded: rounded}
}
