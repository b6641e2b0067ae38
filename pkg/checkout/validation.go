package checkout

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
)

// StockValidationInput describes one line checked against current stock.
type StockValidationInput struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

// StockViolationDetail is returned to callers when a line exceeds stock.
type StockViolationDetail struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	RequestedQty int       `json:"requested_qty"`
	AvailableQty int       `json:"available_qty"`
}

// ValidateQuantity rejects anything below one.
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be a positive integer").WithDetails(map[string]any{
			"quantity": quantity,
		})
	}
	return nil
}

var (
	minQuantity = decimal.NewFromInt(1)
	maxQuantity = decimal.NewFromInt(math.MaxInt32)
)

// ParseQuantity turns a client-supplied JSON number into a line quantity. Fractions,
// values beyond int32 and anything below one are INVALID_QUANTITY. Integral
// spellings such as 2.0 are accepted.
func ParseQuantity(raw json.Number) (int, error) {
	d, err := decimal.NewFromString(raw.String())
	if err != nil || !d.IsInteger() || d.LessThan(minQuantity) || d.GreaterThan(maxQuantity) {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be a positive integer").WithDetails(map[string]any{
			"quantity": raw.String(),
		})
	}
	return int(d.IntPart()), nil
}

// ValidateStock fails when requested exceeds available. It never mutates anything,
// so callers run it on the final line quantity, including combined quantities.
func ValidateStock(requested, available int) error {
	if requested > available {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(map[string]any{
			"requested_qty": requested,
			"available_qty": available,
		})
	}
	return nil
}

// ValidateProductStock is ValidateStock with the product identity attached to the details.
func ValidateProductStock(productID uuid.UUID, requested, available int) error {
	if requested > available {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(map[string]any{
			"product_id":    productID,
			"requested_qty": requested,
			"available_qty": available,
		})
	}
	return nil
}

// ValidateStockLines checks every line and reports all violations at once.
func ValidateStockLines(items []StockValidationInput) error {
	var (
		violations []StockViolationDetail
		errs       error
	)
	for _, item := range items {
		if err := ValidateStock(item.Requested, item.Available); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("product %s: %w", item.ProductID, err))
			violations = append(violations, StockViolationDetail{
				ProductID:    item.ProductID,
				ProductName:  item.ProductName,
				RequestedQty: item.Requested,
				AvailableQty: item.Available,
			})
		}
	}
	if errs == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, errs, fmt.Sprintf("insufficient stock for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
