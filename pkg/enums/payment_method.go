package enums

import "slices"

// PaymentMethod is the tag recorded on an order; the gateway itself is opaque.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodCOD    PaymentMethod = "cod"
)

var paymentMethods = []PaymentMethod{PaymentMethodStripe, PaymentMethodPayPal, PaymentMethodCOD}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return slices.Contains(paymentMethods, p) }

// ParsePaymentMethod is exact; callers lower-case user input first.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parseEnum(paymentMethods, "payment method", value)
}
