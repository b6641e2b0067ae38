package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.want, got)
		}
	}

	if !OrderStatusDelivered.IsTerminal() || !OrderStatusCancelled.IsTerminal() {
		t.Fatal("delivered and cancelled must be terminal")
	}
	if OrderStatusPending.IsTerminal() {
		t.Fatal("pending is not terminal")
	}
}

func TestParseOrderStatusIsExact(t *testing.T) {
	if got, err := ParseOrderStatus("shipped"); err != nil || got != OrderStatusShipped {
		t.Fatalf("expected shipped, got %q (%v)", got, err)
	}
	if _, err := ParseOrderStatus("Shipped"); err == nil {
		t.Fatal("expected case-sensitive parse to fail")
	}
}

func TestParseProductCategory(t *testing.T) {
	got, err := ParseProductCategory("Home & Kitchen")
	if err != nil || got != ProductCategoryHomeKitchen {
		t.Fatalf("expected Home & Kitchen, got %q (%v)", got, err)
	}
	if _, err := ParseProductCategory("Groceries"); err == nil {
		t.Fatal("expected unknown category to fail")
	}
	if len(ProductCategories()) != 10 {
		t.Fatalf("expected 10 categories, got %d", len(ProductCategories()))
	}
}

func TestParseProductSortFallsBackToNewest(t *testing.T) {
	if got := ParseProductSort("price_desc"); got != ProductSortPriceDesc {
		t.Fatalf("expected price_desc got %q", got)
	}
	if got := ParseProductSort("cheapest"); got != ProductSortNewest {
		t.Fatalf("expected newest got %q", got)
	}
}

func TestParsePaymentMethodAndRole(t *testing.T) {
	if got, err := ParsePaymentMethod("paypal"); err != nil || got != PaymentMethodPayPal {
		t.Fatalf("expected paypal, got %q (%v)", got, err)
	}
	if _, err := ParsePaymentMethod("cash"); err == nil {
		t.Fatal("expected unknown payment method to fail")
	}
	if got, err := ParseUserRole("admin"); err != nil || got != UserRoleAdmin {
		t.Fatalf("expected admin, got %q (%v)", got, err)
	}
	if _, err := ParseUserRole("owner"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}
