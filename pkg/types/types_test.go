package types

import (
	"testing"

	"github.com/google/uuid"
)

func TestCartLinesLookup(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	lines := CartLines{{ProductID: a, Quantity: 2}, {ProductID: b, Quantity: 3}}

	if lines.IndexOf(b) != 1 || lines.IndexOf(uuid.New()) != -1 {
		t.Fatalf("unexpected index results")
	}
	if lines.QuantityOf(a) != 2 || lines.QuantityOf(uuid.New()) != 0 {
		t.Fatalf("unexpected quantities")
	}
	if lines.TotalQuantity() != 5 {
		t.Fatalf("expected total 5 got %d", lines.TotalQuantity())
	}

	clone := lines.Clone()
	clone[0].Quantity = 9
	if lines[0].Quantity != 2 {
		t.Fatal("clone must not alias the source")
	}
}

func TestCartLinesScan(t *testing.T) {
	id := uuid.New()
	var lines CartLines
	if err := lines.Scan([]byte(`[{"productId":"` + id.String() + `","quantity":4}]`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(lines) != 1 || lines[0].ProductID != id || lines[0].Quantity != 4 {
		t.Fatalf("unexpected lines %+v", lines)
	}

	if err := lines.Scan(nil); err != nil || len(lines) != 0 {
		t.Fatalf("expected empty lines for nil, got %+v (%v)", lines, err)
	}
	if err := lines.Scan(42); err == nil {
		t.Fatal("expected unsupported type error")
	}

	value, err := CartLines(nil).Value()
	if err != nil || value != "[]" {
		t.Fatalf("expected [] for nil lines, got %v (%v)", value, err)
	}
}

func TestReviewsAverageAndOwnership(t *testing.T) {
	user := uuid.New()
	if (Reviews{}).AverageRating() != 0 {
		t.Fatal("empty reviews must rate 0")
	}
	reviews := Reviews{{UserID: user, Rating: 5}, {UserID: uuid.New(), Rating: 4}}
	if got := reviews.AverageRating(); got != 4.5 {
		t.Fatalf("expected 4.5 got %v", got)
	}
	if !reviews.ByUser(user) || reviews.ByUser(uuid.New()) {
		t.Fatal("unexpected ByUser result")
	}
}

func TestShippingAddressValue(t *testing.T) {
	addr := ShippingAddress{Address: " 1 Main St ", City: "Springfield", PostalCode: "12345", Country: "US"}.Normalize()
	if addr.Address != "1 Main St" {
		t.Fatalf("expected trimmed address got %q", addr.Address)
	}
	if _, err := addr.Value(); err != nil {
		t.Fatalf("value: %v", err)
	}
	if _, err := (ShippingAddress{City: "x", PostalCode: "y", Country: "z"}).Value(); err == nil {
		t.Fatal("expected missing address error")
	}

	var scanned ShippingAddress
	if err := scanned.Scan(`{"address":"a","city":"b","postalCode":"c","country":"d"}`); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scanned.Country != "d" {
		t.Fatalf("unexpected scan result %+v", scanned)
	}
}
