package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
)

type sampleAddress struct {
	City string `json:"city" validate:"required"`
}

type samplePayload struct {
	Email    string        `json:"email" validate:"required,email"`
	Quantity int           `json:"quantity" validate:"min=1,max=5"`
	Address  sampleAddress `json:"shippingAddress"`
}

func decode(body string) (samplePayload, error) {
	var dest samplePayload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := DecodeJSONBody(req, &dest)
	return dest, err
}

func requireValidation(t *testing.T, err error) *pkgerrors.Error {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	return typed
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decode(`{"email":"a@b.co","quantity":2,"shippingAddress":{"city":"Lyon"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Quantity != 2 || got.Address.City != "Lyon" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestDecodeJSONBodyRejections(t *testing.T) {
	cases := map[string]string{
		"empty body":    ``,
		"malformed":     `{"email":`,
		"unknown field": `{"email":"a@b.co","quantity":1,"shippingAddress":{"city":"x"},"admin":true}`,
		"wrong type":    `{"email":"a@b.co","quantity":"two","shippingAddress":{"city":"x"}}`,
		"trailing data": `{"email":"a@b.co","quantity":1,"shippingAddress":{"city":"x"}} {}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(body)
			requireValidation(t, err)
		})
	}
}

func TestDecodeJSONBodyReportsNestedFieldPaths(t *testing.T) {
	_, err := decode(`{"email":"nope","quantity":9,"shippingAddress":{"city":""}}`)
	typed := requireValidation(t, err)
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	for _, field := range []string{"email", "quantity", "shippingAddress.city"} {
		if _, ok := details[field]; !ok {
			t.Errorf("missing detail for %s in %v", field, details)
		}
	}
	if details["quantity"] != "must be at most 5" {
		t.Fatalf("unexpected quantity message %q", details["quantity"])
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&bad=x&big=500", nil)
	if v, err := ParseQueryInt(req, "page", 1, 1, 100); err != nil || v != 3 {
		t.Fatalf("expected 3, got %d (%v)", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 7, 1, 100); err != nil || v != 7 {
		t.Fatalf("expected default 7, got %d (%v)", v, err)
	}
	if _, err := ParseQueryInt(req, "bad", 1, 1, 100); err == nil {
		t.Fatal("expected non-numeric error")
	}
	if _, err := ParseQueryInt(req, "big", 1, 1, 100); err == nil {
		t.Fatal("expected out-of-range error instead of clamping")
	}
}

func TestParseQueryBoolAndDecimal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?paid=true&off=0&maybe=yes&min=10.50&neg=-1", nil)
	if v, err := ParseQueryBool(req, "paid"); err != nil || v == nil || !*v {
		t.Fatalf("expected true, got %v (%v)", v, err)
	}
	if v, err := ParseQueryBool(req, "off"); err != nil || v == nil || *v {
		t.Fatalf("expected false, got %v (%v)", v, err)
	}
	if v, err := ParseQueryBool(req, "absent"); err != nil || v != nil {
		t.Fatalf("expected nil, got %v (%v)", v, err)
	}
	if _, err := ParseQueryBool(req, "maybe"); err == nil {
		t.Fatal("expected boolean error")
	}

	min, err := ParseQueryDecimal(req, "min")
	if err != nil || min == nil || min.String() != "10.5" {
		t.Fatalf("expected 10.5, got %v (%v)", min, err)
	}
	if _, err := ParseQueryDecimal(req, "neg"); err == nil {
		t.Fatal("expected negative decimal to fail")
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", value)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	got, err := ParseUUIDParam(withParam(id.String()), "id")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}
	if _, err := ParseUUIDParam(withParam("not-a-uuid"), "id"); err == nil {
		t.Fatal("expected invalid id error")
	}
	if _, err := ParseUUIDParam(withParam(""), "id"); err == nil {
		t.Fatal("expected missing id error")
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  hello   world  ", 0, "hello world"},
		{"tab\tand\x00null", 0, "tab andnull"},
		{"line one\n  line two", 0, "line one\nline two"},
		{"héllo wörld", 5, "héllo"},
		{"abc def", 4, "abc"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
