package env

import "testing"

func TestString(t *testing.T) {
	t.Setenv("SHOPORA_TEST_VALUE", "  console ")
	if got := String("SHOPORA_TEST_VALUE", "json"); got != "console" {
		t.Fatalf("expected console got %q", got)
	}
	t.Setenv("SHOPORA_TEST_VALUE", "   ")
	if got := String("SHOPORA_TEST_VALUE", "json"); got != "json" {
		t.Fatalf("expected fallback got %q", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("SHOPORA_TEST_FLAG", "true")
	if !Bool("SHOPORA_TEST_FLAG", false) {
		t.Fatal("expected true")
	}
	t.Setenv("SHOPORA_TEST_FLAG", "maybe")
	if Bool("SHOPORA_TEST_FLAG", false) {
		t.Fatal("expected fallback on garbage")
	}
}
