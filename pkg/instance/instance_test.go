package instance

import "testing"

func TestIDPrefersEnv(t *testing.T) {
	t.Setenv("SHOPORA_INSTANCE_ID", " publisher-2 ")
	if got := ID(); got != "publisher-2" {
		t.Fatalf("expected publisher-2, got %q", got)
	}
}

func TestIDFallsBackToHostname(t *testing.T) {
	t.Setenv("SHOPORA_INSTANCE_ID", "")
	if got := ID(); got == "" {
		t.Fatal("expected a non-empty id")
	}
}
