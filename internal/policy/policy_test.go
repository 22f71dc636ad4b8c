package policy

import "testing"

func TestCheckCommandAllowed(t *testing.T) {
	if err := CheckCommandAllowed(false, "swap run"); err != nil {
		t.Fatalf("unexpected error without read-only mode: %v", err)
	}
	if err := CheckCommandAllowed(true, "pool status"); err != nil {
		t.Fatalf("read command should pass in read-only mode: %v", err)
	}
	if err := CheckCommandAllowed(true, "swap run"); err == nil {
		t.Fatal("expected swap run to be blocked in read-only mode")
	}
	if err := CheckCommandAllowed(true, "  Liquidity   Add "); err == nil {
		t.Fatal("normalization should still block liquidity add")
	}
}
