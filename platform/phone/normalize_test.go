package phone

import "testing"

func TestNormalizeE164ColombianMobile(t *testing.T) {
	got := NormalizeE164("300 123 4567", "CO")
	if got != "+573001234567" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestNormalizeE164KeepsInvalidInput(t *testing.T) {
	got := NormalizeE164("  ext. 42  ", "CO")
	if got != "ext. 42" {
		t.Fatalf("invalid input should be returned trimmed, got %q", got)
	}
}

func TestNormalizeE164Empty(t *testing.T) {
	if got := NormalizeE164("   ", "CO"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
