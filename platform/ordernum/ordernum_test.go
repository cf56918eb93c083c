package ordernum

import (
	"strings"
	"testing"
	"time"
)

func TestNextFormat(t *testing.T) {
	fixed := time.Date(2025, 9, 1, 10, 30, 0, 0, time.UTC)
	gen := NewWithClock(func() time.Time { return fixed })

	got := gen.Next()
	if !strings.HasPrefix(got, "ORD-20250901-") {
		t.Fatalf("unexpected prefix: %q", got)
	}
	if len(got) != len("ORD-20250901-")+suffixLen {
		t.Fatalf("unexpected length: %q", got)
	}
	for _, r := range got[len("ORD-20250901-"):] {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("suffix contains rune outside alphabet: %q", got)
		}
	}
}

func TestNextUniqueness(t *testing.T) {
	gen := New()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		n := gen.Next()
		if seen[n] {
			t.Fatalf("duplicate order number generated: %s", n)
		}
		seen[n] = true
	}
}
