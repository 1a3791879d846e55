package random

import (
	"strings"
	"testing"
)

func TestStrings(t *testing.T) {
	if got := String(12); len(got) != 12 {
		t.Fatalf("expected 12 chars, got %q", got)
	}

	l := Lower(40)
	if strings.ToLower(l) != l {
		t.Fatalf("expected lowercase, got %q", l)
	}

	s, err := StringSecure(32)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range s {
		if !strings.ContainsRune(charset, c) {
			t.Fatalf("unexpected rune %q in %q", c, s)
		}
	}

	h, err := Hex(16)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(h, "0x") || len(h) != 34 {
		t.Fatalf("unexpected hex %q", h)
	}
}
