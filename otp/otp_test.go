package otp

import "testing"

func TestGenerateFixedWidth(t *testing.T) {
	g := New(nil)
	code, err := g.Generate(6)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Fatalf("expected decimal digits, got %q", code)
		}
	}
}

func TestFixedGeneratorDeterministic(t *testing.T) {
	g := NewFixed("999999")
	code, err := g.Generate(6)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if code != "999999" {
		t.Fatalf("code = %q, want 999999", code)
	}
}

func TestFixedGeneratorWidthMismatch(t *testing.T) {
	g := NewFixed("999999")
	if _, err := g.Generate(4); err == nil {
		t.Fatalf("expected error for width mismatch")
	}
}
