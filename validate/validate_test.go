package validate

import (
	"errors"
	"testing"
)

type application struct {
	Name   string `validate:"required"`
	Wallet string `validate:"omitempty,ethaddr"`
	Slug   string `validate:"omitempty,slug"`
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		val  application
		err  string
	}{
		{"valid", application{Name: "Ada", Wallet: "0x52908400098527886E0F7030069857D2E4169EE7", Slug: "intro-101"}, ""},
		{"missing name", application{}, "Name is a required field"},
		{"bad wallet", application{Name: "Ada", Wallet: "0x123"}, "Wallet must be a valid ethereum address"},
		{"bad slug", application{Name: "Ada", Slug: "Intro 101"}, "Slug must contain lowercase letters, digits and dashes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.val)
			switch {
			case tt.err == "" && err != nil:
				t.Fatalf("unexpected error: %v", err)
			case tt.err != "" && (err == nil || err.Error() != tt.err):
				t.Fatalf("expected %q, got %v", tt.err, err)
			case tt.err != "" && !errors.Is(err, ErrInvalid):
				t.Fatalf("expected %v to match ErrInvalid", err)
			}
		})
	}
}

func TestCheckID(t *testing.T) {
	if err := CheckID(GenerateID()); err != nil {
		t.Fatalf("generated id rejected: %v", err)
	}
	if err := CheckID("nope"); err == nil {
		t.Fatal("expected malformed id to be rejected")
	}
}
