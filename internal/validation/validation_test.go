package validation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"user@example.com", false},
		{"first.last+tag@sub.example.co", false},
		{"  padded@example.com  ", false},
		{"", true},
		{"not-an-email", true},
		{"missing@tld", true},
		{"@example.com", true},
		{"user@.com", true},
	}

	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"longenough", false},
		{"12345678", false},
		{"", true},
		{"short", true},
		{"1234567", true},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"Maria", false},
		{"Jo", false},
		{"", true},
		{"   ", true},
		{"X", true},
	}

	for _, tt := range tests {
		err := ValidateName("name", tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}

	err := ValidateName("family_name", "")
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Field != "family_name" {
		t.Errorf("error field = %q, want %q", ve.Field, "family_name")
	}
}

func TestValidateAmounts(t *testing.T) {
	if err := ValidatePositiveAmount("valor", decimal.NewFromInt(10)); err != nil {
		t.Errorf("positive amount rejected: %v", err)
	}
	if err := ValidatePositiveAmount("valor", decimal.Zero); err == nil {
		t.Error("zero should not pass ValidatePositiveAmount")
	}
	if err := ValidatePositiveAmount("valor", decimal.NewFromInt(-5)); err == nil {
		t.Error("negative should not pass ValidatePositiveAmount")
	}

	if err := ValidateNonNegativeAmount("valor_atual", decimal.Zero); err != nil {
		t.Errorf("zero rejected by ValidateNonNegativeAmount: %v", err)
	}
	if err := ValidateNonNegativeAmount("valor_atual", decimal.NewFromInt(-1)); err == nil {
		t.Error("negative should not pass ValidateNonNegativeAmount")
	}
}
