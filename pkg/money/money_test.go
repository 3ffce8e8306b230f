package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalize_AcceptsValidAmounts(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     string
	}{
		{"whole amount", "100", "INR", "100.00"},
		{"two decimals", "2500.50", "INR", "2500.50"},
		{"one decimal rescaled", "2.5", "USD", "2.50"},
		{"zero-scale currency", "1500", "JPY", "1500"},
		{"three-decimal currency", "1.005", "KWD", "1.005"},
		{"unknown code defaults to two", "9.99", "XTS", "9.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := decimal.RequireFromString(tt.amount)
			got, err := Normalize(in, tt.currency)
			if err != nil {
				t.Fatalf("Normalize(%s, %s) failed: %v", tt.amount, tt.currency, err)
			}
			if got.StringFixed(Scale(tt.currency)) != tt.want {
				t.Errorf("Normalize(%s, %s) = %s, want %s", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestNormalize_RejectsInvalidAmounts(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		wantErr  error
	}{
		{"zero", "0", "INR", ErrNotPositive},
		{"negative", "-10.00", "INR", ErrNotPositive},
		{"excess precision", "10.005", "INR", ErrPrecision},
		{"fraction on zero-scale currency", "100.5", "JPY", ErrPrecision},
		{"tiny excess", "0.001", "USD", ErrPrecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := decimal.RequireFromString(tt.amount)
			_, err := Normalize(in, tt.currency)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Normalize(%s, %s) error = %v, want %v", tt.amount, tt.currency, err, tt.wantErr)
			}
		})
	}
}

func TestNormalize_RejectsBadCurrency(t *testing.T) {
	for _, code := range []string{"", "IN", "INRR", "12X"} {
		if _, err := Normalize(decimal.NewFromInt(1), code); !errors.Is(err, ErrUnknownCurrency) {
			t.Errorf("Normalize(1, %q) error = %v, want ErrUnknownCurrency", code, err)
		}
	}
}

func TestParse(t *testing.T) {
	got, err := Parse(" 2500.50 ", "INR")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.String() != "2500.5" {
		t.Errorf("Parse = %s, want 2500.5", got)
	}

	if _, err := Parse("not-a-number", "INR"); err == nil {
		t.Error("Expected error for malformed amount")
	}
}

func TestFormat(t *testing.T) {
	if got := Format(decimal.RequireFromString("7499.5"), "INR"); got != "7499.50" {
		t.Errorf("Format = %s, want 7499.50", got)
	}
	if got := Format(decimal.NewFromInt(1500), "JPY"); got != "1500" {
		t.Errorf("Format = %s, want 1500", got)
	}
}
