package domain

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func TestValidCurrencyCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{code: "USD", want: true},
		{code: "EUR", want: true},
		{code: "usd", want: false},
		{code: "US", want: false},
		{code: "USDT", want: false},
		{code: "U5D", want: false},
		{code: "", want: false},
	}

	for _, tt := range tests {
		if got := ValidCurrencyCode(tt.code); got != tt.want {
			t.Errorf("ValidCurrencyCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestSignedAmount(t *testing.T) {
	amount := decimal.RequireFromString("12.34")

	in := Entry{Amount: amount, Direction: Inflow}
	if got := in.SignedAmount(); !got.Equal(amount) {
		t.Errorf("inflow signed amount = %s, want %s", got, amount)
	}

	out := Entry{Amount: amount, Direction: Outflow}
	if got := out.SignedAmount(); !got.Equal(amount.Neg()) {
		t.Errorf("outflow signed amount = %s, want %s", got, amount.Neg())
	}
}

func TestValidateTemplateWindow(t *testing.T) {
	base := Template{
		AccountID: "a1",
		UserID:    "u1",
		Amount:    decimal.NewFromInt(1),
		Currency:  "USD",
		Direction: Outflow,
		Frequency: FrequencyMonthly,
		StartDate: civil.Date{Year: 2024, Month: 1, Day: 15},
	}

	sameDay := base
	end := base.StartDate
	sameDay.EndDate = &end
	if err := ValidateTemplate(&sameDay); err != nil {
		t.Errorf("end date equal to start date should be valid, got %v", err)
	}

	inverted := base
	before := civil.Date{Year: 2024, Month: 1, Day: 14}
	inverted.EndDate = &before
	if err := ValidateTemplate(&inverted); err == nil {
		t.Error("end date before start date should be rejected")
	}
}
