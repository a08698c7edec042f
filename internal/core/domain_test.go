package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-09")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-03-09" {
		t.Fatalf("unexpected round trip %q", d.String())
	}
	if _, err := ParseDate("09/03/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestHoldingValidate(t *testing.T) {
	good := Holding{
		Name:     "Nifty Index Fund",
		Category: "Mutual Funds",
		Amount:   decimal.NewFromInt(5000),
		Date:     NewDate(2025, 1, 1),
		Symbol:   "NIFTYBEES",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Holding{
		{Name: "", Category: "c", Amount: decimal.NewFromInt(1), Date: NewDate(2025, 1, 1)},
		{Name: "a", Category: " ", Amount: decimal.NewFromInt(1), Date: NewDate(2025, 1, 1)},
		{Name: "a", Category: "c", Amount: decimal.Zero, Date: NewDate(2025, 1, 1)},
		{Name: "a", Category: "c", Amount: decimal.NewFromInt(-3), Date: NewDate(2025, 1, 1)},
		{Name: "a", Category: "c", Amount: decimal.NewFromInt(1)},
		{Name: "a", Category: "c", Amount: decimal.NewFromInt(1), Date: NewDate(2025, 1, 1), Symbol: "AA PL"},
		{Name: "a", Category: "c", Amount: decimal.NewFromInt(1), Date: NewDate(2025, 1, 1), Symbol: "ABCDEFGHIJKLM"},
	}
	for i, h := range bads {
		err := h.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestOnboardingValidate(t *testing.T) {
	ok := Onboarding{UserID: 1, Age: 30, RiskProfile: Moderate}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	missing := Onboarding{RiskProfile: Moderate}
	if err := missing.Validate(); !errors.Is(err, ErrMissingUserID) {
		t.Fatalf("expected ErrMissingUserID, got %v", err)
	}

	badRisk := Onboarding{UserID: 1, RiskProfile: "yolo"}
	if err := badRisk.Validate(); !errors.Is(err, ErrInvalidRiskProfile) {
		t.Fatalf("expected ErrInvalidRiskProfile, got %v", err)
	}

	negIncome := Onboarding{UserID: 1, RiskProfile: Moderate, MonthlyIncome: decimal.NewFromInt(-1)}
	if err := negIncome.Validate(); !errors.Is(err, ErrInvalidIncome) {
		t.Fatalf("expected ErrInvalidIncome, got %v", err)
	}
}

func TestParseRiskProfile(t *testing.T) {
	cases := map[string]RiskProfile{
		"":              Moderate,
		"Aggressive":    Aggressive,
		" conservative": Conservative,
	}
	for in, want := range cases {
		got, err := ParseRiskProfile(in)
		if err != nil || got != want {
			t.Fatalf("%q: expected %s, got %s (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseRiskProfile("reckless"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestValidateCredentials(t *testing.T) {
	if err := ValidateCredentials("", "secret"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if err := ValidateCredentials("a@b.co", ""); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if err := ValidateCredentials("not-an-email", "secret"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if err := ValidateCredentials("a@b.co", "secret"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestValidateEmailBareAddressOnly(t *testing.T) {
	for _, in := range []string{"Bob <bob@x.co>", "<bob@x.co>", "bob@x.co (Bob)", `"Bob" <bob@x.co>`} {
		if err := ValidateEmail(in); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("%q: expected ErrInvalidEmail, got %v", in, err)
		}
	}
	for _, in := range []string{"bob@x.co", "  Bob@X.co  "} {
		if err := ValidateEmail(in); err != nil {
			t.Errorf("%q: expected ok, got %v", in, err)
		}
	}
}

func TestIsValidationWrapped(t *testing.T) {
	err := fmt.Errorf("create holding: %w", ErrEmptyName)
	if !IsValidation(err) {
		t.Fatal("wrapped validation error not detected")
	}
	if IsValidation(ErrNotFound) {
		t.Fatal("ErrNotFound is not a validation error")
	}
}
