package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Conservative RiskProfile = "conservative"
	Moderate     RiskProfile = "moderate"
	Aggressive   RiskProfile = "aggressive"
)

type (
	RiskProfile string

	Date struct {
		time.Time
	}

	// User is a registered account together with its onboarding profile.
	User struct {
		ID                   int64
		Email                string
		PasswordHash         string
		FullName             string
		Age                  int
		Occupation           string
		MonthlyIncome        decimal.Decimal
		RiskProfile          RiskProfile
		InvestmentExperience string
		OnboardingCompleted  bool
		VerificationToken    string
		IsVerified           bool
		InvestmentTypes      []string
		Objectives           []string
		CreatedAt            time.Time
		UpdatedAt            time.Time
	}

	// Onboarding carries the profile fields collected by the onboarding flow.
	Onboarding struct {
		UserID               int64
		FullName             string
		Age                  int
		Occupation           string
		MonthlyIncome        decimal.Decimal
		RiskProfile          RiskProfile
		InvestmentExperience string
		InvestmentTypes      []string
		Objectives           []string
	}

	// Holding is a single portfolio entry.
	Holding struct {
		ID        int64
		UserID    int64
		Name      string
		Category  string
		Amount    decimal.Decimal
		Date      Date
		Symbol    string
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrMissingCredentials = validation("email and password are required")
	ErrInvalidEmail       = validation("invalid email address")
	ErrPasswordTooShort   = validation("password must be at least 6 characters")
	ErrPasswordTooLong    = validation("password must be at most 72 bytes")
	ErrMissingUserID      = validation("userId is required")
	ErrInvalidRiskProfile = validation("invalid risk profile")
	ErrInvalidAge         = validation("invalid age")
	ErrInvalidIncome      = validation("invalid monthly income")
	ErrInvalidAmount      = validation("invalid amount")
	ErrEmptyName          = validation("empty name")
	ErrEmptyCategory      = validation("empty category")
	ErrInvalidDate        = validation("invalid date")
	ErrInvalidSymbol      = validation("invalid symbol")
	ErrInvalidTarget      = validation("target amount must be positive")
	ErrGoalOutOfRange     = validation("goal amounts are too large to plan")
	ErrInvalidYears       = validation("years must be between 1 and 60")
	ErrInvalidRate        = validation("rates must be between 0 and 100 percent")
	ErrMissingQuery       = validation("query is required")
)

// ValidationError marks errors caused by bad client input.
type ValidationError struct {
	msg string
}

func validation(msg string) error { return &ValidationError{msg: msg} }

func (e *ValidationError) Error() string { return e.msg }

// IsValidation reports whether err (or anything it wraps) is a validation error.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ParseRiskProfile normalizes a risk profile string. An empty input yields Moderate.
func ParseRiskProfile(s string) (RiskProfile, error) {
	switch RiskProfile(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return Moderate, nil
	case Conservative:
		return Conservative, nil
	case Moderate:
		return Moderate, nil
	case Aggressive:
		return Aggressive, nil
	default:
		return "", ErrInvalidRiskProfile
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail accepts a bare address only; display names and angle
// brackets are rejected so the stored value is the address itself.
func ValidateEmail(email string) error {
	trimmed := strings.TrimSpace(email)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateCredentials checks the register/login payload.
func ValidateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrMissingCredentials
	}
	return ValidateEmail(email)
}

// NeedsOnboarding reports whether the user still has to complete onboarding.
func (u User) NeedsOnboarding() bool {
	return !u.OnboardingCompleted
}

func (o Onboarding) Validate() error {
	if o.UserID <= 0 {
		return ErrMissingUserID
	}
	if o.Age < 0 || o.Age > 130 {
		return ErrInvalidAge
	}
	if o.MonthlyIncome.IsNegative() {
		return ErrInvalidIncome
	}
	switch o.RiskProfile {
	case Conservative, Moderate, Aggressive:
	default:
		return ErrInvalidRiskProfile
	}
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current UTC date.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (h Holding) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return ErrEmptyName
	}
	if len(h.Name) > 200 {
		return validation("name too long (max 200 characters)")
	}
	if strings.TrimSpace(h.Category) == "" {
		return ErrEmptyCategory
	}
	if !h.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := h.Date.Validate(); err != nil {
		return err
	}
	if h.Symbol != "" && !ValidSymbol(h.Symbol) {
		return ErrInvalidSymbol
	}
	return nil
}

// ValidSymbol reports whether s is an uppercase ticker of at most 12
// characters: letters, digits, '.', '-' or ':'.
func ValidSymbol(s string) bool {
	if s == "" || len(s) > 12 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == ':':
		default:
			return false
		}
	}
	return true
}
