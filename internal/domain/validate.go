package domain

import (
	"time"
)

// ValidCurrencyCode reports whether code looks like an ISO 4217 code:
// exactly three ASCII uppercase letters. Whether the code is actually quoted
// anywhere is the rate service's concern.
func ValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// ValidateEntry checks an entry before it is written. It returns a
// *ValidationError naming the first offending field, or nil.
func ValidateEntry(e *Entry) error {
	if e.AccountID == "" {
		return &ValidationError{Field: "accountId", Reason: "required"}
	}
	if e.UserID == "" {
		return &ValidationError{Field: "userId", Reason: "required"}
	}
	if e.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if !ValidCurrencyCode(e.Currency) {
		return &ValidationError{Field: "currency", Reason: "must be an ISO 4217 code"}
	}
	if !e.Direction.IsValid() {
		return &ValidationError{Field: "direction", Reason: "must be INFLOW or OUTFLOW"}
	}
	if !e.Date.IsValid() {
		return &ValidationError{Field: "date", Reason: "must be a valid calendar date"}
	}
	return nil
}

// ValidateTemplate checks a recurrence template before it is written.
func ValidateTemplate(t *Template) error {
	if t.AccountID == "" {
		return &ValidationError{Field: "accountId", Reason: "required"}
	}
	if t.UserID == "" {
		return &ValidationError{Field: "userId", Reason: "required"}
	}
	if t.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if !ValidCurrencyCode(t.Currency) {
		return &ValidationError{Field: "currency", Reason: "must be an ISO 4217 code"}
	}
	if !t.Direction.IsValid() {
		return &ValidationError{Field: "direction", Reason: "must be INFLOW or OUTFLOW"}
	}
	if !t.Frequency.IsValid() {
		return &ValidationError{Field: "frequency", Reason: "unknown frequency"}
	}
	if !t.StartDate.IsValid() {
		return &ValidationError{Field: "startDate", Reason: "must be a valid calendar date"}
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return &ValidationError{Field: "endDate", Reason: "must not be before startDate"}
	}
	if t.Timezone != "" {
		if _, err := time.LoadLocation(t.Timezone); err != nil {
			return &ValidationError{Field: "timezone", Reason: "unknown IANA time zone"}
		}
	}
	return nil
}
