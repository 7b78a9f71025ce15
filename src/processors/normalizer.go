package processors

import (
	"strings"
	"time"

	"github.com/chequetally/backend/src/models"
	"github.com/shopspring/decimal"
)

// acceptedDateLayouts lists the date shapes extraction is allowed to emit, canonical first.
var acceptedDateLayouts = []string{
	models.DateLayout,
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
}

// currencyMarkers is checked in order; longer markers come before their prefixes.
var currencyMarkers = []string{"Rs.", "Rs", "INR", "$", "€", "£", "₹"}

// MoneyPlaces is the number of decimal places an amount may carry: the smallest currency unit.
const MoneyPlaces = 2

// NormalizeChequeNumber returns the join key for a cheque identifier.
func NormalizeChequeNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseAmount parses a money string into a fixed-point decimal.
// Thousands separators and a leading currency marker are tolerated. Precision finer than
// MoneyPlaces is rejected so stored amounts render exactly.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	for _, marker := range currencyMarkers {
		if strings.HasPrefix(cleaned, marker) {
			cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, marker))
			break
		}
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return decimal.Zero, &RecordError{Field: "amount", Value: s, Reason: "amount is required"}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &RecordError{Field: "amount", Value: s, Reason: "amount is not numeric"}
	}
	if d.IsNegative() {
		return decimal.Zero, &RecordError{Field: "amount", Value: s, Reason: "amount must not be negative"}
	}
	if subUnit(d) {
		return decimal.Zero, &RecordError{Field: "amount", Value: s, Reason: "amount has more than two decimal places"}
	}
	return d, nil
}

// subUnit reports whether d is finer than the smallest currency unit. Trailing zeros are fine.
func subUnit(d decimal.Decimal) bool {
	return !d.Truncate(MoneyPlaces).Equal(d)
}

// ParseDate parses a calendar date under the accepted layouts. The result is midnight UTC.
func ParseDate(s, field string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, &RecordError{Field: field, Reason: "date is required"}
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &RecordError{Field: field, Value: s, Reason: "date is not in a recognised format (YYYY-MM-DD)"}
}

// truncateDay drops the clock part, keeping the calendar date in UTC.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from a to b. Negative when b precedes a.
// Works on Unix seconds since time.Duration saturates past roughly 292 years.
func daysBetween(a, b time.Time) int {
	return int((truncateDay(b).Unix() - truncateDay(a).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

type normalizedCompany struct {
	key      string
	position int
	record   models.CompanyChequeRecord
}

type normalizedBank struct {
	key      string
	position int
	record   models.BankClearedRecord
}

func normalizeCompany(r models.CompanyChequeRecord, position int) (normalizedCompany, error) {
	key := NormalizeChequeNumber(r.ChequeNumber)
	switch {
	case key == "":
		return normalizedCompany{}, &RecordError{Field: "cheque_number", Reason: "identifier is required"}
	case r.Amount.IsNegative():
		return normalizedCompany{}, &RecordError{Field: "amount", Value: r.Amount.String(), Reason: "amount must not be negative"}
	case subUnit(r.Amount):
		return normalizedCompany{}, &RecordError{Field: "amount", Value: r.Amount.String(), Reason: "amount has more than two decimal places"}
	case r.IssueDate.IsZero():
		return normalizedCompany{}, &RecordError{Field: "issue_date", Reason: "date is required"}
	}
	r.IssueDate = truncateDay(r.IssueDate)
	return normalizedCompany{key: key, position: position, record: r}, nil
}

func normalizeBank(r models.BankClearedRecord, position int) (normalizedBank, error) {
	key := NormalizeChequeNumber(r.ChequeNumber)
	switch {
	case key == "":
		return normalizedBank{}, &RecordError{Field: "cheque_number", Reason: "identifier is required"}
	case r.Amount.IsNegative():
		return normalizedBank{}, &RecordError{Field: "amount", Value: r.Amount.String(), Reason: "amount must not be negative"}
	case subUnit(r.Amount):
		return normalizedBank{}, &RecordError{Field: "amount", Value: r.Amount.String(), Reason: "amount has more than two decimal places"}
	case r.ClearingDate.IsZero():
		return normalizedBank{}, &RecordError{Field: "clearing_date", Reason: "date is required"}
	}
	r.ClearingDate = truncateDay(r.ClearingDate)
	return normalizedBank{key: key, position: position, record: r}, nil
}
