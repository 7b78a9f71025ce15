package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxChequeNumberLength  = 64
	MaxPayeeNameLength     = 255
	MaxSessionNameLength   = 120
	MaxUsernameLength      = 50
	MinPasswordLength      = 8
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateStringRegex checks if a string matches a given regex pattern.
func ValidateStringRegex(s string, pattern *regexp.Regexp, fieldName, formatDescription string) error {
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: %s ('%s') is not in the expected format (%s)", ErrValidationFailed, fieldName, s, formatDescription)
	}
	return nil
}

// ValidateChequeNumber checks that an identifier is present, bounded and free of control characters.
// Case and surrounding whitespace are left alone; the reconciliation engine normalizes those.
func ValidateChequeNumber(s, fieldName string) error {
	if err := ValidateStringNotEmpty(s, fieldName); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringMaxLength(trimmed, MaxChequeNumberLength, fieldName); err != nil {
		return err
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %s contains control characters", ErrValidationFailed, fieldName)
		}
	}
	return nil
}

// ValidateEmail checks the address shape; it does not check deliverability.
func ValidateEmail(s string) error {
	if err := ValidateStringNotEmpty(s, "email"); err != nil {
		return err
	}
	if err := ValidateStringMaxLength(s, DefaultMaxStringLength, "email"); err != nil {
		return err
	}
	return ValidateStringRegex(s, emailRegex, "email", "name@domain.tld")
}

// ValidatePassword enforces the minimum length only.
func ValidatePassword(s string) error {
	if utf8.RuneCountInString(s) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrValidationFailed, MinPasswordLength)
	}
	return nil
}
