package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: field, Message: field + " must be at least 2 characters"}
	}
	return nil
}

// ValidatePositiveAmount checks that a monetary amount is strictly positive
func ValidatePositiveAmount(field string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ValidationError{Field: field, Message: field + " must be greater than zero"}
	}
	return nil
}

// ValidateNonNegativeAmount checks that a monetary amount is zero or positive
func ValidateNonNegativeAmount(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ValidationError{Field: field, Message: field + " must not be negative"}
	}
	return nil
}
