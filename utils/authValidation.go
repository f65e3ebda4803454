package utils

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Validation errors
var (
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrPasswordNotComplex = errors.New("password must include at least one letter and one digit")
)

var (
	letterRegex    = regexp.MustCompile(`[A-Za-z]`)
	digitRegex     = regexp.MustCompile(`\d`)
	resetCodeRegex = regexp.MustCompile(`^\d{6}$`)
)

// ValidateRegistration checks the fields of a sign-up request. The role is
// only checked for presence here; its value is parsed by models.ParseRole.
func ValidateRegistration(name, email, password, role string) error {
	return validation.Errors{
		"name":     validation.Validate(strings.TrimSpace(name), validation.Required, validation.Length(1, 100)),
		"email":    validation.Validate(email, validation.Required, is.EmailFormat, validation.Length(3, 255)),
		"password": validation.Validate(password, validation.Required.Error("password cannot be blank"), validation.By(validatePassword)),
		"role":     validation.Validate(role, validation.Required),
	}.Filter()
}

// ValidateLogin checks that both credentials were supplied.
func ValidateLogin(email, password string) error {
	return validation.Errors{
		"email":    validation.Validate(email, validation.Required, is.EmailFormat),
		"password": validation.Validate(password, validation.Required),
	}.Filter()
}

// ValidateEmail checks a lone email field.
func ValidateEmail(email string) error {
	return validation.Errors{
		"email": validation.Validate(email, validation.Required, is.EmailFormat),
	}.Filter()
}

// ValidatePasswordReset validates the reset code and new password.
func ValidatePasswordReset(email, resetCode, newPassword string) error {
	return validation.Errors{
		"email":    validation.Validate(email, validation.Required, is.EmailFormat),
		"code":     validation.Validate(resetCode, validation.Required, validation.Match(resetCodeRegex).Error("must be a 6 digit code")),
		"password": validation.Validate(newPassword, validation.Required, validation.By(validatePassword)),
	}.Filter()
}

// validatePassword checks the password for length and a letter/digit mix.
func validatePassword(value interface{}) error {
	password, _ := value.(string)
	if password == "" {
		return nil
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if !letterRegex.MatchString(password) || !digitRegex.MatchString(password) {
		return ErrPasswordNotComplex
	}
	return nil
}
