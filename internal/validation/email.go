package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var errInvalidEmail = errors.New("Enter a valid email address.")

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) || strings.Contains(email, "..") {
		return errInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errInvalidEmail
	}
	return nil
}
