// Package validation holds input rules shared by handlers and services.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxUsernameLength = 30
	MaxEmailLength    = 254
	MaxBioLength      = 500
)

var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)+$`)

// ValidateUsername accepts 1-30 printable characters without surrounding or
// embedded line breaks.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("Username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return errors.New("Username too long (max 30 characters)")
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return errors.New("Username contains invalid characters")
		}
	}
	return nil
}

// ValidateEmail checks the address shape. Callers normalize case first.
func ValidateEmail(email string) error {
	if len(email) > MaxEmailLength {
		return errors.New("Email too long")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("Please enter a valid email")
	}
	return nil
}

// ValidatePassword enforces the length bounds only.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return errors.New("Password must be at least 6 characters")
	}
	if n > MaxPasswordLength {
		return errors.New("Password too long (max 128 characters)")
	}
	return nil
}

// ValidateBio bounds the free-text profile bio. Empty is allowed.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return errors.New("Bio too long (max 500 characters)")
	}
	return nil
}
