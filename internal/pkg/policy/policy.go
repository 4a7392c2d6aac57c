/*
Package policy holds the account field rules shared by the API server and the
client. The server's check is authoritative; the client runs the same rules
only to give fast feedback before a request is sent.
*/
package policy

import (
	"errors"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// MinUsernameLength is the minimum username length in characters.
	MinUsernameLength = 4

	// MinPasswordLength is the minimum password length in characters.
	MinPasswordLength = 6

	// PasswordSpecialChars lists the characters of which a password needs at least one.
	PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`
)

var (
	errUsernameFirstChar = errors.New("Username must start with a letter.")
	errPasswordSpecial   = errors.New(`Password must contain at least one special character (!@#$%^&*(),.?":{}|<>).`)
)

var usernameRules = []validation.Rule{
	validation.Required.Error("Username is required."),
	validation.RuneLength(MinUsernameLength, 0).Error("Username must be at least 4 characters."),
	validation.By(startsWithLetter),
}

var passwordRules = []validation.Rule{
	validation.Required.Error("Password is required."),
	validation.RuneLength(MinPasswordLength, 0).Error("Password must be at least 6 characters."),
	validation.By(hasSpecialChar),
}

// ValidateUsername checks the username format. Uniqueness is the server's job.
func ValidateUsername(username string) error {
	return validation.Validate(username, usernameRules...)
}

// ValidatePassword checks the password complexity rules.
func ValidatePassword(password string) error {
	return validation.Validate(password, passwordRules...)
}

// NormalizeAnswer prepares a security answer for case-insensitive comparison.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

func startsWithLetter(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return errUsernameFirstChar
		}
		break
	}
	return nil
}

func hasSpecialChar(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !strings.ContainsAny(s, PasswordSpecialChars) {
		return errPasswordSpecial
	}
	return nil
}
