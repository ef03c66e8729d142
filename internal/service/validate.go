package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/msomdec/stylist-users/internal/domain"
)

// Field limits for account data.
const (
	MaxNameLength     = 50
	MinPasswordLength = 6
	// bcrypt ignores input past 72 bytes.
	MaxPasswordBytes = 72
	defaultName      = "User"
)

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.InvalidInput("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", domain.InvalidInput("name cannot be more than %d characters", MaxNameLength)
	}
	return name, nil
}

func validateEmail(email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return "", domain.InvalidInput("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "", domain.InvalidInput("please add a valid email")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domain.InvalidInput("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return domain.InvalidInput("password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// displayName picks a name for an account created from a provider profile.
func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name
}
