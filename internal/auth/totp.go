package auth

import (
	"errors"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrInvalidTOTP is returned when a code does not validate.
var ErrInvalidTOTP = errors.New("invalid totp")

// ValidateTOTP checks code against secret.
func ValidateTOTP(secret, code string) error {
	if strings.TrimSpace(secret) == "" {
		return errors.New("totp secret is required")
	}
	if !totp.Validate(strings.TrimSpace(code), secret) {
		return ErrInvalidTOTP
	}
	return nil
}

// GenerateTOTP creates a new TOTP key for account.
func GenerateTOTP(issuer, account string) (*otp.Key, error) {
	if strings.TrimSpace(issuer) == "" {
		issuer = "rollcall"
	}
	if strings.TrimSpace(account) == "" {
		return nil, errors.New("totp account is required")
	}
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
}
