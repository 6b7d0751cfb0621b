package privops

import (
	"unicode"

	"github.com/zooarc/menagerie/errors"

	"golang.org/x/crypto/bcrypt"
)

/* ========================================================================
 * Password handling
 * ======================================================================== */

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 12

// ValidatePasswordStrength enforces minimum requirements: length, one
// uppercase, one lowercase, one digit.
func ValidatePasswordStrength(password string) error {
	if password == "" {
		return errors.New(errors.ErrCodeInvalidArgument, "password is required")
	}
	if len(password) < MinPasswordLength {
		return errors.New(errors.ErrCodeInvalidArgument, "password must be at least 12 characters long")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	switch {
	case !hasUpper:
		return errors.New(errors.ErrCodeInvalidArgument, "password must contain an uppercase letter")
	case !hasLower:
		return errors.New(errors.ErrCodeInvalidArgument, "password must contain a lowercase letter")
	case !hasNumber:
		return errors.New(errors.ErrCodeInvalidArgument, "password must contain a number")
	}

	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "password hashing failed", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a password against its stored hash.
func VerifyPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
