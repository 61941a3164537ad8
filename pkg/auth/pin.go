package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost = 12
	PinLength  = 6
)

// Trivially guessable PINs rejected at set time
var weakPins = map[string]bool{
	"000000": true,
	"111111": true,
	"123456": true,
	"654321": true,
	"123123": true,
	"112233": true,
	"121212": true,
	"999999": true,
}

// HashPin hashes a PIN with bcrypt. PINs are never stored in plaintext;
// verification goes through ComparePin's constant-time check.
func HashPin(pin string) (string, error) {
	if err := ValidatePinFormat(pin); err != nil {
		return "", err
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(pin), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(hashedBytes), nil
}

// ComparePin verifies a submitted PIN against a stored hash.
func ComparePin(hashedPin, pin string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPin), []byte(pin))
}

// ValidatePinFormat enforces the 6-digit PIN format and rejects
// trivially guessable values.
func ValidatePinFormat(pin string) error {
	if len(pin) != PinLength {
		return fmt.Errorf("pin must be exactly %d digits", PinLength)
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("pin must contain only digits")
		}
	}
	if weakPins[strings.TrimSpace(pin)] {
		return fmt.Errorf("pin is too common, please choose a less predictable value")
	}
	return nil
}
