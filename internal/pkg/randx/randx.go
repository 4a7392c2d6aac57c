/*
Package randx generates identifiers and short codes from crypto/rand.

Pickup codes are short Base62 strings a donor reads out to the driver at the
door; everything else uses UUIDs.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the alphabet used for short codes (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the size of the Base62 alphabet.
	Base62Len = int64(len(Base62Chars))

	// PickupCodeLength is the fixed length of a pickup confirmation code.
	PickupCodeLength = 6
)

// PickupCode returns a random Base62 code of PickupCodeLength characters.
func PickupCode() (string, error) {
	result := make([]byte, PickupCodeLength)

	for i := 0; i < PickupCodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for pickup code: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// IsValidPickupCode reports whether code has the right length and alphabet.
func IsValidPickupCode(code string) bool {
	if len(code) != PickupCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// ID returns a new UUID v4 string.
func ID() string {
	return uuid.New().String()
}
