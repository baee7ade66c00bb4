package payments

import (
	"errors"
	"strings"
)

var ErrInvalidPhone = errors.New("phone number is not a valid Kenyan mobile number")

// NormalizePhone converts the formats customers actually type into the
// canonical 2547XXXXXXXX / 2541XXXXXXXX form the gateway requires.
// Accepted inputs: 07XXXXXXXX, 01XXXXXXXX, +2547XXXXXXXX, 2547XXXXXXXX,
// with optional spaces and dashes.
func NormalizePhone(input string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(input) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == ' ' || r == '-':
			// stripped
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10 && (strings.HasPrefix(digits, "07") || strings.HasPrefix(digits, "01")):
		digits = "254" + digits[1:]
	case len(digits) == 12 && strings.HasPrefix(digits, "254"):
		// already canonical
	default:
		return "", ErrInvalidPhone
	}

	if digits[3] != '7' && digits[3] != '1' {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
