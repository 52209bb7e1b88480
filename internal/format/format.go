// Package format turns raw keystroke text into the canonical display forms used by the
// billing form, and provides the small date/text helpers used by the views.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	maxPhoneDigits  = 10
	maxCardDigits   = 16
	maxExpiryDigits = 4
	maxPostalLength = 10
	maxCVVDigits    = 4
)

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func capLength(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Phone formats a US style number: (123) 456-7890.
func Phone(value string) string {
	cleaned := digitsOnly(value)

	switch {
	case len(cleaned) <= 3:
		return cleaned
	case len(cleaned) <= 7:
		return fmt.Sprintf("(%s) %s", cleaned[:3], cleaned[3:])
	default:
		cleaned = capLength(cleaned, maxPhoneDigits)
		return fmt.Sprintf("(%s) %s-%s", cleaned[:3], cleaned[3:6], cleaned[6:])
	}
}

// CardNumber groups the value in blocks of four. It does not truncate; see CardNumberInput.
func CardNumber(value string) string {
	cleaned := []rune(strings.ReplaceAll(value, " ", ""))
	if len(cleaned) == 0 {
		return ""
	}

	var chunks []string
	for len(cleaned) > 4 {
		chunks = append(chunks, string(cleaned[:4]))
		cleaned = cleaned[4:]
	}
	chunks = append(chunks, string(cleaned))

	return strings.Join(chunks, " ")
}

// CardNumberInput is CardNumber applied to at most 16 digits of the input.
func CardNumberInput(value string) string {
	return CardNumber(capLength(digitsOnly(value), maxCardDigits))
}

// ExpiryDate formats MM/YY, clamping the month into 01..12.
func ExpiryDate(value string) string {
	cleaned := capLength(digitsOnly(value), maxExpiryDigits)

	switch len(cleaned) {
	case 0:
		return ""
	case 1:
		return cleaned
	}

	month, err := strconv.Atoi(cleaned[:2])
	if err != nil || month <= 0 {
		month = 1
	}
	if month > 12 {
		month = 12
	}
	mm := fmt.Sprintf("%02d", month)

	if len(cleaned) == 2 {
		return mm
	}
	return mm + "/" + cleaned[2:]
}

// PostalCode keeps digits and hyphens, at most 10 characters.
func PostalCode(value string) string {
	var b strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return capLength(b.String(), maxPostalLength)
}

func CardHolder(value string) string {
	return strings.ToUpper(value)
}

func CVV(value string) string {
	return capLength(digitsOnly(value), maxCVVDigits)
}

// MaskCardNumber renders the last four digits, e.g. "•••• 4242".
func MaskCardNumber(cardNumber string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cardNumber)
	if len(cleaned) > 4 {
		cleaned = cleaned[len(cleaned)-4:]
	}
	return "•••• " + cleaned
}

// Date renders "Jan 15, 2024".
func Date(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// DateTime renders "Jan 15, 2024, 10:30 AM".
func DateTime(t time.Time) string {
	return t.Format("Jan 2, 2006, 03:04 PM")
}

// Truncate shortens s to length runes and appends an ellipsis.
func Truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}
