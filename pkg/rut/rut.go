// Package rut validates and formats Chilean national identity numbers (RUT).
//
// A RUT is a numeric body followed by a modulus-11 check character, written
// as "12.345.678-5". The check character is a digit or K.
package rut

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrInvalidBody is returned when a body contains anything other than digits.
var ErrInvalidBody = errors.New("rut: body must contain only digits")

var (
	shape    = regexp.MustCompile(`^[0-9]+-[0-9kK]$`)
	notRUT   = regexp.MustCompile(`[^0-9kK]`)
	printer  = message.NewPrinter(language.German)
	maxGroup = 18
)

// Valid reports whether s is a well-formed RUT whose check character matches
// its body. Dots are ignored; the hyphen is mandatory.
func Valid(s string) bool {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	if !shape.MatchString(clean) {
		return false
	}
	body, check, _ := strings.Cut(clean, "-")
	expected, err := CheckDigit(body)
	if err != nil {
		return false
	}
	return strings.EqualFold(string(expected), check)
}

// CheckDigit computes the modulus-11 check character for body. Digits are
// weighted from the least significant one with the cycle 2,3,4,5,6,7.
func CheckDigit(body string) (byte, error) {
	if body == "" {
		return 0, ErrInvalidBody
	}
	sum := 0
	weight := 2
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return 0, ErrInvalidBody
		}
		sum += int(c-'0') * weight
		if weight == 7 {
			weight = 2
		} else {
			weight++
		}
	}
	switch expected := 11 - sum%11; expected {
	case 11:
		return '0', nil
	case 10:
		return 'K', nil
	default:
		return byte('0' + expected), nil
	}
}

// Format renders raw user input as a display RUT: separators are dropped,
// leading zeros trimmed, the body grouped in thousands with dots and the
// check character upper-cased after a hyphen. Input too short to split is
// returned upper-cased.
func Format(s string) string {
	raw := notRUT.ReplaceAllString(s, "")
	raw = strings.TrimLeft(raw, "0")
	if len(raw) <= 1 {
		return strings.ToUpper(raw)
	}

	body := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw[:len(raw)-1])
	check := strings.ToUpper(raw[len(raw)-1:])
	if body == "" {
		return check
	}
	return groupThousands(body) + "-" + check
}

// Compact strips dots and the hyphen: "12.345.678-5" becomes "123456785".
func Compact(s string) string {
	return strings.NewReplacer(".", "", "-", "").Replace(strings.TrimSpace(s))
}

func groupThousands(digits string) string {
	if len(digits) <= maxGroup {
		if n, err := strconv.ParseUint(digits, 10, 64); err == nil {
			return printer.Sprintf("%d", n)
		}
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
