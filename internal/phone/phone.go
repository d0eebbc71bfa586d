package phone

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalid is returned when a raw string cannot be normalized to a phone key.
var ErrInvalid = errors.New("phone: not a valid phone number")

var digitsRe = regexp.MustCompile(`\d+`)

// Normalized is the canonical representation of a phone number: the country
// calling code followed by the national number, digits only. Two raw strings
// that normalize to the same Normalized value name the same phone number.
type Normalized string

// Normalize reduces an arbitrary raw phone string to its canonical key.
// It is a pure function: punctuation, whitespace, extensions typed after the
// number, and an optional leading +1 are all tolerated. Input that does not
// contain a ten-digit national number yields ErrInvalid rather than a guess.
func Normalize(raw string) (Normalized, error) {
	digits := sanitize(raw)
	switch {
	case len(digits) == 10:
		return Normalized("1" + digits), nil
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return Normalized(digits), nil
	default:
		return "", ErrInvalid
	}
}

// E164 renders the canonical key in E.164 form.
func (n Normalized) E164() string {
	if n == "" {
		return ""
	}
	return "+" + string(n)
}

// National returns the ten-digit national number without the country code.
func (n Normalized) National() string {
	s := string(n)
	if len(s) == 11 {
		return s[1:]
	}
	return s
}

func sanitize(value string) string {
	if value == "" {
		return ""
	}
	// Anything after an extension marker is not part of the number.
	lower := strings.ToLower(value)
	for _, marker := range []string{"ext", "x#", " x"} {
		if i := strings.Index(lower, marker); i >= 0 {
			value = value[:i]
		}
	}
	return strings.Join(digitsRe.FindAllString(value, -1), "")
}
