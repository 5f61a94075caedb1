package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/intake/pkg/schema"
)

// ErrInvalidRUT is returned for malformed RUTs or a wrong check digit.
var ErrInvalidRUT = errors.New("invalid RUT")

// CheckDigit computes the modulo 11 verifier of a RUT body ("0"-"9" or "K").
func CheckDigit(body string) (string, error) {
	if body == "" {
		return "", ErrInvalidRUT
	}
	sum, factor := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return "", ErrInvalidRUT
		}
		sum += int(c-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch dv := 11 - sum%11; dv {
	case 11:
		return "0", nil
	case 10:
		return "K", nil
	default:
		return fmt.Sprint(dv), nil
	}
}

func splitRUT(s string) (body, dv string, err error) {
	clean := strings.ToUpper(strings.NewReplacer(".", "", "-", "", " ", "").Replace(strings.TrimSpace(s)))
	if len(clean) < 2 || len(clean) > 9 {
		return "", "", ErrInvalidRUT
	}
	body, dv = clean[:len(clean)-1], clean[len(clean)-1:]
	body = strings.TrimLeft(body, "0")
	want, err := CheckDigit(body)
	if err != nil {
		return "", "", err
	}
	if want != dv {
		return "", "", fmt.Errorf("%w: check digit should be %s", ErrInvalidRUT, want)
	}
	return body, dv, nil
}

// ValidRUT reports whether s is a well formed RUT with a correct check digit.
func ValidRUT(s string) bool {
	_, _, err := splitRUT(s)
	return err == nil
}

// NormalizeRUT returns s as "BODY-DV", without dots, e.g. "76086428-5".
func NormalizeRUT(s string) (string, error) {
	body, dv, err := splitRUT(s)
	if err != nil {
		return "", err
	}
	return body + "-" + dv, nil
}

// FormatRUT returns s with thousands dots, e.g. "76.086.428-5".
func FormatRUT(s string) (string, error) {
	body, dv, err := splitRUT(s)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, c := range body {
		if i > 0 && (len(body)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	return b.String() + "-" + dv, nil
}

// RUT is a schema type accepting valid RUT strings.
func RUT() schema.Type {
	return schema.Custom("rut", func(v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		if _, _, err := splitRUT(s); err != nil {
			return err
		}
		return nil
	})
}
