package coerce

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var plainNumber = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)([eE][-+]?\d+)?$`)

// ParseDecimal parses a numeric cell. Surrounding currency codes and symbols, the
// thousands separator and blanks are stripped. A leading or trailing minus, a unicode
// minus and accounting parentheses all make the result negative. The scale of the
// literal is kept. Without separators the English convention applies.
func ParseDecimal(literal, decimalSep, thousandsSep string) (decimal.Decimal, error) {
	if decimalSep == "" {
		decimalSep = "."
		if thousandsSep == "" {
			thousandsSep = ","
		}
	}
	if thousandsSep == decimalSep {
		thousandsSep = ""
	}

	s := strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u202f', '\u2009':
			return ' '
		case '\u2212':
			return '-'
		}
		return r
	}, literal))

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimFunc(s, isAffix)
	if s != "" && (s[0] == '-' || s[0] == '+') {
		negative = negative || s[0] == '-'
		s = strings.TrimFunc(s[1:], isAffix)
	} else if s != "" && s[len(s)-1] == '-' {
		negative = true
		s = strings.TrimFunc(s[:len(s)-1], isAffix)
	}

	if thousandsSep != "" {
		s = strings.ReplaceAll(s, thousandsSep, "")
	}
	s = strings.NewReplacer(" ", "", "'", "").Replace(s)
	if decimalSep != "." {
		if strings.Contains(s, ".") {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedDecimal, literal)
		}
		s = strings.ReplaceAll(s, decimalSep, ".")
	}
	if !plainNumber.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedDecimal, literal)
	}
	if negative {
		s = "-" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrMalformedDecimal, literal, err)
	}
	return d, nil
}

// isAffix matches the characters that may surround a number: currency codes,
// currency symbols and blanks.
func isAffix(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Sc, r) || unicode.IsSpace(r)
}

var (
	currencyCode   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9.]*$`)
	leadingCode    = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9.]*)\s+(\S.*)$`)
	leadingLetters = regexp.MustCompile(`^([A-Za-z]+)([-+(]?[\d.].*)$`)
)

// SplitAmountCurrency splits a cell holding an amount fused with a currency code, like
// "0.0001612653BTC", "-5 ETH2.S" or "EUR 12,50". The code is the alphabetic run that
// starts right after the last digit of the amount.
func SplitAmountCurrency(literal string) (amount, code string, ok bool) {
	s := strings.TrimSpace(literal)
	for i := 1; i < len(s); i++ {
		if !isASCIILetter(s[i]) || !currencyCode.MatchString(s[i:]) {
			continue
		}
		prefix := strings.TrimSpace(s[:i])
		if prefix == "" {
			break
		}
		if last := prefix[len(prefix)-1]; (last >= '0' && last <= '9') || last == ')' {
			return prefix, s[i:], true
		}
	}
	if m := leadingCode.FindStringSubmatch(s); m != nil {
		return m[2], m[1], true
	}
	if m := leadingLetters.FindStringSubmatch(s); m != nil {
		return m[2], m[1], true
	}
	return "", "", false
}

func isASCIILetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
