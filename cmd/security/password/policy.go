package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validate checks plain against the length policy and, when enabled, the
// weak-password screen. Lengths count runes, so "pässwörd" is 8 long.
func (c Config) Validate(plain string) error {
	n := utf8.RuneCountInString(plain)
	switch {
	case n < c.Policy.MinLength:
		return ErrPasswordTooShort
	case n > c.Policy.MaxLength:
		return ErrPasswordTooLong
	case c.Policy.RejectVeryWeak && looksVeryWeak(plain):
		return ErrWeakPassword
	}
	return nil
}

// commonCustomerPasswords are passwords seen again and again on consumer
// signups, lower-cased.
var commonCustomerPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"passw0rd":    {},
	"qwertyuiop":  {},
	"iloveyou":    {},
	"welcome1":    {},
	"letmein123":  {},
	"healthcare":  {},
	"insurance":   {},
	"carepass":    {},
	"carepass1":   {},
}

// looksVeryWeak flags a password as trivially guessable. It is a screen for
// the worst offenders, not a strength estimator.
func looksVeryWeak(pw string) bool {
	s := strings.ToLower(strings.TrimSpace(pw))
	if s == "" {
		return true
	}
	if _, ok := commonCustomerPasswords[s]; ok {
		return true
	}

	// Digits only: PINs, birth dates and mobile numbers, all of which sit
	// on the customer record.
	if strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return true
	}

	return singleRune(s) || sequential(s)
}

func singleRune(s string) bool {
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if r != first {
			return false
		}
	}
	return true
}

// sequential reports runs like "abcdefgh" or "87654321".
func sequential(s string) bool {
	rs := []rune(s)
	if len(rs) < 2 {
		return false
	}
	step := rs[1] - rs[0]
	if step != 1 && step != -1 {
		return false
	}
	for i := 2; i < len(rs); i++ {
		if rs[i]-rs[i-1] != step {
			return false
		}
	}
	return true
}
