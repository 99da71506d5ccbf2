package customer

import "strings"

func trimmed(s string) string { return strings.TrimSpace(s) }

// NormalizeEmail performs case-insensitive canonicalization.
// Emails are stored in this form, so lookups and the unique index agree.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeMobile trims surrounding whitespace. Digits are kept as entered;
// the unique index compares the trimmed string.
func NormalizeMobile(s string) string {
	return strings.TrimSpace(s)
}

// trimPtr trims a string pointer, returning nil if the result is empty.
func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
