// Package phone canonicalizes Brazilian phone numbers into stable identity keys.
package phone

import "strings"

// countryPrefix is the Brazilian country code every canonical number carries.
const countryPrefix = "55"

// Canonicalize turns an arbitrary phone string into a canonical digit string:
// country code + area code + subscriber number. Two raw strings that denote
// the same subscriber canonicalize to the same key, so the result can be used
// for identity comparison across tenants.
//
// Legacy records sometimes carry an extra mobile-prefix "9"; when the number
// is long enough to tell, one leading "9" is collapsed from the subscriber
// portion. Returns "" for empty input and never fails.
func Canonicalize(raw string) string {
	if raw == "" {
		return ""
	}

	digits := stripNonDigits(raw)
	if digits == "" {
		return ""
	}

	if !strings.HasPrefix(digits, countryPrefix) {
		digits = countryPrefix + digits
	}

	// Numbers too short to split into area code + subscriber are passed
	// through after country-code normalization.
	rest := digits[len(countryPrefix):]
	if len(rest) < 10 {
		return digits
	}

	areaCode := rest[:2]
	subscriber := rest[2:]

	if len(digits) == 13 && strings.HasPrefix(subscriber, "9") {
		subscriber = subscriber[1:]
	} else if len(subscriber) == 10 && strings.HasPrefix(subscriber, "99") {
		subscriber = subscriber[1:]
	}

	return countryPrefix + areaCode + subscriber
}

// stripNonDigits removes everything that is not an ASCII digit.
func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
