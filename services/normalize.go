package services

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	// addressLabelRe matches one leading "Address" / "주소" label remnant
	addressLabelRe = regexp.MustCompile(`(?i)^(?:address|주소)(?:\s*:\s*|\s+)`)
	// leadingTagRe matches a bracketed tag such as "[Comedy] " at the start of a title
	leadingTagRe = regexp.MustCompile(`^\s*[\[【]([^\]】]*)[\]】]\s*`)
	// siteSuffixRe matches a short trailing " - SiteName" / " | SiteName" segment
	siteSuffixRe = regexp.MustCompile(`\s+[-–—|]\s+[^-–—|]{1,30}$`)
	// nonNumericRe keeps digits, sign and decimal point only
	nonNumericRe = regexp.MustCompile(`[^0-9+\-.]`)
)

// CleanText collapses runs of whitespace into a single space and trims the ends.
func CleanText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

// CleanAddress cleans s and strips a single leading "Address:" label.
func CleanAddress(s string) string {
	s = CleanText(s)
	return strings.TrimSpace(addressLabelRe.ReplaceAllString(s, ""))
}

// CleanTitle strips a leading bracketed tag and a trailing site-name suffix.
// Either part may be missing. A title that would become empty is returned
// cleaned but otherwise untouched.
func CleanTitle(s string) string {
	s = CleanText(s)
	out := leadingTagRe.ReplaceAllString(s, "")
	out = siteSuffixRe.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)
	if out == "" {
		return s
	}
	return out
}

// ToAbsoluteURL resolves raw against base. Absolute http(s) input is returned
// unchanged; empty, malformed or non-http results report false.
func ToAbsoluteURL(raw, base string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if ref.IsAbs() {
		if !isHTTP(ref) || ref.Host == "" {
			return "", false
		}
		return raw, true
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return "", false
	}
	abs := b.ResolveReference(ref)
	if !isHTTP(abs) || abs.Host == "" {
		return "", false
	}
	return abs.String(), true
}

func isHTTP(u *url.URL) bool {
	return u.Scheme == "http" || u.Scheme == "https"
}

// ToNumber strips everything except digits, sign and decimal point, then
// parses the remainder. Non-finite or unparsable input reports false.
func ToNumber(s string) (float64, bool) {
	cleaned := nonNumericRe.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
