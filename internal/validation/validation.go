package validation

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// Query bounds, in runes after trimming.
const (
	MinQueryLen = 1
	MaxQueryLen = 1000
)

var (
	ErrQueryEmpty   = errors.New("query is required")
	ErrQueryTooLong = errors.New("query too long")
)

// ErrDateInvalid is returned for arrival dates not in DD/MM/YYYY form.
var ErrDateInvalid = errors.New("date must be DD/MM/YYYY")

// ValidateQuery trims a chat query and enforces MinQueryLen..maxLen runes.
// maxLen <= 0 uses MaxQueryLen.
func ValidateQuery(input string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = MaxQueryLen
	}
	s := strings.TrimSpace(input)
	n := len([]rune(s))
	if n < MinQueryLen {
		return "", ErrQueryEmpty
	}
	if n > maxLen {
		return "", ErrQueryTooLong
	}
	return s, nil
}

// ValidateArrivalDate accepts "" or a DD/MM/YYYY calendar date.
func ValidateArrivalDate(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", nil
	}
	if _, err := time.Parse("02/01/2006", s); err != nil {
		return "", ErrDateInvalid
	}
	return s, nil
}

// Location errors map to 400 INVALID_LOCATION (guide) or INVALID_STATE (market prices).
var (
	ErrLocationEmpty        = errors.New("location is required")
	ErrLocationTooShort     = errors.New("location too short")
	ErrLocationTooLong      = errors.New("location too long")
	ErrLocationInvalidChars = errors.New("location contains invalid characters")
)

// ValidateLocation trims a region, state or district name and bounds it to
// minLen..maxLen runes. Letters and combining marks in any script, digits,
// space, comma and hyphen are allowed, so "Tamil Nadu" and "पुणे" (whose
// vowel signs are marks) pass while path or query syntax does not.
func ValidateLocation(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	switch n := len(r); {
	case n == 0:
		return "", ErrLocationEmpty
	case minLen > 0 && n < minLen:
		return "", ErrLocationTooShort
	case maxLen > 0 && n > maxLen:
		return "", ErrLocationTooLong
	}
	for _, c := range r {
		if !unicode.IsLetter(c) && !unicode.IsMark(c) && !unicode.IsNumber(c) && !strings.ContainsRune(" ,-", c) {
			return "", ErrLocationInvalidChars
		}
	}
	return s, nil
}
