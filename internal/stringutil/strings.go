// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"strings"
	"unicode"
)

// IsNumeric checks if a string contains only ASCII digits.
// Returns false for empty strings.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// StripWhitespace removes every Unicode whitespace rune from s,
// including the ideographic space U+3000.
func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ContainsRuneSet reports whether every distinct rune of chars occurs somewhere in s.
// Order, adjacency and repetition are ignored: "明王明" matches "王小明".
// Both arguments are compared as given; callers lower-case them first.
//
// Example:
//
//	ContainsRuneSet("資訊工程學系", "資工系") returns true
//	ContainsRuneSet("王小明", "明王") returns true
//	ContainsRuneSet("王小明", "王大") returns false
func ContainsRuneSet(s, chars string) bool {
	if chars == "" {
		return true
	}
	if s == "" {
		return false
	}

	present := make(map[rune]struct{}, len(s))
	for _, r := range s {
		present[r] = struct{}{}
	}
	for _, r := range chars {
		if _, ok := present[r]; !ok {
			return false
		}
	}
	return true
}
