package utils

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// HasLetter returns true if s contains at least one ASCII letter (a-zA-Z)
func HasLetter(s string) bool {
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			return true
		}
	}
	return false
}

// HasNumber returns true if s contains at least one ASCII digit (0-9)
func HasNumber(s string) bool {
	for _, r := range s {
		if '0' <= r && r <= '9' {
			return true
		}
	}
	return false
}

// Ellipsize keeps the first n runes of s and appends "..." when anything was cut.
func Ellipsize(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// TrimExt strips the final extension from a file name.
func TrimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
