package api

import (
	"strconv"
	"strings"
)

// coerceID turns a form value into the numeric id the backend expects.
// Leading whitespace and an optional sign are accepted and parsing stops at
// the first non-digit; a value with no leading digits becomes nil.
func coerceID(s string) *int64 {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return nil
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
