// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"strconv"
	"strings"
)

// ParseIndex parses a zero-based position from a path segment.
// It reports false for empty, non-numeric or negative input.
//
// Example:
//
//	i, ok := utils.ParseIndex("3")  // 3, true
//	_, ok = utils.ParseIndex("-1")  // 0, false
//	_, ok = utils.ParseIndex("x")   // 0, false
func ParseIndex(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
