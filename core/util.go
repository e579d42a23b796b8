package core

import (
	"strings"
	"time"
)

// NowFunc returns the current UTC time. Mockable in tests.
var NowFunc = func() time.Time {
	return time.Now().UTC()
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}
