// Package sessionnum encodes and decodes the human-readable session number
// ("<ordinal> - <folder name>") stored on therapy sessions.
//
// Decode is tolerant on purpose: session numbers written by other tools may be
// bare integers, numeric strings, or garbage. It never panics and returns 0
// when nothing usable is found.
package sessionnum

import (
	"math"
	"strconv"
	"strings"

	"github.com/dalemusser/therapytrack/internal/domain/models"
)

// Separator sits between the ordinal and the folder name.
const Separator = " - "

// Encode returns "{ordinal} - {folderName}".
func Encode(ordinal int, folderName string) string {
	return strconv.Itoa(ordinal) + Separator + folderName
}

// Decode extracts the ordinal from a session number value.
//
// Strings are read as the integer before the first separator, then as a whole
// integer. Numeric kinds are converted directly. Everything else yields 0.
func Decode(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case string:
		return decodeString(n)
	case *string:
		if n == nil {
			return 0
		}
		return decodeString(*n)
	default:
		return 0
	}
}

func decodeString(s string) int {
	if i := strings.Index(s, Separator); i >= 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(s[:i])); err == nil {
			return n
		}
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return 0
}

// Ordinal returns the position of a stored session. The Ordinal field wins
// when set; older documents only carry SessionNumber.
func Ordinal(s models.TherapySession) int {
	if s.Ordinal > 0 {
		return s.Ordinal
	}
	return Decode(s.SessionNumber)
}
