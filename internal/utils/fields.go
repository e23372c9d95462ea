package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/RoacherM/a-share-mcp-server/internal/datasource"
)

// ParseFloat converts an upstream cell value to a float64. Empty cells and
// the placeholder values the gateway uses for missing numbers report ok=false,
// mirroring a coercing parse that yields NaN.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "-", "None", "null", "nan", "NaN":
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FirstPresent probes candidates in order and returns the first field that is
// present in the record with a non-empty value. Upstream schemas name the
// same figure differently across listing boards, so lookups go through a
// prioritized candidate list instead of a single field name.
func FirstPresent(rec datasource.Record, candidates []string) (field, value string, ok bool) {
	for _, c := range candidates {
		v, exists := rec[c]
		if !exists {
			continue
		}
		if strings.TrimSpace(v) == "" {
			continue
		}
		return c, v, true
	}
	return "", "", false
}

// FirstNumeric probes candidates in order and returns the first field whose
// value parses as a number.
func FirstNumeric(rec datasource.Record, candidates []string) (field string, value float64, ok bool) {
	for _, c := range candidates {
		raw, exists := rec[c]
		if !exists {
			continue
		}
		if v, parsed := ParseFloat(raw); parsed {
			return c, v, true
		}
	}
	return "", 0, false
}

// FirstNonZeroNumeric is FirstNumeric restricted to non-zero values, for
// figures where zero means "not reported" (e.g. growth percentages).
func FirstNonZeroNumeric(rec datasource.Record, candidates []string) (field string, value float64, ok bool) {
	for _, c := range candidates {
		raw, exists := rec[c]
		if !exists {
			continue
		}
		if v, parsed := ParseFloat(raw); parsed && v != 0 {
			return c, v, true
		}
	}
	return "", 0, false
}
