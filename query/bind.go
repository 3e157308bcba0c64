package query

import (
	"strconv"
	"strings"
)

// Bind substitutes each "?" placeholder in sql with the corresponding
// arg, quoting non-numeric/non-boolean/non-null values, for display
// purposes only -- the wire flows (package flow) always send bindings
// as typed protocol parameters, never as interpolated SQL text.
func Bind(sql string, args []string) string {
	if len(args) == 0 {
		return sql
	}

	result := &strings.Builder{}
	argIdx := 0
	for i := range len(sql) {
		if sql[i] == '?' && argIdx < len(args) {
			result.WriteString(quoteArg(args[argIdx]))
			argIdx++
		} else {
			result.WriteByte(sql[i])
		}
	}
	return result.String()
}

// quoteArg wraps a non-numeric arg in single quotes, escaping internal quotes.
func quoteArg(s string) string {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s
	}
	if s == "true" || s == "false" || s == "null" || s == "NULL" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
