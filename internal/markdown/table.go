package markdown

import (
	"fmt"
	"strings"
)

// Truncation limits keep reports readable when a query returns a wide or very
// long table.
const (
	MaxRows = 50
	MaxCols = 10
)

// FormatTable renders a markdown pipe table from a header and string rows.
// Output is truncated to MaxRows/MaxCols with a trailing note when data is
// dropped. Empty input renders as a short placeholder instead of an empty
// table skeleton.
func FormatTable(fields []string, rows [][]string) string {
	if len(fields) == 0 || len(rows) == 0 {
		return "(No data available to display)\n"
	}

	truncatedCols := false
	if len(fields) > MaxCols {
		fields = fields[:MaxCols]
		truncatedCols = true
	}

	truncatedRows := 0
	if len(rows) > MaxRows {
		truncatedRows = len(rows) - MaxRows
		rows = rows[:MaxRows]
	}

	var sb strings.Builder

	sb.WriteString("| ")
	sb.WriteString(strings.Join(fields, " | "))
	sb.WriteString(" |\n|")
	for range fields {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(fields))
		for i := range fields {
			if i < len(row) && row[i] != "" {
				cells[i] = escapeCell(row[i])
			} else {
				cells[i] = "-"
			}
		}
		sb.WriteString("| ")
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString(" |\n")
	}

	if truncatedRows > 0 {
		sb.WriteString(fmt.Sprintf("\n(%d more rows omitted)\n", truncatedRows))
	}
	if truncatedCols {
		sb.WriteString("\n(additional columns omitted)\n")
	}

	return sb.String()
}

// escapeCell keeps pipe characters in cell values from breaking table layout.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
