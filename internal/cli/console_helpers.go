package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

func kv(k, v string) string {
	return fmt.Sprintf("%s: %s", k, v)
}

// listWindow returns the [start, end) range of rows visible around cursor.
func listWindow(total, cursor, rows int) (int, int) {
	if total <= rows {
		return 0, total
	}
	start := clampInt(cursor-rows/2, 0, total-rows)
	return start, start + rows
}

// fitWidth cuts s to width terminal cells, marking the cut with an ellipsis.
// Styled and wide runes are measured by their rendered width.
func fitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func defaultIfEmpty(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func markIf(v bool, mark string) string {
	if v {
		return mark
	}
	return " "
}
