package ui

import (
	"strconv"
	"strings"
)

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// truncateMiddle shortens a string by removing characters from the middle,
// keeping the start and the end. Paths stay recognizable this way.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	const ellipsis = "…"
	if limit <= 2 {
		return string(runes[:limit])
	}
	keep := limit - 1
	prefix := keep / 2
	suffix := keep - prefix
	return string(runes[:prefix]) + ellipsis + string(runes[len(runes)-suffix:])
}

// joinLimited joins values with sep, replacing everything past limit with a
// "+N" count.
func joinLimited(values []string, sep string, limit int) string {
	if limit <= 0 || len(values) <= limit {
		return strings.Join(values, sep)
	}
	return strings.Join(values[:limit], sep) + sep + "+" + strconv.Itoa(len(values)-limit)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
