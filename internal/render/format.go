package render

import (
	"strings"
	"time"
	"unicode"
)

// Clock formats a time as 12-hour lowercase clock text, e.g. "9:30 am".
func Clock(t time.Time) string {
	return t.Format("3:04 pm")
}

// ShortDate formats a date as e.g. "Mon 9 Feb".
func ShortDate(t time.Time) string {
	return t.Format("Mon 2 Jan")
}

// LongDate formats a date as e.g. "Monday 9 February 2026".
func LongDate(t time.Time) string {
	return t.Format("Monday 2 January 2006")
}

// collapseNewlines reduces runs of two or more consecutive newlines to a
// single newline.
func collapseNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	newlines := 0
	for _, r := range s {
		if r == '\n' {
			newlines++
			if newlines == 1 {
				b.WriteRune(r)
			}
			continue
		}
		newlines = 0
		b.WriteRune(r)
	}
	return b.String()
}

// truncateAtWord hard-truncates s to at most limit runes, breaking at the
// last whitespace before the cut when one exists, and appends an ellipsis.
// Strings within the limit are returned unmodified.
func truncateAtWord(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

// descriptionText applies the shared description policy: trim, collapse
// blank-line runs, truncate at a word boundary.
func descriptionText(desc string, limit int) string {
	return truncateAtWord(collapseNewlines(strings.TrimSpace(desc)), limit)
}
