package agenda

import (
	"sort"
	"time"

	appLog "agendamail/internal/log"
)

// Collate normalizes every raw entry for one date and returns the day's
// events in display order: all-day events first (keeping their input
// order), then timed events by ascending start.
//
// A malformed entry is skipped with a warning; it never fails the batch.
func Collate(entries []RawEntry, loc *time.Location) []Event {
	events := make([]Event, 0, len(entries))

	for _, raw := range entries {
		ev, err := Normalize(raw, loc)
		if err != nil {
			appLog.Warn("skipping malformed entry",
				"summary", raw.Summary,
				"calendar", raw.Calendar,
				"reason", err,
			)
			continue
		}
		events = append(events, ev)
	}

	SortEvents(events)
	return events
}

// SortEvents orders events in place: all-day before timed, timed ascending
// by start. The sort is stable, so all-day events (which compare equal to
// each other) and same-start timed events keep their input order.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if a.AllDay {
			return false
		}
		return a.Start.Before(b.Start)
	})
}

// FilterUnfinished retains all-day events unconditionally and timed events
// whose effective end (end if present, else start) is at or after now.
// Order is preserved. The driver applies this to the current day only.
func FilterUnfinished(events []Event, now time.Time) []Event {
	kept := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.AllDay || !ev.EffectiveEnd().Before(now) {
			kept = append(kept, ev)
		}
	}
	return kept
}
