package agenda

import "time"

// DefaultSummary is used when a source entry carries no summary.
const DefaultSummary = "Untitled event"

// DefaultCalendarName is used when a source calendar has no display name.
const DefaultCalendarName = "(unnamed)"

// RawEntry is a calendar entry as handed over by a retrieval source,
// before normalization. Temporal values are iCalendar DATE / DATE-TIME
// strings (e.g. "20260210", "20260210T090000", "20260210T090000Z") so
// that timezone resolution happens in exactly one place, the normalizer.
type RawEntry struct {
	Summary     string
	Location    string
	Description string

	// Start is required; End may be empty.
	Start string
	End   string

	// StartTZ / EndTZ carry the TZID parameter when the source specified
	// one. Empty means the value is either UTC-suffixed or floating.
	StartTZ string
	EndTZ   string

	// Calendar is the display name of the contributing calendar.
	Calendar string
}

// Event is the canonical, normalized calendar event. It is immutable once
// produced by Normalize; all times are resolved into the target timezone.
type Event struct {
	Summary     string
	Location    string
	Description string

	// Start is the event start in the target timezone. For all-day events
	// it is midnight of the event's date.
	Start time.Time

	// End is the event end in the target timezone; the zero value means
	// the source provided no end.
	End time.Time

	AllDay bool

	// Calendar is the display name of the contributing calendar.
	Calendar string
}

// HasEnd reports whether the source provided an end time.
func (e Event) HasEnd() bool {
	return !e.End.IsZero()
}

// EffectiveEnd is the end time if present, otherwise the start time. It
// decides whether a timed event has already happened.
func (e Event) EffectiveEnd() time.Time {
	if e.HasEnd() {
		return e.End
	}
	return e.Start
}

// DaySection pairs one calendar date with a display label ("Today",
// "Tomorrow", ...) and that day's ordered event list. It is built once per
// render pass and discarded afterwards.
type DaySection struct {
	Date   time.Time
	Label  string
	Events []Event
}
