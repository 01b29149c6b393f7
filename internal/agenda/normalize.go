package agenda

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedEntry marks a raw entry whose required temporal fields could
// not be parsed. Callers skip such entries; they never abort a batch.
var ErrMalformedEntry = errors.New("malformed calendar entry")

// Normalize converts one raw entry into a canonical Event in the target
// timezone.
//
// Timezone policy: a timed value without explicit timezone information
// (no UTC suffix, no TZID) is assumed to be in the target timezone. This
// is a deliberate rule, not a guess: entries from the same account are in
// the account's detected timezone unless stated otherwise. Values that do
// carry a timezone are converted into the target timezone. A TZID naming
// an unknown zone is treated the same as no timezone information.
func Normalize(raw RawEntry, loc *time.Location) (Event, error) {
	if loc == nil {
		loc = time.UTC
	}

	ev := Event{
		Summary:     strings.TrimSpace(raw.Summary),
		Location:    raw.Location,
		Description: raw.Description,
		Calendar:    raw.Calendar,
	}
	if ev.Summary == "" {
		ev.Summary = DefaultSummary
	}
	if ev.Calendar == "" {
		ev.Calendar = DefaultCalendarName
	}

	startVal := strings.TrimSpace(raw.Start)
	if startVal == "" {
		return Event{}, fmt.Errorf("%w: missing start time", ErrMalformedEntry)
	}

	// All-day iff the start value is a bare date (no time-of-day).
	ev.AllDay = !strings.Contains(startVal, "T")

	start, err := resolveTime(startVal, raw.StartTZ, loc)
	if err != nil {
		return Event{}, fmt.Errorf("%w: start %q: %v", ErrMalformedEntry, startVal, err)
	}
	ev.Start = start

	if endVal := strings.TrimSpace(raw.End); endVal != "" {
		end, err := resolveTime(endVal, raw.EndTZ, loc)
		if err != nil {
			return Event{}, fmt.Errorf("%w: end %q: %v", ErrMalformedEntry, endVal, err)
		}
		ev.End = end
	}

	return ev, nil
}

// resolveTime parses an iCalendar DATE or DATE-TIME value and resolves it
// into loc. tzid, when non-empty, names the zone the wall-clock value is
// expressed in.
func resolveTime(v, tzid string, loc *time.Location) (time.Time, error) {
	// UTC instant, e.g. 20260210T090000Z.
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(loc), nil
	}

	// Local date-time, e.g. 20260210T090000. The wall clock is read in the
	// TZID zone when one is given and loadable, else in the target zone.
	if strings.Contains(v, "T") {
		in := loc
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				in = tzLoc
			}
		}
		t, err := time.ParseInLocation("20060102T150405", v, in)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(loc), nil
	}

	// Date-only (all-day), e.g. 20260210. Kept as midnight in the target
	// zone; never converted across zones.
	return time.ParseInLocation("20060102", v, loc)
}
