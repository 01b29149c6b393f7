package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"
)

// maxOccurrences caps expansion of a single rule; a two-day agenda window
// should never get near it, but malformed rules can loop.
const maxOccurrences = 1000

// RecurringEvent is the recurrence-relevant slice of an event, shared by
// the feed and CalDAV sources.
type RecurringEvent struct {
	Start   time.Time
	End     time.Time // zero when the source provided no end
	AllDay  bool
	Rule    string // raw RRULE value
	ExDates []time.Time
}

// Occurrence is one concrete instance of a recurring event.
type Occurrence struct {
	Start time.Time
	End   time.Time // zero when the base event had no end
}

// Occurrences expands a recurring event into its concrete instances
// overlapping [windowStart, windowEnd). Instances keep the base event's
// duration; EXDATE exclusions are honored.
func Occurrences(ev RecurringEvent, windowStart, windowEnd time.Time) ([]Occurrence, error) {
	if ev.Rule == "" {
		return nil, errors.New("no recurrence rule")
	}
	if windowEnd.Before(windowStart) {
		return nil, errors.New("window end before window start")
	}

	r, err := rrule.StrToRRule(ev.Rule)
	if err != nil {
		return nil, err
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Between works in the event's own location.
	starts := set.Between(
		windowStart.In(ev.Start.Location()),
		windowEnd.In(ev.Start.Location()),
		true,
	)
	if len(starts) > maxOccurrences {
		starts = starts[:maxOccurrences]
	}

	var dur time.Duration
	if !ev.End.IsZero() {
		dur = ev.End.Sub(ev.Start)
	}

	occs := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		// Between is inclusive at both bounds; the window is half-open.
		if !start.Before(windowEnd) {
			continue
		}
		if ev.AllDay {
			// All-day instances are bare dates in the event's own zone.
			date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
			occs = append(occs, Occurrence{Start: date})
			continue
		}
		occ := Occurrence{Start: start}
		if dur > 0 {
			occ.End = start.Add(dur)
		}
		occs = append(occs, occ)
	}
	return occs, nil
}
