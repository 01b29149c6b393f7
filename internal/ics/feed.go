package ics

import (
	"context"
	"time"

	"agendamail/internal/agenda"
	appLog "agendamail/internal/log"
)

// Feed is one ICS subscription source. It implements the pipeline's
// Source contract: fetch, parse, expand recurrences, and emit raw entries
// overlapping the requested window.
type Feed struct {
	name    string
	url     string
	fetcher *Fetcher
}

// NewFeed creates a feed source. name is the calendar display name shown
// in rendered output.
func NewFeed(name, url string, fetcher *Fetcher) *Feed {
	if name == "" {
		name = url
	}
	return &Feed{name: name, url: url, fetcher: fetcher}
}

func (f *Feed) Name() string { return f.name }

// Entries returns the feed's raw entries overlapping [start, end). The
// window's location is the target display timezone.
func (f *Feed) Entries(ctx context.Context, start, end time.Time) ([]agenda.RawEntry, error) {
	body, err := f.fetcher.Fetch(ctx, f.url)
	if err != nil {
		return nil, err
	}

	events, err := parseFeed(body)
	if err != nil {
		return nil, err
	}

	loc := start.Location()
	var out []agenda.RawEntry

	for _, ev := range events {
		if ev.rrule == "" {
			if !ev.overlaps(start, end, loc) {
				continue
			}
			out = append(out, ev.rawEntry(f.name))
			continue
		}

		occs, err := Occurrences(RecurringEvent{
			Start:   ev.start,
			End:     ev.end,
			AllDay:  ev.allDay,
			Rule:    ev.rrule,
			ExDates: ev.exDates,
		}, start, end)
		if err != nil {
			appLog.Warn("skipping unexpandable recurring event",
				"calendar", f.name, "summary", ev.summary, "reason", err)
			continue
		}
		for _, occ := range occs {
			out = append(out, occurrenceEntry(ev, occ, f.name))
		}
	}

	return out, nil
}

// overlaps reports whether a non-recurring event intersects [start, end).
// All-day events are compared by their raw date read in the display zone,
// matching how the normalizer will resolve them.
func (ev feedEvent) overlaps(start, end time.Time, loc *time.Location) bool {
	if ev.allDay {
		date, err := time.ParseInLocation("20060102", ev.startVal, loc)
		if err != nil {
			return false
		}
		dayEnd := date.AddDate(0, 0, 1)
		if !ev.end.IsZero() && ev.end.Sub(ev.start) > 24*time.Hour {
			days := int(ev.end.Sub(ev.start).Hours() / 24)
			dayEnd = date.AddDate(0, 0, days)
		}
		return date.Before(end) && dayEnd.After(start)
	}

	if !ev.start.Before(end) {
		return false
	}
	eff := ev.end
	if eff.IsZero() {
		eff = ev.start
	}
	// An event with positive duration that ends exactly at the window
	// start belongs to the previous day; a zero-duration reminder at the
	// boundary still shows.
	if eff.After(ev.start) {
		return eff.After(start)
	}
	return !eff.Before(start)
}

// rawEntry passes the event's raw iCalendar values through untouched; the
// normalizer owns timezone resolution.
func (ev feedEvent) rawEntry(calendar string) agenda.RawEntry {
	return agenda.RawEntry{
		Summary:     ev.summary,
		Location:    ev.location,
		Description: ev.description,
		Start:       ev.startVal,
		End:         ev.endVal,
		StartTZ:     ev.startTZ,
		EndTZ:       ev.endTZ,
		Calendar:    calendar,
	}
}

// occurrenceEntry converts one expanded instance into a raw entry. The
// instance times are concrete instants, so they are written as UTC values
// (dates for all-day instances).
func occurrenceEntry(ev feedEvent, occ Occurrence, calendar string) agenda.RawEntry {
	entry := agenda.RawEntry{
		Summary:     ev.summary,
		Location:    ev.location,
		Description: ev.description,
		Start:       EntryTime(occ.Start, ev.allDay),
		Calendar:    calendar,
	}
	if !ev.allDay && !occ.End.IsZero() {
		entry.End = EntryTime(occ.End, false)
	}
	return entry
}

// EntryTime formats a resolved instant as an iCalendar value for a
// RawEntry: a bare date for all-day events, a UTC DATE-TIME otherwise.
func EntryTime(t time.Time, allDay bool) string {
	if allDay {
		return t.Format("20060102")
	}
	return t.In(time.UTC).Format("20060102T150405Z")
}
