// Package caldav retrieves raw calendar entries from a CalDAV account and
// exposes each account calendar as a pipeline source.
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	cdav "github.com/emersion/go-webdav/caldav"

	"agendamail/internal/agenda"
	"agendamail/internal/ics"
	appLog "agendamail/internal/log"
	"agendamail/internal/pipeline"
)

// Client wraps a CalDAV account endpoint.
type Client struct {
	dav *cdav.Client
}

// NewClient connects to serverURL with HTTP basic auth when credentials
// are given.
func NewClient(serverURL, username, password string) (*Client, error) {
	var httpClient webdav.HTTPClient = http.DefaultClient
	if username != "" && password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, username, password)
	}

	c, err := cdav.NewClient(httpClient, serverURL)
	if err != nil {
		return nil, fmt.Errorf("caldav: create client: %w", err)
	}
	return &Client{dav: c}, nil
}

// Sources lists the account's calendars as pipeline sources. names, when
// non-empty, filters calendars by display name (case-insensitive).
func (c *Client) Sources(ctx context.Context, names []string) ([]pipeline.Source, error) {
	cals, err := c.dav.FindCalendars(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("caldav: find calendars: %w", err)
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			wanted[strings.ToLower(n)] = true
		}
	}

	sources := make([]pipeline.Source, 0, len(cals))
	for _, cal := range cals {
		if len(wanted) > 0 && !wanted[strings.ToLower(cal.Name)] {
			continue
		}
		name := cal.Name
		if name == "" {
			name = agenda.DefaultCalendarName
		}
		sources = append(sources, &calendarSource{dav: c.dav, path: cal.Path, name: name})
	}

	appLog.Info("caldav calendars resolved", "available", len(cals), "selected", len(sources))
	return sources, nil
}

// DetectTimezone inspects the account's calendar data for a usable
// timezone identifier: the TZID of a published VTIMEZONE, validated
// against the zone database. Returns fallback when nothing validates.
func (c *Client) DetectTimezone(ctx context.Context, fallback string) string {
	cals, err := c.dav.FindCalendars(ctx, "")
	if err != nil {
		appLog.Warn("timezone detection: find calendars failed", "reason", err)
		return fallback
	}

	// A narrow query around now is enough to surface VTIMEZONE data.
	now := time.Now().UTC()
	query := eventQuery(now.AddDate(0, 0, -7), now.AddDate(0, 0, 7))

	for _, cal := range cals {
		objs, err := c.dav.QueryCalendar(ctx, cal.Path, query)
		if err != nil {
			continue
		}
		for _, obj := range objs {
			for _, comp := range obj.Data.Component.Children {
				if comp.Name != "VTIMEZONE" {
					continue
				}
				prop := comp.Props.Get("TZID")
				if prop == nil || prop.Value == "" {
					continue
				}
				tzid := strings.TrimSpace(prop.Value)
				if _, err := time.LoadLocation(tzid); err == nil {
					appLog.Info("detected calendar timezone", "timezone", tzid, "calendar", cal.Name)
					return tzid
				}
			}
		}
	}

	appLog.Warn("no usable calendar timezone found; using fallback", "fallback", fallback)
	return fallback
}

// calendarSource is one account calendar acting as a pipeline source.
type calendarSource struct {
	dav  *cdav.Client
	path string
	name string
}

func (s *calendarSource) Name() string { return s.name }

// Entries queries the calendar for objects overlapping [start, end) and
// flattens their VEVENTs into raw entries. Recurring events are expanded
// client-side into the window.
func (s *calendarSource) Entries(ctx context.Context, start, end time.Time) ([]agenda.RawEntry, error) {
	objs, err := s.dav.QueryCalendar(ctx, s.path, eventQuery(start.UTC(), end.UTC()))
	if err != nil {
		return nil, fmt.Errorf("caldav: query %q: %w", s.name, err)
	}

	var out []agenda.RawEntry
	for _, obj := range objs {
		if obj.Data == nil {
			continue
		}
		for _, comp := range obj.Data.Component.Children {
			if comp.Name != "VEVENT" {
				continue
			}
			out = append(out, s.componentEntries(comp, start, end)...)
		}
	}
	return out, nil
}

func eventQuery(start, end time.Time) *cdav.CalendarQuery {
	return &cdav.CalendarQuery{
		CompFilter: cdav.CompFilter{
			Name: "VCALENDAR",
			Comps: []cdav.CompFilter{{
				Name:  "VEVENT",
				Start: start,
				End:   end,
			}},
		},
	}
}

// componentEntries converts one VEVENT into raw entries. Non-recurring
// events pass their DATE / DATE-TIME values through untouched so that
// timezone resolution happens in the normalizer and nowhere else.
func (s *calendarSource) componentEntries(comp *ical.Component, start, end time.Time) []agenda.RawEntry {
	dtStart := comp.Props.Get("DTSTART")
	if dtStart == nil || dtStart.Value == "" {
		// Still emitted: the collator owns malformed-entry accounting.
		return []agenda.RawEntry{{
			Summary:     propValue(comp, "SUMMARY"),
			Location:    propValue(comp, "LOCATION"),
			Description: propValue(comp, "DESCRIPTION"),
			Calendar:    s.name,
		}}
	}

	allDay := !strings.Contains(dtStart.Value, "T") ||
		strings.EqualFold(dtStart.Params.Get("VALUE"), "DATE")

	rrule := propValue(comp, "RRULE")
	if rrule == "" {
		entry := agenda.RawEntry{
			Summary:     propValue(comp, "SUMMARY"),
			Location:    propValue(comp, "LOCATION"),
			Description: propValue(comp, "DESCRIPTION"),
			Start:       dtStart.Value,
			StartTZ:     dtStart.Params.Get("TZID"),
			Calendar:    s.name,
		}
		if dtEnd := comp.Props.Get("DTEND"); dtEnd != nil {
			entry.End = dtEnd.Value
			entry.EndTZ = dtEnd.Params.Get("TZID")
		}
		return []agenda.RawEntry{entry}
	}

	return s.expandedEntries(comp, allDay, rrule, start, end)
}

// expandedEntries expands a recurring VEVENT into concrete instances
// within the window.
func (s *calendarSource) expandedEntries(comp *ical.Component, allDay bool, rrule string, start, end time.Time) []agenda.RawEntry {
	baseStart, err := comp.Props.DateTime("DTSTART", start.Location())
	if err != nil {
		appLog.Warn("skipping recurring event with unparseable start",
			"calendar", s.name, "summary", propValue(comp, "SUMMARY"), "reason", err)
		return nil
	}
	baseEnd, _ := comp.Props.DateTime("DTEND", start.Location())

	var exDates []time.Time
	for _, p := range comp.Props.Values("EXDATE") {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := ics.ParseTimeValue(part, baseStart.Location()); err == nil {
				exDates = append(exDates, t)
			}
		}
	}

	occs, err := ics.Occurrences(ics.RecurringEvent{
		Start:   baseStart,
		End:     baseEnd,
		AllDay:  allDay,
		Rule:    rrule,
		ExDates: exDates,
	}, start, end)
	if err != nil {
		appLog.Warn("skipping unexpandable recurring event",
			"calendar", s.name, "summary", propValue(comp, "SUMMARY"), "reason", err)
		return nil
	}

	summary := propValue(comp, "SUMMARY")
	location := propValue(comp, "LOCATION")
	description := propValue(comp, "DESCRIPTION")

	entries := make([]agenda.RawEntry, 0, len(occs))
	for _, occ := range occs {
		entry := agenda.RawEntry{
			Summary:     summary,
			Location:    location,
			Description: description,
			Start:       ics.EntryTime(occ.Start, allDay),
			Calendar:    s.name,
		}
		if !allDay && !occ.End.IsZero() {
			entry.End = ics.EntryTime(occ.End, false)
		}
		entries = append(entries, entry)
	}
	return entries
}

func propValue(comp *ical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	return prop.Value
}
