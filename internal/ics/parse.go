package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// feedEvent is one VEVENT from a subscription feed. It keeps both the raw
// iCalendar temporal values (passed through to the normalizer untouched)
// and parsed times (needed for windowing and recurrence expansion).
type feedEvent struct {
	summary     string
	location    string
	description string

	startVal string
	endVal   string
	startTZ  string
	endTZ    string
	allDay   bool

	start time.Time
	end   time.Time

	rrule   string
	exDates []time.Time
}

// parseFeed parses a single ICS payload. Individual VEVENTs that cannot
// be parsed are dropped; the error return covers an unusable payload.
func parseFeed(body []byte) ([]feedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]feedEvent, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, ok := parseVEvent(ve)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (feedEvent, bool) {
	var ev feedEvent

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return ev, false
	}
	ev.startVal = dtStart.Value
	ev.startTZ = tzidParam(dtStart.ICalParameters)

	// All-day: VALUE=DATE or a value with no time-of-day component.
	if params := dtStart.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			ev.allDay = true
		}
	}
	if !strings.Contains(dtStart.Value, "T") {
		ev.allDay = true
	}

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		ev.endVal = dtEnd.Value
		ev.endTZ = tzidParam(dtEnd.ICalParameters)
	}

	// Parsed times back recurrence expansion and window checks; the
	// library resolves VTIMEZONE/TZID references for us.
	ev.start, _ = ve.GetStartAt()
	ev.end, _ = ve.GetEndAt()

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.rrule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := ParseTimeValue(part, ev.start.Location()); err == nil {
				ev.exDates = append(ev.exDates, t)
			}
		}
	}

	return ev, true
}

func tzidParam(params map[string][]string) string {
	if params == nil {
		return ""
	}
	if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
		return tzs[0]
	}
	return ""
}

// ParseTimeValue parses a bare ICS DATE / DATE-TIME value, used for
// EXDATE entries where full parameter context is not carried around.
// Floating values are interpreted in loc, so exclusion matching stays in
// the event's own zone rather than the process timezone.
func ParseTimeValue(v string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
