package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarBody(events ...string) []byte {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//test//EN",
	}
	for _, ev := range events {
		lines = append(lines, "BEGIN:VEVENT")
		lines = append(lines, strings.Split(ev, "\n")...)
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR", "")
	return []byte(strings.Join(lines, "\r\n"))
}

func TestParseFeed(t *testing.T) {
	body := calendarBody(
		"UID:timed-1\n"+
			"SUMMARY:Standup\n"+
			"LOCATION:Room 4\n"+
			"DESCRIPTION:share updates\n"+
			"DTSTART;TZID=Europe/Berlin:20260210T090000\n"+
			"DTEND;TZID=Europe/Berlin:20260210T093000",
		"UID:allday-1\n"+
			"SUMMARY:Holiday\n"+
			"DTSTART;VALUE=DATE:20260211",
		"UID:recurring-1\n"+
			"SUMMARY:Daily check\n"+
			"DTSTART:20260209T070000Z\n"+
			"DTEND:20260209T071500Z\n"+
			"RRULE:FREQ=DAILY\n"+
			"EXDATE:20260211T070000Z",
	)

	events, err := parseFeed(body)
	require.NoError(t, err)
	require.Len(t, events, 3)

	timed := events[0]
	assert.Equal(t, "Standup", timed.summary)
	assert.Equal(t, "Room 4", timed.location)
	assert.Equal(t, "share updates", timed.description)
	// Raw temporal values are passed through untouched.
	assert.Equal(t, "20260210T090000", timed.startVal)
	assert.Equal(t, "20260210T093000", timed.endVal)
	assert.Equal(t, "Europe/Berlin", timed.startTZ)
	assert.Equal(t, "Europe/Berlin", timed.endTZ)
	assert.False(t, timed.allDay)
	assert.False(t, timed.start.IsZero())

	allDay := events[1]
	assert.Equal(t, "Holiday", allDay.summary)
	assert.Equal(t, "20260211", allDay.startVal)
	assert.True(t, allDay.allDay)

	recurring := events[2]
	assert.Equal(t, "FREQ=DAILY", recurring.rrule)
	require.Len(t, recurring.exDates, 1)
	assert.Equal(t,
		time.Date(2026, 2, 11, 7, 0, 0, 0, time.UTC),
		recurring.exDates[0].UTC())
}

func TestParseFeed_SkipsEventWithoutStart(t *testing.T) {
	body := calendarBody(
		"UID:broken-1\nSUMMARY:No start",
		"UID:ok-1\nSUMMARY:Fine\nDTSTART:20260210T090000Z",
	)

	events, err := parseFeed(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Fine", events[0].summary)
}

func TestParseFeed_EmptyBody(t *testing.T) {
	_, err := parseFeed(nil)
	assert.Error(t, err)
}

func TestParseTimeValue(t *testing.T) {
	got, err := ParseTimeValue("20260210T091500Z", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 10, 9, 15, 0, 0, time.UTC), got)

	got, err = ParseTimeValue("20260210", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseTimeValue("not-a-time", time.UTC)
	assert.Error(t, err)
}

func TestParseTimeValue_FloatingUsesGivenLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	got, err := ParseTimeValue("20260210T070000", berlin)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 10, 7, 0, 0, 0, berlin), got)
	assert.Equal(t, berlin, got.Location())

	// A nil location falls back to UTC, never the process timezone.
	got, err = ParseTimeValue("20260210T070000", nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())
}
