package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendamail/internal/agenda"
)

func feedServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func entrySummaries(entries []agenda.RawEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Summary)
	}
	return out
}

func TestFeedEntries_WindowFiltering(t *testing.T) {
	body := calendarBody(
		"UID:in-1\n"+
			"SUMMARY:Standup\n"+
			"DTSTART:20260210T090000Z\n"+
			"DTEND:20260210T091500Z",
		"UID:out-1\n"+
			"SUMMARY:Later\n"+
			"DTSTART:20260301T090000Z",
		"UID:allday-1\n"+
			"SUMMARY:Holiday\n"+
			"DTSTART;VALUE=DATE:20260210",
	)
	srv := feedServer(t, body)

	feed := NewFeed("Subscriptions", srv.URL, NewFetcher(t.TempDir()))
	assert.Equal(t, "Subscriptions", feed.Name())

	start := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	entries, err := feed.Entries(context.Background(), start, start.AddDate(0, 0, 1))
	require.NoError(t, err)

	summaries := entrySummaries(entries)
	assert.Contains(t, summaries, "Standup")
	assert.Contains(t, summaries, "Holiday")
	assert.NotContains(t, summaries, "Later")

	for _, e := range entries {
		assert.Equal(t, "Subscriptions", e.Calendar)
		switch e.Summary {
		case "Standup":
			assert.Equal(t, "20260210T090000Z", e.Start)
			assert.Equal(t, "20260210T091500Z", e.End)
		case "Holiday":
			assert.Equal(t, "20260210", e.Start)
		}
	}
}

func TestFeedEntries_ExpandsRecurrences(t *testing.T) {
	body := calendarBody(
		"UID:rec-1\n" +
			"SUMMARY:Daily check\n" +
			"DTSTART:20260201T070000Z\n" +
			"DTEND:20260201T071500Z\n" +
			"RRULE:FREQ=DAILY",
	)
	srv := feedServer(t, body)

	feed := NewFeed("Subscriptions", srv.URL, NewFetcher(t.TempDir()))

	start := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	entries, err := feed.Entries(context.Background(), start, start.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "Daily check", entries[0].Summary)
	assert.Equal(t, "20260210T070000Z", entries[0].Start)
	assert.Equal(t, "20260210T071500Z", entries[0].End)
}

func TestFeedEntries_MidnightRecurrenceStaysInWindow(t *testing.T) {
	body := calendarBody(
		"UID:rec-midnight-1\n" +
			"SUMMARY:Night shift\n" +
			"DTSTART:20260209T000000Z\n" +
			"DTEND:20260209T003000Z\n" +
			"RRULE:FREQ=DAILY",
	)
	srv := feedServer(t, body)

	feed := NewFeed("Shifts", srv.URL, NewFetcher(t.TempDir()))

	start := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	entries, err := feed.Entries(context.Background(), start, start.AddDate(0, 0, 1))
	require.NoError(t, err)

	// One day, one instance. The next day's instance starts exactly at
	// the window end and must not leak in.
	require.Len(t, entries, 1)
	assert.Equal(t, "20260210T000000Z", entries[0].Start)
}

func TestFeedEvent_OverlapsWindowBoundary(t *testing.T) {
	start := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	// Yesterday 23:00–00:00 ends exactly at the window start: zero
	// overlap with the day, so it stays out.
	late := feedEvent{
		start: time.Date(2026, 2, 9, 23, 0, 0, 0, time.UTC),
		end:   start,
	}
	assert.False(t, late.overlaps(start, end, time.UTC))

	// A zero-duration reminder exactly at midnight belongs to the day.
	reminder := feedEvent{start: start}
	assert.True(t, reminder.overlaps(start, end, time.UTC))

	// Starting exactly at the window end belongs to the next day.
	next := feedEvent{start: end, end: end.Add(time.Hour)}
	assert.False(t, next.overlaps(start, end, time.UTC))
}

func TestFeedEntries_FetchErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	feed := NewFeed("Broken", srv.URL, NewFetcher(t.TempDir()))

	start := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	_, err := feed.Entries(context.Background(), start, start.AddDate(0, 0, 1))
	assert.Error(t, err)
}
