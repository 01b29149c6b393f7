package pipeline

import (
	"context"
	"time"

	"agendamail/internal/agenda"
	appLog "agendamail/internal/log"
	"agendamail/internal/render"
)

// Source is one retrieval collaborator: a single calendar that can be
// asked for raw entries in a half-open time window. A Source may fail;
// the driver treats a failed source as contributing nothing for the run.
type Source interface {
	// Name is the calendar display name used in rendered output.
	Name() string
	// Entries returns the raw entries overlapping [start, end).
	Entries(ctx context.Context, start, end time.Time) ([]agenda.RawEntry, error)
}

// Driver orchestrates one full run: retrieve, collate, filter, build day
// sections, render both bodies.
type Driver struct {
	Sources []Source

	// Zone is the resolved target timezone; ZoneName its identifier.
	Zone     *time.Location
	ZoneName string

	// DisplayName, when non-empty, personalizes the greeting.
	DisplayName string

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

// Agenda is the product of one run: both rendered bodies plus the data
// they were built from.
type Agenda struct {
	Subject string
	HTML    string
	Text    string

	Days       []agenda.DaySection
	EventCount int
}

// Build assembles the agenda for the given target date and the day after.
// A zero override means "today" in the target timezone.
//
// Per-source retrieval failures are logged and that source contributes no
// entries; the agenda is always produced from whatever data is available.
func (d *Driver) Build(ctx context.Context, override time.Time) Agenda {
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	now = now.In(d.Zone)

	today := override
	if today.IsZero() {
		today = now
	}
	today = midnight(today, d.Zone)
	tomorrow := today.AddDate(0, 0, 1)

	todayEvents := d.collateDay(ctx, today)
	tomorrowEvents := d.collateDay(ctx, tomorrow)

	// Drop today's already-ended timed events. Tomorrow is never filtered.
	todayEvents = agenda.FilterUnfinished(todayEvents, now)

	appLog.Info("agenda assembled",
		"date", today.Format("2006-01-02"),
		"today_events", len(todayEvents),
		"tomorrow_events", len(tomorrowEvents),
		"timezone", d.ZoneName,
	)

	days := []agenda.DaySection{
		{Date: today, Label: "Today", Events: todayEvents},
		{Date: tomorrow, Label: "Tomorrow", Events: tomorrowEvents},
	}

	rc := render.Context{
		Timezone:    d.ZoneName,
		DisplayName: d.DisplayName,
		Calendars:   d.calendarsUsed(days),
	}

	return Agenda{
		Subject:    "📅 Agenda for " + today.Format("Monday 2 Jan 2006"),
		HTML:       render.HTML(days, rc),
		Text:       render.Plaintext(days, d.ZoneName),
		Days:       days,
		EventCount: len(todayEvents) + len(tomorrowEvents),
	}
}

// collateDay gathers raw entries for one day from every source and returns
// the day's sorted events.
func (d *Driver) collateDay(ctx context.Context, day time.Time) []agenda.Event {
	dayEnd := day.AddDate(0, 0, 1)

	var raw []agenda.RawEntry
	for _, src := range d.Sources {
		entries, err := src.Entries(ctx, day, dayEnd)
		if err != nil {
			appLog.Warn("calendar source unavailable; contributing no entries",
				"calendar", src.Name(),
				"date", day.Format("2006-01-02"),
				"reason", err,
			)
			continue
		}
		raw = append(raw, entries...)
	}

	return agenda.Collate(raw, d.Zone)
}

// calendarsUsed returns the calendar names present in the rendered days,
// falling back to the full source list when no event contributed.
func (d *Driver) calendarsUsed(days []agenda.DaySection) []string {
	var names []string
	for _, day := range days {
		for _, ev := range day.Events {
			names = append(names, ev.Calendar)
		}
	}
	if len(names) > 0 {
		return names
	}
	for _, src := range d.Sources {
		if src.Name() != "" {
			names = append(names, src.Name())
		}
	}
	return names
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
