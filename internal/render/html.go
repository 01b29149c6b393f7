package render

import (
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"

	"agendamail/internal/agenda"
)

// htmlDescriptionLimit caps rendered description length in the HTML body.
const htmlDescriptionLimit = 200

// Context carries the non-event inputs of a render pass.
type Context struct {
	// Timezone is the IANA identifier shown in the footer.
	Timezone string
	// DisplayName, when non-empty, personalizes the greeting.
	DisplayName string
	// Calendars is the set of calendar names that contributed events (or
	// the full configured set when none did).
	Calendars []string
}

// HTML renders the day sections into a self-contained email document.
// Output is a pure function of the inputs: identical sections and context
// produce byte-identical documents.
func HTML(days []agenda.DaySection, rc Context) string {
	greeting := "Here"
	if rc.DisplayName != "" {
		greeting = html.EscapeString(rc.DisplayName) + ", here"
	}

	var b strings.Builder

	b.WriteString(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="margin: 0; padding: 0; background: #ffffff; font-family: Google Sans, Roboto, -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; color: #202124;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="max-width: 680px; margin: 0 auto; padding: 0 16px;">

    <!-- Header -->
    <tr>
      <td style="padding: 32px 0 0 0;">
        <div style="font-size: 28px; color: #202124; font-weight: 400; letter-spacing: -0.5px;">
          📅 <span style="color: #4285f4;">Daily</span> <span style="color: #202124;">Agenda</span>
        </div>
      </td>
    </tr>
    <tr>
      <td style="padding: 4px 0 0 0;">
        <div style="font-size: 14px; color: #5f6368;">
          ` + greeting + ` is your schedule:
        </div>
      </td>
    </tr>
`)

	for _, day := range days {
		writeDaySection(&b, day)
	}

	b.WriteString(`
    <!-- Footer -->
    <tr>
      <td style="padding: 32px 0 16px 0; border-top: 1px solid #e8eaed;">
        <div style="font-size: 12px; color: #9aa0a6; line-height: 1.6;">
          You are receiving this email at ` + html.EscapeString(rc.Timezone) + ` time because you are subscribed to daily agendas
          for the following calendars: ` + calendarList(rc.Calendars) + `.<br><br>
          Sent by agendamail · Powered by CalDAV
        </div>
      </td>
    </tr>

  </table>
</body>
</html>`)

	return b.String()
}

// calendarList joins the sorted, de-duplicated calendar names, each
// HTML-escaped.
func calendarList(names []string) string {
	seen := make(map[string]bool, len(names))
	uniq := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			uniq = append(uniq, n)
		}
	}
	sort.Strings(uniq)
	for i, n := range uniq {
		uniq[i] = html.EscapeString(n)
	}
	return strings.Join(uniq, ", ")
}

func writeDaySection(b *strings.Builder, day agenda.DaySection) {
	fmt.Fprintf(b, `
    <!-- %s -->
    <tr>
      <td style="padding: 28px 0 0 0;">
        <div style="font-size: 12px; color: #9aa0a6; text-transform: uppercase; letter-spacing: 0.08em; font-weight: 600;">
          %s
        </div>
      </td>
    </tr>
    <tr>
      <td style="padding: 2px 0 16px 0;">
        <div style="font-size: 22px; color: #202124; font-weight: 500;">
          %s
        </div>
      </td>
    </tr>
    <tr>
      <td>
        <table role="presentation" width="100%%" cellpadding="0" cellspacing="0" style="border-top: 1px solid #e8eaed;">
`,
		html.EscapeString(day.Label),
		html.EscapeString(day.Label),
		html.EscapeString(LongDate(day.Date)),
	)

	if len(day.Events) == 0 {
		b.WriteString(`        <tr>
          <td colspan="4" style="padding: 24px 16px; text-align: center; color: #5f6368; font-size: 14px; font-style: italic;">
            Nothing scheduled — enjoy your free day! 🎉
          </td>
        </tr>
`)
	} else {
		for _, ev := range day.Events {
			writeEventRow(b, ev, day)
		}
	}

	b.WriteString(`        </table>
      </td>
    </tr>
`)
}

// writeEventRow renders a single event as a table row: time cell(s), a
// colored indicator bar, then the detail cell.
func writeEventRow(b *strings.Builder, ev agenda.Event, day agenda.DaySection) {
	b.WriteString(`        <tr style="border-bottom: 1px solid #e8eaed;">
`)

	// Time column. All-day events get a fixed label plus the short date;
	// timed events get "start –<br>end" or just the start.
	if ev.AllDay {
		fmt.Fprintf(b, `          <td style="padding: 14px 12px 14px 0; vertical-align: top; white-space: nowrap; color: #5f6368; font-size: 14px; width: 110px;">
            All day
          </td>
          <td style="padding: 14px 12px; vertical-align: top; white-space: nowrap; color: #5f6368; font-size: 14px; width: 100px;">
            %s
          </td>
`, html.EscapeString(ShortDate(day.Date)))
	} else {
		timeHTML := html.EscapeString(Clock(ev.Start))
		if ev.HasEnd() {
			timeHTML += " –<br>" + html.EscapeString(Clock(ev.End))
		}
		fmt.Fprintf(b, `          <td colspan="2" style="padding: 14px 12px 14px 0; vertical-align: top; white-space: nowrap; color: #5f6368; font-size: 14px; width: 210px;">
            %s
          </td>
`, timeHTML)
	}

	// Color bar: the two-way distinction by all-day vs timed is part of
	// the row contract.
	barColor := "#4285f4"
	summaryColor := "#1a73e8"
	if ev.AllDay {
		barColor = "#34a853"
		summaryColor = "#188038"
	}
	fmt.Fprintf(b, `          <td style="padding: 0; width: 4px; vertical-align: top;">
            <div style="width: 4px; background: %s; border-radius: 2px; min-height: 40px; height: 100%%;"></div>
          </td>
`, barColor)

	// Detail column.
	b.WriteString(`          <td style="padding: 14px 0 14px 12px; vertical-align: top;">
`)
	fmt.Fprintf(b, `            <div style="font-size: 14px; color: %s; font-weight: 500;">%s</div>
`, summaryColor, html.EscapeString(ev.Summary))

	if ev.Location != "" {
		// The link target is URL-escaped; the visible text is HTML-escaped.
		mapsURL := "https://maps.google.com/?q=" + url.QueryEscape(ev.Location)
		fmt.Fprintf(b, `            <div style="font-size: 13px; color: #5f6368; margin-top: 3px;">📍 <a href="%s" style="color: #5f6368; text-decoration: none;">%s</a></div>
`, mapsURL, html.EscapeString(ev.Location))
	}

	if ev.Description != "" {
		desc := descriptionText(ev.Description, htmlDescriptionLimit)
		descHTML := strings.ReplaceAll(html.EscapeString(desc), "\n", "<br>")
		fmt.Fprintf(b, `            <div style="font-size: 12px; color: #80868b; margin-top: 4px; line-height: 1.4;">%s</div>
`, descHTML)
	}

	fmt.Fprintf(b, `            <div style="font-size: 11px; color: #9aa0a6; margin-top: 4px;">%s</div>
`, html.EscapeString(ev.Calendar))

	b.WriteString(`          </td>
        </tr>
`)
}
