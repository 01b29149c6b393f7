package render

import (
	"fmt"
	"strings"

	"agendamail/internal/agenda"
)

// textDescriptionLimit caps rendered description length in the plaintext
// fallback. Plaintext is truncated harder than HTML to keep the indented
// block scannable.
const textDescriptionLimit = 150

// Plaintext renders the day sections as a line-oriented fallback body. It
// mirrors the HTML renderer's field selection and ordering exactly; only
// the layout differs.
func Plaintext(days []agenda.DaySection, timezone string) string {
	var lines []string
	lines = append(lines, "Daily Agenda", strings.Repeat("=", 50), "")

	for _, day := range days {
		lines = append(lines,
			fmt.Sprintf("%s: %s", day.Label, LongDate(day.Date)),
			strings.Repeat("-", 40),
			"",
		)

		if len(day.Events) == 0 {
			lines = append(lines, "  Nothing scheduled. Enjoy your free day!")
		}

		for _, ev := range day.Events {
			if ev.AllDay {
				lines = append(lines, "  All day     "+ev.Summary)
			} else {
				timeRange := Clock(ev.Start)
				if ev.HasEnd() {
					timeRange += " – " + Clock(ev.End)
				}
				lines = append(lines, fmt.Sprintf("  %-22s %s", timeRange, ev.Summary))
			}

			const indent = "                          "
			if ev.Location != "" {
				lines = append(lines, indent+" 📍 "+ev.Location)
			}
			if ev.Description != "" {
				desc := descriptionText(ev.Description, textDescriptionLimit)
				desc = strings.ReplaceAll(desc, "\n", " ")
				lines = append(lines, indent+" "+desc)
			}
			lines = append(lines, indent+" ["+ev.Calendar+"]", "")
		}

		lines = append(lines, "")
	}

	lines = append(lines, "Timezone: "+timezone, "")
	return strings.Join(lines, "\n")
}
