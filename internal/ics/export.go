// Package ics renders contests as an iCalendar feed that any calendar app
// can subscribe to.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/user/contestcal/internal/contest"
)

const productID = "-//contestcal//Contest Calendar//EN"

// UID returns the stable iCalendar UID of a contest.
func UID(contestID string) string {
	return contestID + "@contestcal"
}

// Export renders contests as a VCALENDAR. Each contest gets one DISPLAY
// alarm per reminder offset. now is used for DTSTAMP.
func Export(contests []contest.Contest, reminders []int, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Programming contests")
	cal.SetXWRTimezone(contest.DisplayTimeZone)

	for _, c := range contests {
		event := cal.AddEvent(UID(c.ID))
		event.SetDtStampTime(now.UTC())
		event.SetStartAt(c.StartTime.UTC())
		event.SetEndAt(c.End().UTC())
		event.SetSummary(c.Summary())
		event.SetDescription(description(c))
		if c.URL != "" {
			event.SetURL(c.URL)
		}

		for _, m := range reminders {
			alarm := event.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-PT%dM", m))
			alarm.SetProperty(ical.ComponentPropertyDescription, c.Summary())
		}
	}

	return cal.Serialize()
}

func description(c contest.Contest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", c.Platform)
	fmt.Fprintf(&b, "Start: %s\n", contest.FormatIST(c.StartTime))
	fmt.Fprintf(&b, "Duration: %s", contest.FormatDuration(c.DurationSeconds))
	if c.URL != "" {
		fmt.Fprintf(&b, "\n%s", c.URL)
	}
	return b.String()
}
