package calendar

import (
	"fmt"

	ics "github.com/arran4/golang-ical"
)

// RenderFeed serializes events into an iCalendar document. A stored
// recurrence descriptor becomes an RRULE line on its VEVENT; occurrences are
// never expanded here, that is left to the consuming calendar client.
func RenderFeed(events []Event) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//caldesk//calendar feed//EN")

	for _, event := range events {
		vevent := cal.AddEvent(event.UID.String())
		vevent.SetSummary(event.Title)
		if event.Description != "" {
			vevent.SetDescription(event.Description)
		}
		vevent.SetColor(event.Color)
		vevent.SetCreatedTime(event.CreatedAt)
		vevent.SetModifiedAt(event.UpdatedAt)
		vevent.SetDtStampTime(event.UpdatedAt)
		if event.AllDay {
			vevent.SetAllDayStartAt(event.StartTime)
			vevent.SetAllDayEndAt(event.EndTime)
		} else {
			vevent.SetStartAt(event.StartTime)
			vevent.SetEndAt(event.EndTime)
		}
		if event.Recurrence != nil {
			rule, err := event.Recurrence.RRule()
			if err != nil {
				return "", fmt.Errorf("could not build recurrence rule for event %s: %w", event.UID, err)
			}
			if rule != nil {
				vevent.AddRrule(rule.String())
			}
		}
	}

	return cal.Serialize(), nil
}
