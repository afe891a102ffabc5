package event_bus

// Calendar lifecycle notifications. The payload is the affected
// calendar.Event value.
const (
	CalendarEventCreated EventType = "calendar.event.created"
	CalendarEventUpdated EventType = "calendar.event.updated"
	CalendarEventDeleted EventType = "calendar.event.deleted"
)
