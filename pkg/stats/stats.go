package stats

// Snapshot holds per-user aggregate counters over active events, computed at
// query time. Upcoming and past are independent predicates, not a partition:
// an event spanning the current instant is counted in neither, an all-day
// past event is counted in both pastEvents and allDayEvents.
type Snapshot struct {
	TotalEvents    int `json:"totalEvents"`
	UpcomingEvents int `json:"upcomingEvents"`
	PastEvents     int `json:"pastEvents"`
	AllDayEvents   int `json:"allDayEvents"`
}
