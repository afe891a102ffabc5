package calendar

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
)

const (
	// DefaultColor is assigned to events created without an explicit color.
	DefaultColor = "#1976d2"

	maxTitleLength       = 200
	maxDescriptionLength = 1000
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Frequency describes how often a recurring event repeats.
type Frequency string

const (
	FrequencyNone    Frequency = "none"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Recurrence is a stored repetition descriptor. It is persisted and rendered
// into the ICS feed as an RRULE, but never expanded into occurrences.
type Recurrence struct {
	Frequency Frequency
	Interval  int
	EndTime   *time.Time
	Count     *int
}

// Validate checks the descriptor fields without interpreting them.
func (r Recurrence) Validate() error {
	switch r.Frequency {
	case FrequencyNone, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
	default:
		return &ValidationError{Field: "recurrence.frequency", Reason: "must be one of none, daily, weekly, monthly, yearly"}
	}
	if r.Interval < 1 {
		return &ValidationError{Field: "recurrence.interval", Reason: "must be a positive integer"}
	}
	if r.Count != nil && *r.Count < 1 {
		return &ValidationError{Field: "recurrence.count", Reason: "must be a positive integer"}
	}
	return nil
}

// RRule converts the descriptor into an iCalendar recurrence rule. The rule
// carries no DTSTART; in the ICS feed the enclosing VEVENT provides it.
// Returns nil for a "none" frequency.
func (r Recurrence) RRule() (*rrule.RRule, error) {
	var freq rrule.Frequency
	switch r.Frequency {
	case FrequencyDaily:
		freq = rrule.DAILY
	case FrequencyWeekly:
		freq = rrule.WEEKLY
	case FrequencyMonthly:
		freq = rrule.MONTHLY
	case FrequencyYearly:
		freq = rrule.YEARLY
	default:
		return nil, nil
	}
	opt := rrule.ROption{
		Freq:     freq,
		Interval: r.Interval,
	}
	if r.EndTime != nil {
		opt.Until = *r.EndTime
	}
	if r.Count != nil {
		opt.Count = *r.Count
	}
	return rrule.NewRRule(opt)
}

// Event is a single calendar entry owned by one user.
type Event struct {
	UID         uuid.UUID
	OwnerID     string
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	AllDay      bool
	Color       string
	IsActive    bool
	CreatedBy   string
	UpdatedBy   string
	Recurrence  *Recurrence
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Version counts persisted writes to the row. The repository uses it to
	// guard read-modify-write cycles against concurrent lost updates.
	Version int64
}

// BelongsTo reports whether the event is owned by the given user.
// Ownership is fixed at creation and never transfers.
func (e Event) BelongsTo(ownerId string) bool {
	return e.OwnerID == ownerId
}

// DurationMinutes returns the event length rounded to whole minutes.
func (e Event) DurationMinutes() int {
	return int(math.Round(e.EndTime.Sub(e.StartTime).Minutes()))
}

// OverlapsWindow reports whether the event intersects the inclusive window
// [from, to]. An event matches when it starts in the window, ends in the
// window, or spans the whole window. Boundary-touching events are included.
func (e Event) OverlapsWindow(from, to time.Time) bool {
	startsIn := !e.StartTime.Before(from) && !e.StartTime.After(to)
	endsIn := !e.EndTime.Before(from) && !e.EndTime.After(to)
	spans := !e.StartTime.After(from) && !e.EndTime.Before(to)
	return startsIn || endsIn || spans
}

// Validate enforces the event invariants. The HTTP boundary runs its own
// request validation; this is the last line of defense before storage.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(e.Title) > maxTitleLength {
		return &ValidationError{Field: "title", Reason: "must not exceed 200 characters"}
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLength {
		return &ValidationError{Field: "description", Reason: "must not exceed 1000 characters"}
	}
	if !colorPattern.MatchString(e.Color) {
		return &ValidationError{Field: "color", Reason: "must be a hex color like #1976d2"}
	}
	if !e.EndTime.After(e.StartTime) {
		return &ValidationError{Field: "end", Reason: "end must be after start"}
	}
	if e.Recurrence != nil {
		return e.Recurrence.Validate()
	}
	return nil
}

// EventPatch is a partial update: nil fields keep the current value, non-nil
// fields replace it. A pointer to an empty string clears the description,
// which is distinct from leaving it unchanged.
type EventPatch struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	AllDay      *bool
	Color       *string
	Recurrence  *Recurrence
}

// Apply merges the patch into an event. Identity fields (UID, owner,
// createdBy, timestamps) are untouched.
func (p EventPatch) Apply(event Event) Event {
	if p.Title != nil {
		event.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		event.Description = strings.TrimSpace(*p.Description)
	}
	if p.StartTime != nil {
		event.StartTime = p.StartTime.UTC()
	}
	if p.EndTime != nil {
		event.EndTime = p.EndTime.UTC()
	}
	if p.AllDay != nil {
		event.AllDay = *p.AllDay
	}
	if p.Color != nil {
		event.Color = *p.Color
	}
	if p.Recurrence != nil {
		recurrence := *p.Recurrence
		event.Recurrence = &recurrence
	}
	return event
}
