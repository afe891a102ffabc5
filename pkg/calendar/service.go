package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caldesk/caldesk/internal/event_bus"
	"github.com/caldesk/caldesk/internal/utils"
	"github.com/caldesk/caldesk/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TimeWindow is an inclusive [From, To] instant pair used to filter events.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// EventDraft carries the caller-supplied fields for a new event. Owner,
// identifiers, and timestamps are assigned by the service.
type EventDraft struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	AllDay      bool
	Color       string
	Recurrence  *Recurrence
}

// Service is the only write path into the event store. It resolves the
// caller's identity from the context and enforces ownership, temporal
// validity, and soft-delete visibility.
type Service struct {
	repo  Repository
	clock utils.Clock
	bus   *event_bus.EventBus
}

func NewService(repo Repository, clock utils.Clock, bus *event_bus.EventBus) *Service {
	return &Service{
		repo:  repo,
		clock: clock,
		bus:   bus,
	}
}

func (s *Service) CreateEvent(ctx context.Context, draft EventDraft) (*Event, error) {
	ownerId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	color := draft.Color
	if color == "" {
		color = DefaultColor
	}
	now := s.clock.Now().UTC()
	event := Event{
		OwnerID:     ownerId,
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		StartTime:   draft.StartTime.UTC(),
		EndTime:     draft.EndTime.UTC(),
		AllDay:      draft.AllDay,
		Color:       color,
		IsActive:    true,
		CreatedBy:   ownerId,
		Recurrence:  draft.Recurrence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.repo.StoreEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to store event: %w", err)
	}
	s.notify(ctx, event_bus.CalendarEventCreated, stored)
	return &stored, nil
}

// ListEvents returns the caller's active events intersecting the window, or
// all active events when window is nil, ordered by start time ascending.
func (s *Service) ListEvents(ctx context.Context, window *TimeWindow) ([]Event, error) {
	ownerId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	if window != nil {
		return s.repo.GetEvents(ctx, ownerId, window.From, window.To)
	}
	return s.repo.GetAllEvents(ctx, ownerId, true)
}

func (s *Service) UpdateEvent(ctx context.Context, eventId string, patch EventPatch) (*Event, error) {
	ownerId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	uid, err := parseEventId(eventId)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateEvent(ctx, uid, func(current Event) (Event, error) {
		if !current.BelongsTo(ownerId) || !current.IsActive {
			// Not-owned and soft-deleted look exactly like missing.
			return Event{}, ErrEventNotFound
		}
		next := patch.Apply(current)
		if err := next.Validate(); err != nil {
			return Event{}, err
		}
		next.UpdatedBy = ownerId
		next.UpdatedAt = s.clock.Now().UTC()
		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	s.notify(ctx, event_bus.CalendarEventUpdated, updated)
	return &updated, nil
}

func (s *Service) DeleteEvent(ctx context.Context, eventId string) error {
	ownerId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	uid, err := parseEventId(eventId)
	if err != nil {
		return err
	}

	deleted, err := s.repo.UpdateEvent(ctx, uid, func(current Event) (Event, error) {
		if !current.BelongsTo(ownerId) || !current.IsActive {
			return Event{}, ErrEventNotFound
		}
		current.IsActive = false
		current.UpdatedBy = ownerId
		current.UpdatedAt = s.clock.Now().UTC()
		return current, nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	s.notify(ctx, event_bus.CalendarEventDeleted, deleted)
	return nil
}

func (s *Service) notify(ctx context.Context, eventType event_bus.EventType, event Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, eventType, event)); err != nil {
		// Subscriber failures must not fail the mutation that triggered them.
		log.Warnf("failed to publish %s notification: %v", eventType, err)
	}
}

func parseEventId(eventId string) (uuid.UUID, error) {
	uid, err := uuid.Parse(eventId)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidEventID, eventId)
	}
	return uid, nil
}
