package stats

import (
	"context"
	"fmt"

	"github.com/caldesk/caldesk/internal/utils"
	"github.com/caldesk/caldesk/pkg/calendar"
)

// EventLister provides the caller's active events. Satisfied by
// calendar.Service.
type EventLister interface {
	ListEvents(ctx context.Context, window *calendar.TimeWindow) ([]calendar.Event, error)
}

type StatsService interface {
	GetStats(ctx context.Context) (Snapshot, error)
}

type StatsServiceImpl struct {
	events EventLister
	clock  utils.Clock
}

func NewStatsServiceImpl(events EventLister, clock utils.Clock) *StatsServiceImpl {
	return &StatsServiceImpl{
		events: events,
		clock:  clock,
	}
}

// GetStats folds the caller's active events into the four counters in a
// single pass. An owner with no active events gets an all-zero snapshot.
func (s *StatsServiceImpl) GetStats(ctx context.Context) (Snapshot, error) {
	events, err := s.events.ListEvents(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list events: %w", err)
	}

	now := s.clock.Now()
	var snapshot Snapshot
	for _, event := range events {
		snapshot.TotalEvents++
		if !event.StartTime.Before(now) {
			snapshot.UpcomingEvents++
		}
		if event.EndTime.Before(now) {
			snapshot.PastEvents++
		}
		if event.AllDay {
			snapshot.AllDayEvents++
		}
	}
	return snapshot, nil
}
