package app

import (
	"database/sql"

	"github.com/caldesk/caldesk/internal/event_bus"
	"github.com/caldesk/caldesk/internal/metrics"
	"github.com/caldesk/caldesk/internal/utils"
	"github.com/caldesk/caldesk/pkg/calendar"
	"github.com/caldesk/caldesk/pkg/stats"
	"github.com/caldesk/caldesk/pkg/user"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Bus   *event_bus.EventBus
	Clock utils.Clock

	UserService user.Service
	UserHandler *user.Handler

	CalendarRepository *calendar.RepositoryImpl
	CalendarService    *calendar.Service
	CalendarHandler    *calendar.Handler

	StatsService stats.StatsService
	StatsHandler *stats.StatsHandler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB) *Dependencies {
	deps := &Dependencies{}

	deps.Bus = event_bus.NewEventBus()
	deps.Clock = utils.SystemClock{}

	deps.UserService = user.NewUserService(user.NewUserRepo(db), deps.Clock)
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.CalendarRepository = calendar.NewRepository(db)
	deps.CalendarService = calendar.NewService(deps.CalendarRepository, deps.Clock, deps.Bus)
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService)

	deps.StatsService = stats.NewStatsServiceImpl(deps.CalendarService, deps.Clock)
	deps.StatsHandler = stats.NewStatsHandler(deps.StatsService)

	registerSubscribers(deps.Bus)

	return deps
}

// registerSubscribers attaches the metrics and audit-log listeners to the
// calendar lifecycle notifications.
func registerSubscribers(bus *event_bus.EventBus) {
	bus.Subscribe(event_bus.CalendarEventCreated, func(e event_bus.Event) error {
		metrics.EventsCreated.Inc()
		logEvent("created", e)
		return nil
	})
	bus.Subscribe(event_bus.CalendarEventUpdated, func(e event_bus.Event) error {
		metrics.EventsUpdated.Inc()
		logEvent("updated", e)
		return nil
	})
	bus.Subscribe(event_bus.CalendarEventDeleted, func(e event_bus.Event) error {
		metrics.EventsDeleted.Inc()
		logEvent("deleted", e)
		return nil
	})
}

func logEvent(action string, e event_bus.Event) {
	event, ok := e.Data.(calendar.Event)
	if !ok {
		return
	}
	log.WithFields(log.Fields{
		"event": event.UID.String(),
		"owner": event.OwnerID,
	}).Infof("calendar event %s", action)
}
