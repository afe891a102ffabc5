package app

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Calendar events
	r.HandleFunc("/api/calendar/events", deps.CalendarHandler.GetEvents).Methods("GET")
	r.HandleFunc("/api/calendar/events", deps.CalendarHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/calendar/events/{eventId}", deps.CalendarHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/calendar/events/{eventId}", deps.CalendarHandler.DeleteEvent).Methods("DELETE")

	// Stats and feed
	r.HandleFunc("/api/calendar/stats", deps.StatsHandler.GetStats).Methods("GET")
	r.HandleFunc("/api/calendar/feed.ics", deps.CalendarHandler.GetFeed).Methods("GET")

	// User management
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")

	// Observability
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
}
