package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caldesk_calendar_events_created_total",
		Help: "Total number of calendar events created.",
	})

	EventsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caldesk_calendar_events_updated_total",
		Help: "Total number of calendar events updated.",
	})

	EventsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caldesk_calendar_events_deleted_total",
		Help: "Total number of calendar events soft-deleted.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caldesk_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds, labelled by method and route.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"method", "route"})
)
