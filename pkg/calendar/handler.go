package calendar

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/caldesk/caldesk/internal/rest"
	"github.com/caldesk/caldesk/pkg/user"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

// EventDTO is the external view of an event. Recurrence, the active flag,
// and the created/updated-by audit fields stay internal.
type EventDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay"`
	Color       string    `json:"color"`
	OwnerID     string    `json:"userId"`
	Duration    int       `json:"duration"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type RecurrenceDTO struct {
	Frequency string     `json:"frequency" validate:"required,oneof=none daily weekly monthly yearly"`
	Interval  int        `json:"interval" validate:"min=1"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Count     *int       `json:"count,omitempty" validate:"omitempty,min=1"`
}

type CreateEventRequest struct {
	Title       string         `json:"title" validate:"required,min=1,max=200"`
	Description string         `json:"description" validate:"max=1000"`
	Start       time.Time      `json:"start" validate:"required"`
	End         time.Time      `json:"end" validate:"required"`
	AllDay      bool           `json:"allDay"`
	Color       string         `json:"color" validate:"omitempty,len=7,hexcolor"`
	Recurrence  *RecurrenceDTO `json:"recurrence" validate:"omitempty"`
}

type UpdateEventRequest struct {
	Title       *string        `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string        `json:"description" validate:"omitempty,max=1000"`
	Start       *time.Time     `json:"start"`
	End         *time.Time     `json:"end"`
	AllDay      *bool          `json:"allDay"`
	Color       *string        `json:"color" validate:"omitempty,len=7,hexcolor"`
	Recurrence  *RecurrenceDTO `json:"recurrence" validate:"omitempty"`
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	window, ok := parseWindow(w, r)
	if !ok {
		return
	}

	events, err := h.service.ListEvents(r.Context(), window)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	created, err := h.service.CreateEvent(r.Context(), EventDraft{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.Start,
		EndTime:     req.End,
		AllDay:      req.AllDay,
		Color:       req.Color,
		Recurrence:  recurrenceFromDTO(req.Recurrence),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, eventToDTO(*created))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventId := mux.Vars(r)["eventId"]

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	updated, err := h.service.UpdateEvent(r.Context(), eventId, EventPatch{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.Start,
		EndTime:     req.End,
		AllDay:      req.AllDay,
		Color:       req.Color,
		Recurrence:  recurrenceFromDTO(req.Recurrence),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(*updated))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventId := mux.Vars(r)["eventId"]

	if err := h.service.DeleteEvent(r.Context(), eventId); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetFeed renders the caller's active events as an iCalendar feed.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListEvents(r.Context(), nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	feed, err := RenderFeed(events)
	if err != nil {
		rest.WriteError(w, http.StatusInternalServerError, "Failed to render calendar feed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(feed)); err != nil {
		log.Errorf("failed to write calendar feed: %v", err)
	}
}

// parseWindow reads the optional start/end query pair. Both must be present
// together; a lone or malformed bound is a client error.
func parseWindow(w http.ResponseWriter, r *http.Request) (*TimeWindow, bool) {
	startString := r.URL.Query().Get("start")
	endString := r.URL.Query().Get("end")
	if startString == "" && endString == "" {
		return nil, true
	}
	if startString == "" || endString == "" {
		rest.WriteError(w, http.StatusBadRequest, "Incomplete date range",
			"'start' and 'end' must be provided together")
		return nil, false
	}
	start, err := time.Parse(time.RFC3339, startString)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid start (date) format",
			"'start' must be in RFC3339 format")
		return nil, false
	}
	end, err := time.Parse(time.RFC3339, endString)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid end (date) format",
			"'end' must be in RFC3339 format")
		return nil, false
	}
	return &TimeWindow{From: start, To: end}, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		rest.WriteError(w, http.StatusBadRequest, "Validation failed", validationErr.Error())
	case errors.Is(err, ErrInvalidEventID):
		rest.WriteError(w, http.StatusBadRequest, "Invalid event ID format", "")
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Calendar event not found", "")
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Authentication required", "")
	default:
		log.Errorf("calendar request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func eventToDTO(e Event) EventDTO {
	return EventDTO{
		ID:          e.UID.String(),
		Title:       e.Title,
		Description: e.Description,
		Start:       e.StartTime,
		End:         e.EndTime,
		AllDay:      e.AllDay,
		Color:       e.Color,
		OwnerID:     e.OwnerID,
		Duration:    e.DurationMinutes(),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func recurrenceFromDTO(dto *RecurrenceDTO) *Recurrence {
	if dto == nil {
		return nil
	}
	interval := dto.Interval
	if interval == 0 {
		interval = 1
	}
	return &Recurrence{
		Frequency: Frequency(dto.Frequency),
		Interval:  interval,
		EndTime:   dto.EndDate,
		Count:     dto.Count,
	}
}
