package calendar

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/caldesk/caldesk/internal/event_bus"
	"github.com/caldesk/caldesk/internal/utils"
	"github.com/caldesk/caldesk/pkg/user"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*mux.Router, *RepositoryStub) {
	t.Helper()
	repo := NewRepositoryStub()
	clock := &utils.MockClock{FixedNow: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)}
	handler := NewHandler(NewService(repo, clock, event_bus.NewEventBus()))

	router := mux.NewRouter()
	router.HandleFunc("/api/calendar/events", handler.GetEvents).Methods("GET")
	router.HandleFunc("/api/calendar/events", handler.CreateEvent).Methods("POST")
	router.HandleFunc("/api/calendar/events/{eventId}", handler.UpdateEvent).Methods("PUT")
	router.HandleFunc("/api/calendar/events/{eventId}", handler.DeleteEvent).Methods("DELETE")
	router.HandleFunc("/api/calendar/feed.ics", handler.GetFeed).Methods("GET")
	return router, repo
}

func doRequest(t *testing.T, router *mux.Router, method, target, body string, asUser string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if asUser != "" {
		req = req.WithContext(user.WithUser(req.Context(), user.User{ID: asUser}))
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHandler_CreateEvent(t *testing.T) {
	t.Run("creates an event", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		body := `{
			"title": "Standup",
			"description": "daily sync",
			"start": "2024-01-10T09:00:00Z",
			"end": "2024-01-10T09:15:00Z"
		}`
		resp := doRequest(t, router, "POST", "/api/calendar/events", body, "user-1")
		require.Equal(t, http.StatusCreated, resp.Code)

		var dto EventDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &dto))
		assert.NotEmpty(t, dto.ID)
		assert.Equal(t, "Standup", dto.Title)
		assert.Equal(t, "daily sync", dto.Description)
		assert.Equal(t, "#1976d2", dto.Color)
		assert.Equal(t, "user-1", dto.OwnerID)
		assert.Equal(t, 15, dto.Duration)
		assert.False(t, dto.AllDay)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		resp := doRequest(t, router, "POST", "/api/calendar/events", "{not json", "user-1")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		body := `{"start": "2024-01-10T09:00:00Z", "end": "2024-01-10T09:15:00Z"}`
		resp := doRequest(t, router, "POST", "/api/calendar/events", body, "user-1")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("rejects end before start", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		body := `{"title": "x", "start": "2024-01-10T09:00:00Z", "end": "2024-01-10T08:00:00Z"}`
		resp := doRequest(t, router, "POST", "/api/calendar/events", body, "user-1")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("rejects bad color", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		body := `{"title": "x", "start": "2024-01-10T09:00:00Z", "end": "2024-01-10T10:00:00Z", "color": "red"}`
		resp := doRequest(t, router, "POST", "/api/calendar/events", body, "user-1")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("requires authentication", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		body := `{"title": "x", "start": "2024-01-10T09:00:00Z", "end": "2024-01-10T10:00:00Z"}`
		resp := doRequest(t, router, "POST", "/api/calendar/events", body, "")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestHandler_GetEvents(t *testing.T) {
	createEvent := func(t *testing.T, router *mux.Router, title, start, end string) EventDTO {
		t.Helper()
		body := fmt.Sprintf(`{"title": %q, "start": %q, "end": %q}`, title, start, end)
		resp := doRequest(t, router, "POST", "/api/calendar/events", body, "user-1")
		require.Equal(t, http.StatusCreated, resp.Code)
		var dto EventDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &dto))
		return dto
	}

	t.Run("lists events without a window", func(t *testing.T) {
		router, _ := setupHandlerTest(t)
		createEvent(t, router, "Morning", "2024-01-10T09:00:00Z", "2024-01-10T10:00:00Z")
		createEvent(t, router, "Lunch", "2024-01-10T12:00:00Z", "2024-01-10T13:00:00Z")

		resp := doRequest(t, router, "GET", "/api/calendar/events", "", "user-1")
		require.Equal(t, http.StatusOK, resp.Code)

		var dtos []EventDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &dtos))
		require.Len(t, dtos, 2)
		assert.Equal(t, "Morning", dtos[0].Title)
		assert.Equal(t, "Lunch", dtos[1].Title)
	})

	t.Run("filters by window", func(t *testing.T) {
		router, _ := setupHandlerTest(t)
		createEvent(t, router, "Morning", "2024-01-10T09:00:00Z", "2024-01-10T10:00:00Z")
		createEvent(t, router, "Lunch", "2024-01-10T12:00:00Z", "2024-01-10T13:00:00Z")

		resp := doRequest(t, router, "GET",
			"/api/calendar/events?start=2024-01-10T11:00:00Z&end=2024-01-10T14:00:00Z", "", "user-1")
		require.Equal(t, http.StatusOK, resp.Code)

		var dtos []EventDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &dtos))
		require.Len(t, dtos, 1)
		assert.Equal(t, "Lunch", dtos[0].Title)
	})

	t.Run("empty list is a json array", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		resp := doRequest(t, router, "GET", "/api/calendar/events", "", "user-1")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "[]", strings.TrimSpace(resp.Body.String()))
	})

	t.Run("rejects a lone start", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		resp := doRequest(t, router, "GET", "/api/calendar/events?start=2024-01-10T11:00:00Z", "", "user-1")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		resp := doRequest(t, router, "GET", "/api/calendar/events?start=yesterday&end=tomorrow", "", "user-1")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestHandler_UpdateEvent(t *testing.T) {
	create := func(t *testing.T, router *mux.Router) EventDTO {
		t.Helper()
		body := `{"title": "Standup", "start": "2024-01-10T09:00:00Z", "end": "2024-01-10T09:15:00Z"}`
		resp := doRequest(t, router, "POST", "/api/calendar/events", body, "user-1")
		require.Equal(t, http.StatusCreated, resp.Code)
		var dto EventDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &dto))
		return dto
	}

	t.Run("updates the given fields only", func(t *testing.T) {
		router, _ := setupHandlerTest(t)
		created := create(t, router)

		resp := doRequest(t, router, "PUT", "/api/calendar/events/"+created.ID,
			`{"title": "Standup (moved)"}`, "user-1")
		require.Equal(t, http.StatusOK, resp.Code)

		var dto EventDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &dto))
		assert.Equal(t, "Standup (moved)", dto.Title)
		assert.True(t, dto.Start.Equal(created.Start))
		assert.True(t, dto.End.Equal(created.End))
	})

	t.Run("unknown event is 404", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		resp := doRequest(t, router, "PUT", "/api/calendar/events/0b5f9577-3f0e-4d5c-a3a4-2f77a7a8d3f2",
			`{"title": "x"}`, "user-1")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		resp := doRequest(t, router, "PUT", "/api/calendar/events/not-a-uuid", `{"title": "x"}`, "user-1")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("another owner gets 404", func(t *testing.T) {
		router, _ := setupHandlerTest(t)
		created := create(t, router)

		resp := doRequest(t, router, "PUT", "/api/calendar/events/"+created.ID,
			`{"title": "hijack"}`, "user-2")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestHandler_DeleteEvent(t *testing.T) {
	t.Run("deletes and hides the event", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		body := `{"title": "Standup", "start": "2024-01-10T09:00:00Z", "end": "2024-01-10T09:15:00Z"}`
		resp := doRequest(t, router, "POST", "/api/calendar/events", body, "user-1")
		require.Equal(t, http.StatusCreated, resp.Code)
		var created EventDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

		resp = doRequest(t, router, "DELETE", "/api/calendar/events/"+created.ID, "", "user-1")
		assert.Equal(t, http.StatusNoContent, resp.Code)
		assert.Empty(t, resp.Body.String())

		resp = doRequest(t, router, "GET", "/api/calendar/events", "", "user-1")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "[]", strings.TrimSpace(resp.Body.String()))

		resp = doRequest(t, router, "DELETE", "/api/calendar/events/"+created.ID, "", "user-1")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestHandler_GetFeed(t *testing.T) {
	router, _ := setupHandlerTest(t)

	body := `{
		"title": "Standup",
		"start": "2024-01-10T09:00:00Z",
		"end": "2024-01-10T09:15:00Z",
		"recurrence": {"frequency": "weekly", "interval": 1}
	}`
	resp := doRequest(t, router, "POST", "/api/calendar/events", body, "user-1")
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = doRequest(t, router, "GET", "/api/calendar/feed.ics", "", "user-1")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/calendar")

	feed := resp.Body.String()
	assert.Contains(t, feed, "BEGIN:VCALENDAR")
	assert.Contains(t, feed, "BEGIN:VEVENT")
	assert.Contains(t, feed, "SUMMARY:Standup")
	assert.Contains(t, feed, "FREQ=WEEKLY")
	assert.Contains(t, feed, "END:VCALENDAR")
}
