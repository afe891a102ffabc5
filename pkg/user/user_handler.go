package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/caldesk/caldesk/internal/rest"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service  Service
	validate *validator.Validate
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

type UserDTO struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,min=1,max=100"`
	DisplayName string `json:"displayName" validate:"max=200"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	created, err := h.service.CreateUser(r.Context(), User{
		Username:    req.Username,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to create user", "")
		return
	}
	rest.WriteJSON(w, http.StatusCreated, userToDTO(created))
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	current, err := h.service.GetCurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoUser) {
			rest.WriteError(w, http.StatusUnauthorized, "Authentication required", "")
			return
		}
		log.Errorf("failed to get current user: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to get current user", "")
		return
	}
	rest.WriteJSON(w, http.StatusOK, userToDTO(current))
}

func userToDTO(u User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}
