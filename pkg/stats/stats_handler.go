package stats

import (
	"errors"
	"net/http"

	"github.com/caldesk/caldesk/internal/rest"
	"github.com/caldesk/caldesk/pkg/user"
	log "github.com/sirupsen/logrus"
)

type StatsHandler struct {
	service StatsService
}

func NewStatsHandler(service StatsService) *StatsHandler {
	return &StatsHandler{service: service}
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.GetStats(r.Context())
	if err != nil {
		if errors.Is(err, user.ErrNoUser) {
			rest.WriteError(w, http.StatusUnauthorized, "Authentication required", "")
			return
		}
		log.Errorf("failed to compute calendar stats: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to retrieve calendar statistics", "")
		return
	}
	rest.WriteJSON(w, http.StatusOK, snapshot)
}
