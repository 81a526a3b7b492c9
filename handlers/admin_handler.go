package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/movie-tournament/middleware"
	"github.com/Dosada05/movie-tournament/scheduler"
)

type AdminHandler struct {
	trigger scheduler.Trigger
}

func NewAdminHandler(trigger scheduler.Trigger) *AdminHandler {
	return &AdminHandler{trigger: trigger}
}

// TriggerCycle godoc
// @Summary      Run a tournament cycle now
// @Description  Closes the open match and opens the next one out of schedule.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  map[string]string
// @Router       /admin/cycle [post]
func (h *AdminHandler) TriggerCycle(w http.ResponseWriter, r *http.Request) {
	member, _ := middleware.MemberFromContext(r.Context())
	if err := h.trigger.TriggerNow(r.Context()); err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "manual tournament cycle requested", slog.Int64("member_id", member.ID))
	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"status": "cycle queued"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
