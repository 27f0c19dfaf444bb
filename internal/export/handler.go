package export

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khaledm/eventide/pkg/middleware"
	"github.com/khaledm/eventide/pkg/response"
)

// Handler handles HTTP requests for calendar export
type Handler struct {
	service *Service
}

// NewHandler creates a new export handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for calendar endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/export", h.Export)
	return r
}

// Export handles GET /calendar/export
// @Summary      Export calendar
// @Description  Download the current user's owned and participating events as an iCalendar file
// @Tags         calendar
// @Produce      text/calendar
// @Success      200 {string} string "ICS payload"
// @Failure      401 {object} response.APIResponse
// @Router       /calendar/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	feed, err := h.service.Feed(r.Context(), actor)
	if err != nil {
		response.InternalError(w, "Failed to export calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="eventide.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(feed))
}
