package series

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/khaledm/eventide/pkg/middleware"
	"github.com/khaledm/eventide/pkg/response"
	"github.com/khaledm/eventide/pkg/token"
	"github.com/khaledm/eventide/pkg/validate"
)

// Handler handles HTTP requests for series operations
type Handler struct {
	service *Service
}

// NewHandler creates a new series handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for series endpoints (auth applied by the caller)
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.ListMine)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/occurrences", h.Occurrences)

	return r
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*token.Identity, bool) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return nil, false
	}
	return id, true
}

func seriesID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid series ID")
		return 0, false
	}
	return id, true
}

// Create handles POST /series
// @Summary      Create an event series
// @Description  Create a recurring or manual series; exactly one of is_indefinite and ending_event must be set
// @Tags         series
// @Accept       json
// @Produce      json
// @Param        request body CreateSeriesRequest true "Series creation request"
// @Success      201 {object} response.APIResponse{data=SeriesResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /series [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req CreateSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	s, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		var verrs validate.Errors
		if errors.As(err, &verrs) {
			response.ValidationFailed(w, "Invalid series", verrs)
			return
		}
		response.InternalError(w, "Failed to create series")
		return
	}

	response.JSON(w, http.StatusCreated, s.ToResponse())
}

// ListMine handles GET /series
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		response.InternalError(w, "Failed to list series")
		return
	}

	out := make([]*SeriesResponse, len(list))
	for i, s := range list {
		out[i] = s.ToResponse()
	}
	response.JSON(w, http.StatusOK, out)
}

// GetByID handles GET /series/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := seriesID(w, r)
	if !ok {
		return
	}

	s, err := h.service.GetByID(r.Context(), actor, id)
	if err != nil {
		if errors.Is(err, ErrSeriesNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get series")
		return
	}

	response.JSON(w, http.StatusOK, s.ToResponse())
}

// Update handles PUT /series/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := seriesID(w, r)
	if !ok {
		return
	}

	var req UpdateSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	s, err := h.service.Update(r.Context(), actor, id, &req)
	if err != nil {
		var verrs validate.Errors
		switch {
		case errors.As(err, &verrs):
			response.ValidationFailed(w, "Invalid series patch", verrs)
		case errors.Is(err, ErrSeriesNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotCreator):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to update series")
		}
		return
	}

	response.JSON(w, http.StatusOK, s.ToResponse())
}

// Delete handles DELETE /series/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := seriesID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		switch {
		case errors.Is(err, ErrSeriesNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotCreator):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to delete series")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Series deleted successfully"})
}

// Occurrences handles GET /series/{id}/occurrences
// @Summary      Materialize series occurrences
// @Description  Expand a recurring series into concrete occurrences; indefinite series are bounded by a one-year horizon
// @Tags         series
// @Produce      json
// @Param        id path int true "Series ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /series/{id}/occurrences [get]
func (h *Handler) Occurrences(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := seriesID(w, r)
	if !ok {
		return
	}

	occurrences, err := h.service.Materialize(r.Context(), actor, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrSeriesNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotRecurring):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to materialize series")
		}
		return
	}

	response.JSON(w, http.StatusOK, occurrences)
}
