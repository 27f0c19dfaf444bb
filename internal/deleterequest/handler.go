package deleterequest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/khaledm/eventide/pkg/middleware"
	"github.com/khaledm/eventide/pkg/response"
)

// Handler handles HTTP requests for delete-request operations
type Handler struct {
	service *Service
}

// NewHandler creates a new delete-request handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for delete-request endpoints (auth applied by the
// caller); review operations are admin-only.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/", h.List)
		r.Put("/{id}/process", h.Process)
		r.Put("/{id}/reject", h.Reject)
	})

	return r
}

// Create handles POST /delete-requests
// @Summary      Request account deletion
// @Description  File a pending delete request for the current account; at most one pending request per user
// @Tags         delete-requests
// @Accept       json
// @Produce      json
// @Param        request body CreateRequest true "Delete request"
// @Success      201 {object} response.APIResponse{data=Response}
// @Failure      409 {object} response.APIResponse
// @Router       /delete-requests [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	d, err := h.service.Create(r.Context(), actor, req.Reason)
	if err != nil {
		if errors.Is(err, ErrRequestExists) {
			response.Conflict(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to create delete request")
		return
	}

	response.JSON(w, http.StatusCreated, d.ToResponse())
}

// List handles GET /delete-requests (admin)
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	status := Status(r.URL.Query().Get("status"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	requests, total, err := h.service.List(r.Context(), status, page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list delete requests")
		return
	}

	out := make([]*Response, len(requests))
	for i, d := range requests {
		out[i] = d.ToResponse()
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, out, meta)
}

// Process handles PUT /delete-requests/{id}/process (admin)
// @Summary      Process a delete request
// @Description  Delete the requesting user's account and mark the request processed
// @Tags         delete-requests
// @Produce      json
// @Param        id path int true "Delete request ID"
// @Success      200 {object} response.APIResponse{data=Response}
// @Failure      404 {object} response.APIResponse
// @Router       /delete-requests/{id}/process [put]
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Process)
}

// Reject handles PUT /delete-requests/{id}/reject (admin)
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Reject)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (*DeleteRequest, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid delete request ID")
		return
	}

	d, err := op(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotPending):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to review delete request")
		}
		return
	}

	response.JSON(w, http.StatusOK, d.ToResponse())
}
