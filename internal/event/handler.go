package event

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

// Handler handles HTTP requests for event operations
type Handler struct {
	service *Service
}

// NewHandler creates a new event handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for event endpoints (auth applied by the caller)
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.ListMine)
	r.Get("/public", h.ListPublic)
	r.Get("/participating", h.ListParticipating)
	r.Get("/visible", h.ListAllVisible)
	r.With(middleware.RequireAdmin).Get("/all", h.ListAll)

	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/occurrences", h.Occurrences)

	// Membership
	r.Post("/{id}/join", h.Join)
	r.Post("/{id}/leave", h.Leave)
	r.Post("/{id}/invite", h.Invite)
	r.Post("/{id}/accept", h.AcceptInvitation)
	r.Post("/{id}/decline", h.DeclineInvitation)
	r.Delete("/{id}/participants/{userId}", h.RemoveParticipant)

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

func eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return 0, false
	}
	return id, true
}

// Create handles POST /events
// @Summary      Create a new event
// @Description  Create an event; participant usernames are resolved up front and the owner is always included
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body CreateEventRequest true "Event creation request"
// @Success      201 {object} response.APIResponse{data=EventResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /events [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	e, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		var verrs validate.Errors
		if errors.As(err, &verrs) {
			response.ValidationFailed(w, "Invalid event", verrs)
			return
		}
		response.InternalError(w, "Failed to create event")
		return
	}

	response.JSON(w, http.StatusCreated, e.ToResponse())
}

// ListMine handles GET /events
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	h.writeList(w, func() ([]*Event, error) { return h.service.ListMine(r.Context(), actor) })
}

// ListPublic handles GET /events/public
func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, func() ([]*Event, error) { return h.service.ListPublic(r.Context()) })
}

// ListParticipating handles GET /events/participating
func (h *Handler) ListParticipating(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	h.writeList(w, func() ([]*Event, error) { return h.service.ListParticipating(r.Context(), actor) })
}

// ListAllVisible handles GET /events/visible
// @Summary      List all visible events
// @Description  Union of public, owned and participated events, deduplicated by id
// @Tags         events
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]EventResponse}
// @Router       /events/visible [get]
func (h *Handler) ListAllVisible(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	h.writeList(w, func() ([]*Event, error) { return h.service.ListAllVisible(r.Context(), actor) })
}

// ListAll handles GET /events/all (admin)
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, func() ([]*Event, error) { return h.service.ListAll(r.Context()) })
}

func (h *Handler) writeList(w http.ResponseWriter, fetch func() ([]*Event, error)) {
	events, err := fetch()
	if err != nil {
		response.InternalError(w, "Failed to list events")
		return
	}

	eventResponses := make([]*EventResponse, len(events))
	for i, e := range events {
		eventResponses[i] = e.ToResponse()
	}
	response.JSON(w, http.StatusOK, eventResponses)
}

// GetByID handles GET /events/{id}
// @Summary      Get event by ID
// @Description  Returns the event if the caller owns it, participates in it, or it is public
// @Tags         events
// @Produce      json
// @Param        id path int true "Event ID"
// @Success      200 {object} response.APIResponse{data=EventResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /events/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	e, err := h.service.GetByID(r.Context(), actor, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get event")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// Update handles PUT /events/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	e, err := h.service.Update(r.Context(), actor, id, &req)
	if err != nil {
		h.writeError(w, err, "Failed to update event")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// Delete handles DELETE /events/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.writeError(w, err, "Failed to delete event")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Event deleted successfully"})
}

// Join handles POST /events/{id}/join
// @Summary      Join a public event
// @Tags         events
// @Produce      json
// @Param        id path int true "Event ID"
// @Success      200 {object} response.APIResponse{data=EventResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /events/{id}/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, func(actor *token.Identity, id int64) (*Event, error) {
		return h.service.Join(r.Context(), actor, id)
	})
}

// Leave handles POST /events/{id}/leave
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, func(actor *token.Identity, id int64) (*Event, error) {
		return h.service.Leave(r.Context(), actor, id)
	})
}

// Invite handles POST /events/{id}/invite
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.Username == "" {
		response.ValidationFailed(w, "Invalid invite", map[string]string{"username": "is required"})
		return
	}

	e, err := h.service.Invite(r.Context(), actor, id, req.Username)
	if err != nil {
		h.writeError(w, err, "Failed to invite user")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// AcceptInvitation handles POST /events/{id}/accept
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, func(actor *token.Identity, id int64) (*Event, error) {
		return h.service.AcceptInvitation(r.Context(), actor, id)
	})
}

// DeclineInvitation handles POST /events/{id}/decline
func (h *Handler) DeclineInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeclineInvitation(r.Context(), actor, id); err != nil {
		h.writeError(w, err, "Failed to decline invitation")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Invitation declined"})
}

// RemoveParticipant handles DELETE /events/{id}/participants/{userId}
func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	participantID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	e, err := h.service.RemoveParticipant(r.Context(), actor, id, participantID)
	if err != nil {
		h.writeError(w, err, "Failed to remove participant")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// Occurrences handles GET /events/{id}/occurrences
// @Summary      Materialize event occurrences
// @Description  Expand the event's recurrence rule into concrete occurrences for calendar display
// @Tags         events
// @Produce      json
// @Param        id path int true "Event ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /events/{id}/occurrences [get]
func (h *Handler) Occurrences(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	occurrences, err := h.service.Occurrences(r.Context(), actor, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to expand occurrences")
		return
	}

	response.JSON(w, http.StatusOK, occurrences)
}

func (h *Handler) membership(w http.ResponseWriter, r *http.Request, op func(*token.Identity, int64) (*Event, error)) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	e, err := op(actor, id)
	if err != nil {
		h.writeError(w, err, "Failed to update membership")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// writeError maps service errors onto the HTTP taxonomy
func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		response.ValidationFailed(w, "Invalid request", verrs)
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrUserNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrPrivateEvent):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrAlreadyParticipant), errors.Is(err, ErrAlreadyInvited):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrOwnerJoin), errors.Is(err, ErrNotParticipant), errors.Is(err, ErrNotInvited):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}
