package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/perks/perks/internal/handler/dto"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/service"
)

// EventService is the subset of service.EventService used by EventHandler.
type EventService interface {
	CreateEvent(ctx context.Context, input service.CreateEventInput) (*model.Event, error)
	ListEvents(ctx context.Context, caller *model.AuthContext, input service.ListEventsInput) (*service.ListResult[*model.Event], error)
	GetEvent(ctx context.Context, caller *model.AuthContext, id int64) (*service.EventDetail, error)
	UpdateEvent(ctx context.Context, caller *model.AuthContext, id int64, input service.UpdateEventInput) (*model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	AddOrganizer(ctx context.Context, id int64, utorid string) (*service.EventDetail, error)
	RemoveOrganizer(ctx context.Context, id, userID int64) error
	AddGuest(ctx context.Context, caller *model.AuthContext, id int64, utorid string) (*service.GuestAdded, error)
	JoinEvent(ctx context.Context, caller *model.AuthContext, id int64) (*service.GuestAdded, error)
	RemoveGuest(ctx context.Context, id, userID int64) error
	LeaveEvent(ctx context.Context, caller *model.AuthContext, id int64) error
	AwardPoints(ctx context.Context, caller *model.AuthContext, id int64, input service.AwardInput) ([]*model.Transaction, error)
}

// EventHandler handles event endpoints.
type EventHandler struct {
	svc    EventService
	logger *slog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(svc EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// Create handles POST /events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.StartTime == nil || req.EndTime == nil || req.Points == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "startTime, endTime and points are required")
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), service.CreateEventInput{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   *req.StartTime,
		EndTime:     *req.EndTime,
		Capacity:    req.Capacity,
		Points:      *req.Points,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("event_created",
		"event_id", event.ID,
		"points", event.PointsRemain,
	)

	writeJSON(w, http.StatusCreated, dto.ToEventResponse(event))
}

// List handles GET /events.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := parsePage(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	var bools [4]*bool
	for i, key := range []string{"started", "ended", "showFull", "published"} {
		if bools[i], err = parseBool(q, key); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
			return
		}
	}

	input := service.ListEventsInput{
		Name:        q.Get("name"),
		Location:    q.Get("location"),
		Started:     bools[0],
		Ended:       bools[1],
		ShowFull:    bools[2] != nil && *bools[2],
		Published:   bools[3],
		PageRequest: page,
	}

	result, err := h.svc.ListEvents(r.Context(), caller, input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if caller.IsManager() {
		writeJSON(w, http.StatusOK, dto.NewListResponse(result.Results, result.Count, dto.ToEventResponse))
		return
	}
	writeJSON(w, http.StatusOK, dto.NewListResponse(result.Results, result.Count, dto.ToPublicEventResponse))
}

// Get handles GET /events/{eventId}.
// Managers and organizers see the guest list; everyone else gets the public view.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "eventId")
	if !ok {
		return
	}

	detail, err := h.svc.GetEvent(r.Context(), caller, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if detail.Guests != nil {
		resp := dto.ToEventResponse(detail.Event)
		resp.Organizers = detail.Organizers
		resp.Guests = detail.Guests
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp := dto.ToPublicEventResponse(detail.Event)
	resp.Organizers = detail.Organizers
	writeJSON(w, http.StatusOK, resp)
}

// Update handles PATCH /events/{eventId}.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "eventId")
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), caller, id, service.UpdateEventInput{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		SetCapacity: req.Capacity.Set,
		Capacity:    req.Capacity.Value,
		Points:      req.Points,
		Published:   req.Published,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("event_updated",
		"event_id", event.ID,
		"updated_by", caller.UTORid,
	)

	writeJSON(w, http.StatusOK, dto.ToEventResponse(event))
}

// Delete handles DELETE /events/{eventId}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "eventId")
	if !ok {
		return
	}

	if err := h.svc.DeleteEvent(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("event_deleted", "event_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// AddOrganizer handles POST /events/{eventId}/organizers.
func (h *EventHandler) AddOrganizer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "eventId")
	if !ok {
		return
	}

	var req dto.MemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	detail, err := h.svc.AddOrganizer(r.Context(), id, req.UTORid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("event_organizer_added",
		"event_id", id,
		"utorid", req.UTORid,
	)

	writeJSON(w, http.StatusCreated, dto.OrganizersResponse{
		ID:         detail.Event.ID,
		Name:       detail.Event.Name,
		Location:   detail.Event.Location,
		Organizers: detail.Organizers,
	})
}

// RemoveOrganizer handles DELETE /events/{eventId}/organizers/{userId}.
func (h *EventHandler) RemoveOrganizer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "eventId")
	if !ok {
		return
	}
	userID, ok := idParam(w, r, "userId")
	if !ok {
		return
	}

	if err := h.svc.RemoveOrganizer(r.Context(), id, userID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddGuest handles POST /events/{eventId}/guests.
func (h *EventHandler) AddGuest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "eventId")
	if !ok {
		return
	}

	var req dto.MemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	added, err := h.svc.AddGuest(r.Context(), caller, id, req.UTORid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("event_guest_added",
		"event_id", id,
		"utorid", added.Guest.UTORid,
		"added_by", caller.UTORid,
	)

	writeJSON(w, http.StatusCreated, guestAddedResponse(added))
}

// RemoveGuest handles DELETE /events/{eventId}/guests/{userId}.
func (h *EventHandler) RemoveGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "eventId")
	if !ok {
		return
	}
	userID, ok := idParam(w, r, "userId")
	if !ok {
		return
	}

	if err := h.svc.RemoveGuest(r.Context(), id, userID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Join handles POST /events/{eventId}/guests/me.
func (h *EventHandler) Join(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "eventId")
	if !ok {
		return
	}

	added, err := h.svc.JoinEvent(r.Context(), caller, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("event_joined",
		"event_id", id,
		"utorid", caller.UTORid,
	)

	writeJSON(w, http.StatusCreated, guestAddedResponse(added))
}

// Leave handles DELETE /events/{eventId}/guests/me.
func (h *EventHandler) Leave(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "eventId")
	if !ok {
		return
	}

	if err := h.svc.LeaveEvent(r.Context(), caller, id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Award handles POST /events/{eventId}/transactions.
// A single award is returned as an object, a bulk award as an array.
func (h *EventHandler) Award(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "eventId")
	if !ok {
		return
	}

	var req dto.AwardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Type != string(model.TransactionEvent) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", `type: must be "event"`)
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "amount: is required")
		return
	}

	input := service.AwardInput{Amount: *req.Amount, Remark: req.Remark}
	if req.UTORid != nil {
		input.UTORid = *req.UTORid
	}

	awards, err := h.svc.AwardPoints(r.Context(), caller, id, input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("event_points_awarded",
		"event_id", id,
		"recipients", len(awards),
		"amount", input.Amount,
		"awarded_by", caller.UTORid,
	)

	if req.UTORid != nil && len(awards) == 1 {
		writeJSON(w, http.StatusCreated, dto.ToTransactionResponse(awards[0]))
		return
	}
	results := make([]dto.TransactionResponse, 0, len(awards))
	for _, t := range awards {
		results = append(results, dto.ToTransactionResponse(t))
	}
	writeJSON(w, http.StatusCreated, results)
}

func guestAddedResponse(added *service.GuestAdded) dto.GuestAddedResponse {
	return dto.GuestAddedResponse{
		ID:         added.Event.ID,
		Name:       added.Event.Name,
		Location:   added.Event.Location,
		GuestAdded: added.Guest,
		NumGuests:  added.Event.NumGuests,
	}
}
