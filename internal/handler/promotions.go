package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/perks/perks/internal/handler/dto"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/service"
)

// PromotionService is the subset of service.PromotionService used by PromotionHandler.
type PromotionService interface {
	CreatePromotion(ctx context.Context, input service.CreatePromotionInput) (*model.Promotion, error)
	ListPromotions(ctx context.Context, caller *model.AuthContext, input service.ListPromotionsInput) (*service.ListResult[*model.Promotion], error)
	GetPromotion(ctx context.Context, caller *model.AuthContext, id int64) (*model.Promotion, error)
	UpdatePromotion(ctx context.Context, id int64, input service.UpdatePromotionInput) (*model.Promotion, error)
	DeletePromotion(ctx context.Context, id int64) error
}

// PromotionHandler handles promotion endpoints.
type PromotionHandler struct {
	svc    PromotionService
	logger *slog.Logger
}

// NewPromotionHandler creates a new PromotionHandler.
func NewPromotionHandler(svc PromotionService, logger *slog.Logger) *PromotionHandler {
	return &PromotionHandler{svc: svc, logger: logger}
}

// Create handles POST /promotions.
func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePromotionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.StartTime == nil || req.EndTime == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "startTime and endTime are required")
		return
	}

	promo, err := h.svc.CreatePromotion(r.Context(), service.CreatePromotionInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        model.PromotionType(req.Type),
		StartTime:   *req.StartTime,
		EndTime:     *req.EndTime,
		MinSpending: req.MinSpending,
		Rate:        req.Rate,
		Points:      req.Points,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("promotion_created",
		"promotion_id", promo.ID,
		"type", promo.Type,
	)

	writeJSON(w, http.StatusCreated, dto.ToPromotionResponse(promo))
}

// List handles GET /promotions.
func (h *PromotionHandler) List(w http.ResponseWriter, r *http.Request) {
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
	started, err := parseBool(q, "started")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	ended, err := parseBool(q, "ended")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	input := service.ListPromotionsInput{
		Name:        q.Get("name"),
		Started:     started,
		Ended:       ended,
		PageRequest: page,
	}
	if raw := q.Get("type"); raw != "" {
		typ := model.PromotionType(raw)
		input.Type = &typ
	}

	result, err := h.svc.ListPromotions(r.Context(), caller, input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(result.Results, result.Count, dto.ToPromotionResponse))
}

// Get handles GET /promotions/{promotionId}.
func (h *PromotionHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "promotionId")
	if !ok {
		return
	}

	promo, err := h.svc.GetPromotion(r.Context(), caller, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPromotionResponse(promo))
}

// Update handles PATCH /promotions/{promotionId}.
func (h *PromotionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "promotionId")
	if !ok {
		return
	}

	var req dto.UpdatePromotionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := service.UpdatePromotionInput{
		Name:        req.Name,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MinSpending: req.MinSpending,
		Rate:        req.Rate,
		Points:      req.Points,
	}
	if req.Type != nil {
		typ := model.PromotionType(*req.Type)
		input.Type = &typ
	}

	promo, err := h.svc.UpdatePromotion(r.Context(), id, input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("promotion_updated", "promotion_id", promo.ID)

	writeJSON(w, http.StatusOK, dto.ToPromotionResponse(promo))
}

// Delete handles DELETE /promotions/{promotionId}.
func (h *PromotionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "promotionId")
	if !ok {
		return
	}

	if err := h.svc.DeletePromotion(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("promotion_deleted", "promotion_id", id)

	w.WriteHeader(http.StatusNoContent)
}
