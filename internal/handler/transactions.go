package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/perks/perks/internal/handler/dto"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/service"
)

// TransactionService is the subset of service.TransactionService used by TransactionHandler.
type TransactionService interface {
	CreatePurchase(ctx context.Context, caller *model.AuthContext, input service.PurchaseInput) (*service.PurchaseResult, error)
	CreateAdjustment(ctx context.Context, caller *model.AuthContext, input service.AdjustmentInput) (*model.Transaction, error)
	Transfer(ctx context.Context, caller *model.AuthContext, recipientID int64, input service.TransferInput) (*service.TransferResult, error)
	CreateRedemption(ctx context.Context, caller *model.AuthContext, input service.RedemptionInput) (*model.Transaction, error)
	ProcessRedemption(ctx context.Context, caller *model.AuthContext, id int64, processed bool) (*model.Transaction, error)
	SetSuspicious(ctx context.Context, id int64, suspicious bool) (*model.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	ListTransactions(ctx context.Context, input service.ListTransactionsInput) (*service.ListResult[*model.Transaction], error)
	ListUserTransactions(ctx context.Context, userID int64, input service.ListTransactionsInput) (*service.ListResult[*model.Transaction], error)
}

// TransactionHandler handles transaction endpoints, including the
// transfer and redemption routes nested under /users.
type TransactionHandler struct {
	svc    TransactionService
	logger *slog.Logger
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(svc TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{svc: svc, logger: logger}
}

// Create handles POST /transactions.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req dto.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	switch model.TransactionType(req.Type) {
	case model.TransactionPurchase:
		h.createPurchase(w, r, caller, req)
	case model.TransactionAdjustment:
		if !caller.IsManager() {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "adjustments require manager clearance")
			return
		}
		h.createAdjustment(w, r, caller, req)
	default:
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", `type: must be "purchase" or "adjustment"`)
	}
}

func (h *TransactionHandler) createPurchase(w http.ResponseWriter, r *http.Request, caller *model.AuthContext, req dto.CreateTransactionRequest) {
	if req.Spent == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "spent: is required")
		return
	}

	result, err := h.svc.CreatePurchase(r.Context(), caller, service.PurchaseInput{
		UTORid:       req.UTORid,
		Spent:        *req.Spent,
		PromotionIDs: req.PromotionIDs,
		Remark:       req.Remark,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("transaction_created",
		"transaction_id", result.Transaction.ID,
		"type", result.Transaction.Type,
		"utorid", result.Transaction.UTORid,
		"earned", result.Earned,
		"suspicious", result.Transaction.Suspicious,
		"created_by", caller.UTORid,
	)

	writeJSON(w, http.StatusCreated, dto.ToPurchaseResponse(result.Transaction, result.Earned))
}

func (h *TransactionHandler) createAdjustment(w http.ResponseWriter, r *http.Request, caller *model.AuthContext, req dto.CreateTransactionRequest) {
	if req.Amount == nil || req.RelatedID == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "amount and relatedId are required")
		return
	}

	t, err := h.svc.CreateAdjustment(r.Context(), caller, service.AdjustmentInput{
		UTORid:       req.UTORid,
		Amount:       *req.Amount,
		RelatedID:    *req.RelatedID,
		PromotionIDs: req.PromotionIDs,
		Remark:       req.Remark,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("transaction_created",
		"transaction_id", t.ID,
		"type", t.Type,
		"utorid", t.UTORid,
		"amount", t.Amount,
		"created_by", caller.UTORid,
	)

	writeJSON(w, http.StatusCreated, dto.ToTransactionResponse(t))
}

// List handles GET /transactions.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	input, ok := parseTransactionQuery(w, r.URL.Query())
	if !ok {
		return
	}

	result, err := h.svc.ListTransactions(r.Context(), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(result.Results, result.Count, dto.ToTransactionResponse))
}

// ListMine handles GET /users/me/transactions.
func (h *TransactionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	input, ok := parseTransactionQuery(w, r.URL.Query())
	if !ok {
		return
	}

	result, err := h.svc.ListUserTransactions(r.Context(), caller.UserID, input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(result.Results, result.Count, dto.ToTransactionResponse))
}

// Get handles GET /transactions/{transactionId}.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "transactionId")
	if !ok {
		return
	}

	t, err := h.svc.GetTransaction(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTransactionResponse(t))
}

// SetSuspicious handles PATCH /transactions/{transactionId}/suspicious.
func (h *TransactionHandler) SetSuspicious(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "transactionId")
	if !ok {
		return
	}

	var req dto.SuspiciousRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Suspicious == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "suspicious: is required")
		return
	}

	t, err := h.svc.SetSuspicious(r.Context(), id, *req.Suspicious)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("transaction_flagged",
		"transaction_id", t.ID,
		"suspicious", t.Suspicious,
		"updated_by", caller.UTORid,
	)

	writeJSON(w, http.StatusOK, dto.ToTransactionResponse(t))
}

// Process handles PATCH /transactions/{transactionId}/processed.
func (h *TransactionHandler) Process(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "transactionId")
	if !ok {
		return
	}

	var req dto.ProcessedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Processed == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "processed: is required")
		return
	}

	t, err := h.svc.ProcessRedemption(r.Context(), caller, id, *req.Processed)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("redemption_processed",
		"transaction_id", t.ID,
		"utorid", t.UTORid,
		"processed_by", caller.UTORid,
	)

	writeJSON(w, http.StatusOK, dto.ToTransactionResponse(t))
}

// Transfer handles POST /users/{userId}/transactions.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	recipientID, ok := idParam(w, r, "userId")
	if !ok {
		return
	}

	var req dto.UserTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Type != string(model.TransactionTransfer) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", `type: must be "transfer"`)
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "amount: is required")
		return
	}

	result, err := h.svc.Transfer(r.Context(), caller, recipientID, service.TransferInput{
		Amount: *req.Amount,
		Remark: req.Remark,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("transfer_created",
		"transaction_id", result.Sent.ID,
		"sender", result.Sent.UTORid,
		"recipient", result.Received.UTORid,
		"amount", *req.Amount,
	)

	writeJSON(w, http.StatusCreated, dto.ToTransferResponse(result.Sent, result.Received))
}

// Redeem handles POST /users/me/transactions.
func (h *TransactionHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req dto.UserTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Type != string(model.TransactionRedemption) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", `type: must be "redemption"`)
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "amount: is required")
		return
	}

	t, err := h.svc.CreateRedemption(r.Context(), caller, service.RedemptionInput{
		Amount: *req.Amount,
		Remark: req.Remark,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("redemption_requested",
		"transaction_id", t.ID,
		"utorid", t.UTORid,
		"amount", *req.Amount,
	)

	writeJSON(w, http.StatusCreated, dto.ToTransactionResponse(t))
}

// parseTransactionQuery reads the transaction list filters.
func parseTransactionQuery(w http.ResponseWriter, q url.Values) (service.ListTransactionsInput, bool) {
	input := service.ListTransactionsInput{
		Name:      q.Get("name"),
		CreatedBy: q.Get("createdBy"),
		Operator:  q.Get("operator"),
	}

	var err error
	if input.PageRequest, err = parsePage(q); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return input, false
	}
	if input.Suspicious, err = parseBool(q, "suspicious"); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return input, false
	}
	for _, p := range []struct {
		key string
		dst **int64
	}{
		{"promotionId", &input.PromotionID},
		{"relatedId", &input.RelatedID},
		{"amount", &input.Amount},
	} {
		if *p.dst, err = parseInt64(q, p.key); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
			return input, false
		}
	}
	if raw := q.Get("type"); raw != "" {
		typ := model.TransactionType(raw)
		input.Type = &typ
	}

	return input, true
}
