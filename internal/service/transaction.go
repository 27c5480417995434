package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/perks/perks/internal/metrics"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/repository"
)

// TransactionService records and queries point movements.
type TransactionService struct {
	transactions TransactionStore
	users        UserStore
	promotions   PromotionStore
	metrics      metrics.Recorder
	now          func() time.Time
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(transactions TransactionStore, users UserStore, promotions PromotionStore, recorder metrics.Recorder) *TransactionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TransactionService{
		transactions: transactions,
		users:        users,
		promotions:   promotions,
		metrics:      recorder,
		now:          time.Now,
	}
}

// PurchaseInput defines a purchase recorded by a cashier.
type PurchaseInput struct {
	UTORid       string
	Spent        float64
	PromotionIDs []int64
	Remark       string
}

// PurchaseResult is a recorded purchase and the points it credited.
type PurchaseResult struct {
	Transaction *model.Transaction
	Earned      int64
}

// CreatePurchase records a purchase and credits the customer.
// Purchases entered by a suspicious cashier are flagged and not credited.
func (s *TransactionService) CreatePurchase(ctx context.Context, caller *model.AuthContext, input PurchaseInput) (*PurchaseResult, error) {
	if input.Spent <= 0 || math.IsInf(input.Spent, 0) || math.IsNaN(input.Spent) {
		return nil, invalid("spent", "must be a positive number")
	}
	spent := math.Round(input.Spent*100) / 100

	customer, err := s.userByUTORid(ctx, input.UTORid)
	if err != nil {
		return nil, err
	}

	promos, err := s.resolvePromotions(ctx, input.PromotionIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	amount := model.BaseEarned(spent)
	var oneTime []int64
	for _, p := range promos {
		if !p.IsActive(now) {
			return nil, invalid("promotionIds", "promotion %d is not active", p.ID)
		}
		if !p.Qualifies(spent) {
			return nil, invalid("promotionIds", "purchase does not meet the minimum spending of promotion %d", p.ID)
		}
		if p.Type == model.PromotionOneTime {
			oneTime = append(oneTime, p.ID)
		}
		amount += p.BonusPoints(spent)
	}

	if len(oneTime) > 0 {
		used, err := s.promotions.UsedPromotionIDs(ctx, customer.ID, oneTime)
		if err != nil {
			return nil, fmt.Errorf("failed to check promotion usage: %w", err)
		}
		if len(used) > 0 {
			return nil, invalid("promotionIds", "promotion %d has already been used", used[0])
		}
	}

	t := &model.Transaction{
		UserID:       customer.ID,
		UTORid:       customer.UTORid,
		Type:         model.TransactionPurchase,
		Spent:        &spent,
		Amount:       amount,
		PromotionIDs: promotionIDs(promos),
		Suspicious:   caller.Suspicious,
		Remark:       input.Remark,
		CreatedBy:    caller.UTORid,
	}

	if err := s.transactions.RecordPurchase(ctx, t, oneTime); err != nil {
		if errors.Is(err, repository.ErrPromotionUsed) {
			return nil, invalid("promotionIds", "a one-time promotion has already been used")
		}
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	earned := int64(0)
	if t.Credited() {
		earned = t.Amount
	}
	s.recordMetrics(t.Type, earned)
	return &PurchaseResult{Transaction: t, Earned: earned}, nil
}

// AdjustmentInput defines a manual correction of a previous transaction.
type AdjustmentInput struct {
	UTORid       string
	Amount       int64
	RelatedID    int64
	PromotionIDs []int64
	Remark       string
}

// CreateAdjustment records an adjustment and applies it immediately.
func (s *TransactionService) CreateAdjustment(ctx context.Context, caller *model.AuthContext, input AdjustmentInput) (*model.Transaction, error) {
	if !caller.IsManager() {
		return nil, ErrForbidden
	}
	if input.Amount == 0 {
		return nil, invalid("amount", "must not be zero")
	}
	if input.RelatedID <= 0 {
		return nil, invalid("relatedId", "is required")
	}

	customer, err := s.userByUTORid(ctx, input.UTORid)
	if err != nil {
		return nil, err
	}

	promos, err := s.resolvePromotions(ctx, input.PromotionIDs)
	if err != nil {
		return nil, err
	}

	relatedID := input.RelatedID
	t := &model.Transaction{
		UserID:       customer.ID,
		UTORid:       customer.UTORid,
		Type:         model.TransactionAdjustment,
		Amount:       input.Amount,
		RelatedID:    &relatedID,
		PromotionIDs: promotionIDs(promos),
		Remark:       input.Remark,
		CreatedBy:    caller.UTORid,
	}

	if err := s.transactions.RecordAdjustment(ctx, t); err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound):
			return nil, ErrTransactionNotFound
		case errors.Is(err, repository.ErrRelatedMismatch):
			return nil, invalid("relatedId", "must reference a transaction of %s", customer.UTORid)
		}
		return nil, fmt.Errorf("failed to record adjustment: %w", err)
	}

	s.recordMetrics(t.Type, t.Amount)
	return t, nil
}

// TransferInput defines a points transfer between users.
type TransferInput struct {
	Amount int64
	Remark string
}

// TransferResult holds both sides of a transfer.
type TransferResult struct {
	Sent     *model.Transaction
	Received *model.Transaction
}

// Transfer moves points from the caller to another user.
func (s *TransactionService) Transfer(ctx context.Context, caller *model.AuthContext, recipientID int64, input TransferInput) (*TransferResult, error) {
	if input.Amount <= 0 {
		return nil, invalid("amount", "must be a positive integer")
	}
	if !caller.Verified {
		return nil, ErrUnverified
	}
	if recipientID == caller.UserID {
		return nil, invalid("userId", "cannot transfer points to yourself")
	}

	recipient, err := s.users.GetUserByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	senderID := caller.UserID
	sent := &model.Transaction{
		UserID:    caller.UserID,
		UTORid:    caller.UTORid,
		Type:      model.TransactionTransfer,
		Amount:    -input.Amount,
		RelatedID: &recipient.ID,
		Remark:    input.Remark,
		CreatedBy: caller.UTORid,
	}
	received := &model.Transaction{
		UserID:    recipient.ID,
		UTORid:    recipient.UTORid,
		Type:      model.TransactionTransfer,
		Amount:    input.Amount,
		RelatedID: &senderID,
		Remark:    input.Remark,
		CreatedBy: caller.UTORid,
	}

	if err := s.transactions.RecordTransfer(ctx, sent, received); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientPoints):
			return nil, ErrInsufficientPoints
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to record transfer: %w", err)
	}

	s.recordMetrics(model.TransactionTransfer, input.Amount)
	return &TransferResult{Sent: sent, Received: received}, nil
}

// RedemptionInput defines a redemption request.
type RedemptionInput struct {
	Amount int64
	Remark string
}

// CreateRedemption records a pending redemption for the caller.
// Points are deducted when a cashier processes it.
func (s *TransactionService) CreateRedemption(ctx context.Context, caller *model.AuthContext, input RedemptionInput) (*model.Transaction, error) {
	if input.Amount <= 0 {
		return nil, invalid("amount", "must be a positive integer")
	}

	redeemed := input.Amount
	t := &model.Transaction{
		UserID:    caller.UserID,
		UTORid:    caller.UTORid,
		Type:      model.TransactionRedemption,
		Amount:    -redeemed,
		Redeemed:  &redeemed,
		Remark:    input.Remark,
		CreatedBy: caller.UTORid,
	}

	if err := s.transactions.RecordRedemption(ctx, t); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientPoints):
			return nil, ErrInsufficientPoints
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	s.metrics.IncTransaction(string(t.Type))
	return t, nil
}

// ProcessRedemption completes a pending redemption.
func (s *TransactionService) ProcessRedemption(ctx context.Context, caller *model.AuthContext, id int64, processed bool) (*model.Transaction, error) {
	if !processed {
		return nil, invalid("processed", "can only be set to true")
	}

	t, err := s.transactions.ProcessRedemption(ctx, id, caller)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound):
			return nil, ErrTransactionNotFound
		case errors.Is(err, repository.ErrNotRedemption):
			return nil, ErrNotRedemption
		case errors.Is(err, repository.ErrAlreadyProcessed):
			return nil, ErrAlreadyProcessed
		case errors.Is(err, repository.ErrSuspiciousRedemption):
			return nil, ErrSuspiciousRedemption
		case errors.Is(err, repository.ErrInsufficientPoints):
			return nil, ErrInsufficientPoints
		}
		return nil, fmt.Errorf("failed to process redemption: %w", err)
	}

	if t.Redeemed != nil {
		s.metrics.AddPoints(string(t.Type), *t.Redeemed)
	}
	return t, nil
}

// SetSuspicious flags or clears a transaction, moving the owner's balance accordingly.
func (s *TransactionService) SetSuspicious(ctx context.Context, id int64, suspicious bool) (*model.Transaction, error) {
	t, err := s.transactions.SetTransactionSuspicious(ctx, id, suspicious)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return t, nil
}

// GetTransaction retrieves a transaction by ID.
func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	t, err := s.transactions.GetTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ListTransactionsInput defines filters for listing transactions.
// Name and CreatedBy are ignored when listing a single user's history.
type ListTransactionsInput struct {
	Name        string
	CreatedBy   string
	Suspicious  *bool
	PromotionID *int64
	Type        *model.TransactionType
	RelatedID   *int64
	Amount      *int64
	Operator    string
	PageRequest
}

// ListTransactions lists all transactions matching the filters.
func (s *TransactionService) ListTransactions(ctx context.Context, input ListTransactionsInput) (*ListResult[*model.Transaction], error) {
	filter, err := transactionFilter(input)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter, input.PageRequest)
}

// ListUserTransactions lists the history of one user.
func (s *TransactionService) ListUserTransactions(ctx context.Context, userID int64, input ListTransactionsInput) (*ListResult[*model.Transaction], error) {
	input.Name = ""
	input.CreatedBy = ""
	filter, err := transactionFilter(input)
	if err != nil {
		return nil, err
	}
	filter.UserID = &userID
	return s.list(ctx, filter, input.PageRequest)
}

func (s *TransactionService) list(ctx context.Context, filter repository.TransactionFilter, req PageRequest) (*ListResult[*model.Transaction], error) {
	page, err := req.toPage()
	if err != nil {
		return nil, err
	}

	txs, total, err := s.transactions.ListTransactions(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return newListResult(txs, total), nil
}

func transactionFilter(input ListTransactionsInput) (repository.TransactionFilter, error) {
	filter := repository.TransactionFilter{
		Name:        input.Name,
		CreatedBy:   input.CreatedBy,
		Suspicious:  input.Suspicious,
		PromotionID: input.PromotionID,
		Type:        input.Type,
		RelatedID:   input.RelatedID,
		Amount:      input.Amount,
	}

	if input.Type != nil && !input.Type.IsValid() {
		return filter, invalid("type", "unknown transaction type %q", *input.Type)
	}
	if input.RelatedID != nil && input.Type == nil {
		return filter, invalid("relatedId", "requires type")
	}

	switch {
	case input.Amount == nil && input.Operator != "":
		return filter, invalid("operator", "requires amount")
	case input.Amount != nil:
		op := repository.AmountOperator(input.Operator)
		if op != repository.AmountGTE && op != repository.AmountLTE {
			return filter, invalid("operator", "must be %q or %q", repository.AmountGTE, repository.AmountLTE)
		}
		filter.Operator = op
	}

	return filter, nil
}

// resolvePromotions loads the requested live promotions, rejecting duplicates and unknown IDs.
func (s *TransactionService) resolvePromotions(ctx context.Context, ids []int64) ([]*model.Promotion, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, invalid("promotionIds", "promotion %d is listed twice", id)
		}
		seen[id] = true
	}

	promos, err := s.promotions.GetPromotionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get promotions: %w", err)
	}
	found := make(map[int64]*model.Promotion, len(promos))
	for _, p := range promos {
		found[p.ID] = p
	}

	ordered := make([]*model.Promotion, 0, len(ids))
	for _, id := range ids {
		p, ok := found[id]
		if !ok {
			return nil, invalid("promotionIds", "promotion %d does not exist", id)
		}
		ordered = append(ordered, p)
	}
	return ordered, nil
}

func (s *TransactionService) userByUTORid(ctx context.Context, utorid string) (*model.User, error) {
	utorid = strings.ToLower(strings.TrimSpace(utorid))
	if utorid == "" {
		return nil, invalid("utorid", "is required")
	}
	user, err := s.users.GetUserByUTORid(ctx, utorid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *TransactionService) recordMetrics(txType model.TransactionType, points int64) {
	s.metrics.IncTransaction(string(txType))
	if points != 0 {
		s.metrics.AddPoints(string(txType), points)
	}
}

func promotionIDs(promos []*model.Promotion) []int64 {
	ids := make([]int64, 0, len(promos))
	for _, p := range promos {
		ids = append(ids, p.ID)
	}
	slices.Sort(ids)
	return ids
}
