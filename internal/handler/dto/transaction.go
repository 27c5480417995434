package dto

import (
	"time"

	"github.com/perks/perks/internal/model"
)

// CreateTransactionRequest is the request body for POST /transactions.
// Type selects between purchase and adjustment.
type CreateTransactionRequest struct {
	UTORid       string   `json:"utorid"`
	Type         string   `json:"type"`
	Spent        *float64 `json:"spent"`
	Amount       *int64   `json:"amount"`
	RelatedID    *int64   `json:"relatedId"`
	PromotionIDs []int64  `json:"promotionIds"`
	Remark       string   `json:"remark"`
}

// UserTransactionRequest is the request body for transfers and redemptions.
type UserTransactionRequest struct {
	Type   string `json:"type"`
	Amount *int64 `json:"amount"`
	Remark string `json:"remark"`
}

// SuspiciousRequest is the request body for PATCH /transactions/{id}/suspicious.
type SuspiciousRequest struct {
	Suspicious *bool `json:"suspicious"`
}

// ProcessedRequest is the request body for PATCH /transactions/{id}/processed.
type ProcessedRequest struct {
	Processed *bool `json:"processed"`
}

// TransactionResponse is the common view of a transaction.
type TransactionResponse struct {
	ID           int64                 `json:"id"`
	UTORid       string                `json:"utorid"`
	Type         model.TransactionType `json:"type"`
	Spent        *float64              `json:"spent,omitempty"`
	Amount       int64                 `json:"amount"`
	Earned       *int64                `json:"earned,omitempty"`
	Redeemed     *int64                `json:"redeemed,omitempty"`
	RelatedID    *int64                `json:"relatedId,omitempty"`
	PromotionIDs []int64               `json:"promotionIds"`
	Suspicious   bool                  `json:"suspicious"`
	Processed    *bool                 `json:"processed,omitempty"`
	ProcessedBy  *string               `json:"processedBy,omitempty"`
	Remark       string                `json:"remark"`
	CreatedBy    string                `json:"createdBy"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// TransferResponse is returned to the sender of a transfer.
type TransferResponse struct {
	ID        int64                 `json:"id"`
	Sender    string                `json:"sender"`
	Recipient string                `json:"recipient"`
	Type      model.TransactionType `json:"type"`
	Sent      int64                 `json:"sent"`
	Remark    string                `json:"remark"`
	CreatedBy string                `json:"createdBy"`
}

// ToTransactionResponse converts a model.Transaction to TransactionResponse.
func ToTransactionResponse(t *model.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:           t.ID,
		UTORid:       t.UTORid,
		Type:         t.Type,
		Spent:        t.Spent,
		Amount:       t.Amount,
		Redeemed:     t.Redeemed,
		RelatedID:    t.RelatedID,
		PromotionIDs: t.PromotionIDs,
		Suspicious:   t.Suspicious,
		ProcessedBy:  t.ProcessedBy,
		Remark:       t.Remark,
		CreatedBy:    t.CreatedBy,
		CreatedAt:    t.CreatedAt,
	}
	if resp.PromotionIDs == nil {
		resp.PromotionIDs = []int64{}
	}
	if t.Type == model.TransactionRedemption {
		processed := t.Processed
		resp.Processed = &processed
	}
	return resp
}

// ToPurchaseResponse adds the credited points to a purchase.
func ToPurchaseResponse(t *model.Transaction, earned int64) TransactionResponse {
	resp := ToTransactionResponse(t)
	resp.Earned = &earned
	return resp
}

// ToTransferResponse builds the sender's view of a transfer.
func ToTransferResponse(sent, received *model.Transaction) TransferResponse {
	return TransferResponse{
		ID:        sent.ID,
		Sender:    sent.UTORid,
		Recipient: received.UTORid,
		Type:      sent.Type,
		Sent:      -sent.Amount,
		Remark:    sent.Remark,
		CreatedBy: sent.CreatedBy,
	}
}
