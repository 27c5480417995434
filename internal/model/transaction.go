package model

import (
	"math"
	"time"
)

// TransactionType identifies how points moved.
type TransactionType string

const (
	TransactionPurchase   TransactionType = "purchase"
	TransactionAdjustment TransactionType = "adjustment"
	TransactionRedemption TransactionType = "redemption"
	TransactionTransfer   TransactionType = "transfer"
	TransactionEvent      TransactionType = "event"
)

// IsValid checks if the transaction type is known.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionPurchase, TransactionAdjustment, TransactionRedemption, TransactionTransfer, TransactionEvent:
		return true
	}
	return false
}

// CentsPerPoint is the base earning rate: one point per 25 cents spent.
const CentsPerPoint = 25

// Transaction is a logged reward-earning or redemption event.
//
// Amount is the signed point delta applied to the owner's balance. For
// redemptions it is negative and only applied once the transaction is
// processed. RelatedID depends on Type: the adjusted transaction for
// adjustments, the counterparty user for transfers, the event for event
// awards and the processing cashier for redemptions.
type Transaction struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"-"`
	UTORid       string          `json:"utorid"`
	Type         TransactionType `json:"type"`
	Spent        *float64        `json:"spent,omitempty"`
	Amount       int64           `json:"amount"`
	Redeemed     *int64          `json:"redeemed,omitempty"`
	RelatedID    *int64          `json:"relatedId,omitempty"`
	PromotionIDs []int64         `json:"promotionIds"`
	Suspicious   bool            `json:"suspicious"`
	Processed    bool            `json:"processed"`
	ProcessedBy  *string         `json:"processedBy,omitempty"`
	Remark       string          `json:"remark"`
	CreatedBy    string          `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// BaseEarned returns the points earned for spending without promotions.
func BaseEarned(spent float64) int64 {
	return roundPoints(spent * 100 / CentsPerPoint)
}

// roundPoints rounds half away from zero.
func roundPoints(v float64) int64 {
	return int64(math.Round(v))
}

// Credited reports whether the amount has been applied to the owner's balance.
func (t *Transaction) Credited() bool {
	if t.Suspicious {
		return false
	}
	if t.Type == TransactionRedemption {
		return t.Processed
	}
	return true
}
