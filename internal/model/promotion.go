package model

import (
	"time"
)

// PromotionType distinguishes automatically applied promotions from single-use ones.
type PromotionType string

const (
	PromotionAutomatic PromotionType = "automatic"
	PromotionOneTime   PromotionType = "one-time"
)

// IsValid checks if the promotion type is valid.
func (t PromotionType) IsValid() bool {
	return t == PromotionAutomatic || t == PromotionOneTime
}

// PromotionStatus represents the computed status of a promotion.
type PromotionStatus string

const (
	PromotionStatusUpcoming PromotionStatus = "upcoming"
	PromotionStatusActive   PromotionStatus = "active"
	PromotionStatusEnded    PromotionStatus = "ended"
)

// Promotion represents a discount/reward campaign.
type Promotion struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Type        PromotionType `json:"type"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	MinSpending *float64      `json:"minSpending"`
	Rate        *float64      `json:"rate"`
	Points      int64         `json:"points"`
	CreatedAt   time.Time     `json:"createdAt"`
	DeletedAt   *time.Time    `json:"-"`
}

// StatusAt computes the status of the promotion at the given time.
func (p *Promotion) StatusAt(now time.Time) PromotionStatus {
	switch {
	case now.Before(p.StartTime):
		return PromotionStatusUpcoming
	case !now.Before(p.EndTime):
		return PromotionStatusEnded
	default:
		return PromotionStatusActive
	}
}

// HasStarted returns true once the start time has passed.
func (p *Promotion) HasStarted(now time.Time) bool {
	return !now.Before(p.StartTime)
}

// HasEnded returns true once the end time has passed.
func (p *Promotion) HasEnded(now time.Time) bool {
	return !now.Before(p.EndTime)
}

// IsActive returns true if the promotion can be applied at now.
func (p *Promotion) IsActive(now time.Time) bool {
	return p.StatusAt(now) == PromotionStatusActive
}

// Qualifies reports whether a purchase of spent dollars meets the minimum spending.
func (p *Promotion) Qualifies(spent float64) bool {
	return p.MinSpending == nil || spent >= *p.MinSpending
}

// BonusPoints returns the extra points this promotion grants for a purchase.
// Rate is expressed in points per cent spent.
func (p *Promotion) BonusPoints(spent float64) int64 {
	bonus := p.Points
	if p.Rate != nil {
		bonus += roundPoints(spent * 100 * *p.Rate)
	}
	return bonus
}
