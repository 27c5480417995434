package dto

import (
	"time"

	"github.com/perks/perks/internal/model"
)

// CreatePromotionRequest is the request body for POST /promotions.
type CreatePromotionRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	MinSpending *float64   `json:"minSpending"`
	Rate        *float64   `json:"rate"`
	Points      *int64     `json:"points"`
}

// UpdatePromotionRequest is the request body for PATCH /promotions/{id}.
type UpdatePromotionRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Type        *string    `json:"type"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	MinSpending *float64   `json:"minSpending"`
	Rate        *float64   `json:"rate"`
	Points      *int64     `json:"points"`
}

// PromotionResponse is the full view of a promotion.
type PromotionResponse struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Type        model.PromotionType `json:"type"`
	StartTime   time.Time           `json:"startTime"`
	EndTime     time.Time           `json:"endTime"`
	MinSpending *float64            `json:"minSpending"`
	Rate        *float64            `json:"rate"`
	Points      int64               `json:"points"`
}

// PromotionSummary is embedded in user profiles.
type PromotionSummary struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Type        model.PromotionType `json:"type"`
	EndTime     time.Time           `json:"endTime"`
	MinSpending *float64            `json:"minSpending"`
	Rate        *float64            `json:"rate"`
	Points      int64               `json:"points"`
}

// ToPromotionResponse converts a model.Promotion to PromotionResponse.
func ToPromotionResponse(p *model.Promotion) PromotionResponse {
	return PromotionResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Type:        p.Type,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		MinSpending: p.MinSpending,
		Rate:        p.Rate,
		Points:      p.Points,
	}
}

// ToPromotionSummary converts a model.Promotion to PromotionSummary.
func ToPromotionSummary(p *model.Promotion) PromotionSummary {
	return PromotionSummary{
		ID:          p.ID,
		Name:        p.Name,
		Type:        p.Type,
		EndTime:     p.EndTime,
		MinSpending: p.MinSpending,
		Rate:        p.Rate,
		Points:      p.Points,
	}
}
