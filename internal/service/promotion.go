package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/perks/perks/internal/cache"
	"github.com/perks/perks/internal/metrics"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/repository"
)

// PromotionService handles promotion business logic.
type PromotionService struct {
	promotions PromotionStore
	cache      PromotionCache
	metrics    metrics.Recorder
	now        func() time.Time
}

// NewPromotionService creates a new PromotionService. cache may be nil.
func NewPromotionService(promotions PromotionStore, cache PromotionCache, recorder metrics.Recorder) *PromotionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &PromotionService{
		promotions: promotions,
		cache:      cache,
		metrics:    recorder,
		now:        time.Now,
	}
}

// CreatePromotionInput defines input for creating a promotion.
type CreatePromotionInput struct {
	Name        string
	Description string
	Type        model.PromotionType
	StartTime   time.Time
	EndTime     time.Time
	MinSpending *float64
	Rate        *float64
	Points      *int64
}

// CreatePromotion creates a new promotion.
func (s *PromotionService) CreatePromotion(ctx context.Context, input CreatePromotionInput) (*model.Promotion, error) {
	now := s.now()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if !input.Type.IsValid() {
		return nil, invalid("type", "must be %q or %q", model.PromotionAutomatic, model.PromotionOneTime)
	}
	if input.StartTime.IsZero() || input.EndTime.IsZero() {
		return nil, invalid("", "startTime and endTime are required")
	}
	if input.StartTime.Before(now) {
		return nil, invalid("startTime", "must not be in the past")
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, invalid("endTime", "must be after startTime")
	}
	if err := validatePromotionNumbers(input.MinSpending, input.Rate, input.Points); err != nil {
		return nil, err
	}

	p := &model.Promotion{
		Name:        name,
		Description: input.Description,
		Type:        input.Type,
		StartTime:   input.StartTime.UTC(),
		EndTime:     input.EndTime.UTC(),
		MinSpending: input.MinSpending,
		Rate:        input.Rate,
	}
	if input.Points != nil {
		p.Points = *input.Points
	}

	if err := s.promotions.CreatePromotion(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create promotion: %w", err)
	}

	s.metrics.IncPromotionCreated()
	// The new ID may have been negatively cached.
	s.evict(ctx, p.ID)
	return p, nil
}

func validatePromotionNumbers(minSpending, rate *float64, points *int64) error {
	if minSpending != nil && *minSpending <= 0 {
		return invalid("minSpending", "must be positive")
	}
	if rate != nil && *rate <= 0 {
		return invalid("rate", "must be positive")
	}
	if points != nil && *points < 0 {
		return invalid("points", "must not be negative")
	}
	return nil
}

// ListPromotionsInput defines filters for listing promotions.
type ListPromotionsInput struct {
	Name    string
	Type    *model.PromotionType
	Started *bool
	Ended   *bool
	PageRequest
}

// ListPromotions lists promotions visible to the caller.
// Below manager clearance only active promotions the caller can still use are visible.
func (s *PromotionService) ListPromotions(ctx context.Context, caller *model.AuthContext, input ListPromotionsInput) (*ListResult[*model.Promotion], error) {
	page, err := input.toPage()
	if err != nil {
		return nil, err
	}
	if input.Type != nil && !input.Type.IsValid() {
		return nil, invalid("type", "must be %q or %q", model.PromotionAutomatic, model.PromotionOneTime)
	}

	filter := repository.PromotionFilter{
		Name:    input.Name,
		Type:    input.Type,
		Started: input.Started,
		Ended:   input.Ended,
		Now:     s.now(),
	}

	if !caller.IsManager() {
		// Asking for upcoming or ended promotions can only match nothing.
		if (input.Started != nil && !*input.Started) || (input.Ended != nil && *input.Ended) {
			return newListResult[*model.Promotion](nil, 0), nil
		}
		started, ended := true, false
		filter.Started = &started
		filter.Ended = &ended
		filter.UsableBy = &caller.UserID
	}

	promos, total, err := s.promotions.ListPromotions(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}

	return newListResult(promos, total), nil
}

// GetPromotion retrieves a promotion visible to the caller.
func (s *PromotionService) GetPromotion(ctx context.Context, caller *model.AuthContext, id int64) (*model.Promotion, error) {
	p, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsManager() && !p.IsActive(s.now()) {
		return nil, ErrPromotionNotFound
	}
	return p, nil
}

// lookup reads a promotion through the cache.
func (s *PromotionService) lookup(ctx context.Context, id int64) (*model.Promotion, error) {
	if s.cache != nil {
		cached, err := s.cache.GetPromotion(ctx, id)
		if err == nil {
			s.metrics.IncPromotionCacheHit()
			return cached, nil
		}
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.IncPromotionCacheMiss()
			if negative, _ := s.cache.IsNegativelyCached(ctx, id); negative {
				return nil, ErrPromotionNotFound
			}
		} else {
			slog.Warn("promotion_cache_get_failed", "promotion_id", id, "error", err)
		}
	}

	p, err := s.promotions.GetPromotionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			if s.cache != nil {
				_ = s.cache.SetNegativeCache(ctx, id)
			}
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("failed to get promotion: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetPromotion(ctx, p); err != nil {
			slog.Warn("promotion_cache_set_failed", "promotion_id", id, "error", err)
		}
	}
	return p, nil
}

// UpdatePromotionInput defines the fields that may change on a promotion.
type UpdatePromotionInput struct {
	Name        *string
	Description *string
	Type        *model.PromotionType
	StartTime   *time.Time
	EndTime     *time.Time
	MinSpending *float64
	Rate        *float64
	Points      *int64
}

func (in UpdatePromotionInput) empty() bool {
	return in.Name == nil && in.Description == nil && in.Type == nil && in.StartTime == nil &&
		in.EndTime == nil && in.MinSpending == nil && in.Rate == nil && in.Points == nil
}

func (in UpdatePromotionInput) onlyEndTime() bool {
	return in.Name == nil && in.Description == nil && in.Type == nil && in.StartTime == nil &&
		in.MinSpending == nil && in.Rate == nil && in.Points == nil
}

// UpdatePromotion updates a promotion.
// Everything except endTime freezes once the promotion starts; endTime freezes once it ends.
func (s *PromotionService) UpdatePromotion(ctx context.Context, id int64, input UpdatePromotionInput) (*model.Promotion, error) {
	if input.empty() {
		return nil, invalid("", "no fields to update")
	}

	p, err := s.promotions.GetPromotionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("failed to get promotion: %w", err)
	}

	now := s.now()
	if p.HasStarted(now) && !input.onlyEndTime() {
		return nil, invalid("", "only endTime can change after the promotion has started")
	}
	if input.EndTime != nil && p.HasEnded(now) {
		return nil, invalid("endTime", "cannot change after the promotion has ended")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		p.Name = name
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Type != nil {
		if !input.Type.IsValid() {
			return nil, invalid("type", "must be %q or %q", model.PromotionAutomatic, model.PromotionOneTime)
		}
		p.Type = *input.Type
	}
	if input.StartTime != nil {
		if input.StartTime.Before(now) {
			return nil, invalid("startTime", "must not be in the past")
		}
		p.StartTime = input.StartTime.UTC()
	}
	if input.EndTime != nil {
		if input.EndTime.Before(now) {
			return nil, invalid("endTime", "must not be in the past")
		}
		p.EndTime = input.EndTime.UTC()
	}
	if !p.EndTime.After(p.StartTime) {
		return nil, invalid("endTime", "must be after startTime")
	}
	if err := validatePromotionNumbers(input.MinSpending, input.Rate, input.Points); err != nil {
		return nil, err
	}
	if input.MinSpending != nil {
		p.MinSpending = input.MinSpending
	}
	if input.Rate != nil {
		p.Rate = input.Rate
	}
	if input.Points != nil {
		p.Points = *input.Points
	}

	if err := s.promotions.UpdatePromotion(ctx, p); err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("failed to update promotion: %w", err)
	}

	s.evict(ctx, id)
	return p, nil
}

// DeletePromotion soft-deletes a promotion that has not started yet.
func (s *PromotionService) DeletePromotion(ctx context.Context, id int64) error {
	p, err := s.promotions.GetPromotionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			return ErrPromotionNotFound
		}
		return fmt.Errorf("failed to get promotion: %w", err)
	}
	if p.HasStarted(s.now()) {
		return ErrPromotionStarted
	}

	if err := s.promotions.DeletePromotion(ctx, id); err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			return ErrPromotionNotFound
		}
		return fmt.Errorf("failed to delete promotion: %w", err)
	}

	s.metrics.IncPromotionDeleted()
	s.evict(ctx, id)
	return nil
}

func (s *PromotionService) evict(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePromotion(ctx, id); err != nil {
		slog.Warn("promotion_cache_delete_failed", "promotion_id", id, "error", err)
	}
}
