package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/perks/perks/internal/model"
)

// Common errors for promotion repository operations.
var (
	ErrPromotionNotFound = errors.New("promotion not found")
	ErrPromotionUsed     = errors.New("promotion already used")
)

// PromotionFilter defines filters for listing promotions.
// Started and Ended are evaluated against Now.
type PromotionFilter struct {
	Name    string
	Type    *model.PromotionType
	Started *bool
	Ended   *bool
	Now     time.Time
	// UsableBy hides one-time promotions the user already redeemed.
	UsableBy *int64
}

const promotionColumns = `
	id, name, description, type, start_time, end_time, min_spending::float8, rate, points, created_at, deleted_at
`

// CreatePromotion inserts a new promotion.
func (r *Repository) CreatePromotion(ctx context.Context, p *model.Promotion) error {
	query := `
		INSERT INTO promotions (name, description, type, start_time, end_time, min_spending, rate, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.Name,
		p.Description,
		p.Type,
		p.StartTime,
		p.EndTime,
		p.MinSpending,
		p.Rate,
		p.Points,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create promotion: %w", err)
	}

	return nil
}

// GetPromotionByID retrieves a live promotion by its ID.
func (r *Repository) GetPromotionByID(ctx context.Context, id int64) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1 AND deleted_at IS NULL`

	p, err := scanPromotion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("failed to get promotion by ID: %w", err)
	}

	return p, nil
}

// GetPromotionsByIDs retrieves the live promotions among ids.
// Missing IDs are simply absent from the result.
func (r *Repository) GetPromotionsByIDs(ctx context.Context, ids []int64) ([]*model.Promotion, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = ANY($1) AND deleted_at IS NULL ORDER BY id`

	rows, err := r.pool.Query(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get promotions: %w", err)
	}
	defer rows.Close()

	return collectPromotions(rows)
}

// UsedPromotionIDs returns which of ids the user has already redeemed.
func (r *Repository) UsedPromotionIDs(ctx context.Context, userID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT promotion_id FROM promotion_usages WHERE user_id = $1 AND promotion_id = ANY($2)`

	rows, err := r.pool.Query(ctx, query, userID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get promotion usages: %w", err)
	}
	defer rows.Close()

	var used []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan promotion usage: %w", err)
		}
		used = append(used, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating promotion usages: %w", err)
	}

	return used, nil
}

// ListPromotions retrieves a page of promotions along with the total match count.
func (r *Repository) ListPromotions(ctx context.Context, filter PromotionFilter, page Page) ([]*model.Promotion, int, error) {
	w := promotionWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM promotions`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count promotions: %w", err)
	}

	limit, args := w.paginate(page)
	query := `SELECT ` + promotionColumns + ` FROM promotions` + w.sql() + ` ORDER BY start_time, id` + limit

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list promotions: %w", err)
	}
	defer rows.Close()

	promotions, err := collectPromotions(rows)
	if err != nil {
		return nil, 0, err
	}

	return promotions, total, nil
}

// ListUsablePromotions returns active one-time promotions the user has not used yet.
func (r *Repository) ListUsablePromotions(ctx context.Context, userID int64, now time.Time) ([]*model.Promotion, error) {
	started, ended := true, false
	oneTime := model.PromotionOneTime
	w := promotionWhere(PromotionFilter{
		Type:     &oneTime,
		Started:  &started,
		Ended:    &ended,
		Now:      now,
		UsableBy: &userID,
	})

	query := `SELECT ` + promotionColumns + ` FROM promotions` + w.sql() + ` ORDER BY end_time, id`

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list usable promotions: %w", err)
	}
	defer rows.Close()

	return collectPromotions(rows)
}

func promotionWhere(filter PromotionFilter) *whereBuilder {
	w := &whereBuilder{}
	w.addRaw(`deleted_at IS NULL`)

	if filter.Name != "" {
		w.add(`name ILIKE $%d`, likePattern(filter.Name))
	}
	if filter.Type != nil {
		w.add(`type = $%d`, *filter.Type)
	}
	if filter.Started != nil {
		if *filter.Started {
			w.add(`start_time <= $%d`, filter.Now)
		} else {
			w.add(`start_time > $%d`, filter.Now)
		}
	}
	if filter.Ended != nil {
		if *filter.Ended {
			w.add(`end_time <= $%d`, filter.Now)
		} else {
			w.add(`end_time > $%d`, filter.Now)
		}
	}
	if filter.UsableBy != nil {
		w.add(`NOT (type = 'one-time' AND EXISTS (
			SELECT 1 FROM promotion_usages pu WHERE pu.promotion_id = promotions.id AND pu.user_id = $%d))`,
			*filter.UsableBy)
	}

	return w
}

// UpdatePromotion persists all mutable promotion fields.
func (r *Repository) UpdatePromotion(ctx context.Context, p *model.Promotion) error {
	query := `
		UPDATE promotions
		SET name = $2, description = $3, type = $4, start_time = $5, end_time = $6,
		    min_spending = $7, rate = $8, points = $9
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Type,
		p.StartTime,
		p.EndTime,
		p.MinSpending,
		p.Rate,
		p.Points,
	)

	if err != nil {
		return fmt.Errorf("failed to update promotion: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrPromotionNotFound
	}

	return nil
}

// DeletePromotion soft deletes a promotion.
func (r *Repository) DeletePromotion(ctx context.Context, id int64) error {
	query := `UPDATE promotions SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete promotion: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrPromotionNotFound
	}

	return nil
}

func collectPromotions(rows pgx.Rows) ([]*model.Promotion, error) {
	var promotions []*model.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan promotion: %w", err)
		}
		promotions = append(promotions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating promotions: %w", err)
	}

	return promotions, nil
}

func scanPromotion(row rowScanner) (*model.Promotion, error) {
	var p model.Promotion
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Type,
		&p.StartTime,
		&p.EndTime,
		&p.MinSpending,
		&p.Rate,
		&p.Points,
		&p.CreatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
