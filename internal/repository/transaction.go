package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/perks/perks/internal/model"
)

// Common errors for transaction repository operations.
var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrInsufficientPoints   = errors.New("insufficient points")
	ErrNotRedemption        = errors.New("transaction is not a redemption")
	ErrAlreadyProcessed     = errors.New("redemption already processed")
	ErrSuspiciousRedemption = errors.New("redemption is flagged suspicious")
	ErrRelatedMismatch      = errors.New("related transaction belongs to another user")
)

// AmountOperator compares transaction amounts in list filters.
type AmountOperator string

const (
	AmountGTE AmountOperator = "gte"
	AmountLTE AmountOperator = "lte"
)

// TransactionFilter defines filters for listing transactions.
type TransactionFilter struct {
	UserID      *int64
	Name        string
	CreatedBy   string
	Suspicious  *bool
	PromotionID *int64
	Type        *model.TransactionType
	RelatedID   *int64
	Amount      *int64
	Operator    AmountOperator
}

const transactionColumns = `
	t.id, t.user_id, u.utorid, t.type, t.spent::float8, t.amount, t.redeemed, t.related_id,
	t.promotion_ids, t.suspicious, t.processed, t.processed_by, t.remark, t.created_by, t.created_at
`

const transactionFrom = ` FROM transactions t JOIN users u ON u.id = t.user_id`

// GetTransactionByID retrieves a transaction by its ID.
func (r *Repository) GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error) {
	return getTransaction(ctx, r.pool, `SELECT `+transactionColumns+transactionFrom+` WHERE t.id = $1`, id)
}

func lockTransaction(ctx context.Context, tx pgx.Tx, id int64) (*model.Transaction, error) {
	return getTransaction(ctx, tx, `SELECT `+transactionColumns+transactionFrom+` WHERE t.id = $1 FOR UPDATE OF t`, id)
}

func getTransaction(ctx context.Context, q querier, query string, id int64) (*model.Transaction, error) {
	t, err := scanTransaction(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions retrieves a page of transactions, newest first, along with the total match count.
func (r *Repository) ListTransactions(ctx context.Context, filter TransactionFilter, page Page) ([]*model.Transaction, int, error) {
	var w whereBuilder
	if filter.UserID != nil {
		w.add(`t.user_id = $%d`, *filter.UserID)
	}
	if filter.Name != "" {
		w.add(`(u.utorid ILIKE $%[1]d OR u.name ILIKE $%[1]d)`, likePattern(filter.Name))
	}
	if filter.CreatedBy != "" {
		w.add(`t.created_by = $%d`, filter.CreatedBy)
	}
	if filter.Suspicious != nil {
		w.add(`t.suspicious = $%d`, *filter.Suspicious)
	}
	if filter.PromotionID != nil {
		w.add(`$%d = ANY(t.promotion_ids)`, *filter.PromotionID)
	}
	if filter.Type != nil {
		w.add(`t.type = $%d`, *filter.Type)
	}
	if filter.RelatedID != nil {
		w.add(`t.related_id = $%d`, *filter.RelatedID)
	}
	if filter.Amount != nil {
		switch filter.Operator {
		case AmountGTE:
			w.add(`t.amount >= $%d`, *filter.Amount)
		case AmountLTE:
			w.add(`t.amount <= $%d`, *filter.Amount)
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+transactionFrom+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	limit, args := w.paginate(page)
	query := `SELECT ` + transactionColumns + transactionFrom + w.sql() + ` ORDER BY t.id DESC` + limit

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, total, nil
}

// RecordPurchase stores a purchase, marks one-time promotions as used and
// credits the customer unless the purchase is flagged suspicious.
func (r *Repository) RecordPurchase(ctx context.Context, t *model.Transaction, oneTimeIDs []int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockUser(ctx, tx, t.UserID); err != nil {
			return err
		}

		for _, id := range oneTimeIDs {
			_, err := tx.Exec(ctx, `INSERT INTO promotion_usages (user_id, promotion_id) VALUES ($1, $2)`, t.UserID, id)
			if err != nil {
				if isUniqueViolation(err) {
					return ErrPromotionUsed
				}
				return fmt.Errorf("failed to record promotion usage: %w", err)
			}
		}

		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}

		if t.Credited() {
			return addPoints(ctx, tx, t.UserID, t.Amount)
		}
		return nil
	})
}

// RecordAdjustment stores an adjustment against an earlier transaction of the
// same user and applies its amount.
func (r *Repository) RecordAdjustment(ctx context.Context, t *model.Transaction) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if t.RelatedID == nil {
			return ErrTransactionNotFound
		}
		related, err := getTransaction(ctx, tx, `SELECT `+transactionColumns+transactionFrom+` WHERE t.id = $1`, *t.RelatedID)
		if err != nil {
			return err
		}
		if related.UserID != t.UserID {
			return ErrRelatedMismatch
		}

		if _, err := lockUser(ctx, tx, t.UserID); err != nil {
			return err
		}

		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}

		return addPoints(ctx, tx, t.UserID, t.Amount)
	})
}

// RecordRedemption stores a pending redemption request after checking the balance.
func (r *Repository) RecordRedemption(ctx context.Context, t *model.Transaction) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		user, err := lockUser(ctx, tx, t.UserID)
		if err != nil {
			return err
		}
		if t.Redeemed == nil || user.Points < *t.Redeemed {
			return ErrInsufficientPoints
		}
		return insertTransaction(ctx, tx, t)
	})
}

// RecordTransfer moves points between two users, storing one row per side.
func (r *Repository) RecordTransfer(ctx context.Context, sent, received *model.Transaction) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		// Lock in ID order so opposite transfers cannot deadlock.
		first, second := sent.UserID, received.UserID
		if second < first {
			first, second = second, first
		}
		locked := map[int64]*model.User{}
		for _, id := range []int64{first, second} {
			u, err := lockUser(ctx, tx, id)
			if err != nil {
				return err
			}
			locked[id] = u
		}

		if locked[sent.UserID].Points < -sent.Amount {
			return ErrInsufficientPoints
		}

		for _, t := range []*model.Transaction{sent, received} {
			if err := insertTransaction(ctx, tx, t); err != nil {
				return err
			}
			if err := addPoints(ctx, tx, t.UserID, t.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}

// ProcessRedemption completes a pending redemption and deducts the points.
func (r *Repository) ProcessRedemption(ctx context.Context, id int64, cashier *model.AuthContext) (*model.Transaction, error) {
	var result *model.Transaction
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		t, err := lockTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		if t.Type != model.TransactionRedemption {
			return ErrNotRedemption
		}
		if t.Processed {
			return ErrAlreadyProcessed
		}
		if t.Suspicious {
			return ErrSuspiciousRedemption
		}

		user, err := lockUser(ctx, tx, t.UserID)
		if err != nil {
			return err
		}
		if user.Points < -t.Amount {
			return ErrInsufficientPoints
		}

		_, err = tx.Exec(ctx, `
			UPDATE transactions SET processed = TRUE, processed_by = $2, related_id = $3 WHERE id = $1
		`, t.ID, cashier.UTORid, cashier.UserID)
		if err != nil {
			return fmt.Errorf("failed to process redemption: %w", err)
		}

		t.Processed = true
		t.ProcessedBy = &cashier.UTORid
		t.RelatedID = &cashier.UserID
		if t.Credited() {
			if err := addPoints(ctx, tx, t.UserID, t.Amount); err != nil {
				return err
			}
		}

		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetTransactionSuspicious flags or clears a transaction and moves the owner's
// balance so that only credited transactions count.
func (r *Repository) SetTransactionSuspicious(ctx context.Context, id int64, suspicious bool) (*model.Transaction, error) {
	var result *model.Transaction
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		t, err := lockTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		if t.Suspicious == suspicious {
			result = t
			return nil
		}

		if _, err := lockUser(ctx, tx, t.UserID); err != nil {
			return err
		}

		wasCredited := t.Credited()
		t.Suspicious = suspicious

		if _, err := tx.Exec(ctx, `UPDATE transactions SET suspicious = $2 WHERE id = $1`, t.ID, suspicious); err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}

		var delta int64
		switch {
		case wasCredited && !t.Credited():
			delta = -t.Amount
		case !wasCredited && t.Credited():
			delta = t.Amount
		}
		if err := addPoints(ctx, tx, t.UserID, delta); err != nil {
			return err
		}

		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AwardEventPoints stores event awards and moves points from the event to the guests.
func (r *Repository) AwardEventPoints(ctx context.Context, eventID int64, awards []*model.Transaction) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		e, err := lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}

		var total int64
		for _, t := range awards {
			total += t.Amount
		}
		if total > e.PointsRemain {
			return ErrInsufficientEventPoints
		}

		for _, t := range awards {
			if err := insertTransaction(ctx, tx, t); err != nil {
				return err
			}
			if err := addPoints(ctx, tx, t.UserID, t.Amount); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE events SET points_remain = points_remain - $2, points_awarded = points_awarded + $2 WHERE id = $1
		`, eventID, total)
		if err != nil {
			return fmt.Errorf("failed to update event points: %w", err)
		}
		return nil
	})
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t *model.Transaction) error {
	if t.PromotionIDs == nil {
		t.PromotionIDs = []int64{}
	}

	query := `
		INSERT INTO transactions (user_id, type, spent, amount, redeemed, related_id, promotion_ids,
		                          suspicious, processed, processed_by, remark, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		t.UserID,
		t.Type,
		t.Spent,
		t.Amount,
		t.Redeemed,
		t.RelatedID,
		pq.Array(t.PromotionIDs),
		t.Suspicious,
		t.Processed,
		t.ProcessedBy,
		t.Remark,
		t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var t model.Transaction
	var promotionIDs []int64
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.UTORid,
		&t.Type,
		&t.Spent,
		&t.Amount,
		&t.Redeemed,
		&t.RelatedID,
		pq.Array(&promotionIDs),
		&t.Suspicious,
		&t.Processed,
		&t.ProcessedBy,
		&t.Remark,
		&t.CreatedBy,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.PromotionIDs = promotionIDs
	if t.PromotionIDs == nil {
		t.PromotionIDs = []int64{}
	}
	return &t, nil
}
