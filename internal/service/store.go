package service

import (
	"context"
	"time"

	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/repository"
)

// UserStore persists users. *repository.Repository satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUTORid(ctx context.Context, utorid string) (*model.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*model.User, error)
	ListUsers(ctx context.Context, filter repository.UserFilter, page repository.Page) ([]*model.User, int, error)
	UpdateUser(ctx context.Context, user *model.User) error
	SetPassword(ctx context.Context, id int64, hash string) error
	SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// PromotionStore persists promotions.
type PromotionStore interface {
	CreatePromotion(ctx context.Context, p *model.Promotion) error
	GetPromotionByID(ctx context.Context, id int64) (*model.Promotion, error)
	GetPromotionsByIDs(ctx context.Context, ids []int64) ([]*model.Promotion, error)
	UsedPromotionIDs(ctx context.Context, userID int64, ids []int64) ([]int64, error)
	ListPromotions(ctx context.Context, filter repository.PromotionFilter, page repository.Page) ([]*model.Promotion, int, error)
	ListUsablePromotions(ctx context.Context, userID int64, now time.Time) ([]*model.Promotion, error)
	UpdatePromotion(ctx context.Context, p *model.Promotion) error
	DeletePromotion(ctx context.Context, id int64) error
}

// EventStore persists events and their members.
type EventStore interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	ListEvents(ctx context.Context, filter repository.EventFilter, page repository.Page) ([]*model.Event, int, error)
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id int64) error
	ListOrganizers(ctx context.Context, eventID int64) ([]model.EventMember, error)
	ListGuests(ctx context.Context, eventID int64) ([]model.EventMember, error)
	IsOrganizer(ctx context.Context, eventID, userID int64) (bool, error)
	IsGuest(ctx context.Context, eventID, userID int64) (bool, error)
	AddOrganizer(ctx context.Context, eventID, userID int64) error
	RemoveOrganizer(ctx context.Context, eventID, userID int64) error
	AddGuest(ctx context.Context, eventID, userID int64) (*model.Event, error)
	RemoveGuest(ctx context.Context, eventID, userID int64) error
}

// TransactionStore records point movements.
type TransactionStore interface {
	GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter repository.TransactionFilter, page repository.Page) ([]*model.Transaction, int, error)
	RecordPurchase(ctx context.Context, t *model.Transaction, oneTimeIDs []int64) error
	RecordAdjustment(ctx context.Context, t *model.Transaction) error
	RecordRedemption(ctx context.Context, t *model.Transaction) error
	RecordTransfer(ctx context.Context, sent, received *model.Transaction) error
	ProcessRedemption(ctx context.Context, id int64, cashier *model.AuthContext) (*model.Transaction, error)
	SetTransactionSuspicious(ctx context.Context, id int64, suspicious bool) (*model.Transaction, error)
	AwardEventPoints(ctx context.Context, eventID int64, awards []*model.Transaction) error
}

// AuthCache caches resolved auth contexts. *cache.Cache satisfies it.
type AuthCache interface {
	GetAuthContext(ctx context.Context, userID int64) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, auth *model.AuthContext) error
	DeleteAuthContext(ctx context.Context, userID int64) error
}

// PromotionCache caches promotion lookups.
type PromotionCache interface {
	GetPromotion(ctx context.Context, id int64) (*model.Promotion, error)
	SetPromotion(ctx context.Context, p *model.Promotion) error
	DeletePromotion(ctx context.Context, id int64) error
	IsNegativelyCached(ctx context.Context, id int64) (bool, error)
	SetNegativeCache(ctx context.Context, id int64) error
}
