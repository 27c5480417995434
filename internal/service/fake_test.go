package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/repository"
)

// fakeStore is an in-memory stand-in for *repository.Repository.
type fakeStore struct {
	mu sync.Mutex

	nextID     int64
	users      map[int64]*model.User
	promotions map[int64]*model.Promotion
	usages     map[[2]int64]bool
	events     map[int64]*model.Event
	organizers map[int64]map[int64]bool
	guests     map[int64]map[int64]bool
	txs        map[int64]*model.Transaction

	lastUserFilter  repository.UserFilter
	lastPromoFilter repository.PromotionFilter
	lastEventFilter repository.EventFilter
	lastTxFilter    repository.TransactionFilter
	lastPage        repository.Page
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[int64]*model.User{},
		promotions: map[int64]*model.Promotion{},
		usages:     map[[2]int64]bool{},
		events:     map[int64]*model.Event{},
		organizers: map[int64]map[int64]bool{},
		guests:     map[int64]map[int64]bool{},
		txs:        map[int64]*model.Transaction{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

// addUser stores a user and returns it.
func (f *fakeStore) addUser(utorid string, role model.Role, points int64) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &model.User{
		ID:       f.id(),
		UTORid:   utorid,
		Name:     utorid,
		Email:    utorid + "@mail.utoronto.ca",
		Role:     role,
		Points:   points,
		Verified: true,
	}
	f.users[u.ID] = u
	cp := *u
	return &cp
}

func (f *fakeStore) points(id int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].Points
}

// --- UserStore ---

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.UTORid == user.UTORid {
			return repository.ErrUTORidExists
		}
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	user.ID = f.id()
	user.CreatedAt = time.Now()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByUTORid(_ context.Context, utorid string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.UTORid == utorid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeStore) GetUserByResetToken(_ context.Context, token string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrTokenNotFound
}

func (f *fakeStore) ListUsers(_ context.Context, filter repository.UserFilter, page repository.Page) ([]*model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUserFilter, f.lastPage = filter, page
	var out []*model.User
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	for _, other := range f.users {
		if other.ID != user.ID && other.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	u.Name, u.Email, u.Birthday, u.Role = user.Name, user.Email, user.Birthday, user.Role
	u.Verified, u.Suspicious, u.AvatarURL = user.Verified, user.Suspicious, user.AvatarURL
	return nil
}

func (f *fakeStore) SetPassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = &hash
	u.ResetToken, u.ResetExpiresAt = nil, nil
	return nil
}

func (f *fakeStore) SetResetToken(_ context.Context, id int64, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.ResetToken, u.ResetExpiresAt = &token, &expiresAt
	return nil
}

func (f *fakeStore) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

// --- PromotionStore ---

func (f *fakeStore) CreatePromotion(_ context.Context, p *model.Promotion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id()
	cp := *p
	f.promotions[p.ID] = &cp
	return nil
}

func (f *fakeStore) GetPromotionByID(_ context.Context, id int64) (*model.Promotion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.promotions[id]
	if !ok || p.DeletedAt != nil {
		return nil, repository.ErrPromotionNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetPromotionsByIDs(_ context.Context, ids []int64) ([]*model.Promotion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Promotion
	for _, id := range ids {
		if p, ok := f.promotions[id]; ok && p.DeletedAt == nil {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) UsedPromotionIDs(_ context.Context, userID int64, ids []int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var used []int64
	for _, id := range ids {
		if f.usages[[2]int64{userID, id}] {
			used = append(used, id)
		}
	}
	return used, nil
}

func (f *fakeStore) ListPromotions(_ context.Context, filter repository.PromotionFilter, page repository.Page) ([]*model.Promotion, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPromoFilter, f.lastPage = filter, page
	var out []*model.Promotion
	for _, p := range f.promotions {
		if p.DeletedAt == nil {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) ListUsablePromotions(_ context.Context, userID int64, now time.Time) ([]*model.Promotion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Promotion
	for _, p := range f.promotions {
		if p.DeletedAt == nil && p.Type == model.PromotionOneTime && p.IsActive(now) && !f.usages[[2]int64{userID, p.ID}] {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdatePromotion(_ context.Context, p *model.Promotion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.promotions[p.ID]; !ok {
		return repository.ErrPromotionNotFound
	}
	cp := *p
	f.promotions[p.ID] = &cp
	return nil
}

func (f *fakeStore) DeletePromotion(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.promotions[id]
	if !ok || p.DeletedAt != nil {
		return repository.ErrPromotionNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	return nil
}

// --- EventStore ---

func (f *fakeStore) CreateEvent(_ context.Context, e *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = f.id()
	cp := *e
	f.events[e.ID] = &cp
	f.organizers[e.ID] = map[int64]bool{}
	f.guests[e.ID] = map[int64]bool{}
	return nil
}

func (f *fakeStore) GetEventByID(_ context.Context, id int64) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := *e
	cp.NumGuests = len(f.guests[id])
	return &cp, nil
}

func (f *fakeStore) ListEvents(_ context.Context, filter repository.EventFilter, page repository.Page) ([]*model.Event, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastEventFilter, f.lastPage = filter, page
	var out []*model.Event
	for _, e := range f.events {
		cp := *e
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateEvent(_ context.Context, e *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.events[e.ID]
	if !ok {
		return repository.ErrEventNotFound
	}
	remain := e.TotalPoints() - stored.PointsAwarded
	if remain < 0 {
		return repository.ErrInsufficientEventPoints
	}
	cp := *e
	cp.PointsRemain, cp.PointsAwarded = remain, stored.PointsAwarded
	f.events[e.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteEvent(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return repository.ErrEventNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeStore) members(set map[int64]bool) []model.EventMember {
	var out []model.EventMember
	for id := range set {
		u := f.users[id]
		out = append(out, model.EventMember{ID: u.ID, UTORid: u.UTORid, Name: u.Name})
	}
	slices.SortFunc(out, func(a, b model.EventMember) int { return int(a.ID - b.ID) })
	return out
}

func (f *fakeStore) ListOrganizers(_ context.Context, eventID int64) ([]model.EventMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members(f.organizers[eventID]), nil
}

func (f *fakeStore) ListGuests(_ context.Context, eventID int64) ([]model.EventMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members(f.guests[eventID]), nil
}

func (f *fakeStore) IsOrganizer(_ context.Context, eventID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.organizers[eventID][userID], nil
}

func (f *fakeStore) IsGuest(_ context.Context, eventID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.guests[eventID][userID], nil
}

func (f *fakeStore) AddOrganizer(_ context.Context, eventID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[eventID]; !ok {
		return repository.ErrEventNotFound
	}
	if f.organizers[eventID][userID] {
		return repository.ErrAlreadyOrganizer
	}
	f.organizers[eventID][userID] = true
	return nil
}

func (f *fakeStore) RemoveOrganizer(_ context.Context, eventID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.organizers[eventID][userID] {
		return repository.ErrNotOrganizer
	}
	delete(f.organizers[eventID], userID)
	return nil
}

func (f *fakeStore) AddGuest(_ context.Context, eventID, userID int64) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	e.NumGuests = len(f.guests[eventID])
	if f.guests[eventID][userID] {
		return nil, repository.ErrAlreadyGuest
	}
	if e.IsFull() {
		return nil, repository.ErrEventFull
	}
	f.guests[eventID][userID] = true
	e.NumGuests++
	cp := *e
	return &cp, nil
}

func (f *fakeStore) RemoveGuest(_ context.Context, eventID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.guests[eventID][userID] {
		return repository.ErrNotGuest
	}
	delete(f.guests[eventID], userID)
	return nil
}

// --- TransactionStore ---

func (f *fakeStore) insert(t *model.Transaction) {
	t.ID = f.id()
	t.CreatedAt = time.Now()
	if t.PromotionIDs == nil {
		t.PromotionIDs = []int64{}
	}
	cp := *t
	f.txs[t.ID] = &cp
}

func (f *fakeStore) GetTransactionByID(_ context.Context, id int64) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txs[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) ListTransactions(_ context.Context, filter repository.TransactionFilter, page repository.Page) ([]*model.Transaction, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTxFilter, f.lastPage = filter, page
	var out []*model.Transaction
	for _, t := range f.txs {
		if filter.UserID != nil && t.UserID != *filter.UserID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeStore) RecordPurchase(_ context.Context, t *model.Transaction, oneTimeIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range oneTimeIDs {
		if f.usages[[2]int64{t.UserID, id}] {
			return repository.ErrPromotionUsed
		}
	}
	for _, id := range oneTimeIDs {
		f.usages[[2]int64{t.UserID, id}] = true
	}
	f.insert(t)
	if t.Credited() {
		f.users[t.UserID].Points += t.Amount
	}
	return nil
}

func (f *fakeStore) RecordAdjustment(_ context.Context, t *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	related, ok := f.txs[*t.RelatedID]
	if !ok {
		return repository.ErrTransactionNotFound
	}
	if related.UserID != t.UserID {
		return repository.ErrRelatedMismatch
	}
	f.insert(t)
	f.users[t.UserID].Points += t.Amount
	return nil
}

func (f *fakeStore) RecordRedemption(_ context.Context, t *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users[t.UserID].Points < *t.Redeemed {
		return repository.ErrInsufficientPoints
	}
	f.insert(t)
	return nil
}

func (f *fakeStore) RecordTransfer(_ context.Context, sent, received *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users[sent.UserID].Points < -sent.Amount {
		return repository.ErrInsufficientPoints
	}
	for _, t := range []*model.Transaction{sent, received} {
		f.insert(t)
		f.users[t.UserID].Points += t.Amount
	}
	return nil
}

func (f *fakeStore) ProcessRedemption(_ context.Context, id int64, cashier *model.AuthContext) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txs[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	if t.Type != model.TransactionRedemption {
		return nil, repository.ErrNotRedemption
	}
	if t.Processed {
		return nil, repository.ErrAlreadyProcessed
	}
	if t.Suspicious {
		return nil, repository.ErrSuspiciousRedemption
	}
	t.Processed = true
	t.ProcessedBy = &cashier.UTORid
	t.RelatedID = &cashier.UserID
	f.users[t.UserID].Points += t.Amount
	cp := *t
	return &cp, nil
}

func (f *fakeStore) SetTransactionSuspicious(_ context.Context, id int64, suspicious bool) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txs[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	before := t.Credited()
	t.Suspicious = suspicious
	after := t.Credited()
	switch {
	case before && !after:
		f.users[t.UserID].Points -= t.Amount
	case !before && after:
		f.users[t.UserID].Points += t.Amount
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) AwardEventPoints(_ context.Context, eventID int64, awards []*model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return repository.ErrEventNotFound
	}
	var total int64
	for _, t := range awards {
		total += t.Amount
	}
	if total > e.PointsRemain {
		return repository.ErrInsufficientEventPoints
	}
	for _, t := range awards {
		f.insert(t)
		f.users[t.UserID].Points += t.Amount
	}
	e.PointsRemain -= total
	e.PointsAwarded += total
	return nil
}

// fakeAuthCache records auth cache traffic.
type fakeAuthCache struct {
	entries map[int64]*model.AuthContext
	deletes []int64
}

func newFakeAuthCache() *fakeAuthCache {
	return &fakeAuthCache{entries: map[int64]*model.AuthContext{}}
}

func (c *fakeAuthCache) GetAuthContext(_ context.Context, userID int64) (*model.AuthContext, error) {
	return c.entries[userID], nil
}

func (c *fakeAuthCache) SetAuthContext(_ context.Context, auth *model.AuthContext) error {
	c.entries[auth.UserID] = auth
	return nil
}

func (c *fakeAuthCache) DeleteAuthContext(_ context.Context, userID int64) error {
	delete(c.entries, userID)
	c.deletes = append(c.deletes, userID)
	return nil
}

// fixedClock returns a now func pinned to t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func staff(u *model.User) *model.AuthContext {
	return model.AuthContextFromUser(u)
}
