package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/perks/perks/internal/metrics"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/repository"
)

// EventService handles events, their organizers and guests, and point awards.
type EventService struct {
	events       EventStore
	users        UserStore
	transactions TransactionStore
	metrics      metrics.Recorder
	now          func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(events EventStore, users UserStore, transactions TransactionStore, recorder metrics.Recorder) *EventService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &EventService{
		events:       events,
		users:        users,
		transactions: transactions,
		metrics:      recorder,
		now:          time.Now,
	}
}

// CreateEventInput defines input for creating an event.
type CreateEventInput struct {
	Name        string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	Capacity    *int
	Points      int64
}

// CreateEvent creates an unpublished event.
func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*model.Event, error) {
	now := s.now()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	location := strings.TrimSpace(input.Location)
	if location == "" {
		return nil, invalid("location", "is required")
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
	if input.Capacity != nil && *input.Capacity <= 0 {
		return nil, invalid("capacity", "must be positive")
	}
	if input.Points <= 0 {
		return nil, invalid("points", "must be positive")
	}

	e := &model.Event{
		Name:         name,
		Description:  input.Description,
		Location:     location,
		StartTime:    input.StartTime.UTC(),
		EndTime:      input.EndTime.UTC(),
		Capacity:     input.Capacity,
		PointsRemain: input.Points,
	}

	if err := s.events.CreateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.metrics.IncEventCreated()
	return e, nil
}

// ListEventsInput defines filters for listing events.
type ListEventsInput struct {
	Name      string
	Location  string
	Started   *bool
	Ended     *bool
	ShowFull  bool
	Published *bool
	PageRequest
}

// ListEvents lists events visible to the caller.
// Below manager clearance only published events are listed.
func (s *EventService) ListEvents(ctx context.Context, caller *model.AuthContext, input ListEventsInput) (*ListResult[*model.Event], error) {
	page, err := input.toPage()
	if err != nil {
		return nil, err
	}

	filter := repository.EventFilter{
		Name:      input.Name,
		Location:  input.Location,
		Started:   input.Started,
		Ended:     input.Ended,
		Now:       s.now(),
		ShowFull:  input.ShowFull,
		Published: input.Published,
	}
	if !caller.IsManager() {
		published := true
		filter.Published = &published
	}

	events, total, err := s.events.ListEvents(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return newListResult(events, total), nil
}

// EventDetail is an event with its members.
// Guests is nil unless the viewer manages the event.
type EventDetail struct {
	Event      *model.Event
	Organizers []model.EventMember
	Guests     []model.EventMember
}

// GetEvent retrieves an event as seen by the caller.
func (s *EventService) GetEvent(ctx context.Context, caller *model.AuthContext, id int64) (*EventDetail, error) {
	e, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	manages, err := s.manages(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !manages && !e.Published {
		return nil, ErrEventNotFound
	}

	organizers, err := s.events.ListOrganizers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizers: %w", err)
	}
	detail := &EventDetail{Event: e, Organizers: nonNilMembers(organizers)}

	if manages {
		guests, err := s.events.ListGuests(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to list guests: %w", err)
		}
		detail.Guests = nonNilMembers(guests)
	}

	return detail, nil
}

// UpdateEventInput defines the fields that may change on an event.
// Capacity is applied when SetCapacity is true; a nil Capacity removes the limit.
type UpdateEventInput struct {
	Name        *string
	Description *string
	Location    *string
	StartTime   *time.Time
	EndTime     *time.Time
	SetCapacity bool
	Capacity    *int
	Points      *int64
	Published   *bool
}

func (in UpdateEventInput) empty() bool {
	return in.Name == nil && in.Description == nil && in.Location == nil && in.StartTime == nil &&
		in.EndTime == nil && !in.SetCapacity && in.Points == nil && in.Published == nil
}

func (in UpdateEventInput) touchesStartFrozen() bool {
	return in.Name != nil || in.Description != nil || in.Location != nil || in.StartTime != nil || in.SetCapacity
}

// UpdateEvent updates an event on behalf of a manager or one of its organizers.
func (s *EventService) UpdateEvent(ctx context.Context, caller *model.AuthContext, id int64, input UpdateEventInput) (*model.Event, error) {
	e, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireManages(ctx, caller, id); err != nil {
		return nil, err
	}
	if (input.Points != nil || input.Published != nil) && !caller.IsManager() {
		return nil, ErrForbidden
	}
	if input.empty() {
		return nil, invalid("", "no fields to update")
	}

	now := s.now()
	if e.HasStarted(now) && input.touchesStartFrozen() {
		return nil, invalid("", "name, description, location, startTime and capacity cannot change after the event has started")
	}
	if e.HasEnded(now) && input.EndTime != nil {
		return nil, invalid("endTime", "cannot change after the event has ended")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		e.Name = name
	}
	if input.Description != nil {
		e.Description = *input.Description
	}
	if input.Location != nil {
		location := strings.TrimSpace(*input.Location)
		if location == "" {
			return nil, invalid("location", "must not be empty")
		}
		e.Location = location
	}
	if input.StartTime != nil {
		if input.StartTime.Before(now) {
			return nil, invalid("startTime", "must not be in the past")
		}
		e.StartTime = input.StartTime.UTC()
	}
	if input.EndTime != nil {
		if input.EndTime.Before(now) {
			return nil, invalid("endTime", "must not be in the past")
		}
		e.EndTime = input.EndTime.UTC()
	}
	if !e.EndTime.After(e.StartTime) {
		return nil, invalid("endTime", "must be after startTime")
	}
	if input.SetCapacity {
		if input.Capacity != nil {
			if *input.Capacity <= 0 {
				return nil, invalid("capacity", "must be positive")
			}
			if *input.Capacity < e.NumGuests {
				return nil, invalid("capacity", "cannot be lower than the %d confirmed guests", e.NumGuests)
			}
		}
		e.Capacity = input.Capacity
	}
	if input.Points != nil {
		if *input.Points <= 0 {
			return nil, invalid("points", "must be positive")
		}
		if *input.Points < e.PointsAwarded {
			return nil, invalid("points", "cannot be lower than the %d points already awarded", e.PointsAwarded)
		}
		e.PointsRemain = *input.Points - e.PointsAwarded
	}
	if input.Published != nil {
		if !*input.Published {
			return nil, invalid("published", "can only be set to true")
		}
		e.Published = true
	}

	if err := s.events.UpdateEvent(ctx, e); err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return nil, ErrEventNotFound
		case errors.Is(err, repository.ErrInsufficientEventPoints):
			return nil, invalid("points", "cannot be lower than the points already awarded")
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return e, nil
}

// DeleteEvent removes an unpublished event.
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	e, err := s.getEvent(ctx, id)
	if err != nil {
		return err
	}
	if e.Published {
		return ErrEventPublished
	}

	if err := s.events.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// AddOrganizer makes a user an organizer of an event.
func (s *EventService) AddOrganizer(ctx context.Context, id int64, utorid string) (*EventDetail, error) {
	e, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.HasEnded(s.now()) {
		return nil, ErrEventEnded
	}

	user, err := s.userByUTORid(ctx, utorid)
	if err != nil {
		return nil, err
	}

	isGuest, err := s.events.IsGuest(ctx, id, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check guest: %w", err)
	}
	if isGuest {
		return nil, ErrIsGuest
	}

	if err := s.events.AddOrganizer(ctx, id, user.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyOrganizer):
			return nil, ErrAlreadyOrganizer
		case errors.Is(err, repository.ErrEventNotFound):
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to add organizer: %w", err)
	}

	organizers, err := s.events.ListOrganizers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizers: %w", err)
	}
	return &EventDetail{Event: e, Organizers: nonNilMembers(organizers)}, nil
}

// RemoveOrganizer removes an organizer from an event.
func (s *EventService) RemoveOrganizer(ctx context.Context, id, userID int64) error {
	if _, err := s.getEvent(ctx, id); err != nil {
		return err
	}
	if err := s.events.RemoveOrganizer(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotOrganizer) {
			return ErrNotOrganizer
		}
		return fmt.Errorf("failed to remove organizer: %w", err)
	}
	return nil
}

// GuestAdded is the result of adding a guest.
type GuestAdded struct {
	Event *model.Event
	Guest model.EventMember
}

// AddGuest adds a user to the guest list on behalf of a manager or organizer.
func (s *EventService) AddGuest(ctx context.Context, caller *model.AuthContext, id int64, utorid string) (*GuestAdded, error) {
	e, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireManages(ctx, caller, id); err != nil {
		return nil, err
	}

	user, err := s.userByUTORid(ctx, utorid)
	if err != nil {
		return nil, err
	}
	return s.addGuest(ctx, e, user)
}

// JoinEvent adds the caller to the guest list of a published event.
func (s *EventService) JoinEvent(ctx context.Context, caller *model.AuthContext, id int64) (*GuestAdded, error) {
	e, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Published {
		return nil, ErrEventNotFound
	}

	user, err := s.users.GetUserByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return s.addGuest(ctx, e, user)
}

func (s *EventService) addGuest(ctx context.Context, e *model.Event, user *model.User) (*GuestAdded, error) {
	if e.HasEnded(s.now()) {
		return nil, ErrEventEnded
	}

	isOrganizer, err := s.events.IsOrganizer(ctx, e.ID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check organizer: %w", err)
	}
	if isOrganizer {
		return nil, ErrIsOrganizer
	}

	updated, err := s.events.AddGuest(ctx, e.ID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEventFull):
			return nil, ErrEventFull
		case errors.Is(err, repository.ErrAlreadyGuest):
			return nil, ErrAlreadyGuest
		case errors.Is(err, repository.ErrEventNotFound):
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to add guest: %w", err)
	}

	s.metrics.IncEventGuestAdded()
	return &GuestAdded{
		Event: updated,
		Guest: model.EventMember{ID: user.ID, UTORid: user.UTORid, Name: user.Name},
	}, nil
}

// RemoveGuest removes a guest from an event.
func (s *EventService) RemoveGuest(ctx context.Context, id, userID int64) error {
	if _, err := s.getEvent(ctx, id); err != nil {
		return err
	}
	if err := s.events.RemoveGuest(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotGuest) {
			return ErrNotGuest
		}
		return fmt.Errorf("failed to remove guest: %w", err)
	}
	return nil
}

// LeaveEvent removes the caller from the guest list.
func (s *EventService) LeaveEvent(ctx context.Context, caller *model.AuthContext, id int64) error {
	e, err := s.getEvent(ctx, id)
	if err != nil {
		return err
	}
	if e.HasEnded(s.now()) {
		return ErrEventEnded
	}
	if err := s.events.RemoveGuest(ctx, id, caller.UserID); err != nil {
		if errors.Is(err, repository.ErrNotGuest) {
			return ErrNotGuest
		}
		return fmt.Errorf("failed to remove guest: %w", err)
	}
	return nil
}

// AwardInput defines an event points award.
// An empty UTORid awards every guest.
type AwardInput struct {
	UTORid string
	Amount int64
	Remark string
}

// AwardPoints awards event points to one guest or to every guest.
func (s *EventService) AwardPoints(ctx context.Context, caller *model.AuthContext, id int64, input AwardInput) ([]*model.Transaction, error) {
	if _, err := s.getEvent(ctx, id); err != nil {
		return nil, err
	}
	if err := s.requireManages(ctx, caller, id); err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, invalid("amount", "must be a positive integer")
	}

	var recipients []model.EventMember
	if input.UTORid != "" {
		user, err := s.userByUTORid(ctx, input.UTORid)
		if err != nil {
			return nil, err
		}
		isGuest, err := s.events.IsGuest(ctx, id, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check guest: %w", err)
		}
		if !isGuest {
			return nil, invalid("utorid", "%s is not a guest of this event", user.UTORid)
		}
		recipients = []model.EventMember{{ID: user.ID, UTORid: user.UTORid, Name: user.Name}}
	} else {
		guests, err := s.events.ListGuests(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to list guests: %w", err)
		}
		if len(guests) == 0 {
			return nil, invalid("", "event has no guests")
		}
		recipients = guests
	}

	awards := make([]*model.Transaction, 0, len(recipients))
	for _, guest := range recipients {
		eventID := id
		awards = append(awards, &model.Transaction{
			UserID:       guest.ID,
			UTORid:       guest.UTORid,
			Type:         model.TransactionEvent,
			Amount:       input.Amount,
			RelatedID:    &eventID,
			PromotionIDs: []int64{},
			Remark:       input.Remark,
			CreatedBy:    caller.UTORid,
		})
	}

	if err := s.transactions.AwardEventPoints(ctx, id, awards); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientEventPoints):
			return nil, ErrInsufficientEventPoints
		case errors.Is(err, repository.ErrEventNotFound):
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to award event points: %w", err)
	}

	for range awards {
		s.metrics.IncTransaction(string(model.TransactionEvent))
	}
	s.metrics.AddPoints(string(model.TransactionEvent), input.Amount*int64(len(awards)))
	return awards, nil
}

func (s *EventService) getEvent(ctx context.Context, id int64) (*model.Event, error) {
	e, err := s.events.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (s *EventService) userByUTORid(ctx context.Context, utorid string) (*model.User, error) {
	if strings.TrimSpace(utorid) == "" {
		return nil, invalid("utorid", "is required")
	}
	user, err := s.users.GetUserByUTORid(ctx, strings.ToLower(strings.TrimSpace(utorid)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// manages reports whether the caller is a manager or an organizer of the event.
func (s *EventService) manages(ctx context.Context, caller *model.AuthContext, id int64) (bool, error) {
	if caller.IsManager() {
		return true, nil
	}
	ok, err := s.events.IsOrganizer(ctx, id, caller.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to check organizer: %w", err)
	}
	return ok, nil
}

func (s *EventService) requireManages(ctx context.Context, caller *model.AuthContext, id int64) error {
	ok, err := s.manages(ctx, caller, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func nonNilMembers(m []model.EventMember) []model.EventMember {
	if m == nil {
		return []model.EventMember{}
	}
	return m
}
