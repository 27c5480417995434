package dto

import (
	"time"

	"github.com/perks/perks/internal/model"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Capacity    *int       `json:"capacity"`
	Points      *int64     `json:"points"`
}

// UpdateEventRequest is the request body for PATCH /events/{id}.
// Capacity may be set to null to remove the limit.
type UpdateEventRequest struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description"`
	Location    *string     `json:"location"`
	StartTime   *time.Time  `json:"startTime"`
	EndTime     *time.Time  `json:"endTime"`
	Capacity    NullableInt `json:"capacity"`
	Points      *int64      `json:"points"`
	Published   *bool       `json:"published"`
}

// MemberRequest names a user to add as organizer or guest.
type MemberRequest struct {
	UTORid string `json:"utorid"`
}

// AwardRequest is the request body for POST /events/{id}/transactions.
type AwardRequest struct {
	Type   string  `json:"type"`
	UTORid *string `json:"utorid"`
	Amount *int64  `json:"amount"`
	Remark string  `json:"remark"`
}

// EventResponse is an event as seen by its managers.
type EventResponse struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Location      string              `json:"location"`
	StartTime     time.Time           `json:"startTime"`
	EndTime       time.Time           `json:"endTime"`
	Capacity      *int                `json:"capacity"`
	PointsRemain  int64               `json:"pointsRemain"`
	PointsAwarded int64               `json:"pointsAwarded"`
	Published     bool                `json:"published"`
	NumGuests     int                 `json:"numGuests"`
	Organizers    []model.EventMember `json:"organizers,omitempty"`
	Guests        []model.EventMember `json:"guests,omitempty"`
}

// PublicEventResponse omits point and publication details.
type PublicEventResponse struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Location    string              `json:"location"`
	StartTime   time.Time           `json:"startTime"`
	EndTime     time.Time           `json:"endTime"`
	Capacity    *int                `json:"capacity"`
	NumGuests   int                 `json:"numGuests"`
	Organizers  []model.EventMember `json:"organizers,omitempty"`
}

// OrganizersResponse is returned after adding an organizer.
type OrganizersResponse struct {
	ID         int64               `json:"id"`
	Name       string              `json:"name"`
	Location   string              `json:"location"`
	Organizers []model.EventMember `json:"organizers"`
}

// GuestAddedResponse is returned after adding a guest.
type GuestAddedResponse struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Location   string            `json:"location"`
	GuestAdded model.EventMember `json:"guestAdded"`
	NumGuests  int               `json:"numGuests"`
}

// ToEventResponse converts a model.Event to EventResponse.
func ToEventResponse(e *model.Event) EventResponse {
	return EventResponse{
		ID:            e.ID,
		Name:          e.Name,
		Description:   e.Description,
		Location:      e.Location,
		StartTime:     e.StartTime,
		EndTime:       e.EndTime,
		Capacity:      e.Capacity,
		PointsRemain:  e.PointsRemain,
		PointsAwarded: e.PointsAwarded,
		Published:     e.Published,
		NumGuests:     e.NumGuests,
	}
}

// ToPublicEventResponse converts a model.Event to PublicEventResponse.
func ToPublicEventResponse(e *model.Event) PublicEventResponse {
	return PublicEventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Location:    e.Location,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Capacity:    e.Capacity,
		NumGuests:   e.NumGuests,
	}
}
