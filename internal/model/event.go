package model

import (
	"time"
)

// Event is a points-awarding gathering with organizers and guests.
type Event struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	Capacity      *int      `json:"capacity"`
	PointsRemain  int64     `json:"pointsRemain"`
	PointsAwarded int64     `json:"pointsAwarded"`
	Published     bool      `json:"published"`
	NumGuests     int       `json:"numGuests"`
	CreatedAt     time.Time `json:"createdAt"`
}

// EventMember is the public projection of an organizer or guest.
type EventMember struct {
	ID     int64  `json:"id"`
	UTORid string `json:"utorid"`
	Name   string `json:"name"`
}

// HasStarted returns true once the start time has passed.
func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartTime)
}

// HasEnded returns true once the end time has passed.
func (e *Event) HasEnded(now time.Time) bool {
	return !now.Before(e.EndTime)
}

// IsFull reports whether the guest list reached capacity.
// Events without a capacity are never full.
func (e *Event) IsFull() bool {
	return e.Capacity != nil && e.NumGuests >= *e.Capacity
}

// TotalPoints returns the points originally allocated to the event.
func (e *Event) TotalPoints() int64 {
	return e.PointsRemain + e.PointsAwarded
}
