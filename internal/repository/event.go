package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/perks/perks/internal/model"
)

// Common errors for event repository operations.
var (
	ErrEventNotFound           = errors.New("event not found")
	ErrEventFull               = errors.New("event is full")
	ErrAlreadyGuest            = errors.New("user is already a guest")
	ErrAlreadyOrganizer        = errors.New("user is already an organizer")
	ErrNotGuest                = errors.New("user is not a guest")
	ErrNotOrganizer            = errors.New("user is not an organizer")
	ErrInsufficientEventPoints = errors.New("event has insufficient points remaining")
)

// EventFilter defines filters for listing events.
type EventFilter struct {
	Name      string
	Location  string
	Started   *bool
	Ended     *bool
	Now       time.Time
	ShowFull  bool
	Published *bool
}

const eventColumns = `
	e.id, e.name, e.description, e.location, e.start_time, e.end_time, e.capacity,
	e.points_remain, e.points_awarded, e.published, e.created_at,
	(SELECT COUNT(*) FROM event_guests g WHERE g.event_id = e.id)
`

// CreateEvent inserts a new event.
func (r *Repository) CreateEvent(ctx context.Context, e *model.Event) error {
	query := `
		INSERT INTO events (name, description, location, start_time, end_time, capacity, points_remain, points_awarded, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		e.Name,
		e.Description,
		e.Location,
		e.StartTime,
		e.EndTime,
		e.Capacity,
		e.PointsRemain,
		e.PointsAwarded,
		e.Published,
	).Scan(&e.ID, &e.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

// GetEventByID retrieves an event by its ID.
func (r *Repository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	return getEvent(ctx, r.pool, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id)
}

func lockEvent(ctx context.Context, tx pgx.Tx, id int64) (*model.Event, error) {
	return getEvent(ctx, tx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1 FOR UPDATE`, id)
}

func getEvent(ctx context.Context, q querier, query string, id int64) (*model.Event, error) {
	e, err := scanEvent(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// ListEvents retrieves a page of events along with the total match count.
func (r *Repository) ListEvents(ctx context.Context, filter EventFilter, page Page) ([]*model.Event, int, error) {
	var w whereBuilder
	if filter.Name != "" {
		w.add(`e.name ILIKE $%d`, likePattern(filter.Name))
	}
	if filter.Location != "" {
		w.add(`e.location ILIKE $%d`, likePattern(filter.Location))
	}
	if filter.Started != nil {
		if *filter.Started {
			w.add(`e.start_time <= $%d`, filter.Now)
		} else {
			w.add(`e.start_time > $%d`, filter.Now)
		}
	}
	if filter.Ended != nil {
		if *filter.Ended {
			w.add(`e.end_time <= $%d`, filter.Now)
		} else {
			w.add(`e.end_time > $%d`, filter.Now)
		}
	}
	if !filter.ShowFull {
		w.addRaw(`(e.capacity IS NULL OR (SELECT COUNT(*) FROM event_guests g WHERE g.event_id = e.id) < e.capacity)`)
	}
	if filter.Published != nil {
		w.add(`e.published = $%d`, *filter.Published)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events e`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	limit, args := w.paginate(page)
	query := `SELECT ` + eventColumns + ` FROM events e` + w.sql() + ` ORDER BY e.start_time, e.id` + limit

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating events: %w", err)
	}

	return events, total, nil
}

// UpdateEvent persists all mutable event fields.
// The point total is e.TotalPoints(); pointsRemain is recomputed against the
// stored pointsAwarded so concurrent awards are never overwritten.
func (r *Repository) UpdateEvent(ctx context.Context, e *model.Event) error {
	query := `
		UPDATE events
		SET name = $2, description = $3, location = $4, start_time = $5, end_time = $6,
		    capacity = $7, points_remain = $8 - points_awarded, published = $9
		WHERE id = $1
		RETURNING points_remain, points_awarded
	`

	err := r.pool.QueryRow(ctx, query,
		e.ID,
		e.Name,
		e.Description,
		e.Location,
		e.StartTime,
		e.EndTime,
		e.Capacity,
		e.TotalPoints(),
		e.Published,
	).Scan(&e.PointsRemain, &e.PointsAwarded)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrEventNotFound
		}
		if isCheckViolation(err) {
			return ErrInsufficientEventPoints
		}
		return fmt.Errorf("failed to update event: %w", err)
	}

	return nil
}

// DeleteEvent removes an event with its organizers and guests.
func (r *Repository) DeleteEvent(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}

	return nil
}

// ListOrganizers returns the organizers of an event.
func (r *Repository) ListOrganizers(ctx context.Context, eventID int64) ([]model.EventMember, error) {
	return r.listMembers(ctx, `
		SELECT u.id, u.utorid, u.name
		FROM event_organizers o JOIN users u ON u.id = o.user_id
		WHERE o.event_id = $1
		ORDER BY u.id
	`, eventID)
}

// ListGuests returns the guests of an event.
func (r *Repository) ListGuests(ctx context.Context, eventID int64) ([]model.EventMember, error) {
	return r.listMembers(ctx, `
		SELECT u.id, u.utorid, u.name
		FROM event_guests g JOIN users u ON u.id = g.user_id
		WHERE g.event_id = $1
		ORDER BY g.joined_at, u.id
	`, eventID)
}

func (r *Repository) listMembers(ctx context.Context, query string, eventID int64) ([]model.EventMember, error) {
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list event members: %w", err)
	}
	defer rows.Close()

	members := []model.EventMember{}
	for rows.Next() {
		var m model.EventMember
		if err := rows.Scan(&m.ID, &m.UTORid, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan event member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event members: %w", err)
	}

	return members, nil
}

// IsOrganizer reports whether the user organizes the event.
func (r *Repository) IsOrganizer(ctx context.Context, eventID, userID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM event_organizers WHERE event_id = $1 AND user_id = $2)`, eventID, userID)
}

// IsGuest reports whether the user is on the event's guest list.
func (r *Repository) IsGuest(ctx context.Context, eventID, userID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM event_guests WHERE event_id = $1 AND user_id = $2)`, eventID, userID)
}

func (r *Repository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

// AddOrganizer adds a user to the event's organizers.
func (r *Repository) AddOrganizer(ctx context.Context, eventID, userID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO event_organizers (event_id, user_id) VALUES ($1, $2)`, eventID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyOrganizer
		}
		if isForeignKeyViolation(err) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to add organizer: %w", err)
	}
	return nil
}

// RemoveOrganizer removes a user from the event's organizers.
func (r *Repository) RemoveOrganizer(ctx context.Context, eventID, userID int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM event_organizers WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove organizer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotOrganizer
	}
	return nil
}

// AddGuest adds a user to the guest list, enforcing capacity under a row lock.
// It returns the event as it stands after the insert.
func (r *Repository) AddGuest(ctx context.Context, eventID, userID int64) (*model.Event, error) {
	var event *model.Event
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		e, err := lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM event_guests WHERE event_id = $1 AND user_id = $2)`,
			eventID, userID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check guest: %w", err)
		}
		// A repeat add reports the duplicate even once the event is full.
		if exists {
			return ErrAlreadyGuest
		}
		if e.IsFull() {
			return ErrEventFull
		}

		_, err = tx.Exec(ctx, `INSERT INTO event_guests (event_id, user_id) VALUES ($1, $2)`, eventID, userID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyGuest
			}
			return fmt.Errorf("failed to add guest: %w", err)
		}

		e.NumGuests++
		event = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// RemoveGuest removes a user from the guest list.
func (r *Repository) RemoveGuest(ctx context.Context, eventID, userID int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM event_guests WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove guest: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotGuest
	}
	return nil
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.Description,
		&e.Location,
		&e.StartTime,
		&e.EndTime,
		&e.Capacity,
		&e.PointsRemain,
		&e.PointsAwarded,
		&e.Published,
		&e.CreatedAt,
		&e.NumGuests,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
