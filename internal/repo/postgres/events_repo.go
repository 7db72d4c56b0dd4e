package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/rsvphub/internal/domain/event"
	"github.com/geocoder89/rsvphub/internal/domain/user"
	"github.com/geocoder89/rsvphub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// constructor function

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{
		pool: pool,
		prom: prom,
	}
}

// Create inserts e with an empty attendee list.
func (r *EventsRepo) Create(ctx context.Context, e event.Event) (event.Event, error) {
	e.Attendees = []string{}

	err := r.prom.ObserveDB("events.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO events (id, title, description, event_date, location, capacity, images, organizer_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.ID, e.Title, e.Description, e.Date, e.Location, e.Capacity, e.Images, e.OrganizerID, e.CreatedAt, e.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return event.Event{}, fmt.Errorf("insert event: %w", err)
	}

	return e, nil
}

// escapeLike makes the search a literal substring match.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *EventsRepo) List(ctx context.Context, filter event.ListEventsFilter) ([]event.Summary, error) {
	query := `
		SELECT e.id,
		       e.title,
		       e.event_date,
		       e.location,
		       e.capacity,
		       COALESCE(e.images[1], ''),
		       cardinality(e.attendees),
		       e.organizer_id,
		       COALESCE(u.name, ''),
		       COALESCE(u.profile_image, '')
		  FROM events e
		  LEFT JOIN users u ON u.id = e.organizer_id`

	var args []any

	if filter.Search != nil && *filter.Search != "" {
		query += ` WHERE e.title ILIKE $1 ESCAPE '\' OR e.location ILIKE $1 ESCAPE '\'`
		args = append(args, "%"+escapeLike(*filter.Search)+"%")
	}

	query += ` ORDER BY e.event_date ASC, e.id ASC`

	out := make([]event.Summary, 0)

	err := r.prom.ObserveDB("events.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s event.Summary
			err = rows.Scan(
				&s.ID,
				&s.Title,
				&s.Date,
				&s.Location,
				&s.Capacity,
				&s.Thumbnail,
				&s.AttendeesCount,
				&s.Organizer.ID,
				&s.Organizer.Name,
				&s.Organizer.ProfileImage,
			)
			if err != nil {
				return err
			}
			out = append(out, s)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	return out, nil
}

// GetDetail reads the event and its attendee profiles from one snapshot.
func (r *EventsRepo) GetDetail(ctx context.Context, id string) (event.Detail, error) {
	var d event.Detail

	err := r.prom.ObserveDB("events.get_detail", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
			IsoLevel:   pgx.RepeatableRead,
			AccessMode: pgx.ReadOnly,
		})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		err = tx.QueryRow(ctx,
			`SELECT e.id,
			        e.title,
			        e.description,
			        e.event_date,
			        e.location,
			        e.capacity,
			        e.images,
			        e.organizer_id,
			        COALESCE(u.name, ''),
			        COALESCE(u.email, ''),
			        COALESCE(u.mobile, ''),
			        COALESCE(u.profile_image, ''),
			        cardinality(e.attendees),
			        e.created_at,
			        e.updated_at
			   FROM events e
			   LEFT JOIN users u ON u.id = e.organizer_id
			  WHERE e.id = $1`, id,
		).Scan(
			&d.ID,
			&d.Title,
			&d.Description,
			&d.Date,
			&d.Location,
			&d.Capacity,
			&d.Images,
			&d.Organizer.ID,
			&d.Organizer.Name,
			&d.Organizer.Email,
			&d.Organizer.Mobile,
			&d.Organizer.ProfileImage,
			&d.AttendeesCount,
			&d.CreatedAt,
			&d.UpdatedAt,
		)
		if err != nil {
			return err
		}

		rows, err := tx.Query(ctx,
			`SELECT u.id, u.name, u.email, u.mobile, u.profile_image
			   FROM events e
			  CROSS JOIN LATERAL unnest(e.attendees) WITH ORDINALITY AS a(user_id, ord)
			   JOIN users u ON u.id = a.user_id
			  WHERE e.id = $1
			  ORDER BY a.ord`, id,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		d.Attendees = make([]user.PublicProfile, 0, d.AttendeesCount)
		for rows.Next() {
			var p user.PublicProfile
			if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Mobile, &p.ProfileImage); err != nil {
				return err
			}
			d.Attendees = append(d.Attendees, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return event.Detail{}, event.ErrNotFound
		}
		return event.Detail{}, fmt.Errorf("get event: %w", err)
	}

	if d.Images == nil {
		d.Images = []string{}
	}

	return d, nil
}

func (r *EventsRepo) IsAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	var joined bool

	err := r.prom.ObserveDB("events.is_attendee", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT $2::uuid = ANY(attendees) FROM events WHERE id = $1`,
			eventID, userID,
		).Scan(&joined)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return false, event.ErrNotFound
		}
		return false, err
	}
	return joined, nil
}

// JoinIfOpen is a single conditional UPDATE. The row lock serializes
// concurrent joiners and Postgres re-evaluates the WHERE clause against the
// latest row version, so the capacity and duplicate checks cannot go stale.
func (r *EventsRepo) JoinIfOpen(ctx context.Context, eventID, userID string) (bool, error) {
	var id string

	err := r.prom.ObserveDB("events.join_if_open", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE events
			    SET attendees = array_append(attendees, $2::uuid),
			        updated_at = NOW()
			  WHERE id = $1
			    AND cardinality(attendees) < capacity
			    AND NOT ($2::uuid = ANY(attendees))
			RETURNING id`,
			eventID, userID,
		).Scan(&id)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *EventsRepo) DeleteOwned(ctx context.Context, id, organizerID string) error {
	var affected int64

	err := r.prom.ObserveDB("events.delete_owned", func() error {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM events WHERE id = $1 AND organizer_id = $2`,
			id, organizerID,
		)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		if isInvalidUUID(err) {
			return event.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}

	if affected > 0 {
		return nil
	}

	// nothing deleted: either the event is gone or someone else owns it
	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return event.ErrNotFound
	}
	return event.ErrNotOrganizer
}

func (r *EventsRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
