package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/rsvphub/internal/domain/event"
	"github.com/geocoder89/rsvphub/internal/domain/user"
)

// EventsRepo is an in-process store for development and tests. The mutex is
// this store's equivalent of a document-level atomic update: JoinIfOpen
// evaluates its conditions and appends under a single lock acquisition.
type EventsRepo struct {
	mu    sync.RWMutex
	items map[string]event.Event
	users *UsersRepo
}

func NewEventsRepo(users *UsersRepo) *EventsRepo {
	if users == nil {
		users = NewUsersRepo()
	}
	return &EventsRepo{
		items: make(map[string]event.Event),
		users: users,
	}
}

func (r *EventsRepo) Create(_ context.Context, e event.Event) (event.Event, error) {
	e.Images = append([]string{}, e.Images...)
	e.Attendees = append([]string{}, e.Attendees...)

	r.mu.Lock()
	r.items[e.ID] = e
	r.mu.Unlock()

	return e, nil
}

func (r *EventsRepo) List(_ context.Context, filter event.ListEventsFilter) ([]event.Summary, error) {
	needle := ""
	if filter.Search != nil {
		needle = strings.ToLower(*filter.Search)
	}

	r.mu.RLock()
	matched := make([]event.Event, 0, len(r.items))
	for _, e := range r.items {
		if needle != "" &&
			!strings.Contains(strings.ToLower(e.Title), needle) &&
			!strings.Contains(strings.ToLower(e.Location), needle) {
			continue
		}
		matched = append(matched, e)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date.Equal(matched[j].Date) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].Date.Before(matched[j].Date)
	})

	out := make([]event.Summary, 0, len(matched))
	for _, e := range matched {
		s := event.Summary{
			ID:             e.ID,
			Title:          e.Title,
			Date:           e.Date,
			Location:       e.Location,
			Capacity:       e.Capacity,
			Organizer:      user.MinimalProfile{ID: e.OrganizerID},
			AttendeesCount: len(e.Attendees),
		}
		if len(e.Images) > 0 {
			s.Thumbnail = e.Images[0]
		}
		if u, ok := r.users.lookup(e.OrganizerID); ok {
			s.Organizer = u.Minimal()
		}
		out = append(out, s)
	}

	return out, nil
}

func (r *EventsRepo) GetDetail(_ context.Context, id string) (event.Detail, error) {
	r.mu.RLock()
	e, ok := r.items[id]
	if ok {
		e.Attendees = append([]string{}, e.Attendees...)
	}
	r.mu.RUnlock()

	if !ok {
		return event.Detail{}, event.ErrNotFound
	}

	d := event.Detail{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Date:           e.Date,
		Location:       e.Location,
		Capacity:       e.Capacity,
		Images:         append([]string{}, e.Images...),
		Organizer:      user.PublicProfile{ID: e.OrganizerID},
		Attendees:      make([]user.PublicProfile, 0, len(e.Attendees)),
		AttendeesCount: len(e.Attendees),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}

	if u, ok := r.users.lookup(e.OrganizerID); ok {
		d.Organizer = u.Public()
	}

	for _, uid := range e.Attendees {
		if u, ok := r.users.lookup(uid); ok {
			d.Attendees = append(d.Attendees, u.Public())
		}
	}

	return d, nil
}

func (r *EventsRepo) IsAttendee(_ context.Context, eventID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[eventID]
	if !ok {
		return false, event.ErrNotFound
	}
	return e.HasAttendee(userID), nil
}

func (r *EventsRepo) JoinIfOpen(_ context.Context, eventID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[eventID]
	if !ok || len(e.Attendees) >= e.Capacity || e.HasAttendee(userID) {
		return false, nil
	}

	e.Attendees = append(e.Attendees, userID)
	e.UpdatedAt = time.Now().UTC()
	r.items[eventID] = e

	return true, nil
}

func (r *EventsRepo) DeleteOwned(_ context.Context, id, organizerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[id]
	if !ok {
		return event.ErrNotFound
	}
	if e.OrganizerID != organizerID {
		return event.ErrNotOrganizer
	}

	delete(r.items, id)
	return nil
}

func (r *EventsRepo) Ping(context.Context) error { return nil }
