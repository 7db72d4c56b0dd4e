package event

import (
	"errors"
	"time"

	"github.com/geocoder89/rsvphub/internal/domain/user"
)

// Event is the stored record. Attendees holds user ids in RSVP order and is
// only ever appended to by the store's JoinIfOpen.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Capacity    int       `json:"capacity"`
	Images      []string  `json:"images"`
	OrganizerID string    `json:"organizer"`
	Attendees   []string  `json:"attendees"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Summary is the list projection: thumbnail only and an attendee count,
// never the attendee list itself.
type Summary struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Date           time.Time           `json:"date"`
	Location       string              `json:"location"`
	Capacity       int                 `json:"capacity"`
	Thumbnail      string              `json:"thumbnail,omitempty"`
	Organizer      user.MinimalProfile `json:"organizer"`
	AttendeesCount int                 `json:"attendeesCount"`
}

// Detail is the single event view with organizer and attendee profiles expanded.
type Detail struct {
	ID             string               `json:"id"`
	Title          string               `json:"title"`
	Description    string               `json:"description,omitempty"`
	Date           time.Time            `json:"date"`
	Location       string               `json:"location"`
	Capacity       int                  `json:"capacity"`
	Images         []string             `json:"images"`
	Organizer      user.PublicProfile   `json:"organizer"`
	Attendees      []user.PublicProfile `json:"attendees"`
	AttendeesCount int                  `json:"attendeesCount"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// with a nil Search every event is listed
type ListEventsFilter struct {
	Search *string
}

var (
	ErrNotFound      = errors.New("event not found")
	ErrEventFull     = errors.New("event is full")
	ErrAlreadyJoined = errors.New("already joined this event")
	ErrNotOrganizer  = errors.New("requester is not the event organizer")
)

type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" binding:"required"`
	Location    string    `json:"location" binding:"required"`
	Capacity    int       `json:"capacity" binding:"required,gt=0"`
	Images      []string  `json:"images"`
}

// HasAttendee reports whether userID already holds a seat.
func (e Event) HasAttendee(userID string) bool {
	for _, id := range e.Attendees {
		if id == userID {
			return true
		}
	}
	return false
}
