package event

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateEventRequest, organizerID string) Event {
	now := time.Now().UTC()

	images := req.Images
	if images == nil {
		images = []string{}
	}

	return Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date.UTC(),
		Location:    req.Location,
		Capacity:    req.Capacity,
		Images:      images,
		OrganizerID: organizerID,
		Attendees:   []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
