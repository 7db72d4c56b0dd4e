// Package admission lets a user take a seat at an event at most once and
// never beyond capacity.
//
// Correctness rests entirely on Store.JoinIfOpen, which must check
// "not already an attendee" and "attendees < capacity" and append in one
// indivisible store operation. Every other read here is advisory: it only
// shapes the error the caller sees.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/rsvphub/internal/cache"
	"github.com/geocoder89/rsvphub/internal/domain/event"
	"github.com/geocoder89/rsvphub/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	outcomeJoined        = "joined"
	outcomeAlreadyJoined = "already_joined"
	outcomeEventFull     = "event_full"
	outcomeNotFound      = "not_found"
	outcomeError         = "error"
)

type Store interface {
	// IsAttendee returns event.ErrNotFound when the event does not exist.
	IsAttendee(ctx context.Context, eventID, userID string) (bool, error)
	// JoinIfOpen appends userID iff it is absent and the event has room.
	// false with a nil error means nothing was written.
	JoinIfOpen(ctx context.Context, eventID, userID string) (bool, error)
}

type JoinResult struct {
	EventID string `json:"eventId"`
	Message string `json:"message"`
}

type Controller struct {
	store Store
	lists cache.ListCache
	prom  *observability.Prom
}

// New builds a Controller; lists and prom may be nil.
func New(store Store, lists cache.ListCache, prom *observability.Prom) *Controller {
	return &Controller{store: store, lists: lists, prom: prom}
}

var tracer = otel.Tracer("github.com/geocoder89/rsvphub/internal/admission")

func (c *Controller) Join(ctx context.Context, eventID, userID string) (JoinResult, error) {
	ctx, span := tracer.Start(ctx, "admission.Join")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", eventID))

	outcome, err := c.join(ctx, eventID, userID)
	c.prom.ObserveRSVP(outcome)
	span.SetAttributes(attribute.String("rsvp.outcome", outcome))

	if err != nil {
		if outcome == outcomeError {
			span.RecordError(err)
			span.SetStatus(codes.Error, "join failed")
		}
		return JoinResult{}, err
	}

	if c.lists != nil {
		c.lists.Invalidate(ctx)
	}

	slog.Default().InfoContext(ctx, "rsvp_joined", "event_id", eventID)

	return JoinResult{EventID: eventID, Message: "RSVP Successful"}, nil
}

func (c *Controller) join(ctx context.Context, eventID, userID string) (string, error) {
	// fast path for a friendlier error; may race, the conditional write decides
	joined, err := c.store.IsAttendee(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			return outcomeNotFound, event.ErrNotFound
		}
		return outcomeError, fmt.Errorf("check attendance: %w", err)
	}
	if joined {
		return outcomeAlreadyJoined, event.ErrAlreadyJoined
	}

	ok, err := c.store.JoinIfOpen(ctx, eventID, userID)
	if err != nil {
		return outcomeError, fmt.Errorf("join event: %w", err)
	}
	if ok {
		return outcomeJoined, nil
	}

	return c.classifyRejection(ctx, eventID, userID)
}

// classifyRejection explains a no-op conditional write. It never writes.
func (c *Controller) classifyRejection(ctx context.Context, eventID, userID string) (string, error) {
	joined, err := c.store.IsAttendee(ctx, eventID, userID)
	switch {
	case errors.Is(err, event.ErrNotFound):
		// deleted between the pre-check and the write
		return outcomeNotFound, event.ErrNotFound
	case err != nil:
		// the write already refused us; the event had no room for this caller
		slog.Default().WarnContext(ctx, "rsvp_classify_failed", "event_id", eventID, "err", err)
		return outcomeEventFull, event.ErrEventFull
	case joined:
		return outcomeAlreadyJoined, event.ErrAlreadyJoined
	default:
		return outcomeEventFull, event.ErrEventFull
	}
}
