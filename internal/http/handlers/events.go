package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/rsvphub/internal/admission"
	"github.com/geocoder89/rsvphub/internal/config"
	"github.com/geocoder89/rsvphub/internal/domain/event"
	"github.com/geocoder89/rsvphub/internal/events"
	"github.com/geocoder89/rsvphub/internal/utils"
	"github.com/gin-gonic/gin"
)

const storeTimeout = 3 * time.Second

type EventsService interface {
	Create(ctx context.Context, req event.CreateEventRequest, organizerID string) (event.Event, error)
	List(ctx context.Context, search string) ([]event.Summary, error)
	Get(ctx context.Context, id string) (event.Detail, error)
	Delete(ctx context.Context, id, requesterID string) error
}

type Joiner interface {
	Join(ctx context.Context, eventID, userID string) (admission.JoinResult, error)
}

type EventsHandler struct {
	events EventsService
	seats  Joiner
}

func NewEventsHandler(svc EventsService, seats Joiner) *EventsHandler {
	return &EventsHandler{events: svc, seats: seats}
}

func (h *EventsHandler) CreateEvent(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req event.CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	created, err := h.events.Create(cctx, req, userID)

	if err != nil {
		if errors.Is(err, events.ErrEmptyAfterSanitize) {
			RespondBadRequest(ctx, "Title and location must contain text", nil)
			return
		}
		RespondInternal(ctx, "Could not create event", err)
		return
	}

	ctx.JSON(http.StatusOK, created)
}

func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	items, err := h.events.List(cctx, ctx.Query("search"))

	if err != nil {
		RespondInternal(ctx, "Could not list events", err)
		return
	}

	respondWithETag(ctx, items)
}

func (h *EventsHandler) GetEventByID(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Event not found")
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	d, err := h.events.Get(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not fetch event", err)
		return
	}

	respondWithETag(ctx, d)
}

func (h *EventsHandler) RSVP(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Event not found")
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	res, err := h.seats.Join(cctx, id, userID)

	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, event.ErrAlreadyJoined):
			RespondRejected(ctx, "already_joined", "You have already joined this event")
		case errors.Is(err, event.ErrEventFull):
			RespondRejected(ctx, "event_full", "Event is full")
		default:
			RespondInternal(ctx, "Could not RSVP", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (h *EventsHandler) DeleteEvent(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Event not found")
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	err := h.events.Delete(cctx, id, userID)

	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, event.ErrNotOrganizer):
			RespondUnAuthorized(ctx, "not_authorized", "User not authorized")
		default:
			RespondInternal(ctx, "Could not delete event", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}
