// Package events owns event creation, listing, detail reads and deletion.
// Seats are handled by the admission package.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/rsvphub/internal/cache"
	"github.com/geocoder89/rsvphub/internal/domain/event"
	"github.com/geocoder89/rsvphub/internal/observability"
	"github.com/geocoder89/rsvphub/internal/sanitize"
	"github.com/geocoder89/rsvphub/internal/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Store interface {
	Create(ctx context.Context, e event.Event) (event.Event, error)
	List(ctx context.Context, filter event.ListEventsFilter) ([]event.Summary, error)
	GetDetail(ctx context.Context, id string) (event.Detail, error)
	// DeleteOwned returns event.ErrNotOrganizer when the event exists but
	// belongs to someone else.
	DeleteOwned(ctx context.Context, id, organizerID string) error
}

type Service struct {
	store Store
	lists cache.ListCache
	prom  *observability.Prom
}

// NewService wires the store with an optional list cache and metrics.
func NewService(store Store, lists cache.ListCache, prom *observability.Prom) *Service {
	return &Service{store: store, lists: lists, prom: prom}
}

var tracer = otel.Tracer("github.com/geocoder89/rsvphub/internal/events")

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *Service) Create(ctx context.Context, req event.CreateEventRequest, organizerID string) (event.Event, error) {
	ctx, span := tracer.Start(ctx, "events.Create")
	defer span.End()

	req.Title = sanitize.Text(req.Title)
	req.Location = sanitize.Text(req.Location)
	req.Description = sanitize.HTML(req.Description)

	if req.Title == "" || req.Location == "" {
		return event.Event{}, ErrEmptyAfterSanitize
	}

	created, err := s.store.Create(ctx, event.NewFromCreateRequest(req, organizerID))
	if err != nil {
		fail(span, err)
		return event.Event{}, err
	}

	s.invalidate(ctx)
	span.SetAttributes(attribute.String("event.id", created.ID))
	slog.Default().InfoContext(ctx, "event_created", "event_id", created.ID, "capacity", created.Capacity)

	return created, nil
}

// List returns summaries ordered by date. A blank search lists everything.
func (s *Service) List(ctx context.Context, search string) ([]event.Summary, error) {
	ctx, span := tracer.Start(ctx, "events.List")
	defer span.End()

	var filter event.ListEventsFilter
	if q := strings.TrimSpace(search); q != "" {
		filter.Search = &q
	}

	key := utils.BuildEventsListCacheKey(filter.Search)

	// gen is captured before the store read so a racing invalidation wins
	gen := int64(-1)
	if s.lists != nil {
		raw, g, ok := s.lists.Get(ctx, key)
		gen = g
		if ok {
			var cached []event.Summary
			if err := json.Unmarshal(raw, &cached); err == nil {
				s.prom.ObserveCache(true)
				span.SetAttributes(attribute.Bool("cache.hit", true))
				return cached, nil
			}
		}
		s.prom.ObserveCache(false)
	}

	items, err := s.store.List(ctx, filter)
	if err != nil {
		fail(span, err)
		return nil, err
	}

	if s.lists != nil {
		if raw, err := json.Marshal(items); err == nil {
			s.lists.Set(ctx, gen, key, raw)
		}
	}

	span.SetAttributes(attribute.Int("events.count", len(items)))
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (event.Detail, error) {
	ctx, span := tracer.Start(ctx, "events.Get")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", id))

	d, err := s.store.GetDetail(ctx, id)
	if err != nil && !errors.Is(err, event.ErrNotFound) {
		fail(span, err)
	}
	return d, err
}

// Delete removes the event only when requesterID organizes it.
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	ctx, span := tracer.Start(ctx, "events.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", id))

	if err := s.store.DeleteOwned(ctx, id, requesterID); err != nil {
		if !errors.Is(err, event.ErrNotFound) && !errors.Is(err, event.ErrNotOrganizer) {
			fail(span, err)
		}
		return err
	}

	s.invalidate(ctx)
	slog.Default().InfoContext(ctx, "event_deleted", "event_id", id)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.lists != nil {
		s.lists.Invalidate(ctx)
	}
}
