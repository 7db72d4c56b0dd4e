package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/rsvphub/internal/admission"
	"github.com/geocoder89/rsvphub/internal/cache"
	"github.com/geocoder89/rsvphub/internal/domain/event"
	"github.com/geocoder89/rsvphub/internal/events"
	"github.com/geocoder89/rsvphub/internal/observability"
	"github.com/geocoder89/rsvphub/internal/repo/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	events.Store
	listCalls int
	listErr   error
	// afterList runs once the snapshot is read, before the service caches it
	afterList func()
}

func (c *countingStore) List(ctx context.Context, f event.ListEventsFilter) ([]event.Summary, error) {
	c.listCalls++
	if c.listErr != nil {
		return nil, c.listErr
	}
	items, err := c.Store.List(ctx, f)
	if c.afterList != nil {
		c.afterList()
	}
	return items, err
}

func createReq(title string, capacity int) event.CreateEventRequest {
	return event.CreateEventRequest{
		Title:       title,
		Description: "<p>Bring <b>friends</b></p><script>alert(1)</script>",
		Date:        time.Now().Add(24 * time.Hour),
		Location:    "Lagos <i>Island</i>",
		Capacity:    capacity,
	}
}

func TestService_CreateSanitizes(t *testing.T) {
	svc := events.NewService(memory.NewEventsRepo(nil), nil, nil)

	e, err := svc.Create(context.Background(), createReq("<b>Jazz</b> Night", 10), "org-1")
	require.NoError(t, err)

	assert.Equal(t, "Jazz Night", e.Title)
	assert.Equal(t, "Lagos Island", e.Location)
	assert.Contains(t, e.Description, "<b>friends</b>")
	assert.NotContains(t, e.Description, "script")
	assert.Equal(t, "org-1", e.OrganizerID)
	assert.Empty(t, e.Attendees)
}

func TestService_CreateRejectsMarkupOnlyTitle(t *testing.T) {
	svc := events.NewService(memory.NewEventsRepo(nil), nil, nil)

	_, err := svc.Create(context.Background(), createReq("<script>x</script>", 10), "org-1")
	require.ErrorIs(t, err, events.ErrEmptyAfterSanitize)
}

func TestService_ListCachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.NewEventsRepo(nil)}
	prom := observability.NewProm(prometheus.NewRegistry())
	svc := events.NewService(store, cache.New(time.Minute), prom)

	_, err := svc.Create(ctx, createReq("Jazz", 5), "org")
	require.NoError(t, err)

	first, err := svc.List(ctx, "")
	require.NoError(t, err)
	second, err := svc.List(ctx, "  ")
	require.NoError(t, err)

	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, first, second)
	assert.Equal(t, float64(1), testutil.ToFloat64(prom.CacheLookups.WithLabelValues("hit")))

	_, err = svc.Create(ctx, createReq("Chess", 5), "org")
	require.NoError(t, err)

	after, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, after, 2)
	assert.Equal(t, 2, store.listCalls)
}

func TestService_ListSearchUsesOwnCacheEntry(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.NewEventsRepo(nil)}
	svc := events.NewService(store, cache.New(time.Minute), nil)

	_, _ = svc.Create(ctx, createReq("Jazz", 5), "org")
	_, _ = svc.Create(ctx, createReq("Chess", 5), "org")

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	jazz, err := svc.List(ctx, " JAZZ ")
	require.NoError(t, err)
	require.Len(t, jazz, 1)
	assert.Equal(t, "Jazz", jazz[0].Title)

	_, err = svc.List(ctx, "jazz")
	require.NoError(t, err)
	assert.Equal(t, 2, store.listCalls)
}

func TestService_ListStoreError(t *testing.T) {
	boom := errors.New("db down")
	store := &countingStore{Store: memory.NewEventsRepo(nil), listErr: boom}
	svc := events.NewService(store, cache.New(time.Minute), nil)

	_, err := svc.List(context.Background(), "")
	require.ErrorIs(t, err, boom)
}

func TestService_DeleteOwnership(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewEventsRepo(nil)
	lists := cache.New(time.Minute)
	svc := events.NewService(repo, lists, nil)

	e, err := svc.Create(ctx, createReq("Talk", 5), "owner")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, e.ID, "intruder"), event.ErrNotOrganizer)

	_, err = svc.Get(ctx, e.ID)
	require.NoError(t, err)

	_, err = svc.List(ctx, "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, e.ID, "owner"))

	items, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.Get(ctx, e.ID)
	require.ErrorIs(t, err, event.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, e.ID, "owner"), event.ErrNotFound)
}

func TestService_ListDoesNotCacheSnapshotOlderThanInvalidation(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewEventsRepo(nil)
	store := &countingStore{Store: repo}
	lists := cache.New(time.Minute)
	svc := events.NewService(store, lists, nil)
	seats := admission.New(repo, lists, nil)

	e, err := svc.Create(ctx, createReq("Jazz", 5), "org")
	require.NoError(t, err)

	// an RSVP commits while the list read is in flight
	store.afterList = func() {
		store.afterList = nil
		_, err := seats.Join(ctx, e.ID, "guest")
		require.NoError(t, err)
	}

	stale, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, 0, stale[0].AttendeesCount)

	fresh, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, 1, fresh[0].AttendeesCount)
	assert.Equal(t, 2, store.listCalls)
}
