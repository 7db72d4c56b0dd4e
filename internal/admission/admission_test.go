package admission_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geocoder89/rsvphub/internal/admission"
	"github.com/geocoder89/rsvphub/internal/cache"
	"github.com/geocoder89/rsvphub/internal/domain/event"
	"github.com/geocoder89/rsvphub/internal/observability"
	"github.com/geocoder89/rsvphub/internal/repo/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func seedEvent(t *testing.T, repo *memory.EventsRepo, organizerID string, capacity int) event.Event {
	t.Helper()

	e := event.NewFromCreateRequest(event.CreateEventRequest{
		Title:    "Rooftop Jazz",
		Date:     time.Now().Add(48 * time.Hour),
		Location: "Lagos",
		Capacity: capacity,
	}, organizerID)

	created, err := repo.Create(context.Background(), e)
	require.NoError(t, err)
	return created
}

func TestJoin_Success(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewEventsRepo(nil)
	e := seedEvent(t, repo, "organizer", 2)

	c := admission.New(repo, nil, nil)

	res, err := c.Join(ctx, e.ID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, e.ID, res.EventID)
	assert.Equal(t, "RSVP Successful", res.Message)

	d, err := repo.GetDetail(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.AttendeesCount)
}

func TestJoin_AlreadyJoinedNeverAppendsTwice(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewEventsRepo(nil)
	e := seedEvent(t, repo, "organizer", 5)
	c := admission.New(repo, nil, nil)

	_, err := c.Join(ctx, e.ID, "u-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = c.Join(ctx, e.ID, "u-1")
		require.ErrorIs(t, err, event.ErrAlreadyJoined)
	}

	d, err := repo.GetDetail(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.AttendeesCount)
}

func TestJoin_EventFull(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewEventsRepo(nil)
	e := seedEvent(t, repo, "organizer", 1)
	c := admission.New(repo, nil, nil)

	_, err := c.Join(ctx, e.ID, "u-1")
	require.NoError(t, err)

	_, err = c.Join(ctx, e.ID, "u-2")
	require.ErrorIs(t, err, event.ErrEventFull)
}

func TestJoin_NotFound(t *testing.T) {
	c := admission.New(memory.NewEventsRepo(nil), nil, nil)

	_, err := c.Join(context.Background(), "missing", "u-1")
	require.ErrorIs(t, err, event.ErrNotFound)
}

func TestJoin_ConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	const (
		capacity = 7
		callers  = 50
	)

	ctx := context.Background()
	users := memory.NewUsersRepo()
	repo := memory.NewEventsRepo(users)
	e := seedEvent(t, repo, "organizer", capacity)

	prom := observability.NewProm(prometheus.NewRegistry())
	c := admission.New(repo, cache.New(time.Minute), prom)

	var joined, full, other atomic.Int64
	start := make(chan struct{})

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		uid := fmt.Sprintf("user-%02d", i)
		g.Go(func() error {
			<-start
			_, err := c.Join(ctx, e.ID, uid)
			switch {
			case err == nil:
				joined.Add(1)
			case errors.Is(err, event.ErrEventFull):
				full.Add(1)
			default:
				other.Add(1)
			}
			return nil
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.EqualValues(t, capacity, joined.Load())
	assert.EqualValues(t, callers-capacity, full.Load())
	assert.Zero(t, other.Load())

	d, err := repo.GetDetail(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, d.AttendeesCount)

	assert.Equal(t, float64(capacity), testutil.ToFloat64(prom.RSVPOutcomes.WithLabelValues("joined")))
	assert.Equal(t, float64(callers-capacity), testutil.ToFloat64(prom.RSVPOutcomes.WithLabelValues("event_full")))
}

func TestJoin_CapacityOneTwoWayRace(t *testing.T) {
	for round := 0; round < 20; round++ {
		ctx := context.Background()
		repo := memory.NewEventsRepo(nil)
		e := seedEvent(t, repo, "organizer", 1)
		c := admission.New(repo, nil, nil)

		errs := make([]error, 2)
		var g errgroup.Group
		for i := range errs {
			i := i
			g.Go(func() error {
				_, errs[i] = c.Join(ctx, e.ID, fmt.Sprintf("racer-%d", i))
				return nil
			})
		}
		require.NoError(t, g.Wait())

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, event.ErrEventFull)
		}
		require.Equal(t, 1, wins)
	}
}

func TestJoin_InvalidatesListCache(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewEventsRepo(nil)
	e := seedEvent(t, repo, "organizer", 3)

	lists := cache.New(time.Minute)
	lists.Set(ctx, 0, "events:list:v1:search=", []byte(`[]`))

	c := admission.New(repo, lists, nil)
	_, err := c.Join(ctx, e.ID, "u-1")
	require.NoError(t, err)

	_, _, ok := lists.Get(ctx, "events:list:v1:search=")
	assert.False(t, ok)
}

// scriptedStore lets tests force the outcomes the memory store cannot produce.
type scriptedStore struct {
	isAttendee func(call int) (bool, error)
	joinIfOpen func() (bool, error)
	calls      int
}

func (s *scriptedStore) IsAttendee(context.Context, string, string) (bool, error) {
	s.calls++
	return s.isAttendee(s.calls)
}

func (s *scriptedStore) JoinIfOpen(context.Context, string, string) (bool, error) {
	return s.joinIfOpen()
}

func TestJoin_Classification(t *testing.T) {
	dbErr := errors.New("connection reset")

	tests := []struct {
		name    string
		store   *scriptedStore
		wantErr error
		wantRaw bool
	}{
		{
			name: "lost_duplicate_race",
			store: &scriptedStore{
				isAttendee: func(call int) (bool, error) { return call > 1, nil },
				joinIfOpen: func() (bool, error) { return false, nil },
			},
			wantErr: event.ErrAlreadyJoined,
		},
		{
			name: "deleted_mid_join",
			store: &scriptedStore{
				isAttendee: func(call int) (bool, error) {
					if call > 1 {
						return false, event.ErrNotFound
					}
					return false, nil
				},
				joinIfOpen: func() (bool, error) { return false, nil },
			},
			wantErr: event.ErrNotFound,
		},
		{
			name: "classification_read_fails_reports_full",
			store: &scriptedStore{
				isAttendee: func(call int) (bool, error) {
					if call > 1 {
						return false, dbErr
					}
					return false, nil
				},
				joinIfOpen: func() (bool, error) { return false, nil },
			},
			wantErr: event.ErrEventFull,
		},
		{
			name: "write_error_is_internal",
			store: &scriptedStore{
				isAttendee: func(int) (bool, error) { return false, nil },
				joinIfOpen: func() (bool, error) { return false, dbErr },
			},
			wantErr: dbErr,
			wantRaw: true,
		},
		{
			name: "precheck_error_is_internal",
			store: &scriptedStore{
				isAttendee: func(int) (bool, error) { return false, dbErr },
				joinIfOpen: func() (bool, error) { return true, nil },
			},
			wantErr: dbErr,
			wantRaw: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := admission.New(tt.store, nil, nil)

			_, err := c.Join(context.Background(), "e-1", "u-1")
			require.ErrorIs(t, err, tt.wantErr)

			if tt.wantRaw {
				for _, sentinel := range []error{event.ErrEventFull, event.ErrAlreadyJoined, event.ErrNotFound} {
					assert.NotErrorIs(t, err, sentinel)
				}
			}
		})
	}
}

var _ admission.Store = (*memory.EventsRepo)(nil)
