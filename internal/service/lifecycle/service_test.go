package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/auctiond/internal/config"
	"github.com/procurehub/auctiond/internal/entity"
	"github.com/procurehub/auctiond/internal/keyedlock"
	auctionrepo "github.com/procurehub/auctiond/internal/repository/auction"
	"github.com/procurehub/auctiond/pkg/errorbank"
)

type fakeStore struct {
	mu       sync.Mutex
	auctions map[string]*entity.Auction
}

func newFakeStore(auctions ...*entity.Auction) *fakeStore {
	f := &fakeStore{auctions: make(map[string]*entity.Auction)}
	for _, a := range auctions {
		f.auctions[a.ID] = a
	}
	return f
}

func (f *fakeStore) Get(_ context.Context, id string) (*entity.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.auctions[id]
	if !ok {
		return nil, auctionrepo.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, from, to entity.AuctionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.auctions[id]
	if !ok {
		return auctionrepo.ErrNotFound
	}
	if a.Status != from {
		return auctionrepo.ErrStaleStatus
	}
	a.Status = to
	return nil
}

func (f *fakeStore) ListStartDue(_ context.Context, now time.Time) ([]entity.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Auction
	for _, a := range f.auctions {
		if a.Status == entity.StatusPublished && !a.StartTime.After(now) && a.EndTime.After(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListEndDue(_ context.Context, now time.Time) ([]entity.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Auction
	for _, a := range f.auctions {
		if a.Status == entity.StatusActive && !a.EndTime.After(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) status(id string) entity.AuctionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auctions[id].Status
}

type statusCapture struct {
	mu    sync.Mutex
	calls []entity.AuctionStatus
}

func (c *statusCapture) BroadcastStatus(_ string, status entity.AuctionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, status)
}

type timerCapture struct {
	starts, ends, cancels []string
}

func (c *timerCapture) ScheduleStart(id string, _ time.Time) { c.starts = append(c.starts, id) }
func (c *timerCapture) ScheduleEnd(id string, _ time.Time)   { c.ends = append(c.ends, id) }
func (c *timerCapture) Cancel(id string)                     { c.cancels = append(c.cancels, id) }

var frozen = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(store *fakeStore) (*Service, *statusCapture, *timerCapture) {
	broadcast := &statusCapture{}
	timers := &timerCapture{}
	svc := New(Deps{
		Auctions:  store,
		Locks:     keyedlock.New(),
		Broadcast: broadcast,
		Timers:    timers,
		Config: config.Auction{
			LockTimeout: 200 * time.Millisecond,
			OpTimeout:   2 * time.Second,
		},
		Now: func() time.Time { return frozen },
	})
	return svc, broadcast, timers
}

func draftAuction(id string) *entity.Auction {
	return &entity.Auction{
		ID:        id,
		Status:    entity.StatusDraft,
		StartTime: frozen.Add(time.Hour),
		EndTime:   frozen.Add(2 * time.Hour),
	}
}

func TestPublishDraft(t *testing.T) {
	store := newFakeStore(draftAuction("a1"))
	svc, broadcast, timers := newService(store)

	require.NoError(t, svc.Publish(context.Background(), "a1"))
	assert.Equal(t, entity.StatusPublished, store.status("a1"))
	assert.Equal(t, []entity.AuctionStatus{entity.StatusPublished}, broadcast.calls)
	assert.Equal(t, []string{"a1"}, timers.starts)
	assert.Equal(t, []string{"a1"}, timers.ends)
}

func TestPublishRequiresWindow(t *testing.T) {
	a := draftAuction("a1")
	a.EndTime = time.Time{}
	store := newFakeStore(a)
	svc, _, _ := newService(store)

	err := svc.Publish(context.Background(), "a1")
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
	assert.Equal(t, entity.StatusDraft, store.status("a1"))
}

func TestPublishRejectsClosedWindow(t *testing.T) {
	a := draftAuction("a1")
	a.StartTime = frozen.Add(-2 * time.Hour)
	a.EndTime = frozen.Add(-time.Hour)
	store := newFakeStore(a)
	svc, _, _ := newService(store)

	err := svc.Publish(context.Background(), "a1")
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
}

func TestPublishTwiceConflicts(t *testing.T) {
	store := newFakeStore(draftAuction("a1"))
	svc, _, _ := newService(store)
	ctx := context.Background()

	require.NoError(t, svc.Publish(ctx, "a1"))
	err := svc.Publish(ctx, "a1")
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindConflict, appErr.Kind())
}

func TestPauseResumeToggle(t *testing.T) {
	a := draftAuction("a1")
	a.Status = entity.StatusActive
	store := newFakeStore(a)
	svc, _, _ := newService(store)
	ctx := context.Background()

	require.NoError(t, svc.Pause(ctx, "a1"))
	assert.Equal(t, entity.StatusPaused, store.status("a1"))

	require.NoError(t, svc.Resume(ctx, "a1"))
	assert.Equal(t, entity.StatusActive, store.status("a1"))
}

func TestPauseOnlyFromActive(t *testing.T) {
	store := newFakeStore(draftAuction("a1"))
	svc, _, _ := newService(store)

	err := svc.Pause(context.Background(), "a1")
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindConflict, appErr.Kind())
}

func TestEndIsTerminal(t *testing.T) {
	a := draftAuction("a1")
	a.Status = entity.StatusActive
	store := newFakeStore(a)
	svc, _, timers := newService(store)
	ctx := context.Background()

	require.NoError(t, svc.End(ctx, "a1"))
	assert.Equal(t, entity.StatusEnded, store.status("a1"))
	assert.Equal(t, []string{"a1"}, timers.cancels)

	for _, op := range []func(context.Context, string) error{svc.Pause, svc.Resume, svc.End, svc.Publish} {
		err := op(ctx, "a1")
		var appErr *errorbank.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errorbank.KindConflict, appErr.Kind())
	}
}

func TestUnknownAuction(t *testing.T) {
	svc, _, _ := newService(newFakeStore())

	err := svc.End(context.Background(), "missing")
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindNotFound, appErr.Kind())
}

func TestSweepActivatesAndEnds(t *testing.T) {
	opening := draftAuction("opening")
	opening.Status = entity.StatusPublished
	opening.StartTime = frozen.Add(-time.Minute)

	closing := draftAuction("closing")
	closing.Status = entity.StatusActive
	closing.EndTime = frozen.Add(-time.Minute)

	notYet := draftAuction("notyet")
	notYet.Status = entity.StatusPublished

	store := newFakeStore(opening, closing, notYet)
	svc, broadcast, _ := newService(store)

	started, ended := svc.Sweep(context.Background())
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, ended)
	assert.Equal(t, entity.StatusActive, store.status("opening"))
	assert.Equal(t, entity.StatusEnded, store.status("closing"))
	assert.Equal(t, entity.StatusPublished, store.status("notyet"))
	assert.Len(t, broadcast.calls, 2)
}

func TestSweepSkipsPaused(t *testing.T) {
	paused := draftAuction("paused")
	paused.Status = entity.StatusPaused
	paused.EndTime = frozen.Add(-time.Minute)
	store := newFakeStore(paused)
	svc, _, _ := newService(store)

	_, ended := svc.Sweep(context.Background())
	assert.Zero(t, ended, "pause stops the clock")
	assert.Equal(t, entity.StatusPaused, store.status("paused"))
}

func TestSweepSkipsLockedAuction(t *testing.T) {
	closing := draftAuction("closing")
	closing.Status = entity.StatusActive
	closing.EndTime = frozen.Add(-time.Minute)
	store := newFakeStore(closing)
	svc, _, _ := newService(store)

	release, err := svc.locks.Acquire(context.Background(), lockKey("closing"))
	require.NoError(t, err)

	_, ended := svc.Sweep(context.Background())
	assert.Zero(t, ended, "contended auction waits for the next tick")
	release()

	_, ended = svc.Sweep(context.Background())
	assert.Equal(t, 1, ended)
}

func TestSweepHonorsExtendedEndTime(t *testing.T) {
	closing := draftAuction("closing")
	closing.Status = entity.StatusActive
	closing.EndTime = frozen.Add(-time.Second)
	store := newFakeStore(closing)
	svc, _, _ := newService(store)

	// A revision pushes the close out between the listing query and the
	// locked re-read.
	store.mu.Lock()
	store.auctions["closing"].EndTime = frozen.Add(5 * time.Minute)
	store.mu.Unlock()

	_, ended := svc.Sweep(context.Background())
	assert.Zero(t, ended)
	assert.Equal(t, entity.StatusActive, store.status("closing"))
}

func TestSweepIsIdempotent(t *testing.T) {
	closing := draftAuction("closing")
	closing.Status = entity.StatusActive
	closing.EndTime = frozen.Add(-time.Minute)
	store := newFakeStore(closing)
	svc, _, _ := newService(store)
	ctx := context.Background()

	_, ended := svc.Sweep(ctx)
	assert.Equal(t, 1, ended)
	_, ended = svc.Sweep(ctx)
	assert.Zero(t, ended)
}
