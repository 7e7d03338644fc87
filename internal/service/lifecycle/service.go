package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/procurehub/auctiond/internal/config"
	"github.com/procurehub/auctiond/internal/entity"
	"github.com/procurehub/auctiond/internal/keyedlock"
	auctionrepo "github.com/procurehub/auctiond/internal/repository/auction"
	"github.com/procurehub/auctiond/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/procurehub/auctiond/service/lifecycle")

// Event kinds published for lifecycle transitions.
const (
	EventAuctionPublished = "auction.published"
	EventAuctionActivated = "auction.activated"
	EventAuctionPaused    = "auction.paused"
	EventAuctionResumed   = "auction.resumed"
	EventAuctionEnded     = "auction.ended"
)

// Event is the audit record for a lifecycle transition.
type Event struct {
	Kind       string               `json:"kind"`
	AuctionID  string               `json:"auctionId"`
	Status     entity.AuctionStatus `json:"status"`
	OccurredAt time.Time            `json:"occurredAt"`
}

// AuctionStore is the lifecycle view of the auction repository.
type AuctionStore interface {
	Get(ctx context.Context, id string) (*entity.Auction, error)
	UpdateStatus(ctx context.Context, id string, from, to entity.AuctionStatus) error
	ListStartDue(ctx context.Context, now time.Time) ([]entity.Auction, error)
	ListEndDue(ctx context.Context, now time.Time) ([]entity.Auction, error)
}

// StatusBroadcaster pushes status changes to connected auction rooms.
type StatusBroadcaster interface {
	BroadcastStatus(auctionID string, status entity.AuctionStatus)
}

// Publisher emits audit events onto the message bus.
type Publisher interface {
	Publish(ctx context.Context, key []byte, value []byte) error
}

// Timers schedules one-shot wakeups at auction boundaries so transitions land
// close to their due times instead of waiting for the next sweep tick.
type Timers interface {
	ScheduleStart(auctionID string, at time.Time)
	ScheduleEnd(auctionID string, at time.Time)
	Cancel(auctionID string)
}

// NopBroadcaster discards status pushes.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastStatus(string, entity.AuctionStatus) {}

// Service owns auction lifecycle transitions: the owner-facing publish,
// pause, resume and end operations plus the clock-driven sweep. All writes
// are guarded by the previous status so a concurrent transition loses cleanly
// instead of being overwritten.
type Service struct {
	auctions  AuctionStore
	locks     *keyedlock.Locks
	broadcast StatusBroadcaster
	bus       Publisher
	timers    Timers
	logger    *zap.Logger
	cfg       config.Auction
	now       func() time.Time
}

// Deps collects everything a Service needs; tests construct it with fakes.
type Deps struct {
	Auctions  AuctionStore
	Locks     *keyedlock.Locks
	Broadcast StatusBroadcaster
	Bus       Publisher
	Timers    Timers
	Logger    *zap.Logger
	Config    config.Auction
	Now       func() time.Time
}

// New builds a Service from explicit dependencies.
func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Broadcast == nil {
		d.Broadcast = NopBroadcaster{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		auctions:  d.Auctions,
		locks:     d.Locks,
		broadcast: d.Broadcast,
		bus:       d.Bus,
		timers:    d.Timers,
		logger:    d.Logger,
		cfg:       d.Config,
		now:       d.Now,
	}
}

// SetBroadcaster attaches the realtime hub after construction.
func (s *Service) SetBroadcaster(b StatusBroadcaster) {
	if b != nil {
		s.broadcast = b
	}
}

// SetTimers attaches the scheduler's one-shot timer facility after
// construction; the scheduler itself depends on this service for the sweep.
func (s *Service) SetTimers(t Timers) {
	s.timers = t
}

// Publish moves a draft into the published state, making it visible to
// invited suppliers. The bidding window must be fully specified and not
// already closed.
func (s *Service) Publish(ctx context.Context, auctionID string) error {
	ctx, span := serviceTracer.Start(ctx, "LifecycleService.Publish", trace.WithAttributes(attribute.String("auction.id", auctionID)))
	defer span.End()

	return s.transition(ctx, auctionID, entity.StatusPublished, func(a *entity.Auction) error {
		if a.StartTime.IsZero() || a.EndTime.IsZero() {
			return errorbank.BadRequest("start and end times must be set before publishing")
		}
		if !a.EndTime.After(a.StartTime) {
			return errorbank.BadRequest("end time must be after start time")
		}
		if !a.EndTime.After(s.now()) {
			return errorbank.BadRequest("bidding window is already over")
		}
		return nil
	})
}

// Pause freezes an Active auction. Paused auctions reject bids and are
// excluded from the end sweep: pausing stops the clock.
func (s *Service) Pause(ctx context.Context, auctionID string) error {
	ctx, span := serviceTracer.Start(ctx, "LifecycleService.Pause", trace.WithAttributes(attribute.String("auction.id", auctionID)))
	defer span.End()

	return s.transition(ctx, auctionID, entity.StatusPaused, nil)
}

// Resume reopens a Paused auction.
func (s *Service) Resume(ctx context.Context, auctionID string) error {
	ctx, span := serviceTracer.Start(ctx, "LifecycleService.Resume", trace.WithAttributes(attribute.String("auction.id", auctionID)))
	defer span.End()

	return s.transition(ctx, auctionID, entity.StatusActive, nil)
}

// End closes an auction early. Ended is terminal.
func (s *Service) End(ctx context.Context, auctionID string) error {
	ctx, span := serviceTracer.Start(ctx, "LifecycleService.End", trace.WithAttributes(attribute.String("auction.id", auctionID)))
	defer span.End()

	return s.transition(ctx, auctionID, entity.StatusEnded, nil)
}

// transition runs one guarded status change under the auction's lock.
func (s *Service) transition(ctx context.Context, auctionID string, to entity.AuctionStatus, check func(*entity.Auction) error) error {
	if auctionID == "" {
		return errorbank.BadRequest("auctionId is required")
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	release, err := s.locks.Acquire(lockCtx, lockKey(auctionID))
	cancel()
	if err != nil {
		if errors.Is(err, keyedlock.ErrTimeout) {
			return errorbank.Unavailable("auction is busy, retry shortly", errorbank.WithCause(err))
		}
		return err
	}
	defer release()

	opCtx, cancelOp := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancelOp()

	auction, err := s.auctions.Get(opCtx, auctionID)
	if err != nil {
		if errors.Is(err, auctionrepo.ErrNotFound) {
			return errorbank.NotFound("auction not found", errorbank.WithCause(err))
		}
		return errorbank.Unavailable("could not load auction", errorbank.WithCause(err))
	}

	if !auction.Status.CanTransitionTo(to) {
		return errorbank.Conflict(
			fmt.Sprintf("cannot move auction from %s to %s", auction.Status, to))
	}
	if check != nil {
		if err := check(auction); err != nil {
			return err
		}
	}

	if err := s.auctions.UpdateStatus(opCtx, auctionID, auction.Status, to); err != nil {
		if errors.Is(err, auctionrepo.ErrStaleStatus) {
			return errorbank.Conflict("auction status changed concurrently", errorbank.WithCause(err))
		}
		return errorbank.Unavailable("could not update auction status", errorbank.WithCause(err))
	}

	s.afterTransition(ctx, auction, to)
	return nil
}

// afterTransition runs best-effort fan-out once the status write committed.
func (s *Service) afterTransition(ctx context.Context, auction *entity.Auction, to entity.AuctionStatus) {
	s.broadcast.BroadcastStatus(auction.ID, to)
	s.publishEvent(ctx, eventKind(auction.Status, to), auction.ID, to)

	if s.timers == nil {
		return
	}
	switch to {
	case entity.StatusPublished:
		s.timers.ScheduleStart(auction.ID, auction.StartTime)
		s.timers.ScheduleEnd(auction.ID, auction.EndTime)
	case entity.StatusEnded:
		s.timers.Cancel(auction.ID)
	}
}

func eventKind(from, to entity.AuctionStatus) string {
	switch to {
	case entity.StatusPublished:
		return EventAuctionPublished
	case entity.StatusActive:
		if from == entity.StatusPaused {
			return EventAuctionResumed
		}
		return EventAuctionActivated
	case entity.StatusPaused:
		return EventAuctionPaused
	default:
		return EventAuctionEnded
	}
}

// Sweep advances every auction whose boundary has passed: published auctions
// whose window opened become Active, Active auctions past their close become
// Ended. Individual failures are logged and retried on the next tick; a
// contended auction is skipped rather than waited on.
func (s *Service) Sweep(ctx context.Context) (started, ended int) {
	ctx, span := serviceTracer.Start(ctx, "LifecycleService.Sweep")
	defer span.End()

	now := s.now()

	due, err := s.auctions.ListStartDue(ctx, now)
	if err != nil {
		s.logger.Error("sweep: listing start-due auctions failed", zap.Error(err))
	}
	for i := range due {
		if s.sweepOne(ctx, &due[i], entity.StatusActive) {
			started++
		}
	}

	closing, err := s.auctions.ListEndDue(ctx, now)
	if err != nil {
		s.logger.Error("sweep: listing end-due auctions failed", zap.Error(err))
	}
	for i := range closing {
		if s.sweepOne(ctx, &closing[i], entity.StatusEnded) {
			ended++
		}
	}

	span.SetAttributes(attribute.Int("sweep.started", started), attribute.Int("sweep.ended", ended))
	return started, ended
}

func (s *Service) sweepOne(ctx context.Context, auction *entity.Auction, to entity.AuctionStatus) bool {
	release, ok := s.locks.TryAcquire(lockKey(auction.ID))
	if !ok {
		// A bid write holds the lock; the next tick will retry.
		return false
	}
	defer release()

	// Re-read under the lock: a bid revision may have extended the close
	// time since the listing query ran.
	current, err := s.auctions.Get(ctx, auction.ID)
	if err != nil {
		s.logger.Error("sweep: reload failed", zap.String("auction_id", auction.ID), zap.Error(err))
		return false
	}
	if to == entity.StatusEnded && current.EndTime.After(s.now()) {
		return false
	}
	if !current.Status.CanTransitionTo(to) {
		return false
	}

	if err := s.auctions.UpdateStatus(ctx, auction.ID, current.Status, to); err != nil {
		if !errors.Is(err, auctionrepo.ErrStaleStatus) {
			s.logger.Error("sweep: transition failed",
				zap.String("auction_id", auction.ID),
				zap.String("to", string(to)),
				zap.Error(err))
		}
		return false
	}

	s.afterTransition(ctx, current, to)
	s.logger.Info("sweep: auction transitioned",
		zap.String("auction_id", auction.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)))
	return true
}

// Get returns an auction for owner-facing reads.
func (s *Service) Get(ctx context.Context, auctionID string) (*entity.Auction, error) {
	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		if errors.Is(err, auctionrepo.ErrNotFound) {
			return nil, errorbank.NotFound("auction not found", errorbank.WithCause(err))
		}
		return nil, errorbank.Unavailable("could not load auction", errorbank.WithCause(err))
	}
	return auction, nil
}

// Due reports the next boundary the scheduler should wake for, used when
// rebuilding timers after a restart.
func (s *Service) Due(ctx context.Context, auctionID string) (start, end time.Time, err error) {
	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return auction.StartTime, auction.EndTime, nil
}

func (s *Service) publishEvent(ctx context.Context, kind, auctionID string, status entity.AuctionStatus) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(Event{
		Kind:       kind,
		AuctionID:  auctionID,
		Status:     status,
		OccurredAt: s.now(),
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, []byte(auctionID), payload); err != nil {
		s.logger.Error("event publish failed",
			zap.String("kind", kind),
			zap.String("auction_id", auctionID),
			zap.Error(err))
	}
}

func lockKey(auctionID string) string {
	return "auction:" + auctionID
}
