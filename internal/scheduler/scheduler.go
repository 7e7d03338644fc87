package scheduler

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/procurehub/auctiond/internal/config"
)

// Sweeper advances every auction whose lifecycle boundary has passed.
type Sweeper interface {
	Sweep(ctx context.Context) (started, ended int)
}

// Engine drives lifecycle transitions off the clock: a coarse periodic sweep
// as the safety net, plus one-shot timers at known auction boundaries so
// transitions land close to their due times. Timers only wake the sweep
// early; the sweep remains the single place that mutates status.
type Engine struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
	timers   *xsync.MapOf[string, *time.Timer]
	wake     chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
}

// New constructs an Engine; Run must be called to start sweeping.
func New(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		timers:   xsync.NewMapOf[string, *time.Timer](),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Run sweeps until ctx is cancelled. One sweep fires immediately so due
// transitions are not delayed by a full interval after startup.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-e.wake:
		}
		e.sweep(ctx)
	}
}

func (e *Engine) sweep(ctx context.Context) {
	started, ended := e.sweeper.Sweep(ctx)
	if started > 0 || ended > 0 {
		e.logger.Info("lifecycle sweep",
			zap.Int("started", started),
			zap.Int("ended", ended))
	}
}

// ScheduleStart arms a wakeup at an auction's opening boundary.
func (e *Engine) ScheduleStart(auctionID string, at time.Time) {
	e.arm(auctionID+":start", at)
}

// ScheduleEnd arms a wakeup at an auction's closing boundary.
func (e *Engine) ScheduleEnd(auctionID string, at time.Time) {
	e.arm(auctionID+":end", at)
}

// Cancel drops both boundary timers for an auction.
func (e *Engine) Cancel(auctionID string) {
	for _, key := range []string{auctionID + ":start", auctionID + ":end"} {
		if timer, ok := e.timers.LoadAndDelete(key); ok {
			timer.Stop()
		}
	}
}

func (e *Engine) arm(key string, at time.Time) {
	if at.IsZero() {
		return
	}
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}

	timer := time.AfterFunc(delay, func() {
		e.timers.Delete(key)
		select {
		case e.wake <- struct{}{}:
		default:
		}
	})
	if old, ok := e.timers.LoadAndStore(key, timer); ok {
		old.Stop()
	}
}

// Module wires the engine into the Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(*Engine) {}),
)

// Params defines dependencies for constructing the Engine.
type Params struct {
	fx.In

	Sweeper Sweeper
	Logger  *zap.Logger
	Config  config.Config
}

// NewEngine builds the engine and ties Run to the application lifecycle.
func NewEngine(lc fx.Lifecycle, p Params) *Engine {
	engine := New(p.Sweeper, p.Config.Auction.SweepInterval, p.Logger)

	runCtx, cancel := context.WithCancel(context.Background())
	engine.cancel = cancel

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go engine.Run(runCtx)
			p.Logger.Info("lifecycle scheduler started",
				zap.Duration("sweep_interval", p.Config.Auction.SweepInterval))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-engine.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	return engine
}
