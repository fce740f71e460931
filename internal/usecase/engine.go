// Package usecase contains application business logic.
package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

const (
	// MinTickInterval bounds how fast the engine ticks regardless of config.
	MinTickInterval = 100 * time.Millisecond

	defaultQueueSize = 64
)

// ErrEngineStopped is returned by Dispatch once Run has returned.
var ErrEngineStopped = errors.New("engine stopped")

// Dispatcher enqueues actions on the engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, action domain.Action) (domain.View, error)
}

// Ticker is the subset of time.Ticker the engine uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type request struct {
	action domain.Action
	// ignoreWhilePaused drops the action when the state is paused.
	ignoreWhilePaused bool
	reply             chan domain.View
}

// Engine owns the break-timer State and applies actions to it one at a time.
//
// Run is the only goroutine that reads or writes state. Other goroutines
// enqueue actions with Dispatch and read the latest published View.
type Engine struct {
	state    domain.State
	idle     domain.IdleProvider
	store    domain.ConfigStore
	sinks    []domain.EventSink
	logger   *zap.Logger
	requests chan request
	stopped  chan struct{}
	view     atomic.Pointer[domain.View]

	now       func() time.Time
	newTicker func(time.Duration) Ticker

	ticker      Ticker
	tickPeriod  time.Duration
	lastTick    time.Time
	lastIdleErr string
}

// NewEngine creates an engine around an initial state.
// store may be nil, in which case config changes are not persisted.
func NewEngine(
	initial domain.State,
	idle domain.IdleProvider,
	store domain.ConfigStore,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		state:     initial,
		idle:      idle,
		store:     store,
		logger:    logger,
		requests:  make(chan request, defaultQueueSize),
		stopped:   make(chan struct{}),
		now:       time.Now,
		newTicker: newRealTicker,
	}
	view := initial.View()
	e.view.Store(&view)
	return e
}

// NewEngineWithClock creates an engine with an injected clock and ticker (for testing).
func NewEngineWithClock(
	initial domain.State,
	idle domain.IdleProvider,
	store domain.ConfigStore,
	logger *zap.Logger,
	now func() time.Time,
	newTicker func(time.Duration) Ticker,
) *Engine {
	e := NewEngine(initial, idle, store, logger)
	e.now = now
	e.newTicker = newTicker
	return e
}

// AddSink registers an event consumer. Must be called before Run.
func (e *Engine) AddSink(sink domain.EventSink) {
	e.sinks = append(e.sinks, sink)
}

// View returns the view published after the most recent dispatch.
func (e *Engine) View() domain.View {
	return *e.view.Load()
}

// Dispatch enqueues an action and waits for the resulting view.
func (e *Engine) Dispatch(ctx context.Context, action domain.Action) (domain.View, error) {
	return e.enqueue(ctx, request{action: action})
}

// Skip ends the given break early. It is ignored while paused.
func (e *Engine) Skip(ctx context.Context, kind domain.BreakKind) (domain.View, error) {
	var action domain.Action
	switch kind {
	case domain.BreakMini:
		action = domain.EndMiniBreak{}
	case domain.BreakWork:
		action = domain.EndWorkBreak{}
	default:
		return e.View(), nil
	}
	return e.enqueue(ctx, request{action: action, ignoreWhilePaused: true})
}

func (e *Engine) enqueue(ctx context.Context, req request) (domain.View, error) {
	req.reply = make(chan domain.View, 1)

	select {
	case e.requests <- req:
	case <-e.stopped:
		return domain.View{}, ErrEngineStopped
	case <-ctx.Done():
		return domain.View{}, ctx.Err()
	}

	select {
	case view := <-req.reply:
		return view, nil
	case <-e.stopped:
		return domain.View{}, ErrEngineStopped
	case <-ctx.Done():
		return domain.View{}, ctx.Err()
	}
}

// Run applies ticks and queued actions until ctx is canceled.
// This blocks until context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)
	defer e.stopTicker()

	e.logger.Info("engine started",
		zap.Float64("mini_interval", e.state.Config.Mini.IntervalSeconds),
		zap.Float64("work_interval", e.state.Config.Work.IntervalSeconds),
		zap.Bool("paused", e.state.IsPaused()))

	e.syncTicker()

	for {
		var tickC <-chan time.Time
		if e.ticker != nil {
			tickC = e.ticker.C()
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping")
			return ctx.Err()

		case <-tickC:
			e.tick()
			e.syncTicker()

		case req := <-e.requests:
			view := e.handle(req)
			e.syncTicker()
			req.reply <- view
		}
	}
}

func (e *Engine) handle(req request) domain.View {
	if req.ignoreWhilePaused && e.state.IsPaused() {
		e.logger.Debug("ignoring action while paused", zap.Stringer("action", req.action))
		return e.View()
	}
	return e.apply(req.action)
}

func (e *Engine) tick() {
	now := e.now()
	dt := now.Sub(e.lastTick).Seconds()
	e.lastTick = now
	e.apply(domain.Tick{IdleSeconds: e.idleSeconds(), DtSeconds: dt})
}

func (e *Engine) idleSeconds() float64 {
	d, err := e.idle.IdleDuration()
	if err != nil {
		if msg := err.Error(); msg != e.lastIdleErr {
			e.logger.Warn("idle time unavailable, assuming active", zap.Error(err))
			e.lastIdleErr = msg
		}
		return 0
	}
	e.lastIdleErr = ""
	return d.Seconds()
}

func (e *Engine) apply(action domain.Action) domain.View {
	prev := e.state
	next := domain.Reduce(prev, action)
	batch := domain.DeriveEvents(prev, next, action)
	e.state = next

	if prev.Config != next.Config {
		e.persistConfig(next.Config)
	}

	view := next.View()
	e.view.Store(&view)

	e.logEvents(action, batch)
	for _, sink := range e.sinks {
		sink.HandleEvents(batch, view)
	}
	return view
}

func (e *Engine) persistConfig(cfg domain.Config) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveConfig(cfg); err != nil {
		e.logger.Warn("failed to persist config", zap.Error(err))
		return
	}
	e.logger.Info("config saved",
		zap.Float64("mini_interval", cfg.Mini.IntervalSeconds),
		zap.Float64("work_interval", cfg.Work.IntervalSeconds),
		zap.Float64("tick_interval_ms", cfg.TickIntervalMs))
}

func (e *Engine) logEvents(action domain.Action, batch domain.EventBatch) {
	for _, ev := range batch.Events {
		switch ev.Kind {
		case domain.EventStatusUpdate, domain.EventBreakUpdate:
			continue
		}
		e.logger.Info("break event",
			zap.Stringer("event", ev),
			zap.Stringer("action", action))
	}
}

// tickPeriodFor converts the configured interval, enforcing MinTickInterval.
func tickPeriodFor(cfg domain.Config) time.Duration {
	d := time.Duration(cfg.TickIntervalMs * float64(time.Millisecond))
	if d < MinTickInterval {
		return MinTickInterval
	}
	return d
}

// syncTicker runs the ticker at the configured period while unpaused and
// stops it while paused. A (re)started ticker resets the last tick instant
// so time spent paused is never applied as a delta.
func (e *Engine) syncTicker() {
	want := time.Duration(0)
	if !e.state.IsPaused() {
		want = tickPeriodFor(e.state.Config)
	}
	if want == e.tickPeriod {
		return
	}

	e.stopTicker()
	if want == 0 {
		e.logger.Debug("ticker stopped")
		return
	}
	e.ticker = e.newTicker(want)
	e.tickPeriod = want
	e.lastTick = e.now()
	e.logger.Debug("ticker started", zap.Duration("period", want))
}

func (e *Engine) stopTicker() {
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
	e.tickPeriod = 0
}

var _ Dispatcher = (*Engine)(nil)
