package explorer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lazypower/graphwalk/internal/fetch"
	"github.com/lazypower/graphwalk/internal/interact"
	"github.com/lazypower/graphwalk/internal/layout"
	"github.com/lazypower/graphwalk/internal/logging"
	"github.com/lazypower/graphwalk/internal/metrics"
	"github.com/lazypower/graphwalk/internal/render"
)

// ErrSessionClosed is returned when posting to a session whose loop has
// exited.
var ErrSessionClosed = errors.New("session closed")

// DefaultFrameInterval is the tick period while the layout is moving.
const DefaultFrameInterval = 16 * time.Millisecond

// SessionOptions configures a Session.
type SessionOptions struct {
	Explorer      Options
	FrameInterval time.Duration
	Surface       render.Surface
	// OnStatus is called from the loop goroutine whenever Status changes.
	OnStatus func(Status)
}

// Session runs an Explorer on its own goroutine. Every exported method is
// safe for concurrent use; each becomes an event applied by the loop in
// arrival order. Fetches run on separate goroutines and post their results
// back as events.
type Session struct {
	ID string

	ex       *Explorer
	fetcher  fetch.Fetcher
	surface  render.Surface
	onStatus func(Status)
	log      *zap.Logger
	interval time.Duration

	events   chan func()
	done     chan struct{}
	inflight sync.WaitGroup

	// Loop-owned.
	ctx     context.Context
	ticker  *time.Ticker
	ticking bool
}

// NewSession creates a session reading from f. Call Run to start it.
func NewSession(f fetch.Fetcher, opts SessionOptions) *Session {
	id := uuid.NewString()
	log := logging.OrNop(opts.Explorer.Logger).Named("session").With(zap.String("session", id))
	opts.Explorer.Logger = log

	s := &Session{
		ID:       id,
		ex:       New(opts.Explorer),
		fetcher:  f,
		surface:  opts.Surface,
		onStatus: opts.OnStatus,
		log:      log,
		interval: opts.FrameInterval,
		events:   make(chan func(), 64),
		done:     make(chan struct{}),
	}
	if s.surface == nil {
		s.surface = render.Discard
	}
	if s.interval <= 0 {
		s.interval = DefaultFrameInterval
	}
	s.ex.OnExpand(s.startExpand)
	s.ex.Simulator().OnTransition(s.transition)
	return s
}

// Run processes events until ctx is done. It waits for outstanding fetches
// to return before exiting.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.ctx = ctx
	s.ticker = time.NewTicker(s.interval)
	s.ticker.Stop()
	metrics.Sessions.Inc()
	s.log.Info("session started")

	defer func() {
		s.ticker.Stop()
		close(s.done)
		cancel()
		s.inflight.Wait()
		metrics.Sessions.Dec()
		s.log.Info("session stopped")
	}()

	s.draw()
	s.publish()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-s.events:
			fn()
			if !s.ticking {
				s.draw()
			}
			s.publish()
		case <-s.ticker.C:
			s.draw()
			s.publish()
		}
	}
}

// Done is closed once the loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Do runs fn on the loop goroutine and waits for it to return.
func (s *Session) Do(ctx context.Context, fn func(*Explorer)) error {
	finished := make(chan struct{})
	if err := s.post(func() {
		defer close(finished)
		fn(s.ex)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}
}

// Search supersedes any outstanding search with query.
func (s *Session) Search(query, category string) error {
	return s.post(func() {
		t := s.ex.BeginSearch(query, category)
		s.spawn(func(ctx context.Context) {
			res, err := s.fetcher.SearchByQuery(ctx, t.Query, t.Limit, t.Category)
			s.post(func() {
				if err := s.ex.FinishSearch(t, res, err); err != nil {
					s.logResult("search", err, zap.String("query", t.Query), zap.Uint64("generation", t.Generation))
				}
			})
		})
	})
}

// Expand fetches the neighbors of id and merges them into the graph.
func (s *Session) Expand(id string) error {
	return s.post(func() { s.startExpand(s.ex.BeginExpand(id)) })
}

func (s *Session) PointerDown(p interact.Point) error {
	return s.post(func() { s.ex.ctl.PointerDown(p) })
}

func (s *Session) PointerMove(p interact.Point) error {
	return s.post(func() { s.ex.ctl.PointerMove(p) })
}

func (s *Session) PointerUp(p interact.Point) error {
	return s.post(func() { s.ex.ctl.PointerUp(p) })
}

func (s *Session) Click(p interact.Point) error {
	return s.post(func() { s.ex.ctl.Click(p) })
}

func (s *Session) Wheel(p interact.Point, deltaY float64) error {
	return s.post(func() { s.ex.ctl.Wheel(p, deltaY) })
}

func (s *Session) Key(key string) error {
	return s.post(func() { s.ex.ctl.Key(key) })
}

func (s *Session) Resize(w, h float64) error {
	return s.post(func() { s.ex.ctl.Resize(w, h) })
}

func (s *Session) Dismiss(id uint64) error {
	return s.post(func() { s.ex.Dismiss(id) })
}

// Reset clears the graph. Expansions still in flight are discarded when
// they return.
func (s *Session) Reset() error {
	return s.post(s.ex.Reset)
}

func (s *Session) startExpand(t Ticket) {
	s.spawn(func(ctx context.Context) {
		nb, err := s.fetcher.NeighborsByID(ctx, t.ID)
		s.post(func() {
			if _, err := s.ex.FinishExpand(t, nb, err); err != nil {
				s.logResult("expand", err, zap.String("id", t.ID), zap.Uint64("epoch", t.Epoch))
			}
		})
	})
}

// spawn runs fn on its own goroutine with the loop's context. Only called
// from the loop.
func (s *Session) spawn(fn func(ctx context.Context)) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		fn(s.ctx)
	}()
}

func (s *Session) post(fn func()) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.events <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// transition starts the frame ticker when the layout wakes and stops it once
// it settles.
func (s *Session) transition(from, to layout.State) {
	switch {
	case to == layout.Settled:
		s.ticker.Stop()
		s.ticking = false
	case from == layout.Settled:
		s.ticker.Reset(s.interval)
		s.ticking = true
	}
	s.log.Debug("layout transition", zap.Stringer("from", from), zap.Stringer("to", to))
}

func (s *Session) draw() {
	scene, ok := s.ex.Step()
	if !ok {
		return
	}
	if err := s.surface.Draw(scene); err != nil {
		s.log.Warn("draw frame", zap.Uint64("frame", scene.Frame), zap.Error(err))
	}
}

func (s *Session) publish() {
	if !s.ex.TakeStatusChanged() || s.onStatus == nil {
		return
	}
	s.onStatus(s.ex.Status())
}

func (s *Session) logResult(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	switch {
	case errors.Is(err, ErrStale):
		s.log.Debug(op+" discarded", fields...)
	case errors.Is(err, context.Canceled):
		s.log.Debug(op+" canceled", fields...)
	default:
		s.log.Warn(op+" failed", fields...)
	}
}
