// Package syncclient keeps a client's copy of a room in step with the
// server. Push notifications and a fixed-interval poll both trigger the same
// full reload, so lost or late notifications only cost latency.
package syncclient

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"worldroom/models"
)

const DefaultPollInterval = 5 * time.Second

// Loader fetches a complete room snapshot.
type Loader interface {
	Load(ctx context.Context) (*models.RoomState, error)
}

type LoaderFunc func(ctx context.Context) (*models.RoomState, error)

func (f LoaderFunc) Load(ctx context.Context) (*models.RoomState, error) { return f(ctx) }

// Waker delivers push wake-ups until ctx ends. wake must be cheap and
// non-blocking.
type Waker interface {
	Run(ctx context.Context, wake func()) error
}

type Option func(*Syncer)

func WithPollInterval(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithStateHook registers fn to receive every applied snapshot, in order.
// fn must not call Reload.
func WithStateHook(fn func(*models.RoomState)) Option {
	return func(s *Syncer) { s.onState = fn }
}

type Syncer struct {
	loader   Loader
	interval time.Duration
	onState  func(*models.RoomState)

	wake chan struct{}

	started atomic.Uint64
	mu      sync.Mutex
	applied uint64
	state   atomic.Pointer[models.RoomState]
}

func New(loader Loader, opts ...Option) *Syncer {
	s := &Syncer{
		loader:   loader,
		interval: DefaultPollInterval,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State is the most recently applied snapshot, or nil before the first
// successful reload.
func (s *Syncer) State() *models.RoomState {
	return s.state.Load()
}

// Notify asks for a reload. Wake-ups that arrive while one is pending are
// coalesced.
func (s *Syncer) Notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Reload fetches a fresh snapshot and replaces the local one wholesale. It is
// safe to call concurrently: of overlapping reloads, the one started last
// wins, and a slower older reload never overwrites a newer result.
func (s *Syncer) Reload(ctx context.Context) error {
	seq := s.started.Add(1)
	st, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		logrus.WithField("seq", seq).Debug("Discarding stale reload")
		return nil
	}
	s.applied = seq
	s.state.Store(st)
	if s.onState != nil {
		s.onState(st)
	}
	return nil
}

func (s *Syncer) reload(ctx context.Context, reason string) {
	if err := s.Reload(ctx); err != nil && ctx.Err() == nil {
		logrus.WithError(err).WithField("reason", reason).Warn("Room reload failed")
	}
}

// Run reloads once, then on every wake-up and every poll tick until ctx is
// done. A failing waker is logged and polling carries on without it.
func (s *Syncer) Run(ctx context.Context, wakers ...Waker) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.reload(ctx, "initial")
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s.reload(ctx, "poll")
			case <-s.wake:
				s.reload(ctx, "push")
			}
		}
	})

	for _, w := range wakers {
		w := w
		g.Go(func() error {
			if err := w.Run(ctx, s.Notify); err != nil && ctx.Err() == nil {
				logrus.WithError(err).Warn("Push channel stopped, relying on polling")
			}
			return nil
		})
	}

	return g.Wait()
}
