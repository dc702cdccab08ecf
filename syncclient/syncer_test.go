package syncclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldroom/models"
)

func stateNamed(name string) *models.RoomState {
	return &models.RoomState{Room: models.Room{Name: name}}
}

func TestReloadNewestStartedWins(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	loader := LoaderFunc(func(ctx context.Context) (*models.RoomState, error) {
		if calls.Add(1) == 1 {
			<-release
			return stateNamed("old"), nil
		}
		return stateNamed("new"), nil
	})

	var mu sync.Mutex
	var applied []string
	s := New(loader, WithStateHook(func(st *models.RoomState) {
		mu.Lock()
		applied = append(applied, st.Room.Name)
		mu.Unlock()
	}))

	slow := make(chan error, 1)
	go func() { slow <- s.Reload(context.Background()) }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, "new", s.State().Room.Name)

	close(release)
	require.NoError(t, <-slow)
	assert.Equal(t, "new", s.State().Room.Name)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"new"}, applied)
}

func TestReloadErrorKeepsPreviousState(t *testing.T) {
	fail := false
	s := New(LoaderFunc(func(ctx context.Context) (*models.RoomState, error) {
		if fail {
			return nil, errors.New("datastore unavailable")
		}
		return stateNamed("ok"), nil
	}))
	assert.Nil(t, s.State())

	require.NoError(t, s.Reload(context.Background()))
	fail = true
	assert.Error(t, s.Reload(context.Background()))
	assert.Equal(t, "ok", s.State().Room.Name)
}

func TestRunPolls(t *testing.T) {
	var calls atomic.Int32
	s := New(LoaderFunc(func(ctx context.Context) (*models.RoomState, error) {
		calls.Add(1)
		return stateNamed("polled"), nil
	}), WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

type funcWaker func(ctx context.Context, wake func()) error

func (f funcWaker) Run(ctx context.Context, wake func()) error { return f(ctx, wake) }

func TestRunReloadsOnWake(t *testing.T) {
	var calls atomic.Int32
	s := New(LoaderFunc(func(ctx context.Context) (*models.RoomState, error) {
		calls.Add(1)
		return stateNamed("pushed"), nil
	}), WithPollInterval(time.Hour))

	pushes := make(chan struct{})
	waker := funcWaker(func(ctx context.Context, wake func()) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-pushes:
				wake()
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, waker)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	pushes <- struct{}{}
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
}

func TestRunSurvivesBrokenWaker(t *testing.T) {
	var calls atomic.Int32
	s := New(LoaderFunc(func(ctx context.Context) (*models.RoomState, error) {
		calls.Add(1)
		return stateNamed("polled"), nil
	}), WithPollInterval(5*time.Millisecond))

	broken := funcWaker(func(ctx context.Context, wake func()) error {
		return errors.New("connection refused")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, broken)

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestNotifyCoalesces(t *testing.T) {
	s := New(LoaderFunc(func(ctx context.Context) (*models.RoomState, error) { return nil, nil }))
	for i := 0; i < 10; i++ {
		s.Notify()
	}
	assert.Len(t, s.wake, 1)
}
