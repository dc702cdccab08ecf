package services

import (
	"fmt"
	"sync"
	"time"
)

type TimerPolicy string

const (
	// TimerDisplay leaves time_limit_seconds to clients.
	TimerDisplay TimerPolicy = "display"
	// TimerAdvance force-advances a round whose current game outlives its
	// time limit.
	TimerAdvance TimerPolicy = "advance"
)

func ParseTimerPolicy(s string) (TimerPolicy, error) {
	switch TimerPolicy(s) {
	case "", TimerDisplay:
		return TimerDisplay, nil
	case TimerAdvance:
		return TimerAdvance, nil
	}
	return "", fmt.Errorf("unknown timer policy %q", s)
}

// gameTimers holds at most one pending expiry per round.
type gameTimers struct {
	mu     sync.Mutex
	timers map[uint]*time.Timer
	fire   func(roundID uint, gameNumber int)
}

func newGameTimers(fire func(roundID uint, gameNumber int)) *gameTimers {
	return &gameTimers{timers: make(map[uint]*time.Timer), fire: fire}
}

func (t *gameTimers) schedule(roundID uint, gameNumber int, after time.Duration) {
	if after <= 0 {
		t.cancel(roundID)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.timers[roundID]; ok {
		existing.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(after, func() {
		t.mu.Lock()
		if t.timers[roundID] == timer {
			delete(t.timers, roundID)
		}
		t.mu.Unlock()
		t.fire(roundID, gameNumber)
	})
	t.timers[roundID] = timer
}

func (t *gameTimers) cancel(roundID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[roundID]; ok {
		timer.Stop()
		delete(t.timers, roundID)
	}
}

func (t *gameTimers) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

func (t *gameTimers) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
