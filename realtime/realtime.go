// Package realtime carries change notifications scoped to a room, a round or
// a game. Events are wake-up signals: receivers reload state rather than
// patch it, so a dropped or duplicated event is harmless.
package realtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Scope string

const (
	ScopeRoom  Scope = "room"
	ScopeRound Scope = "round"
	ScopeGame  Scope = "game"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeRoom, ScopeRound, ScopeGame:
		return true
	}
	return false
}

type Topic struct {
	Scope Scope `json:"scope"`
	ID    uint  `json:"id"`
}

func RoomTopic(id uint) Topic  { return Topic{Scope: ScopeRoom, ID: id} }
func RoundTopic(id uint) Topic { return Topic{Scope: ScopeRound, ID: id} }
func GameTopic(id uint) Topic  { return Topic{Scope: ScopeGame, ID: id} }

func (t Topic) String() string { return string(t.Scope) + ":" + strconv.FormatUint(uint64(t.ID), 10) }

// ParseTopic is the inverse of Topic.String.
func ParseTopic(s string) (Topic, error) {
	scope, id, ok := strings.Cut(s, ":")
	if !ok || !Scope(scope).Valid() {
		return Topic{}, fmt.Errorf("realtime: bad topic %q", s)
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return Topic{}, fmt.Errorf("realtime: bad topic %q: %w", s, err)
	}
	return Topic{Scope: Scope(scope), ID: uint(n)}, nil
}

// Event says that something inside Topic changed.
type Event struct {
	Topic  Topic     `json:"topic"`
	Type   string    `json:"type"`
	RoomID uint      `json:"room_id"`
	At     time.Time `json:"at"`
}

type Subscription interface {
	Unsubscribe()
}

type Notifier interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe registers fn for events on topic. fn runs on the publishing
	// goroutine and must not block.
	Subscribe(topic Topic, fn func(Event)) Subscription
}

// Broker is the in-process Notifier.
type Broker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic]map[uint64]func(Event)
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[Topic]map[uint64]func(Event))}
}

func (b *Broker) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	b.deliver(event)
	return nil
}

func (b *Broker) deliver(event Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs[event.Topic]))
	for _, fn := range b.subs[event.Topic] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}

func (b *Broker) Subscribe(topic Topic, fn func(Event)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]func(Event))
	}
	b.subs[topic][id] = fn
	return &subscription{broker: b, topic: topic, id: id}
}

// Subscribers reports how many callbacks are registered on topic.
func (b *Broker) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

type subscription struct {
	once   sync.Once
	broker *Broker
	topic  Topic
	id     uint64
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()
		delete(s.broker.subs[s.topic], s.id)
		if len(s.broker.subs[s.topic]) == 0 {
			delete(s.broker.subs, s.topic)
		}
	})
}
