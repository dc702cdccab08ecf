package syncclient

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"worldroom/models"
	"worldroom/realtime"
)

const defaultRedialDelay = 2 * time.Second

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribeRequest struct {
	Type    string         `json:"type"`
	Payload realtime.Topic `json:"payload"`
}

// WSWaker turns the server's websocket pushes into wake-ups. The room topic
// is followed by the server automatically; Follow adds round and game topics.
// A dropped connection is redialled after RedialDelay, with one wake-up on
// every (re)connect to cover anything missed in between.
type WSWaker struct {
	URL         string
	Dialer      *websocket.Dialer
	RedialDelay time.Duration

	follow chan realtime.Topic
	topics map[realtime.Topic]bool
}

// NewWSWaker builds the websocket URL from an http(s) base URL.
func NewWSWaker(baseURL, roomCode, token string) *WSWaker {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return &WSWaker{
		URL:         base + "/ws/rooms/" + url.PathEscape(roomCode) + "?token=" + url.QueryEscape(token),
		Dialer:      websocket.DefaultDialer,
		RedialDelay: defaultRedialDelay,
		follow:      make(chan realtime.Topic, 8),
		topics:      make(map[realtime.Topic]bool),
	}
}

// Follow asks the server for pushes on topic. It never blocks; if the queue
// is full the request is dropped and polling covers the gap.
func (w *WSWaker) Follow(topic realtime.Topic) {
	select {
	case w.follow <- topic:
	default:
	}
}

// FollowState follows the active round and current game of st.
func (w *WSWaker) FollowState(st *models.RoomState) {
	if st == nil {
		return
	}
	if st.ActiveRound != nil {
		w.Follow(realtime.RoundTopic(st.ActiveRound.ID))
	}
	if st.CurrentGame != nil {
		w.Follow(realtime.GameTopic(st.CurrentGame.ID))
	}
}

func (w *WSWaker) Run(ctx context.Context, wake func()) error {
	for {
		err := w.session(ctx, wake)
		if ctx.Err() != nil {
			return nil
		}
		logrus.WithError(err).Debug("Websocket session ended, redialling")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.RedialDelay):
		}
	}
}

func (w *WSWaker) session(ctx context.Context, wake func()) error {
	conn, _, err := w.Dialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	readErr := make(chan error, 1)
	go func() {
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			if msg.Type == "state_changed" {
				wake()
			}
		}
	}()

	// Topics followed on an earlier connection are re-requested here.
	for topic := range w.topics {
		if err := conn.WriteJSON(subscribeRequest{Type: "subscribe", Payload: topic}); err != nil {
			return err
		}
	}
	wake()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return ctx.Err()
		case err := <-readErr:
			return err
		case topic := <-w.follow:
			if w.topics[topic] {
				continue
			}
			if err := conn.WriteJSON(subscribeRequest{Type: "subscribe", Payload: topic}); err != nil {
				return err
			}
			w.topics[topic] = true
		}
	}
}
