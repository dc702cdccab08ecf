package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldroom/catalog"
	"worldroom/handlers"
	"worldroom/models"
	"worldroom/realtime"
	"worldroom/routes"
	"worldroom/services"
	"worldroom/store"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	broker := realtime.NewBroker()
	gameService := services.NewGameService(store.NewMemoryStore(), catalog.Default(), broker)
	t.Cleanup(gameService.Close)
	tokens, err := services.NewTokenService("sync-secret", time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := services.NewHub(gameService, broker)
	go hub.Run(ctx)

	router := gin.New()
	routes.SetupRoutes(router, handlers.NewRoomHandler(gameService, tokens, hub), handlers.NewGameHandler(gameService), tokens, nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

type session struct {
	Room   models.Room   `json:"room"`
	Player models.Player `json:"player"`
	Token  string        `json:"token"`
}

func post(t *testing.T, url string, body interface{}) session {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Less(t, resp.StatusCode, 300)
	var s session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	return s
}

func TestHTTPLoader(t *testing.T) {
	server := newServer(t)
	host := post(t, server.URL+"/api/rooms", map[string]string{"host_name": "Hana"})

	st, err := NewHTTPLoader(server.URL+"/", host.Room.Code, host.Token).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, host.Room.ID, st.Room.ID)
	require.Len(t, st.Players, 1)

	_, err = NewHTTPLoader(server.URL, "NOPE00", "").Load(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found", apiErr.Kind)
	assert.False(t, apiErr.Transient())
}

func TestSyncerFollowsPushes(t *testing.T) {
	server := newServer(t)
	host := post(t, server.URL+"/api/rooms", map[string]string{"host_name": "Hana"})

	waker := NewWSWaker(server.URL, host.Room.Code, host.Token)
	waker.RedialDelay = 10 * time.Millisecond
	syncer := New(NewHTTPLoader(server.URL, host.Room.Code, host.Token),
		WithPollInterval(time.Hour),
		WithStateHook(waker.FollowState))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx, waker) }()

	require.Eventually(t, func() bool { return syncer.State() != nil }, 2*time.Second, 5*time.Millisecond)

	post(t, server.URL+"/api/rooms/"+host.Room.Code+"/join", map[string]string{"name": "Mia"})
	assert.Eventually(t, func() bool {
		st := syncer.State()
		return st != nil && len(st.Players) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestNewWSWakerURL(t *testing.T) {
	w := NewWSWaker("https://play.example.com/", "AB12CD", "a.b c")
	assert.Equal(t, "wss://play.example.com/ws/rooms/AB12CD?token=a.b+c", w.URL)
	w = NewWSWaker("http://localhost:8080", "AB12CD", "t")
	assert.Equal(t, "ws://localhost:8080/ws/rooms/AB12CD?token=t", w.URL)
}
