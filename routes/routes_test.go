package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldroom/catalog"
	"worldroom/handlers"
	"worldroom/models"
	"worldroom/realtime"
	"worldroom/services"
	"worldroom/store"
)

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.New([]catalog.Country{
		{Code: "FR", Name: "France", Capital: "Paris", Population: 67391582, Area: 643801, Continent: "Europe", Lat: 46.2276, Lon: 2.2137},
	})
	require.NoError(t, err)
	broker := realtime.NewBroker()
	gameService := services.NewGameService(store.NewMemoryStore(), cat, broker)
	t.Cleanup(gameService.Close)
	tokens, err := services.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := services.NewHub(gameService, broker)
	go hub.Run(ctx)

	router := gin.New()
	SetupRoutes(router, handlers.NewRoomHandler(gameService, tokens, hub), handlers.NewGameHandler(gameService), tokens, nil)
	return &api{t: t, router: router}
}

func (a *api) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type session struct {
	Room   models.Room   `json:"room"`
	Player models.Player `json:"player"`
	Token  string        `json:"token"`
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (a *api) createRoom() session {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/rooms", "", gin.H{"host_name": "Hana", "name": "Friday quiz"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var s session
	decode(a.t, w, &s)
	return s
}

func (a *api) join(code, name string) session {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/rooms/"+code+"/join", "", gin.H{"name": name})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var s session
	decode(a.t, w, &s)
	return s
}

func assertKind(t *testing.T, w *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, kind, body.Kind)
	assert.NotEmpty(t, body.Error)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	host := a.createRoom()
	assert.True(t, host.Player.IsHost)
	assert.Len(t, host.Room.Code, 6)

	mia := a.join(strings.ToLower(host.Room.Code), "Mia")
	assert.Equal(t, host.Room.ID, mia.Room.ID)
	assertKind(t, a.do(http.MethodPost, "/api/rooms/"+host.Room.Code+"/join", "", gin.H{"name": "Mia"}), http.StatusConflict, "conflict")
	assertKind(t, a.do(http.MethodPost, "/api/rooms/ZZZZZZ/join", "", gin.H{"name": "Bo"}), http.StatusNotFound, "not_found")

	roundsPath := "/api/rooms/" + host.Room.Code + "/rounds"
	assertKind(t, a.do(http.MethodPost, roundsPath, "", gin.H{}), http.StatusUnauthorized, "unauthorized")
	assertKind(t, a.do(http.MethodPost, roundsPath, mia.Token, gin.H{}), http.StatusForbidden, "forbidden")
	assertKind(t, a.do(http.MethodPost, roundsPath, host.Token, gin.H{"games_per_round": 0}), http.StatusBadRequest, "validation")

	w := a.do(http.MethodPost, roundsPath, host.Token, gin.H{"name": "Warmup", "games_per_round": 1, "max_attempts_per_game": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var round models.Round
	decode(t, w, &round)
	assert.Equal(t, models.RoundWaiting, round.Status)
	assert.Equal(t, models.DefaultTimeLimitSeconds, round.TimeLimitSeconds)

	roundPath := "/api/rounds/" + itoa(round.ID)
	assertKind(t, a.do(http.MethodPost, roundPath+"/start", mia.Token, nil), http.StatusForbidden, "forbidden")
	w = a.do(http.MethodPost, roundPath+"/start", host.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &round)
	assert.Equal(t, models.RoundActive, round.Status)
	assert.Equal(t, 1, round.CurrentGame)

	w = a.do(http.MethodGet, "/api/rooms/"+host.Room.Code+"/state", mia.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var state models.RoomState
	decode(t, w, &state)
	require.NotNil(t, state.CurrentGame)
	assert.Nil(t, state.CurrentGame.Target)
	require.NotNil(t, state.MyStatus)
	assert.Equal(t, 0, state.MyStatus.Attempts)
	gamePath := "/api/games/" + itoa(state.CurrentGame.ID)

	assertKind(t, a.do(http.MethodPost, gamePath+"/guesses", mia.Token, gin.H{"guess": "Atlantis"}), http.StatusBadRequest, "validation")
	assertKind(t, a.do(http.MethodPost, gamePath+"/guesses", "", gin.H{"guess": "France"}), http.StatusUnauthorized, "unauthorized")
	assertKind(t, a.do(http.MethodPost, "/api/rounds/"+itoa(round.ID)+"/advance", host.Token, nil), http.StatusConflict, "conflict")

	for _, s := range []session{host, mia} {
		w = a.do(http.MethodPost, gamePath+"/guesses", s.Token, gin.H{"guess": "france"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var result services.GuessResult
		decode(t, w, &result)
		assert.True(t, result.Guess.IsCorrect)
		assert.Equal(t, 1000, result.Guess.Score)
		assert.True(t, result.Status.Completed)
	}
	assertKind(t, a.do(http.MethodPost, gamePath+"/guesses", mia.Token, gin.H{"guess": "France"}), http.StatusConflict, "conflict")

	w = a.do(http.MethodGet, gamePath+"/status", mia.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var status struct {
		Status  models.PlayerGameStatus `json:"status"`
		Players map[string]bool         `json:"players"`
	}
	decode(t, w, &status)
	assert.True(t, status.Status.Won)
	assert.Len(t, status.Players, 2)

	w = a.do(http.MethodGet, gamePath+"/hint?level=2", mia.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Capital: Paris")
	assertKind(t, a.do(http.MethodGet, gamePath+"/hint?level=9", mia.Token, nil), http.StatusBadRequest, "validation")

	w = a.do(http.MethodPost, roundPath+"/advance", host.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &round)
	assert.Equal(t, models.RoundCompleted, round.Status)

	w = a.do(http.MethodGet, roundPath+"/standings", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var standings struct {
		Standings []models.RoundStanding `json:"standings"`
	}
	decode(t, w, &standings)
	require.Len(t, standings.Standings, 2)
	for _, s := range standings.Standings {
		assert.Equal(t, 1, s.Rank)
		assert.Equal(t, 1000, s.RoundScore)
	}

	w = a.do(http.MethodGet, "/api/rooms/"+host.Room.Code+"/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var board struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	decode(t, w, &board)
	require.Len(t, board.Leaderboard, 2)
	assert.Equal(t, 1000, board.Leaderboard[0].TotalScore)

	w = a.do(http.MethodPost, "/api/rooms/"+host.Room.Code+"/finish", host.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var room models.Room
	decode(t, w, &room)
	assert.Equal(t, models.RoomFinished, room.Status)
	assertKind(t, a.do(http.MethodPost, "/api/rooms/"+host.Room.Code+"/join", "", gin.H{"name": "Late"}), http.StatusConflict, "conflict")
}

func TestEventsRequireMembership(t *testing.T) {
	a := newAPI(t)
	host := a.createRoom()
	a.join(host.Room.Code, "Mia")
	other := a.createRoom()

	path := "/api/rooms/" + host.Room.Code + "/events"
	assertKind(t, a.do(http.MethodGet, path, "", nil), http.StatusUnauthorized, "unauthorized")
	assertKind(t, a.do(http.MethodGet, path, other.Token, nil), http.StatusForbidden, "forbidden")
	assertKind(t, a.do(http.MethodGet, path+"?limit=-1", host.Token, nil), http.StatusBadRequest, "validation")

	w := a.do(http.MethodGet, path+"?limit=10", host.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Events []models.Event `json:"events"`
	}
	decode(t, w, &body)
	require.Len(t, body.Events, 2)
	assert.Equal(t, models.EventRoomCreated, body.Events[0].Type)
	assert.Equal(t, models.EventPlayerJoined, body.Events[1].Type)
}

func TestStateRejectsForeignToken(t *testing.T) {
	a := newAPI(t)
	host := a.createRoom()
	other := a.createRoom()

	assertKind(t, a.do(http.MethodGet, "/api/rooms/"+host.Room.Code+"/state", other.Token, nil), http.StatusForbidden, "forbidden")
	w := a.do(http.MethodGet, "/api/rooms/"+host.Room.Code+"/state", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodGet, "/api/rooms/"+host.Room.Code+"/state", "not-a-jwt", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearchCountries(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/api/countries?q=fra", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Countries []catalog.Country `json:"countries"`
	}
	decode(t, w, &body)
	require.Len(t, body.Countries, 1)
	assert.Equal(t, "France", body.Countries[0].Name)

	w = a.do(http.MethodGet, "/api/countries?q=fra&exclude=France,", "", nil)
	decode(t, w, &body)
	assert.Empty(t, body.Countries)
	assert.Contains(t, w.Body.String(), `"countries":[]`)
}

func TestWebSocketHandshake(t *testing.T) {
	a := newAPI(t)
	host := a.createRoom()
	server := httptest.NewServer(a.router)
	t.Cleanup(server.Close)

	base := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/rooms/" + host.Room.Code
	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+host.Token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "request_state"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != "room_state" {
			continue
		}
		var state models.RoomState
		require.NoError(t, json.Unmarshal(msg.Payload, &state))
		assert.Equal(t, host.Room.Code, state.Room.Code)
		break
	}
}

func itoa(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
