package handlers

import (
	"net/http"
	"strconv"

	"worldroom/middleware"
	"worldroom/models"
	"worldroom/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type RoomHandler struct {
	gameService *services.GameService
	tokens      *services.TokenService
	hub         *services.Hub
}

func NewRoomHandler(gameService *services.GameService, tokens *services.TokenService, hub *services.Hub) *RoomHandler {
	return &RoomHandler{gameService: gameService, tokens: tokens, hub: hub}
}

type roomSession struct {
	Room   *models.Room   `json:"room"`
	Player *models.Player `json:"player"`
	Token  string         `json:"token"`
}

func (h *RoomHandler) session(c *gin.Context, status int, room *models.Room, player *models.Player) {
	token, err := h.tokens.Issue(player.ID, room.ID, player.IsHost)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, roomSession{Room: room, Player: player, Token: token})
}

// room resolves :code and, when the request carries claims, checks they
// belong to that room.
func (h *RoomHandler) room(c *gin.Context) (*models.Room, bool) {
	room, err := h.gameService.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if claims, ok := middleware.ClaimsFrom(c); ok && claims.RoomID != room.ID {
		respondError(c, services.ErrNotInRoom)
		return nil, false
	}
	return room, true
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req services.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	room, host, err := h.gameService.CreateRoom(c.Request.Context(), req.HostName, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	h.session(c, http.StatusCreated, room, host)
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req services.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	room, player, err := h.gameService.JoinRoom(c.Request.Context(), c.Param("code"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	h.session(c, http.StatusOK, room, player)
}

func (h *RoomHandler) GetState(c *gin.Context) {
	var viewerID uint
	if claims, ok := middleware.ClaimsFrom(c); ok {
		viewerID = claims.PlayerID
	}

	state, err := h.gameService.RoomState(c.Request.Context(), c.Param("code"), viewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func (h *RoomHandler) GetLeaderboard(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}

	entries, err := h.gameService.Leaderboard(c.Request.Context(), room.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func (h *RoomHandler) CreateRound(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	room, ok := h.room(c)
	if !ok {
		return
	}

	var req services.CreateRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	round, err := h.gameService.CreateRound(c.Request.Context(), room.ID, claims.PlayerID, req.Config())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, round)
}

func (h *RoomHandler) FinishRoom(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	room, ok := h.room(c)
	if !ok {
		return
	}

	room, err := h.gameService.FinishRoom(c.Request.Context(), room.ID, claims.PlayerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) ListEvents(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "Invalid limit")
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.gameService.ListEvents(c.Request.Context(), room.ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Connect upgrades to a websocket and hands the connection to the hub.
func (h *RoomHandler) Connect(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	room, ok := h.room(c)
	if !ok {
		return
	}
	player, err := h.gameService.GetPlayer(c.Request.Context(), claims.PlayerID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).WithField("room_code", room.Code).Warn("WebSocket upgrade failed")
		return
	}

	logrus.WithFields(logrus.Fields{
		"room_id":   room.ID,
		"player_id": player.ID,
	}).Info("WebSocket connection established")
	h.hub.RegisterClient(conn, room.ID, room.Code, player.ID, player.Name)
}
