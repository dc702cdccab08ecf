package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"worldroom/catalog"
	"worldroom/middleware"
	"worldroom/services"

	"github.com/gin-gonic/gin"
)

// GameHandler serves rounds, games and the country search.
type GameHandler struct {
	gameService *services.GameService
}

func NewGameHandler(gameService *services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

func (h *GameHandler) StartRound(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	roundID, err := paramID(c, "id")
	if err != nil {
		badRequest(c, "Invalid round ID")
		return
	}

	round, err := h.gameService.StartRound(c.Request.Context(), roundID, claims.PlayerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, round)
}

func (h *GameHandler) AdvanceGame(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	roundID, err := paramID(c, "id")
	if err != nil {
		badRequest(c, "Invalid round ID")
		return
	}

	round, err := h.gameService.AdvanceGame(c.Request.Context(), roundID, claims.PlayerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, round)
}

func (h *GameHandler) GetStandings(c *gin.Context) {
	roundID, err := paramID(c, "id")
	if err != nil {
		badRequest(c, "Invalid round ID")
		return
	}

	standings, err := h.gameService.GetStandings(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"standings": standings})
}

func (h *GameHandler) SubmitGuess(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	gameID, err := paramID(c, "id")
	if err != nil {
		badRequest(c, "Invalid game ID")
		return
	}

	var req services.SubmitGuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.gameService.SubmitGuess(c.Request.Context(), gameID, claims.PlayerID, req.Guess)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) GetStatus(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	gameID, err := paramID(c, "id")
	if err != nil {
		badRequest(c, "Invalid game ID")
		return
	}

	status, err := h.gameService.PlayerStatus(c.Request.Context(), gameID, claims.PlayerID)
	if err != nil {
		respondError(c, err)
		return
	}
	all, err := h.gameService.AllPlayersStatus(c.Request.Context(), gameID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status, "players": all})
}

func (h *GameHandler) GetHint(c *gin.Context) {
	gameID, err := paramID(c, "id")
	if err != nil {
		badRequest(c, "Invalid game ID")
		return
	}
	level, err := strconv.Atoi(c.DefaultQuery("level", "1"))
	if err != nil {
		badRequest(c, "Invalid hint level")
		return
	}

	hint, err := h.gameService.Hint(c.Request.Context(), gameID, level)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, hint)
}

func (h *GameHandler) SearchCountries(c *gin.Context) {
	var exclude []string
	if raw := c.Query("exclude"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				exclude = append(exclude, name)
			}
		}
	}

	countries := h.gameService.SearchCountries(c.Query("q"), exclude)
	if countries == nil {
		countries = []catalog.Country{}
	}
	c.JSON(http.StatusOK, gin.H{"countries": countries})
}
