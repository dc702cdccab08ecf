package routes

import (
	"net/http"

	"worldroom/handlers"
	"worldroom/middleware"
	"worldroom/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	roomHandler *handlers.RoomHandler,
	gameHandler *handlers.GameHandler,
	tokens *services.TokenService,
	guessLimit gin.HandlerFunc,
) {
	auth := middleware.Auth(tokens)
	if guessLimit == nil {
		guessLimit = func(c *gin.Context) { c.Next() }
	}
	optionalAuth := middleware.OptionalAuth(tokens)

	api := router.Group("/api")
	{
		rooms := api.Group("/rooms")
		{
			rooms.POST("", roomHandler.CreateRoom)
			rooms.POST("/:code/join", roomHandler.JoinRoom)
			rooms.GET("/:code/state", optionalAuth, roomHandler.GetState)
			rooms.GET("/:code/leaderboard", roomHandler.GetLeaderboard)
			rooms.GET("/:code/events", auth, roomHandler.ListEvents)
			rooms.POST("/:code/rounds", auth, roomHandler.CreateRound)
			rooms.POST("/:code/finish", auth, roomHandler.FinishRoom)
		}

		rounds := api.Group("/rounds")
		{
			rounds.POST("/:id/start", auth, gameHandler.StartRound)
			rounds.POST("/:id/advance", auth, gameHandler.AdvanceGame)
			rounds.GET("/:id/standings", gameHandler.GetStandings)
		}

		games := api.Group("/games")
		games.Use(auth)
		{
			games.POST("/:id/guesses", guessLimit, gameHandler.SubmitGuess)
			games.GET("/:id/status", gameHandler.GetStatus)
			games.GET("/:id/hint", gameHandler.GetHint)
		}

		api.GET("/countries", gameHandler.SearchCountries)
	}

	// Browsers cannot set headers on a websocket handshake, so the token
	// travels as a query parameter.
	router.GET("/ws/rooms/:code", auth, roomHandler.Connect)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
