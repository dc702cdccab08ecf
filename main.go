package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"worldroom/catalog"
	"worldroom/config"
	"worldroom/handlers"
	"worldroom/middleware"
	"worldroom/realtime"
	"worldroom/routes"
	"worldroom/services"
	"worldroom/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	config.InitLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	if cfg.AutoMigrate {
		if err := store.AutoMigrate(db); err != nil {
			logrus.Fatal("Failed to migrate database: ", err)
		}
	}

	redisClient, err := config.InitRedis(ctx, cfg)
	if err != nil {
		logrus.Fatal("Failed to initialize Redis: ", err)
	}

	policy, err := services.ParseTimerPolicy(cfg.GameTimerPolicy)
	if err != nil {
		logrus.Fatal(err)
	}
	tokens, err := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logrus.Fatal(err)
	}

	g, ctx := errgroup.WithContext(ctx)

	var notifier realtime.Notifier = realtime.NewBroker()
	opts := []services.Option{services.WithTimerPolicy(policy)}
	if redisClient != nil {
		defer redisClient.Close()
		relay := realtime.NewRedisBroker(redisClient)
		notifier = relay
		opts = append(opts, services.WithStateCache(services.NewStateCache(redisClient, cfg.StateCacheTTL)))
		g.Go(func() error { return relay.Run(ctx, nil) })
	}

	gameService := services.NewGameService(store.NewGormStore(db), catalog.Default(), notifier, opts...)
	defer gameService.Close()

	hub := services.NewHub(gameService, notifier)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.CORS(cfg.CORSOrigin))
	routes.SetupRoutes(
		router,
		handlers.NewRoomHandler(gameService, tokens, hub),
		handlers.NewGameHandler(gameService),
		tokens,
		middleware.RateLimit(redisClient, cfg.GuessRateLimit, time.Minute),
	)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	g.Go(func() error {
		logrus.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("Server stopped with error")
	}
	logrus.Info("Server exited")
}
