package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bandhanapp/bandhan-server/internal/app"
	"github.com/bandhanapp/bandhan-server/internal/auth"
	"github.com/bandhanapp/bandhan-server/internal/cache"
	"github.com/bandhanapp/bandhan-server/internal/config"
	"github.com/bandhanapp/bandhan-server/internal/db"
	"github.com/bandhanapp/bandhan-server/internal/httpapi"
	"github.com/bandhanapp/bandhan-server/internal/logger"
	"github.com/bandhanapp/bandhan-server/internal/realtime"
	"github.com/bandhanapp/bandhan-server/internal/repository"
	"github.com/bandhanapp/bandhan-server/internal/service/chat"
	"github.com/bandhanapp/bandhan-server/internal/service/match"
	"github.com/bandhanapp/bandhan-server/internal/service/notify"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log)
	verifier := auth.NewVerifier(cfg)

	// Realtime layer first: services push through the hub.
	registry := realtime.NewConnectionRegistry()
	hub := realtime.NewHub(registry, log)

	notifier := notify.NewService(appCtx, hub)
	chatSvc := chat.NewService(appCtx, notifier, hub)
	matchSvc := match.NewService(appCtx, notifier)

	users := repository.NewUserRepository(database)
	wsHandler := realtime.NewHandler(verifier, hub, registry, chatSvc, users, log, cfg.JWT.HandshakeTimeout)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	router := httpapi.NewRouter(cfg, verifier, wsHandler,
		httpapi.NewMatchHandlers(matchSvc),
		httpapi.NewChatHandlers(chatSvc),
		httpapi.NewNotificationHandlers(notifier),
	)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
}
