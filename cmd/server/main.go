// cmd/server/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ponza-art/deployed-game-backend/internal/config"
	"github.com/ponza-art/deployed-game-backend/internal/database"
	"github.com/ponza-art/deployed-game-backend/internal/game"
	"github.com/ponza-art/deployed-game-backend/internal/history"
	"github.com/ponza-art/deployed-game-backend/internal/ws"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	cfg := config.Load()

	rules := game.DefaultRules()
	rules.TurnSeconds = cfg.TurnSeconds
	rules.RoundSeconds = cfg.RoundSeconds
	rules.AutoStart = cfg.AutoStart

	ctx := context.Background()

	var historian *history.Publisher
	if cfg.RedisAddr != "" {
		var err error
		historian, err = history.NewPublisher(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logrus.WithError(err).Fatal("failed connecting to redis")
		}
		defer historian.Close()
		logrus.WithField("addr", cfg.RedisAddr).Info("action history enabled")
	} else {
		logrus.Info("action history disabled, REDIS_ADDR not set")
	}

	var store *database.Store
	if cfg.PostgresDSN != "" {
		var err error
		store, err = database.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logrus.WithError(err).Fatal("failed connecting to postgres")
		}
		defer store.Close()
		logrus.Info("result persistence enabled")
	} else {
		logrus.Info("result persistence disabled, POSTGRES_DSN not set")
	}

	registry := game.NewRegistry(rules, historian, store)
	hub := ws.NewHub(registry, []byte(cfg.JWTSecret))

	r := mux.NewRouter()
	r.Handle("/ws", hub)
	r.HandleFunc("/rooms", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(registry.ListPublicRooms())
	}).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
	}

	go func() {
		logrus.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("shutdown error")
	}
}
