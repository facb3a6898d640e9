package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vldr/Relay/internal/config"
	"github.com/vldr/Relay/internal/protocol"
	"github.com/vldr/Relay/internal/registry"
	"github.com/vldr/Relay/internal/wsconn"
)

func main() {
	cfg := config.Parse(os.Args[1:])
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	reg := registry.New(uuid.NewString, slog.Default())
	router := protocol.New(reg, slog.Default())
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.OriginSuffix),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler(&upgrader, router))
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/stats", statsHandler(reg))

	server := &http.Server{
		Addr:    cfg.Address(),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("relay listening", "addr", cfg.Address(), "originSuffix", cfg.OriginSuffix)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("listen failed", "error", err)
			os.Exit(1)
		}
	case <-quit:
		slog.Info("relay shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
			os.Exit(1)
		}
	}
}

func wsHandler(upgrader *websocket.Upgrader, router *protocol.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade failed", "error", err)
			return
		}

		id := uuid.NewString()
		wsConn := wsconn.New(id, conn, router, slog.Default())
		wsConn.Start()
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statsHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, members := reg.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"rooms": rooms, "members": members})
	}
}
