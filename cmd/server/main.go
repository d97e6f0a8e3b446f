package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/navmaint/drawboard/internal/asset"
	"github.com/navmaint/drawboard/internal/auth"
	"github.com/navmaint/drawboard/internal/config"
	"github.com/navmaint/drawboard/internal/drawing"
	"github.com/navmaint/drawboard/internal/export"
	"github.com/navmaint/drawboard/internal/live"
	mw "github.com/navmaint/drawboard/internal/middleware"
	"github.com/navmaint/drawboard/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		slog.Error("open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	authService := auth.NewService(cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	drawingService := drawing.NewService(drawing.Config{
		Store:      st,
		StorageKey: cfg.StorageKey,
		Width:      cfg.CanvasWidth,
		Height:     cfg.CanvasHeight,
	})
	assetHandler := asset.NewHandler(cfg.MaxUploadBytes)
	drawingHandler := drawing.NewHandler(drawingService, assetHandler)
	exportHandler := export.NewHandler(drawingService.Pipeline(), drawingService)

	hub := live.NewHub(drawingService)
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/auth/whoami", authHandler.WhoAmI).Methods("GET", "OPTIONS")

	// Background import without a drawing session (standalone page)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	drawingHandler.Routes(api)
	api.HandleFunc("/drawings/{drawingId}/export/{format}", exportHandler.Download).Methods("GET")

	// WebSocket endpoint
	r.Handle("/ws/drawings/{drawingId}", live.NewHandler(hub, authService, cfg.OriginPatterns()))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
