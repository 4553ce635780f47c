package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-form-drafts/internal/config"
	"pdf-form-drafts/internal/handler"
	"pdf-form-drafts/internal/jobs"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

// run wires and serves the API until a signal arrives or the listener fails.
func run() int {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := config.NewContainer(startCtx)
	cancelStart()
	if err != nil {
		log.Printf("Failed to initialize: %v", err)
		return 1
	}
	defer container.Close()

	// Handlers
	draftHandler := handler.NewDraftHandler(container.DraftService, container.Logger)

	var authMiddleware *handler.AuthMiddleware
	if container.AuthService != nil {
		authMiddleware = handler.NewAuthMiddleware(container.AuthService, container.Logger)
	} else {
		container.Logger.Warn("Header auth enabled; X-User-Id is trusted as the caller identity")
		authMiddleware = handler.NewHeaderAuthMiddleware(container.Logger)
	}

	exportLimiter := handler.NewExportLimiter(container.Config.GetExportRatePerMinute(), container.Logger)

	// Router
	router := handler.NewRouter(
		draftHandler,
		authMiddleware.Middleware,
		handler.RouterOptions{
			AllowedOrigins: container.Config.GetAllowedOrigins(),
			ExportLimiter:  exportLimiter.Middleware,
			Logger:         container.Logger,
		},
	)

	scheduler := jobs.NewScheduler(container.FileStore, container.Logger)
	if err := scheduler.Start(container.Config.GetCleanupSchedule()); err != nil {
		container.Logger.Error("Invalid cleanup schedule, temp sweep disabled", err)
	}

	server := &http.Server{
		Addr:              ":" + container.Config.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	container.Logger.Info("Server listening", "address", server.Addr)
	exitCode := 0
	if err := serve(server, quit); err != nil {
		container.Logger.Error("Server failed to start", err)
		exitCode = 1
	} else {
		container.Logger.Info("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		container.Logger.Error("Graceful shutdown failed", err)
		_ = server.Close()
	}
	scheduler.Stop(ctx)

	container.Logger.Info("Server exited")
	return exitCode
}

// serve runs srv until stop fires or the listener fails. It returns the
// listener error, or nil when stopped by a signal.
func serve(srv *http.Server, stop <-chan os.Signal) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
		return nil
	case err := <-serverErr:
		return err
	}
}
