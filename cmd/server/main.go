package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-workbench/internal/config"
	"pdf-workbench/internal/handler"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	// Wiring
	container, err := config.NewContainer()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	// Handlers
	documentHandler := handler.NewDocumentHandler(container.EditorService, container.Logger)
	signatureHandler := handler.NewSignatureHandler(container.EditorService, container.SignatureService, container.Logger)
	tokenMiddleware := handler.NewTokenMiddleware(container.Config.GetAPIToken(), container.Logger)

	// Router
	router := handler.NewRouter(
		documentHandler,
		signatureHandler,
		tokenMiddleware.Middleware,
		handler.RequestLogger(container.Logger),
	)

	server := &http.Server{
		Addr:              ":" + container.Config.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()
	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")
	if container.Settings.AskSaveBeforeExit {
		if unsaved := container.EditorService.Unsaved(); len(unsaved) > 0 {
			container.Logger.Warn("Exiting with unsaved documents", "documents", unsaved)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
	container.PreviewService.Wait()

	container.Logger.Info("Server exited")
}
