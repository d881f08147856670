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
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	container, err := config.NewContainer()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	repo, err := container.NewKeyRepository()
	if err != nil {
		container.Logger.Error("Failed to open key store", err, "backend", container.Config.GetKeyStoreBackend())
		os.Exit(1)
	}
	router := handler.NewKeyRouter(handler.NewKeyHandler(repo, container.Logger), handler.RequestLogger(container.Logger))

	server := &http.Server{
		Addr:              ":" + container.Config.GetKeyServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		container.Logger.Info("Key server listening", "address", server.Addr, "backend", container.Config.GetKeyStoreBackend())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Key server failed to start", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
	container.Logger.Info("Key server exited")
}
