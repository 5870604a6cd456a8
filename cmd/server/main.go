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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/studyarchive/paper-portal/pkg/paperportal/api"
	"github.com/studyarchive/paper-portal/pkg/paperportal/config"
)

// EnvConfig is the process environment surface of the server.
type EnvConfig struct {
	Port           string `env:"PORT" env-default:"8080"`
	Environment    string `env:"ENVIRONMENT" env-default:"development"`
	DatabaseURL    string `env:"DATABASE_URL" env-default:""`
	DatabaseType   string `env:"DATABASE_TYPE" env-default:"memory"`
	LegacyDir      string `env:"LEGACY_UPLOAD_DIR" env-default:""`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" env-default:"26214400"`
	JWTSecret      string `env:"JWT_SECRET" env-default:"dev-secret"`
}

func main() {
	// Local development convenience; an absent .env is fine.
	_ = godotenv.Load()

	var env EnvConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		slog.Error("Failed to read environment", "error", err)
		os.Exit(1)
	}

	serverConfig, err := config.Load(func(c *config.ServerConfig) error {
		c.Port = env.Port
		c.Environment = env.Environment
		c.DatabaseURL = env.DatabaseURL
		c.DatabaseType = env.DatabaseType
		c.LegacyDir = env.LegacyDir
		c.MaxUploadBytes = env.MaxUploadBytes
		c.JWTSecret = env.JWTSecret
		return nil
	})
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	svc, err := serverConfig.BuildService(context.Background())
	if err != nil {
		slog.Error("Failed to build service", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(svc)
	tokenAuth := api.NewTokenAuth(serverConfig.JWTSecret)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Mount("/api/v1", handler.Routes(tokenAuth))
	r.Mount("/public", handler.PublicRoutes())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: r,
	}

	go func() {
		slog.Info("Paper portal starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"legacy_dir", serverConfig.LegacyDir)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}
