// Command fakeapi serves the in-memory exam backend on SERVER_PORT with a
// demo professor, student and exam, for trying examctl without the real
// platform.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanixMP/Azmooneh/internal/apitest"
	"github.com/DanixMP/Azmooneh/internal/config"
	"github.com/DanixMP/Azmooneh/internal/logger"
	"github.com/DanixMP/Azmooneh/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(validator.Struct); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Msg("Starting fake exam backend")

	// ─── Build Backend ─────────────────────────────────────────────────
	gin.SetMode(cfg.GinMode)
	backend := apitest.New(apitest.Options{
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  cfg.JWTExpiry,
		BcryptCost: cfg.BcryptCost,
		LoginRate:  cfg.LoginRate,
		Logger:     log,
	})
	demo := backend.SeedDemo()
	log.Info().
		Str("professor", demo.Professor.Username).
		Str("student", demo.Student.Username).
		Int64("exam_id", demo.Exam.ID).
		Msg("Demo data seeded")

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           backend.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
