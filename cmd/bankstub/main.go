// Command bankstub serves the in-memory demo bank over the same REST contract
// the onboarding service calls through BANK_API_URL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nexabank/onboarding/internal/bank"
	"github.com/nexabank/onboarding/internal/config"
	"github.com/nexabank/onboarding/internal/logging"
	"github.com/nexabank/onboarding/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("app", "bankstub")

	app := fiber.New(fiber.Config{AppName: "NexaBank Core (stub)"})
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(logger))

	backend := bank.NewMemoryBank(bank.WithVerificationCode(cfg.VerificationCode))
	bank.NewHandler(backend).Mount(app, cfg.AdminUsername, cfg.AdminPassword)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Address())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
