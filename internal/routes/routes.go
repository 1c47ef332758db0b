package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nexabank/onboarding/internal/auth"
	"github.com/nexabank/onboarding/internal/bank"
	"github.com/nexabank/onboarding/internal/config"
	"github.com/nexabank/onboarding/internal/journal"
	"github.com/nexabank/onboarding/internal/middleware"
	"github.com/nexabank/onboarding/internal/notification"
	"github.com/nexabank/onboarding/internal/session"
)

// Deps aggregates shared dependencies required to wire routes. Bank and Journal
// are optional; when nil they are built from Cfg and DB.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Bank    bank.Client
	Journal journal.Journal
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	client := d.Bank
	if client == nil {
		client = NewBankClient(d.Cfg)
	}
	flowJournal := d.Journal
	if flowJournal == nil {
		if d.DB != nil {
			flowJournal = journal.NewPostgresJournal(d.DB)
		} else {
			flowJournal = journal.NewMemory()
		}
	}

	registry := session.NewRegistry(session.NewFactory(session.FactoryConfig{
		Client:                    client,
		Journal:                   flowJournal,
		Notifier:                  notification.NewLoggerNotifier(d.Logger),
		LoginRequiresVerification: d.Cfg.LoginRequiresVerification,
		Logger:                    d.Logger,
	}), d.Cfg.SessionTTL)
	tokens := auth.NewTokens(d.Cfg.SessionSecret, d.Cfg.SessionTTL)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	flowHandler := NewFlowHandler(registry, tokens, flowJournal, d.Logger)
	guard := middleware.SessionAuth(tokens, registry)
	limiter := middleware.SignInRateLimit(d.Cache, d.Cfg.LoginAttemptsPerMinute, d.Logger)
	idempotent := func(c *fiber.Ctx) error { return c.Next() }
	if d.Cache != nil {
		idempotent = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	} else {
		d.Logger.Warn("redis not configured; application submissions are not idempotent")
	}

	RegisterSessionRoutes(api, flowHandler, guard)
	RegisterFlowRoutes(api, flowHandler, guard, limiter, idempotent)
	RegisterCardRoutes(api, client, d.Cfg.AdminUsername, d.Cfg.AdminPassword, d.Logger)

	return nil
}

// NewBankClient returns the HTTP facade when BANK_API_URL is set and an
// in-process MemoryBank otherwise.
func NewBankClient(cfg config.Config) bank.Client {
	if cfg.BankURL != "" {
		return bank.NewHTTPClient(cfg.BankURL, cfg.BankTimeout,
			bank.WithAdminCredentials(cfg.AdminUsername, cfg.AdminPassword))
	}
	return bank.NewMemoryBank(bank.WithVerificationCode(cfg.VerificationCode))
}
