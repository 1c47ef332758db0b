package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/nexabank/onboarding/internal/bank"
)

// RegisterCardRoutes exposes the card catalog and admin card creation.
func RegisterCardRoutes(api fiber.Router, client bank.Client, adminUser, adminPass string, logger *slog.Logger) {
	api.Get("/card-products", func(c *fiber.Ctx) error {
		cards, err := client.ListCardProducts(c.UserContext())
		if err != nil {
			return bankError(err, logger)
		}
		return c.Status(http.StatusOK).JSON(cards)
	})

	admin := api.Group("/admin", basicauth.New(basicauth.Config{
		Users: map[string]string{adminUser: adminPass},
		Realm: "NexaBank Admin",
	}))
	admin.Post("/card-products", func(c *fiber.Ctx) error {
		var req bank.CardProductInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		card, err := client.CreateCardProduct(c.UserContext(), req)
		if err != nil {
			var re *bank.RemoteError
			if errors.As(err, &re) && len(re.FieldErrors) > 0 {
				return c.Status(re.Status).JSON(re)
			}
			return bankError(err, logger)
		}
		logger.Info("card product created", slog.String("card_id", card.ID))
		return c.Status(http.StatusCreated).JSON(card)
	})
}

func bankError(err error, logger *slog.Logger) error {
	var re *bank.RemoteError
	if errors.As(err, &re) {
		msg := re.Message
		if msg == "" {
			msg = http.StatusText(re.Status)
		}
		return fiber.NewError(re.Status, msg)
	}
	logger.Error("bank call failed", slog.Any("error", err))
	return fiber.NewError(http.StatusBadGateway, "bank service unavailable")
}
