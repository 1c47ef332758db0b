package bank

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

// Handler serves the bank REST contract that HTTPClient consumes.
type Handler struct {
	backend Client
}

// NewHandler wraps a backend, typically a MemoryBank.
func NewHandler(backend Client) *Handler {
	return &Handler{backend: backend}
}

// Mount registers the bank routes. Card creation is guarded by basic auth.
func (h *Handler) Mount(r fiber.Router, adminUser, adminPass string) {
	api := r.Group("/api")
	api.Post("/customers", h.submitApplication)
	api.Post("/users/register", h.register)
	api.Post("/users/login", h.login)
	api.Post("/users/verify-mfa", h.verify)
	api.Get("/accounts/:customerId", h.account)
	api.Get("/accounts/:customerId/transactions", h.transactions)
	api.Get("/credit-cards", h.listCards)
	api.Post("/credit-cards", basicauth.New(basicauth.Config{
		Users: map[string]string{adminUser: adminPass},
	}), h.createCard)
}

func (h *Handler) submitApplication(c *fiber.Ctx) error {
	var req ApplicationInput
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, newRemoteError(http.StatusBadRequest, err.Error()))
	}
	app, err := h.backend.SubmitApplication(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(app)
}

func (h *Handler) register(c *fiber.Ctx) error {
	var req RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, newRemoteError(http.StatusBadRequest, err.Error()))
	}
	reg, err := h.backend.RegisterUser(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(reg)
}

func (h *Handler) login(c *fiber.Ctx) error {
	var req LoginInput
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, newRemoteError(http.StatusBadRequest, err.Error()))
	}
	session, err := h.backend.LoginUser(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(session)
}

func (h *Handler) verify(c *fiber.Ctx) error {
	var req VerifyInput
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, newRemoteError(http.StatusBadRequest, err.Error()))
	}
	res, err := h.backend.VerifyCode(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(res)
}

func (h *Handler) account(c *fiber.Ctx) error {
	account, err := h.backend.GetAccount(c.UserContext(), c.Params("customerId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(account)
}

func (h *Handler) transactions(c *fiber.Ctx) error {
	txs, err := h.backend.GetTransactions(c.UserContext(), c.Params("customerId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(txs)
}

func (h *Handler) listCards(c *fiber.Ctx) error {
	cards, err := h.backend.ListCardProducts(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(cards)
}

func (h *Handler) createCard(c *fiber.Ctx) error {
	var req CardProductInput
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, newRemoteError(http.StatusBadRequest, err.Error()))
	}
	card, err := h.backend.CreateCardProduct(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(card)
}

func writeError(c *fiber.Ctx, err error) error {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return c.Status(remote.Status).JSON(remote)
	}
	return c.Status(http.StatusInternalServerError).JSON(newRemoteError(http.StatusInternalServerError, "An unexpected error occurred"))
}
