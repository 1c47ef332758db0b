package routes

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nexabank/onboarding/internal/auth"
	"github.com/nexabank/onboarding/internal/bank"
	"github.com/nexabank/onboarding/internal/flow"
	"github.com/nexabank/onboarding/internal/journal"
	"github.com/nexabank/onboarding/internal/middleware"
	"github.com/nexabank/onboarding/internal/session"
)

// FlowHandler exposes each session's orchestrator over HTTP.
type FlowHandler struct {
	registry *session.Registry
	tokens   *auth.Tokens
	journal  journal.Journal
	logger   *slog.Logger
}

// NewFlowHandler builds the flow endpoints.
func NewFlowHandler(registry *session.Registry, tokens *auth.Tokens, j journal.Journal, logger *slog.Logger) *FlowHandler {
	return &FlowHandler{registry: registry, tokens: tokens, journal: j, logger: logger}
}

// RegisterSessionRoutes wires session creation and sign-out.
func RegisterSessionRoutes(api fiber.Router, h *FlowHandler, guard fiber.Handler) {
	api.Post("/sessions", h.CreateSession)
	api.Delete("/sessions", guard, h.EndSession)
}

// RegisterFlowRoutes wires the orchestrator operations behind the session guard.
func RegisterFlowRoutes(api fiber.Router, h *FlowHandler, guard, signInLimiter, idempotent fiber.Handler) {
	r := api.Group("/flow", guard)
	r.Get("", h.State)
	r.Post("/apply", h.ChooseApply)
	r.Post("/sign-in", h.ChooseSignIn)
	r.Post("/application", idempotent, h.SubmitApplication)
	r.Post("/proceed", h.Proceed)
	r.Post("/registration", h.CompleteRegistration)
	r.Post("/login", signInLimiter, h.CompleteLogin)
	r.Post("/verify", h.VerifyCode)
	r.Post("/dashboard", h.EnterDashboard)
	r.Get("/dashboard", h.Dashboard)
	r.Post("/reset", h.Reset)
	r.Get("/history", h.History)
}

type errorBody struct {
	Kind        string            `json:"kind"`
	Stage       flow.Stage        `json:"stage"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

type verificationBody struct {
	Verified bool   `json:"verified"`
	Retry    bool   `json:"retry"`
	Message  string `json:"message,omitempty"`
}

type flowResponse struct {
	State        flow.Snapshot     `json:"state"`
	Error        *errorBody        `json:"error,omitempty"`
	Verification *verificationBody `json:"verification,omitempty"`
}

type sessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	State     flow.Snapshot `json:"state"`
}

// CreateSession starts a session at LANDING and returns its bearer token.
func (h *FlowHandler) CreateSession(c *fiber.Ctx) error {
	s := h.registry.Create()
	token, exp, err := h.tokens.Issue(s.ID)
	if err != nil {
		h.registry.Delete(s.ID)
		h.logger.Error("issue session token", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "could not start session")
	}
	h.logger.Info("session started", slog.String("session_id", s.ID))
	return c.Status(http.StatusCreated).JSON(sessionResponse{
		Token:     token,
		ExpiresAt: exp,
		State:     s.Orchestrator.State().Snapshot(),
	})
}

// EndSession signs out: the flow is reset and the session dropped.
func (h *FlowHandler) EndSession(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	s.Orchestrator.Reset(c.UserContext())
	h.registry.Delete(s.ID)
	return c.SendStatus(http.StatusNoContent)
}

func (h *FlowHandler) State(c *fiber.Ctx) error {
	return h.respond(c, middleware.CurrentSession(c).Orchestrator.State(), nil)
}

type applyRequest struct {
	CardID string `json:"cardId"`
}

func (h *FlowHandler) ChooseApply(c *fiber.Ctx) error {
	var req applyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	state, err := middleware.CurrentSession(c).Orchestrator.ChooseApply(c.UserContext(), req.CardID)
	return h.respond(c, state, err)
}

func (h *FlowHandler) ChooseSignIn(c *fiber.Ctx) error {
	state, err := middleware.CurrentSession(c).Orchestrator.ChooseSignIn(c.UserContext())
	return h.respond(c, state, err)
}

func (h *FlowHandler) SubmitApplication(c *fiber.Ctx) error {
	var req bank.ApplicationInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	state, err := middleware.CurrentSession(c).Orchestrator.SubmitApplication(c.UserContext(), req)
	return h.respond(c, state, err)
}

func (h *FlowHandler) Proceed(c *fiber.Ctx) error {
	state, err := middleware.CurrentSession(c).Orchestrator.Proceed(c.UserContext())
	return h.respond(c, state, err)
}

func (h *FlowHandler) CompleteRegistration(c *fiber.Ctx) error {
	var req flow.RegistrationInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	state, err := middleware.CurrentSession(c).Orchestrator.CompleteRegistration(c.UserContext(), req)
	return h.respond(c, state, err)
}

func (h *FlowHandler) CompleteLogin(c *fiber.Ctx) error {
	var req bank.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	state, err := middleware.CurrentSession(c).Orchestrator.CompleteLogin(c.UserContext(), req)
	return h.respond(c, state, err)
}

type verifyRequest struct {
	Code string          `json:"code"`
	Mode flow.VerifyMode `json:"mode"`
}

func (h *FlowHandler) VerifyCode(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := middleware.CurrentSession(c).Orchestrator.VerifyCode(c.UserContext(), req.Code, req.Mode)
	if err != nil {
		return h.respond(c, res.State, err)
	}
	return c.Status(http.StatusOK).JSON(flowResponse{
		State:        res.State.Snapshot(),
		Verification: &verificationBody{Verified: res.Verified, Retry: res.Retry, Message: res.Message},
	})
}

func (h *FlowHandler) EnterDashboard(c *fiber.Ctx) error {
	state, err := middleware.CurrentSession(c).Orchestrator.EnterDashboard(c.UserContext())
	return h.respond(c, state, err)
}

func (h *FlowHandler) Dashboard(c *fiber.Ctx) error {
	orch := middleware.CurrentSession(c).Orchestrator
	view, err := orch.Dashboard(c.UserContext())
	if err != nil {
		return h.respond(c, orch.State(), err)
	}
	return c.Status(http.StatusOK).JSON(view)
}

func (h *FlowHandler) Reset(c *fiber.Ctx) error {
	state := middleware.CurrentSession(c).Orchestrator.Reset(c.UserContext())
	return h.respond(c, state, nil)
}

func (h *FlowHandler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", journal.DefaultHistoryLimit)
	entries, err := h.journal.History(c.UserContext(), middleware.SessionID(c), limit)
	if err != nil {
		h.logger.Error("load flow history", slog.String("session_id", middleware.SessionID(c)), slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "could not load history")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"entries": entries})
}

// respond writes the state, or the state plus an error body. A failure never
// moves the flow, so the returned state is always the one to render.
func (h *FlowHandler) respond(c *fiber.Ctx, state flow.State, err error) error {
	if err == nil {
		return c.Status(http.StatusOK).JSON(flowResponse{State: state.Snapshot()})
	}

	status, body := classify(state.Stage, err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("flow action failed",
			slog.String("session_id", middleware.SessionID(c)),
			slog.String("stage", string(state.Stage)),
			slog.Any("error", err),
		)
	}
	return c.Status(status).JSON(flowResponse{State: state.Snapshot(), Error: body})
}

func classify(stage flow.Stage, err error) (int, *errorBody) {
	var f *flow.Failure
	switch {
	case errors.As(err, &f):
		body := &errorBody{Kind: string(f.Kind), Stage: f.Stage, Message: f.Message, FieldErrors: f.Fields}
		switch f.Kind {
		case flow.KindValidation:
			return http.StatusUnprocessableEntity, body
		case flow.KindTransport:
			return http.StatusBadGateway, body
		default:
			return http.StatusBadRequest, body
		}
	case errors.Is(err, flow.ErrBusy):
		return http.StatusConflict, &errorBody{Kind: "busy", Stage: stage, Message: "Please wait for the current request to finish."}
	case errors.Is(err, flow.ErrStale):
		return http.StatusConflict, &errorBody{Kind: "stale", Stage: stage, Message: "The flow was restarted. Please continue from the current step."}
	case errors.Is(err, flow.ErrInvalidTransition):
		return http.StatusConflict, &errorBody{Kind: "invalid_transition", Stage: stage, Message: "That action is not available at this step."}
	default:
		return http.StatusInternalServerError, &errorBody{Kind: "internal", Stage: stage, Message: "Something went wrong. Please try again."}
	}
}
