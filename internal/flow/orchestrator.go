package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nexabank/onboarding/internal/bank"
	"github.com/nexabank/onboarding/internal/validation"
)

// Change describes one applied transition.
type Change struct {
	From  Stage
	To    Stage
	Event string
	State State
	At    time.Time
}

// Observer is told about every applied transition. Errors are logged and never
// affect the flow.
type Observer interface {
	Observe(ctx context.Context, change Change) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, change Change) error

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, change Change) error { return f(ctx, change) }

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLoginVerification controls whether direct sign-in must pass LOGIN_VERIFY.
func WithLoginVerification(required bool) Option {
	return func(o *Orchestrator) { o.loginVerification = required }
}

// WithObserver appends transition observers.
func WithObserver(observers ...Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, observers...) }
}

// WithLogger sets the logger used for observer failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source for Change timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator owns the flow state of one session. All mutations go through
// Transition under a single lock; remote calls run outside it.
type Orchestrator struct {
	client            bank.Client
	loginVerification bool
	observers         []Observer
	logger            *slog.Logger
	now               func() time.Time

	mu    sync.Mutex
	state State
	epoch uint64
	busy  bool
}

// New builds an orchestrator at LANDING.
func New(client bank.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:            client,
		loginVerification: true,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:               time.Now,
		state:             Initial(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Busy reports whether a remote-backed action is outstanding.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// ticket is the claim a remote-backed action holds while its call is outstanding.
type ticket struct {
	epoch uint64
	state State
}

func (o *Orchestrator) begin(op string, stages ...Stage) (ticket, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	allowed := false
	for _, s := range stages {
		if o.state.Stage == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return ticket{state: o.state}, fmt.Errorf("%w: %s at %s", ErrInvalidTransition, op, o.state.Stage)
	}
	if o.busy {
		return ticket{state: o.state}, ErrBusy
	}
	o.busy = true
	return ticket{epoch: o.epoch, state: o.state}, nil
}

// release ends an action without a transition. It reports false when the flow
// was reset in the meantime.
func (o *Orchestrator) release(t ticket) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != t.epoch {
		return false
	}
	o.busy = false
	return true
}

func (o *Orchestrator) fail(t ticket, f *Failure) (State, error) {
	if !o.release(t) {
		return o.State(), ErrStale
	}
	return t.state, f
}

func (o *Orchestrator) complete(ctx context.Context, t ticket, e Event) (State, error) {
	o.mu.Lock()
	if o.epoch != t.epoch {
		current := o.state
		o.mu.Unlock()
		return current, ErrStale
	}
	o.busy = false
	prev := o.state
	next, err := Transition(prev, e)
	if err != nil {
		o.mu.Unlock()
		return prev, err
	}
	o.state = next
	o.mu.Unlock()

	o.notify(ctx, prev.Stage, next, e)
	return next, nil
}

func (o *Orchestrator) apply(ctx context.Context, e Event) (State, error) {
	o.mu.Lock()
	prev := o.state
	next, err := Transition(prev, e)
	if err != nil {
		o.mu.Unlock()
		return prev, err
	}
	_, reset := e.(Reset)
	if reset {
		o.epoch++
		o.busy = false
	}
	o.state = next
	o.mu.Unlock()

	if reset && prev.Stage == StageLanding {
		return next, nil
	}
	o.notify(ctx, prev.Stage, next, e)
	return next, nil
}

func (o *Orchestrator) notify(ctx context.Context, from Stage, to State, e Event) {
	change := Change{From: from, To: to.Stage, Event: e.eventName(), State: to, At: o.now().UTC()}
	for _, obs := range o.observers {
		if err := obs.Observe(ctx, change); err != nil {
			o.logger.Warn("flow observer failed",
				slog.String("event", change.Event),
				slog.String("from", string(change.From)),
				slog.String("to", string(change.To)),
				slog.Any("error", err),
			)
		}
	}
}

// ChooseApply moves LANDING to FORM. A non-empty cardID is resolved against the
// card catalog and kept as the selected card.
func (o *Orchestrator) ChooseApply(ctx context.Context, cardID string) (State, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return o.apply(ctx, ChooseApply{})
	}

	t, err := o.begin("choose_apply", StageLanding)
	if err != nil {
		return t.state, err
	}
	cards, err := o.client.ListCardProducts(ctx)
	if err != nil {
		return o.fail(t, remoteFailure(StageLanding, err, msgCatalogFailed))
	}
	for i := range cards {
		if cards[i].ID == cardID {
			card := cards[i]
			return o.complete(ctx, t, ChooseApply{Card: &card})
		}
	}
	return o.fail(t, &Failure{
		Kind:    KindValidation,
		Stage:   StageLanding,
		Message: msgInvalidFields,
		Fields:  map[string]string{"cardId": msgUnknownCard},
	})
}

// ChooseSignIn moves LANDING to LOGIN.
func (o *Orchestrator) ChooseSignIn(ctx context.Context) (State, error) {
	return o.apply(ctx, ChooseSignIn{})
}

// SubmitApplication validates input locally, submits it, and routes FORM to the
// stage matching the decision. Invalid input never reaches the bank.
func (o *Orchestrator) SubmitApplication(ctx context.Context, input bank.ApplicationInput) (State, error) {
	t, err := o.begin("submit_application", StageForm)
	if err != nil {
		return t.state, err
	}

	input = input.Trimmed()
	if card := t.state.SelectedCard(); card != nil && input.CardProductID == "" {
		input.CardProductID = card.ID
	}
	if errs := validation.Validate(validation.Application, input.Fields()); !errs.Empty() {
		return o.fail(t, validationFailure(StageForm, errs))
	}

	app, err := o.client.SubmitApplication(ctx, input)
	if err != nil {
		return o.fail(t, remoteFailure(StageForm, err, msgSubmitFailed))
	}

	next, err := o.complete(ctx, t, ApplicationDecided{Application: app})
	if err != nil && !errors.Is(err, ErrStale) {
		return next, &Failure{Kind: KindRejected, Stage: StageForm, Message: msgSubmitFailed, Err: err}
	}
	return next, err
}

// Proceed moves APPROVED to REGISTRATION.
func (o *Orchestrator) Proceed(ctx context.Context) (State, error) {
	return o.apply(ctx, Proceed{})
}

// RegistrationInput is the credential form shown at REGISTRATION.
type RegistrationInput struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// CompleteRegistration creates credentials for the approved application.
func (o *Orchestrator) CompleteRegistration(ctx context.Context, input RegistrationInput) (State, error) {
	t, err := o.begin("complete_registration", StageRegistration)
	if err != nil {
		return t.state, err
	}

	input.Username = strings.TrimSpace(input.Username)
	errs := validation.Validate(validation.Registration, validation.Fields{
		"username":        input.Username,
		"password":        input.Password,
		"confirmPassword": input.ConfirmPassword,
	})
	if !errs.Empty() {
		return o.fail(t, validationFailure(StageRegistration, errs))
	}

	reg, err := o.client.RegisterUser(ctx, bank.RegisterInput{
		CustomerID: t.state.Application().ID,
		Username:   input.Username,
		Password:   input.Password,
	})
	if err != nil {
		return o.fail(t, remoteFailure(StageRegistration, err, msgRegisterFailed))
	}
	return o.complete(ctx, t, Registered{Registration: reg})
}

// CompleteLogin signs an existing customer in.
func (o *Orchestrator) CompleteLogin(ctx context.Context, input bank.LoginInput) (State, error) {
	t, err := o.begin("complete_login", StageLogin)
	if err != nil {
		return t.state, err
	}

	input.Username = strings.TrimSpace(input.Username)
	errs := validation.Validate(validation.Login, validation.Fields{
		"username": input.Username,
		"password": input.Password,
	})
	if !errs.Empty() {
		return o.fail(t, validationFailure(StageLogin, errs))
	}

	session, err := o.client.LoginUser(ctx, input)
	if err != nil {
		return o.fail(t, remoteFailure(StageLogin, err, msgSignInFailed))
	}
	return o.complete(ctx, t, SignedIn{Session: session, RequiresVerification: o.loginVerification})
}

// VerifyResult is the outcome of VerifyCode. Retry means the code was wrong and
// the same stage should prompt again.
type VerifyResult struct {
	State    State
	Verified bool
	Retry    bool
	Message  string
}

// VerifyCode checks a one-time code on either verification stage. An empty mode
// is taken from the current stage; a mode that does not match it is refused.
func (o *Orchestrator) VerifyCode(ctx context.Context, code string, mode VerifyMode) (VerifyResult, error) {
	t, err := o.begin("verify_code", StageRegisterVerify, StageLoginVerify)
	if err != nil {
		return VerifyResult{State: t.state}, err
	}

	stage := t.state.Stage
	expected, _ := ModeForStage(stage)
	if mode == "" {
		mode = expected
	}
	if mode != expected {
		o.release(t)
		return VerifyResult{State: t.state}, fmt.Errorf("%w: %s verification at %s", ErrInvalidTransition, mode, stage)
	}

	code = strings.TrimSpace(code)
	if errs := validation.Validate(validation.VerificationCode, validation.Fields{"code": code}); !errs.Empty() {
		state, err := o.fail(t, validationFailure(stage, errs))
		return VerifyResult{State: state}, err
	}

	var userID string
	if mode == ModeRegistration {
		userID = t.state.Registration().UserID
	} else {
		userID = t.state.Session().UserID
	}

	v, err := o.client.VerifyCode(ctx, bank.VerifyInput{UserID: userID, Code: code})
	if err != nil {
		state, err := o.fail(t, remoteFailure(stage, err, msgVerifyFailed))
		return VerifyResult{State: state}, err
	}
	if !v.Verified {
		if !o.release(t) {
			return VerifyResult{State: o.State()}, ErrStale
		}
		return VerifyResult{State: t.state, Retry: true, Message: msgIncorrectCode}, nil
	}

	next, err := o.complete(ctx, t, CodeVerified{Mode: mode})
	if err != nil {
		return VerifyResult{State: next}, err
	}
	return VerifyResult{State: next, Verified: true, Message: v.Message}, nil
}

// EnterDashboard moves WELCOME to DASHBOARD.
func (o *Orchestrator) EnterDashboard(ctx context.Context) (State, error) {
	return o.apply(ctx, EnterDashboard{})
}

// Reset returns to LANDING from any stage. An outstanding call's response is discarded.
func (o *Orchestrator) Reset(ctx context.Context) State {
	next, _ := o.apply(ctx, Reset{})
	return next
}
