package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexabank/onboarding/internal/bank"
)

// probeClient wraps a bank client, counting calls and optionally failing,
// replacing the transaction history, or holding SubmitApplication until released.
type probeClient struct {
	bank.Client

	mu          sync.Mutex
	calls       map[string]int
	failWith    error
	failCatalog error
	history     []bank.Transaction
	submitted   bank.ApplicationInput
	entered     chan struct{}
	gate        chan struct{}
}

func newProbe(backend bank.Client) *probeClient {
	return &probeClient{Client: backend, calls: make(map[string]int)}
}

func (p *probeClient) record(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[op]++
	return p.failWith
}

func (p *probeClient) count(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func (p *probeClient) SubmitApplication(ctx context.Context, in bank.ApplicationInput) (bank.Application, error) {
	if err := p.record("submit"); err != nil {
		return bank.Application{}, err
	}
	p.mu.Lock()
	p.submitted = in
	p.mu.Unlock()
	if p.gate != nil {
		p.entered <- struct{}{}
		<-p.gate
	}
	return p.Client.SubmitApplication(ctx, in)
}

func (p *probeClient) RegisterUser(ctx context.Context, in bank.RegisterInput) (bank.Registration, error) {
	if err := p.record("register"); err != nil {
		return bank.Registration{}, err
	}
	return p.Client.RegisterUser(ctx, in)
}

func (p *probeClient) LoginUser(ctx context.Context, in bank.LoginInput) (bank.Session, error) {
	if err := p.record("login"); err != nil {
		return bank.Session{}, err
	}
	return p.Client.LoginUser(ctx, in)
}

func (p *probeClient) VerifyCode(ctx context.Context, in bank.VerifyInput) (bank.Verification, error) {
	if err := p.record("verify"); err != nil {
		return bank.Verification{}, err
	}
	return p.Client.VerifyCode(ctx, in)
}

func (p *probeClient) ListCardProducts(ctx context.Context) ([]bank.CardProduct, error) {
	if err := p.record("cards"); err != nil {
		return nil, err
	}
	if p.failCatalog != nil {
		return nil, p.failCatalog
	}
	return p.Client.ListCardProducts(ctx)
}

func (p *probeClient) GetTransactions(ctx context.Context, customerID string) ([]bank.Transaction, error) {
	if p.history != nil {
		return p.history, nil
	}
	return p.Client.GetTransactions(ctx, customerID)
}

func newBank(status bank.ApplicationStatus) *bank.MemoryBank {
	return bank.NewMemoryBank(
		bank.WithBcryptCost(bcrypt.MinCost),
		bank.WithDecider(func() bank.ApplicationStatus { return status }),
	)
}

func validApplication(email string) bank.ApplicationInput {
	return bank.ApplicationInput{
		FirstName:        "Jane",
		LastName:         "Smith",
		DateOfBirth:      "1990-04-12",
		Email:            email,
		Phone:            "555-123-4567",
		StreetAddress:    "1 Main St",
		City:             "Springfield",
		State:            "IL",
		ZipCode:          "62701",
		Country:          "United States",
		EmploymentStatus: "Employed",
		SSN:              "123-45-6789",
	}
}

func registration(username string) RegistrationInput {
	return RegistrationInput{Username: username, Password: "Secret123", ConfirmPassword: "Secret123"}
}

// onboard runs the full application path and leaves the orchestrator at DASHBOARD.
func onboard(t *testing.T, o *Orchestrator, email, username string) {
	t.Helper()
	ctx := context.Background()
	steps := []func() (State, error){
		func() (State, error) { return o.ChooseApply(ctx, "cashback") },
		func() (State, error) { return o.SubmitApplication(ctx, validApplication(email)) },
		func() (State, error) { return o.Proceed(ctx) },
		func() (State, error) { return o.CompleteRegistration(ctx, registration(username)) },
		func() (State, error) {
			res, err := o.VerifyCode(ctx, bank.DefaultVerificationCode, ModeRegistration)
			return res.State, err
		},
		func() (State, error) { return o.EnterDashboard(ctx) },
	}
	for i, step := range steps {
		if _, err := step(); err != nil {
			t.Fatalf("onboarding step %d: %v", i, err)
		}
	}
}

func TestOnboardingEndToEnd(t *testing.T) {
	o := New(newBank(bank.StatusApproved))
	ctx := context.Background()

	if _, err := o.ChooseApply(ctx, "cashback"); err != nil {
		t.Fatalf("choose apply: %v", err)
	}
	s, err := o.SubmitApplication(ctx, validApplication("jane@example.com"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.Stage != StageApproved || s.Application().CardProductID != "cashback" {
		t.Fatalf("expected APPROVED for the selected card, got %+v", s.Snapshot())
	}
	if _, err := o.Proceed(ctx); err != nil {
		t.Fatalf("proceed: %v", err)
	}
	if s, err = o.CompleteRegistration(ctx, registration("jane_s")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.Stage != StageRegisterVerify {
		t.Fatalf("expected REGISTER_VERIFY, got %s", s.Stage)
	}

	res, err := o.VerifyCode(ctx, "1234", "")
	if err != nil {
		t.Fatalf("wrong code should not error: %v", err)
	}
	if res.Verified || !res.Retry || res.State.Stage != StageRegisterVerify {
		t.Fatalf("expected retry at REGISTER_VERIFY, got %+v", res)
	}

	res, err = o.VerifyCode(ctx, bank.DefaultVerificationCode, "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Verified || res.State.Stage != StageWelcome {
		t.Fatalf("expected WELCOME, got %+v", res)
	}

	if _, err := o.EnterDashboard(ctx); err != nil {
		t.Fatalf("enter dashboard: %v", err)
	}
	view, err := o.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if view.Card == nil || view.Card.ID != "cashback" {
		t.Fatalf("expected cashback card, got %+v", view.Card)
	}
	if len(view.Transactions) != 10 {
		t.Fatalf("expected seeded transactions, got %d", len(view.Transactions))
	}
	if got := view.Rewards.Rewards.Total.String(); got != "10.44" {
		t.Fatalf("expected rewards 10.44, got %s", got)
	}
	if view.Rewards.Rewards.ByCategory[0].Category != "Groceries" {
		t.Fatalf("expected Groceries to lead, got %s", view.Rewards.Rewards.ByCategory[0].Category)
	}
	if got := view.Rewards.LifetimeValue.String(); got != "210.44" {
		t.Fatalf("expected lifetime 210.44, got %s", got)
	}
}

func TestSubmitApplicationInvalidFieldsSkipRemote(t *testing.T) {
	probe := newProbe(newBank(bank.StatusApproved))
	o := New(probe)
	ctx := context.Background()
	if _, err := o.ChooseApply(ctx, ""); err != nil {
		t.Fatalf("choose apply: %v", err)
	}

	input := validApplication("jane@example.com")
	input.ZipCode = "1234"
	s, err := o.SubmitApplication(ctx, input)

	var f *Failure
	if !errors.As(err, &f) || f.Kind != KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if f.Fields["zipCode"] != "Invalid zip code format" {
		t.Fatalf("unexpected field errors %v", f.Fields)
	}
	if s.Stage != StageForm || o.State().Stage != StageForm {
		t.Fatalf("stage changed on validation failure")
	}
	if probe.count("submit") != 0 {
		t.Fatalf("remote called despite invalid input")
	}
	if o.Busy() {
		t.Fatalf("orchestrator left busy")
	}
}

func TestSubmitApplicationDeadEnds(t *testing.T) {
	for _, status := range []bank.ApplicationStatus{bank.StatusPending, bank.StatusDeclined} {
		o := New(newBank(status))
		ctx := context.Background()
		if _, err := o.ChooseApply(ctx, ""); err != nil {
			t.Fatalf("choose apply: %v", err)
		}
		s, err := o.SubmitApplication(ctx, validApplication("jane@example.com"))
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if string(s.Stage) != string(status) {
			t.Fatalf("expected %s, got %s", status, s.Stage)
		}
		if _, err := o.Proceed(ctx); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s must not proceed to registration, got %v", status, err)
		}
		if s := o.Reset(ctx); s.Stage != StageLanding || s.Application() != nil {
			t.Fatalf("reset did not clear %s", status)
		}
	}
}

func TestRemoteRejectionKeepsStage(t *testing.T) {
	backend := newBank(bank.StatusApproved)
	ctx := context.Background()

	first := New(backend)
	onboard(t, first, "jane@example.com", "jane_s")

	second := New(backend)
	if _, err := second.ChooseApply(ctx, ""); err != nil {
		t.Fatalf("choose apply: %v", err)
	}
	s, err := second.SubmitApplication(ctx, validApplication("JANE@example.com"))
	var f *Failure
	if !errors.As(err, &f) || f.Kind != KindRejected {
		t.Fatalf("expected rejected failure, got %v", err)
	}
	if f.Message == "" || s.Stage != StageForm {
		t.Fatalf("expected message at FORM, got %+v / %s", f, s.Stage)
	}

	third := New(newBank(bank.StatusApproved))
	if _, err := third.ChooseApply(ctx, ""); err != nil {
		t.Fatalf("choose apply: %v", err)
	}
	if _, err := third.SubmitApplication(ctx, validApplication("john@example.com")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := third.Proceed(ctx); err != nil {
		t.Fatalf("proceed: %v", err)
	}
	_, err = third.CompleteRegistration(ctx, registration("ab"))
	if !errors.As(err, &f) || f.Kind != KindValidation || f.Fields["username"] == "" {
		t.Fatalf("expected username validation failure, got %v", err)
	}
}

func TestTransportFailureKeepsStage(t *testing.T) {
	probe := newProbe(newBank(bank.StatusApproved))
	probe.failWith = fmt.Errorf("%w: connection refused", bank.ErrTransport)
	o := New(probe)
	ctx := context.Background()

	if _, err := o.ChooseApply(ctx, ""); err != nil {
		t.Fatalf("choose apply: %v", err)
	}
	s, err := o.SubmitApplication(ctx, validApplication("jane@example.com"))
	var f *Failure
	if !errors.As(err, &f) || f.Kind != KindTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if f.Message != "Submission failed. Please try again." {
		t.Fatalf("unexpected message %q", f.Message)
	}
	if !errors.Is(err, bank.ErrTransport) {
		t.Fatalf("failure should wrap the transport error")
	}
	if s.Stage != StageForm || o.Busy() {
		t.Fatalf("expected idle FORM, got %s busy=%v", s.Stage, o.Busy())
	}
	if probe.count("submit") != 1 {
		t.Fatalf("expected exactly one attempt, got %d", probe.count("submit"))
	}
}

func TestChooseApplyUnknownCard(t *testing.T) {
	o := New(newBank(bank.StatusApproved))
	s, err := o.ChooseApply(context.Background(), "gold")
	var f *Failure
	if !errors.As(err, &f) || f.Fields["cardId"] == "" {
		t.Fatalf("expected card validation failure, got %v", err)
	}
	if s.Stage != StageLanding {
		t.Fatalf("expected LANDING, got %s", s.Stage)
	}
}

func TestLoginPaths(t *testing.T) {
	backend := newBank(bank.StatusApproved)
	onboard(t, New(backend), "jane@example.com", "jane_s")
	ctx := context.Background()

	o := New(backend)
	if _, err := o.ChooseSignIn(ctx); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	_, err := o.CompleteLogin(ctx, bank.LoginInput{Username: "jane_s", Password: "wrong-Pass1"})
	var f *Failure
	if !errors.As(err, &f) || f.Kind != KindRejected || o.State().Stage != StageLogin {
		t.Fatalf("expected rejection at LOGIN, got %v", err)
	}

	s, err := o.CompleteLogin(ctx, bank.LoginInput{Username: "jane_s", Password: "Secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.Stage != StageLoginVerify || s.Session().Verified {
		t.Fatalf("expected unverified LOGIN_VERIFY, got %+v", s.Snapshot())
	}
	if _, err := o.VerifyCode(ctx, bank.DefaultVerificationCode, ModeRegistration); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected mode mismatch to be refused, got %v", err)
	}
	res, err := o.VerifyCode(ctx, bank.DefaultVerificationCode, ModeLogin)
	if err != nil || res.State.Stage != StageDashboard || !res.State.Session().Verified {
		t.Fatalf("expected verified DASHBOARD, got %+v / %v", res, err)
	}

	direct := New(backend, WithLoginVerification(false))
	if _, err := direct.ChooseSignIn(ctx); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	s, err = direct.CompleteLogin(ctx, bank.LoginInput{Username: "jane_s", Password: "Secret123"})
	if err != nil || s.Stage != StageDashboard || !s.Session().Verified {
		t.Fatalf("expected direct DASHBOARD, got %+v / %v", s.Snapshot(), err)
	}
}

func TestVerifyCodeValidatesLocally(t *testing.T) {
	backend := newBank(bank.StatusApproved)
	probe := newProbe(backend)
	o := New(probe)
	ctx := context.Background()
	if _, err := o.ChooseApply(ctx, ""); err != nil {
		t.Fatalf("choose apply: %v", err)
	}
	if _, err := o.SubmitApplication(ctx, validApplication("jane@example.com")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := o.Proceed(ctx); err != nil {
		t.Fatalf("proceed: %v", err)
	}
	if _, err := o.CompleteRegistration(ctx, registration("jane_s")); err != nil {
		t.Fatalf("register: %v", err)
	}

	res, err := o.VerifyCode(ctx, "12a", "")
	var f *Failure
	if !errors.As(err, &f) || f.Kind != KindValidation || res.State.Stage != StageRegisterVerify {
		t.Fatalf("expected local code validation failure, got %v", err)
	}
	if probe.count("verify") != 0 {
		t.Fatalf("malformed code reached the bank")
	}
}

func TestBusyRefusesConcurrentAction(t *testing.T) {
	probe := newProbe(newBank(bank.StatusApproved))
	probe.entered = make(chan struct{})
	probe.gate = make(chan struct{})
	o := New(probe)
	ctx := context.Background()
	if _, err := o.ChooseApply(ctx, ""); err != nil {
		t.Fatalf("choose apply: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := o.SubmitApplication(ctx, validApplication("jane@example.com"))
		done <- err
	}()
	<-probe.entered

	if _, err := o.SubmitApplication(ctx, validApplication("jane@example.com")); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(probe.gate)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if o.State().Stage != StageApproved || probe.count("submit") != 1 {
		t.Fatalf("expected one submission ending at APPROVED")
	}
}

func TestResetDiscardsInFlightResponse(t *testing.T) {
	probe := newProbe(newBank(bank.StatusApproved))
	probe.entered = make(chan struct{})
	probe.gate = make(chan struct{})
	o := New(probe)
	ctx := context.Background()
	if _, err := o.ChooseApply(ctx, ""); err != nil {
		t.Fatalf("choose apply: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := o.SubmitApplication(ctx, validApplication("jane@example.com"))
		done <- err
	}()
	<-probe.entered

	if s := o.Reset(ctx); s.Stage != StageLanding {
		t.Fatalf("expected LANDING after reset, got %s", s.Stage)
	}
	close(probe.gate)
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	s := o.State()
	if s.Stage != StageLanding || s.Application() != nil || o.Busy() {
		t.Fatalf("stale response leaked into state: %+v", s.Snapshot())
	}
	if _, err := o.ChooseSignIn(ctx); err != nil {
		t.Fatalf("flow unusable after reset: %v", err)
	}
}

func TestObserversSeeTransitions(t *testing.T) {
	var changes []Change
	record := ObserverFunc(func(_ context.Context, c Change) error {
		changes = append(changes, c)
		return nil
	})
	broken := ObserverFunc(func(context.Context, Change) error { return errors.New("journal down") })

	o := New(newBank(bank.StatusApproved), WithObserver(broken, record))
	onboard(t, o, "jane@example.com", "jane_s")
	o.Reset(context.Background())

	want := []Stage{StageForm, StageApproved, StageRegistration, StageRegisterVerify, StageWelcome, StageDashboard, StageLanding}
	if len(changes) != len(want) {
		t.Fatalf("expected %d changes, got %d", len(want), len(changes))
	}
	for i, stage := range want {
		if changes[i].To != stage {
			t.Fatalf("change %d: expected %s, got %s", i, stage, changes[i].To)
		}
	}
	if changes[1].Event != "application_decided" || changes[1].From != StageForm {
		t.Fatalf("unexpected change %+v", changes[1])
	}
}

func TestDashboardCatalogFailureIsNotFatal(t *testing.T) {
	backend := newBank(bank.StatusApproved)
	onboard(t, New(backend), "jane@example.com", "jane_s")

	probe := newProbe(backend)
	probe.failCatalog = fmt.Errorf("%w: timeout", bank.ErrTransport)
	o := New(probe, WithLoginVerification(false))
	ctx := context.Background()
	if _, err := o.ChooseSignIn(ctx); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if _, err := o.CompleteLogin(ctx, bank.LoginInput{Username: "jane_s", Password: "Secret123"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	view, err := o.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if view.Card != nil || !view.Rewards.Rewards.Total.IsZero() {
		t.Fatalf("expected no card and no rewards, got %+v", view.Rewards)
	}
	if view.Account.AccountNumber == "" || len(view.Transactions) == 0 {
		t.Fatalf("account data missing")
	}
	for i := 1; i < len(view.Transactions); i++ {
		if view.Transactions[i].TransactedAt.After(view.Transactions[i-1].TransactedAt) {
			t.Fatalf("transactions not newest first")
		}
	}
}

func TestDashboardRequiresDashboardStage(t *testing.T) {
	o := New(newBank(bank.StatusApproved))
	if _, err := o.Dashboard(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDashboardAccruesInBankOrder(t *testing.T) {
	backend := newBank(bank.StatusApproved)
	probe := newProbe(backend)
	o := New(probe)
	onboard(t, o, "jane@example.com", "jane_s")

	older := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	probe.history = []bank.Transaction{
		{ID: "t1", Type: bank.Debit, Amount: decimal.NewFromInt(100), Category: "Dining", TransactedAt: older},
		{ID: "t2", Type: bank.Debit, Amount: decimal.NewFromInt(100), Category: "Shopping", TransactedAt: older.Add(time.Hour)},
	}

	view, err := o.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if view.Transactions[0].ID != "t2" {
		t.Fatalf("display should be newest first, got %s", view.Transactions[0].ID)
	}
	byCategory := view.Rewards.Rewards.ByCategory
	if len(byCategory) != 2 || byCategory[0].Category != "Dining" || byCategory[1].Category != "Shopping" {
		t.Fatalf("tied categories should keep bank order, got %+v", byCategory)
	}
	if probe.history[0].ID != "t1" {
		t.Fatalf("fetched history must not be reordered in place")
	}
}

func TestSubmitApplicationForwardsTrimmedInput(t *testing.T) {
	probe := newProbe(newBank(bank.StatusApproved))
	o := New(probe)
	ctx := context.Background()
	if _, err := o.ChooseApply(ctx, "cashback"); err != nil {
		t.Fatalf("choose apply: %v", err)
	}

	in := validApplication("jane@example.com")
	in.SSN = " 123-45-6789 "
	in.State = " IL "
	in.DateOfBirth = " 1990-04-12 "
	state, err := o.SubmitApplication(ctx, in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	probe.mu.Lock()
	sent := probe.submitted
	probe.mu.Unlock()
	if sent.SSN != "123-45-6789" || sent.State != "IL" || sent.DateOfBirth != "1990-04-12" {
		t.Fatalf("expected trimmed fields to reach the bank, got %+v", sent)
	}
	if got := state.Application().SSNMasked; got != "***-**-6789" {
		t.Fatalf("unexpected mask %q", got)
	}
}
