package flow

import (
	"errors"
	"fmt"

	"github.com/nexabank/onboarding/internal/bank"
)

var (
	// ErrInvalidTransition is returned when an event is not allowed at the current stage.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnknownStatus is returned when an application decision maps to no stage.
	ErrUnknownStatus = errors.New("unknown application status")
)

// Event is an input to Transition.
type Event interface {
	eventName() string
}

// ChooseApply moves LANDING to FORM, remembering the selected card.
type ChooseApply struct {
	Card *bank.CardProduct
}

// ChooseSignIn moves LANDING to LOGIN.
type ChooseSignIn struct{}

// ApplicationDecided routes FORM to the stage matching the decision.
type ApplicationDecided struct {
	Application bank.Application
}

// Proceed moves APPROVED to REGISTRATION.
type Proceed struct{}

// Registered moves REGISTRATION to REGISTER_VERIFY.
type Registered struct {
	Registration bank.Registration
}

// SignedIn moves LOGIN to LOGIN_VERIFY, or straight to DASHBOARD when no
// verification is required.
type SignedIn struct {
	Session              bank.Session
	RequiresVerification bool
}

// CodeVerified completes the verification stage selected by Mode.
type CodeVerified struct {
	Mode VerifyMode
}

// EnterDashboard moves WELCOME to DASHBOARD.
type EnterDashboard struct{}

// Reset returns any stage to LANDING and drops all data.
type Reset struct{}

func (ChooseApply) eventName() string        { return "choose_apply" }
func (ChooseSignIn) eventName() string       { return "choose_sign_in" }
func (ApplicationDecided) eventName() string { return "application_decided" }
func (Proceed) eventName() string            { return "proceed" }
func (Registered) eventName() string         { return "registered" }
func (SignedIn) eventName() string           { return "signed_in" }
func (CodeVerified) eventName() string       { return "code_verified" }
func (EnterDashboard) eventName() string     { return "enter_dashboard" }
func (Reset) eventName() string              { return "reset" }

// EventName returns the stable identifier recorded for e.
func EventName(e Event) string {
	return e.eventName()
}

// Transition computes the state that follows s when e occurs. It never mutates s.
func Transition(s State, e Event) (State, error) {
	if _, ok := e.(Reset); ok {
		return Initial(), nil
	}

	switch s.Stage {
	case StageLanding:
		switch ev := e.(type) {
		case ChooseApply:
			return State{Stage: StageForm, Data: Selection{Card: ev.Card}}, nil
		case ChooseSignIn:
			return State{Stage: StageLogin, Data: NoData{}}, nil
		}

	case StageForm:
		if ev, ok := e.(ApplicationDecided); ok {
			next, known := StageForStatus(ev.Application.ApplicationStatus)
			if !known {
				return s, fmt.Errorf("%w: %q", ErrUnknownStatus, ev.Application.ApplicationStatus)
			}
			sel, _ := s.Data.(Selection)
			app := ev.Application
			app.ApplicationStatus = app.ApplicationStatus.Normalize()
			return State{Stage: next, Data: ApplicationData{Card: sel.Card, Application: app}}, nil
		}

	case StageApproved:
		if _, ok := e.(Proceed); ok {
			data, ok := s.Data.(ApplicationData)
			if !ok {
				return s, invalid(s, e)
			}
			return State{Stage: StageRegistration, Data: data}, nil
		}

	case StageRegistration:
		if ev, ok := e.(Registered); ok {
			data, ok := s.Data.(ApplicationData)
			if !ok {
				return s, invalid(s, e)
			}
			return State{Stage: StageRegisterVerify, Data: RegistrationData{
				ApplicationData: data,
				Registration:    ev.Registration,
			}}, nil
		}

	case StageRegisterVerify:
		if ev, ok := e.(CodeVerified); ok && ev.Mode == ModeRegistration {
			data, ok := s.Data.(RegistrationData)
			if !ok {
				return s, invalid(s, e)
			}
			return State{Stage: StageWelcome, Data: SessionData{
				Session:    synthesizeSession(data),
				Onboarding: &data,
			}}, nil
		}

	case StageLogin:
		if ev, ok := e.(SignedIn); ok {
			session := ev.Session
			if ev.RequiresVerification {
				session.Verified = false
				return State{Stage: StageLoginVerify, Data: SessionData{Session: session}}, nil
			}
			session.Verified = true
			return State{Stage: StageDashboard, Data: SessionData{Session: session}}, nil
		}

	case StageLoginVerify:
		if ev, ok := e.(CodeVerified); ok && ev.Mode == ModeLogin {
			data, ok := s.Data.(SessionData)
			if !ok {
				return s, invalid(s, e)
			}
			data.Session.Verified = true
			return State{Stage: StageDashboard, Data: data}, nil
		}

	case StageWelcome:
		if _, ok := e.(EnterDashboard); ok {
			return State{Stage: StageDashboard, Data: s.Data}, nil
		}
	}

	return s, invalid(s, e)
}

func invalid(s State, e Event) error {
	return fmt.Errorf("%w: %s at %s", ErrInvalidTransition, e.eventName(), s.Stage)
}

func synthesizeSession(data RegistrationData) bank.Session {
	app := data.Application
	return bank.Session{
		UserID:            data.Registration.UserID,
		Username:          data.Registration.Username,
		CustomerID:        app.ID,
		FirstName:         app.FirstName,
		LastName:          app.LastName,
		ApplicationStatus: app.ApplicationStatus,
		CardProductID:     app.CardProductID,
		Verified:          true,
	}
}
