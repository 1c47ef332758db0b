package flow

import "github.com/nexabank/onboarding/internal/bank"

// Data is the accumulated data carried by a stage. The concrete variants are the
// only implementations, and Transition only pairs each stage with its own variant.
type Data interface {
	isData()
}

// NoData is carried by LANDING and LOGIN.
type NoData struct{}

// Selection is carried by FORM: the card chosen on the landing page, if any.
type Selection struct {
	Card *bank.CardProduct
}

// ApplicationData is carried by APPROVED, PENDING, DECLINED and REGISTRATION.
type ApplicationData struct {
	Card        *bank.CardProduct
	Application bank.Application
}

// RegistrationData is carried by REGISTER_VERIFY.
type RegistrationData struct {
	ApplicationData
	Registration bank.Registration
}

// SessionData is carried by LOGIN_VERIFY, WELCOME and DASHBOARD. Onboarding is set
// when the session was synthesized from a registration rather than a direct sign-in.
type SessionData struct {
	Session    bank.Session
	Onboarding *RegistrationData
}

func (NoData) isData()           {}
func (Selection) isData()        {}
func (ApplicationData) isData()  {}
func (RegistrationData) isData() {}
func (SessionData) isData()      {}

// State is an immutable snapshot of the flow.
type State struct {
	Stage Stage
	Data  Data
}

// Initial is the LANDING state with nothing accumulated.
func Initial() State {
	return State{Stage: StageLanding, Data: NoData{}}
}

// SelectedCard returns the card chosen for the application, if any.
func (s State) SelectedCard() *bank.CardProduct {
	switch d := s.Data.(type) {
	case Selection:
		return d.Card
	case ApplicationData:
		return d.Card
	case RegistrationData:
		return d.Card
	case SessionData:
		if d.Onboarding != nil {
			return d.Onboarding.Card
		}
	}
	return nil
}

// Application returns the submitted application, if any.
func (s State) Application() *bank.Application {
	switch d := s.Data.(type) {
	case ApplicationData:
		return &d.Application
	case RegistrationData:
		return &d.Application
	case SessionData:
		if d.Onboarding != nil {
			return &d.Onboarding.Application
		}
	}
	return nil
}

// Registration returns the registration record, if any.
func (s State) Registration() *bank.Registration {
	switch d := s.Data.(type) {
	case RegistrationData:
		return &d.Registration
	case SessionData:
		if d.Onboarding != nil {
			return &d.Onboarding.Registration
		}
	}
	return nil
}

// Session returns the signed-in session, if any.
func (s State) Session() *bank.Session {
	if d, ok := s.Data.(SessionData); ok {
		return &d.Session
	}
	return nil
}

// Snapshot is the JSON view of a State.
type Snapshot struct {
	Stage            Stage              `json:"stage"`
	SelectedCard     *bank.CardProduct  `json:"selectedCard"`
	ApplicationData  *bank.Application  `json:"applicationData"`
	RegistrationData *bank.Registration `json:"registrationData"`
	SessionData      *bank.Session      `json:"sessionData"`
}

// Snapshot flattens the state for transport.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Stage:            s.Stage,
		SelectedCard:     s.SelectedCard(),
		ApplicationData:  s.Application(),
		RegistrationData: s.Registration(),
		SessionData:      s.Session(),
	}
}
