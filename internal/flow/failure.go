package flow

import (
	"errors"
	"fmt"

	"github.com/nexabank/onboarding/internal/bank"
	"github.com/nexabank/onboarding/internal/validation"
)

var (
	// ErrBusy is returned when a remote-backed action is started while another is outstanding.
	ErrBusy = errors.New("another request is in progress")
	// ErrStale is returned when a response arrives after the flow was reset.
	ErrStale = errors.New("flow was reset while the request was in flight")
)

// FailureKind classifies why an action did not advance the flow.
type FailureKind string

const (
	KindValidation FailureKind = "validation"
	KindRejected   FailureKind = "rejected"
	KindTransport  FailureKind = "transport"
)

const (
	msgInvalidFields   = "Please correct the highlighted fields."
	msgSubmitFailed    = "Submission failed. Please try again."
	msgRegisterFailed  = "Registration failed. Please try again."
	msgSignInFailed    = "Sign in failed. Please try again."
	msgVerifyFailed    = "Verification failed. Please try again."
	msgIncorrectCode   = "Incorrect code. Please try again."
	msgDashboardFailed = "Unable to load your account. Please try again."
	msgUnknownCard     = "Unknown card product"
	msgCatalogFailed   = "Unable to load card products. Please try again."
)

// Failure is an error shown at the current stage. The stage never changes when one is returned.
type Failure struct {
	Kind    FailureKind       `json:"kind"`
	Stage   Stage             `json:"stage"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fieldErrors,omitempty"`
	Err     error             `json:"-"`
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s failure at %s: %v", f.Kind, f.Stage, f.Err)
	}
	return fmt.Sprintf("%s failure at %s: %s", f.Kind, f.Stage, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

func validationFailure(stage Stage, errs validation.Errors) *Failure {
	return &Failure{
		Kind:    KindValidation,
		Stage:   stage,
		Message: msgInvalidFields,
		Fields:  map[string]string(errs),
		Err:     errs,
	}
}

// remoteFailure classifies a facade error. Server field errors and messages are
// surfaced when present, otherwise generic is used.
func remoteFailure(stage Stage, err error, generic string) *Failure {
	var re *bank.RemoteError
	if errors.As(err, &re) {
		f := &Failure{Kind: KindRejected, Stage: stage, Message: generic, Err: err}
		if re.Message != "" {
			f.Message = re.Message
		}
		if len(re.FieldErrors) > 0 {
			f.Fields = re.FieldErrors
		}
		return f
	}
	return &Failure{Kind: KindTransport, Stage: stage, Message: generic, Err: err}
}
