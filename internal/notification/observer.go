package notification

import (
	"context"
	"fmt"

	"github.com/nexabank/onboarding/internal/flow"
)

// Observer sends decision and verification notices as the flow reaches them.
func Observer(n Notifier) flow.Observer {
	return flow.ObserverFunc(func(ctx context.Context, change flow.Change) error {
		msg, ok := messageFor(change)
		if !ok {
			return nil
		}
		return n.Send(ctx, msg)
	})
}

func messageFor(change flow.Change) (Message, bool) {
	app := change.State.Application()
	if app == nil || app.Email == "" {
		return Message{}, false
	}

	switch change.To {
	case flow.StageApproved:
		return Message{
			Kind:        KindApplicationDecision,
			Destination: app.Email,
			Body:        fmt.Sprintf("Congratulations %s, your application %s has been approved.", app.FirstName, app.ID),
		}, true
	case flow.StagePending:
		return Message{
			Kind:        KindApplicationDecision,
			Destination: app.Email,
			Body:        fmt.Sprintf("Hi %s, your application %s is under review. We will follow up within 5-7 business days.", app.FirstName, app.ID),
		}, true
	case flow.StageDeclined:
		return Message{
			Kind:        KindApplicationDecision,
			Destination: app.Email,
			Body:        fmt.Sprintf("Hi %s, we are unable to approve application %s at this time.", app.FirstName, app.ID),
		}, true
	case flow.StageWelcome:
		username := ""
		if s := change.State.Session(); s != nil {
			username = s.Username
		}
		return Message{
			Kind:        KindAccountVerified,
			Destination: app.Email,
			Body:        fmt.Sprintf("Welcome to NexaBank, %s. Your online banking user %s is verified.", app.FirstName, username),
		}, true
	default:
		return Message{}, false
	}
}
