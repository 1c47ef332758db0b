package session

import (
	"log/slog"

	"github.com/nexabank/onboarding/internal/bank"
	"github.com/nexabank/onboarding/internal/flow"
	"github.com/nexabank/onboarding/internal/journal"
	"github.com/nexabank/onboarding/internal/notification"
)

// FactoryConfig wires the collaborators shared by every session's orchestrator.
type FactoryConfig struct {
	Client                    bank.Client
	Journal                   journal.Journal
	Notifier                  notification.Notifier
	LoginRequiresVerification bool
	Logger                    *slog.Logger
}

// NewFactory returns a Factory whose orchestrators journal their transitions and
// notify applicants of decisions.
func NewFactory(cfg FactoryConfig) Factory {
	return func(sessionID string) *flow.Orchestrator {
		opts := []flow.Option{
			flow.WithLoginVerification(cfg.LoginRequiresVerification),
		}
		if cfg.Logger != nil {
			opts = append(opts, flow.WithLogger(cfg.Logger.With(slog.String("session_id", sessionID))))
		}
		if cfg.Journal != nil {
			opts = append(opts, flow.WithObserver(journal.Recorder(cfg.Journal, sessionID)))
		}
		if cfg.Notifier != nil {
			opts = append(opts, flow.WithObserver(notification.Observer(cfg.Notifier)))
		}
		return flow.New(cfg.Client, opts...)
	}
}
