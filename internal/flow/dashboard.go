package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/nexabank/onboarding/internal/bank"
	"github.com/nexabank/onboarding/internal/rewards"
)

// DashboardView is everything the dashboard renders for a verified session.
type DashboardView struct {
	Session      bank.Session       `json:"session"`
	Account      bank.Account       `json:"account"`
	Transactions []bank.Transaction `json:"transactions"`
	Card         *bank.CardProduct  `json:"card"`
	Rewards      rewards.Summary    `json:"rewards"`
}

// Dashboard loads the account and its transactions concurrently, resolves the
// session's card, and runs the rewards engine once both reads have returned.
// A catalog failure only drops the card; account failures fail the view.
func (o *Orchestrator) Dashboard(ctx context.Context) (DashboardView, error) {
	o.mu.Lock()
	state, epoch := o.state, o.epoch
	o.mu.Unlock()

	if state.Stage != StageDashboard {
		return DashboardView{}, fmt.Errorf("%w: dashboard at %s", ErrInvalidTransition, state.Stage)
	}
	session := *state.Session()
	card := state.SelectedCard()

	var (
		account bank.Account
		txs     []bank.Transaction
		cards   []bank.CardProduct
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := o.client.GetAccount(gctx, session.CustomerID)
		if err != nil {
			return err
		}
		account = a
		return nil
	})
	g.Go(func() error {
		list, err := o.client.GetTransactions(gctx, session.CustomerID)
		if err != nil {
			return err
		}
		txs = list
		return nil
	})
	if card == nil && session.CardProductID != "" {
		g.Go(func() error {
			list, err := o.client.ListCardProducts(gctx)
			if err != nil {
				o.logger.Warn("card catalog unavailable for dashboard",
					slog.String("customer_id", session.CustomerID),
					slog.Any("error", err),
				)
				return nil
			}
			cards = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if o.stale(epoch) {
			return DashboardView{}, ErrStale
		}
		return DashboardView{}, remoteFailure(StageDashboard, err, msgDashboardFailed)
	}
	if o.stale(epoch) {
		return DashboardView{}, ErrStale
	}

	if card == nil {
		for i := range cards {
			if cards[i].ID == session.CardProductID {
				c := cards[i]
				card = &c
				break
			}
		}
	}

	var policy *bank.RewardPolicy
	if card != nil {
		policy = card.Rewards
	}
	// Accrual runs over the bank's order; only the displayed copy is re-sorted.
	accrual := rewards.Compute(txs, policy)

	display := make([]bank.Transaction, len(txs))
	copy(display, txs)
	sort.SliceStable(display, func(i, j int) bool { return display[i].TransactedAt.After(display[j].TransactedAt) })

	return DashboardView{
		Session:      session,
		Account:      account,
		Transactions: display,
		Card:         card,
		Rewards:      rewards.Summarize(accrual, policy),
	}, nil
}

func (o *Orchestrator) stale(epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.epoch != epoch
}
