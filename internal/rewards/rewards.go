// Package rewards derives card reward value from a transaction history.
//
// Only DEBIT transactions earn. Each transaction's multiplier is its category's
// entry in the policy, else the "*" entry, else 1. CASHBACK multipliers are
// percentages; POINTS multipliers are points per currency unit, converted to
// currency with the policy's point value. Per-category earned values are rounded
// half away from zero to cents and the total is the sum of the rounded values.
package rewards

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nexabank/onboarding/internal/bank"
)

// UncategorizedLabel is the display label for transactions without a category.
const UncategorizedLabel = "Other"

const centPlaces = 2

var hundred = decimal.NewFromInt(100)

// CategoryAccrual is the reward earned by one purchase category.
type CategoryAccrual struct {
	Category   string          `json:"category"`
	Multiplier decimal.Decimal `json:"multiplier"`
	RawAmount  decimal.Decimal `json:"rawAmount"`
	Earned     decimal.Decimal `json:"earned"`
}

// Result is the derived accrual. ByCategory is sorted by Earned descending.
type Result struct {
	Total      decimal.Decimal   `json:"total"`
	ByCategory []CategoryAccrual `json:"byCategory"`
}

// Empty is the "no rewards" result.
func Empty() Result {
	return Result{Total: decimal.Zero, ByCategory: []CategoryAccrual{}}
}

// Compute applies policy to transactions. A nil policy yields Empty.
func Compute(transactions []bank.Transaction, policy *bank.RewardPolicy) Result {
	if policy == nil {
		return Empty()
	}
	if policy.Type != bank.Points && policy.Type != bank.Cashback {
		return Empty()
	}

	// Buckets are keyed by the raw category so an uncategorized bucket never
	// merges with a real category that happens to share its display label.
	var order []string
	raw := make(map[string]decimal.Decimal)

	for _, tx := range transactions {
		if tx.Type != bank.Debit {
			continue
		}
		category := strings.TrimSpace(tx.Category)
		sum, seen := raw[category]
		if !seen {
			order = append(order, category)
		}
		raw[category] = sum.Add(tx.Amount)
	}

	result := Result{Total: decimal.Zero, ByCategory: make([]CategoryAccrual, 0, len(order))}
	for _, category := range order {
		label := category
		if label == "" {
			label = UncategorizedLabel
		}
		mult := multiplierFor(policy, category)
		earned := earnedFor(policy, raw[category], mult).Round(centPlaces)
		result.ByCategory = append(result.ByCategory, CategoryAccrual{
			Category:   label,
			Multiplier: mult,
			RawAmount:  raw[category],
			Earned:     earned,
		})
		result.Total = result.Total.Add(earned)
	}

	sort.SliceStable(result.ByCategory, func(i, j int) bool {
		return result.ByCategory[i].Earned.GreaterThan(result.ByCategory[j].Earned)
	})
	return result
}

func multiplierFor(policy *bank.RewardPolicy, category string) decimal.Decimal {
	if category != "" {
		if m, ok := policy.Categories[category]; ok {
			return m
		}
	}
	if m, ok := policy.Categories[bank.WildcardCategory]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

func earnedFor(policy *bank.RewardPolicy, amount, multiplier decimal.Decimal) decimal.Decimal {
	if policy.Type == bank.Cashback {
		return amount.Mul(multiplier).Div(hundred)
	}
	return amount.Mul(multiplier).Mul(policy.PointValue)
}

// Summary pairs an accrual with the card's welcome bonus for lifetime-value display.
type Summary struct {
	Rewards           Result          `json:"rewards"`
	WelcomeBonus      int64           `json:"welcomeBonus"`
	WelcomeBonusLabel string          `json:"welcomeBonusLabel,omitempty"`
	WelcomeBonusValue decimal.Decimal `json:"welcomeBonusValue"`
	LifetimeValue     decimal.Decimal `json:"lifetimeValue"`
}

// Summarize adds the welcome bonus to the accrued total without touching result.Total.
// POINTS bonuses are valued at the policy's point value; CASHBACK bonuses are currency.
func Summarize(result Result, policy *bank.RewardPolicy) Summary {
	s := Summary{Rewards: result, WelcomeBonusValue: decimal.Zero, LifetimeValue: result.Total}
	if policy == nil {
		return s
	}
	s.WelcomeBonus = policy.WelcomeBonus
	s.WelcomeBonusLabel = policy.WelcomeBonusLabel

	bonus := decimal.NewFromInt(policy.WelcomeBonus)
	switch policy.Type {
	case bank.Points:
		s.WelcomeBonusValue = bonus.Mul(policy.PointValue).Round(centPlaces)
	case bank.Cashback:
		s.WelcomeBonusValue = bonus
	}
	s.LifetimeValue = result.Total.Add(s.WelcomeBonusValue)
	return s
}
