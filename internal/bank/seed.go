package bank

import "github.com/shopspring/decimal"

func multipliers(m map[string]int64) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = decimal.NewFromInt(v)
	}
	return out
}

var defaultPointValue = decimal.New(1, -2)

// DefaultCardProducts is the catalog MemoryBank starts with.
func DefaultCardProducts() []CardProduct {
	return []CardProduct{
		{
			ID:           "signature",
			Name:         "NexaBank Signature",
			Tagline:      "The card for those who demand more.",
			Network:      "VISA",
			AnnualFee:    "$95",
			APR:          "16.99% – 24.99%",
			Gradient:     "linear-gradient(135deg, #1a1a2e 0%, #16213e 40%, #0f3460 75%, #533483 100%)",
			ChipColor:    "#c9a84c",
			NumberSuffix: "4231",
			Offers: []Offer{
				{Icon: "✈️", Text: "3× points on travel"},
				{Icon: "🍽️", Text: "2× points on dining & entertainment"},
				{Icon: "🎁", Text: "50,000 welcome bonus points"},
			},
			Rewards: &RewardPolicy{
				Type:              Points,
				Categories:        multipliers(map[string]int64{"Entertainment": 3, "Dining": 2, "Shopping": 2, WildcardCategory: 1}),
				PointValue:        defaultPointValue,
				WelcomeBonus:      50000,
				WelcomeBonusLabel: "50,000 welcome points",
			},
		},
		{
			ID:           "cashback",
			Name:         "NexaBank Cashback",
			Tagline:      "Earn on every purchase, automatically.",
			Network:      "MASTERCARD",
			AnnualFee:    "$0",
			APR:          "14.99% – 22.99%",
			Gradient:     "linear-gradient(135deg, #0f4c75 0%, #1b7fc4 50%, #00b4d8 100%)",
			ChipColor:    "#e0e0e0",
			NumberSuffix: "8874",
			Offers: []Offer{
				{Icon: "🛒", Text: "3% cashback on groceries"},
				{Icon: "⛽", Text: "2% cashback on gas & transit"},
				{Icon: "💳", Text: "1% cashback on all other purchases"},
			},
			Rewards: &RewardPolicy{
				Type:              Cashback,
				Categories:        multipliers(map[string]int64{"Groceries": 3, "Transportation": 2, WildcardCategory: 1}),
				PointValue:        defaultPointValue,
				WelcomeBonus:      200,
				WelcomeBonusLabel: "$200 cashback welcome bonus",
			},
		},
		{
			ID:           "platinum",
			Name:         "NexaBank Platinum",
			Tagline:      "Low rates. Big savings.",
			Network:      "VISA",
			AnnualFee:    "$0",
			APR:          "12.99% – 18.99%",
			Gradient:     "linear-gradient(135deg, #4a4a4a 0%, #6e6e6e 40%, #9e9e9e 75%, #c8c8c8 100%)",
			ChipColor:    "#f5d87a",
			NumberSuffix: "1592",
			Offers: []Offer{
				{Icon: "📉", Text: "Industry-low APR from 12.99%"},
				{Icon: "⏳", Text: "0% intro APR for 15 months"},
			},
			Rewards: &RewardPolicy{
				Type:              Points,
				Categories:        multipliers(map[string]int64{WildcardCategory: 1}),
				PointValue:        defaultPointValue,
				WelcomeBonus:      10000,
				WelcomeBonusLabel: "10,000 welcome points",
			},
		},
		{
			ID:           "student",
			Name:         "NexaBank Student",
			Tagline:      "Build your credit. Build your future.",
			Network:      "MASTERCARD",
			AnnualFee:    "$0",
			APR:          "18.99% – 24.99%",
			Gradient:     "linear-gradient(135deg, #134e4a 0%, #0d9488 50%, #2dd4bf 100%)",
			ChipColor:    "#e0e0e0",
			NumberSuffix: "3067",
			Offers: []Offer{
				{Icon: "🎓", Text: "No credit history required"},
				{Icon: "💰", Text: "1% cashback on all purchases"},
			},
			Rewards: &RewardPolicy{
				Type:       Cashback,
				Categories: multipliers(map[string]int64{WildcardCategory: 1}),
				PointValue: defaultPointValue,
			},
		},
	}
}

type seedEntry struct {
	kind        TransactionType
	amount      string
	description string
	category    string
	daysAgo     int
}

var demoTransactions = []seedEntry{
	{Credit, "5000.00", "Opening Deposit", "Deposit", 30},
	{Credit, "3500.00", "Direct Deposit - Payroll", "Income", 25},
	{Debit, "128.45", "Whole Foods Market", "Groceries", 22},
	{Debit, "15.99", "Netflix Subscription", "Entertainment", 18},
	{Debit, "97.50", "Electric Bill Payment", "Utilities", 15},
	{Debit, "243.67", "Amazon.com Purchase", "Shopping", 10},
	{Debit, "8.75", "Starbucks Coffee", "Dining", 8},
	{Credit, "500.00", "Online Transfer", "Transfer", 5},
	{Debit, "67.23", "Safeway Grocery", "Groceries", 3},
	{Debit, "45.00", "Shell Gas Station", "Transportation", 1},
}
