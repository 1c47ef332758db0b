package bank

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexabank/onboarding/internal/validation"
)

// ApplicationStatus is the terminal decision attached to an application.
type ApplicationStatus string

const (
	StatusApproved ApplicationStatus = "APPROVED"
	StatusPending  ApplicationStatus = "PENDING"
	StatusDeclined ApplicationStatus = "DECLINED"
)

// Normalize upper-cases and trims the status so "approved" and "APPROVED" compare equal.
func (s ApplicationStatus) Normalize() ApplicationStatus {
	return ApplicationStatus(strings.ToUpper(strings.TrimSpace(string(s))))
}

// ApplicationInput is the credit-card application payload.
type ApplicationInput struct {
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	DateOfBirth      string           `json:"dateOfBirth"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	StreetAddress    string           `json:"streetAddress"`
	City             string           `json:"city"`
	State            string           `json:"state"`
	ZipCode          string           `json:"zipCode"`
	Country          string           `json:"country"`
	EmploymentStatus string           `json:"employmentStatus"`
	EmployerName     string           `json:"employerName,omitempty"`
	JobTitle         string           `json:"jobTitle,omitempty"`
	YearsEmployed    *int             `json:"yearsEmployed,omitempty"`
	AnnualSalary     *decimal.Decimal `json:"annualSalary,omitempty"`
	IncomeSource     string           `json:"incomeSource,omitempty"`
	AccountType      string           `json:"accountType,omitempty"`
	CreditScoreRange string           `json:"creditScoreRange,omitempty"`
	SSN              string           `json:"ssn"`
	CardProductID    string           `json:"cardProduct,omitempty"`
}

// Trimmed returns a copy with surrounding whitespace removed from every string field.
func (in ApplicationInput) Trimmed() ApplicationInput {
	out := in
	for _, p := range []*string{
		&out.FirstName, &out.LastName, &out.DateOfBirth, &out.Email, &out.Phone,
		&out.StreetAddress, &out.City, &out.State, &out.ZipCode, &out.Country,
		&out.EmploymentStatus, &out.EmployerName, &out.JobTitle, &out.IncomeSource,
		&out.AccountType, &out.CreditScoreRange, &out.SSN, &out.CardProductID,
	} {
		*p = strings.TrimSpace(*p)
	}
	return out
}

// Fields flattens the input for validation.Application.
func (in ApplicationInput) Fields() validation.Fields {
	return validation.Fields{
		"firstName":        in.FirstName,
		"lastName":         in.LastName,
		"dateOfBirth":      in.DateOfBirth,
		"email":            in.Email,
		"phone":            in.Phone,
		"streetAddress":    in.StreetAddress,
		"city":             in.City,
		"state":            in.State,
		"zipCode":          in.ZipCode,
		"country":          in.Country,
		"employmentStatus": in.EmploymentStatus,
		"ssn":              in.SSN,
	}
}

// Application is the record created by a successful submission. It never changes afterwards.
type Application struct {
	ID                string            `json:"id"`
	FirstName         string            `json:"firstName"`
	LastName          string            `json:"lastName"`
	DateOfBirth       string            `json:"dateOfBirth"`
	Email             string            `json:"email"`
	Phone             string            `json:"phone"`
	StreetAddress     string            `json:"streetAddress"`
	City              string            `json:"city"`
	State             string            `json:"state"`
	ZipCode           string            `json:"zipCode"`
	Country           string            `json:"country"`
	EmploymentStatus  string            `json:"employmentStatus"`
	EmployerName      string            `json:"employerName,omitempty"`
	JobTitle          string            `json:"jobTitle,omitempty"`
	YearsEmployed     *int              `json:"yearsEmployed,omitempty"`
	AnnualSalary      *decimal.Decimal  `json:"annualSalary,omitempty"`
	IncomeSource      string            `json:"incomeSource,omitempty"`
	AccountType       string            `json:"accountType,omitempty"`
	CreditScoreRange  string            `json:"creditScoreRange,omitempty"`
	SSNMasked         string            `json:"ssnMasked"`
	ApplicationStatus ApplicationStatus `json:"applicationStatus"`
	CardProductID     string            `json:"cardProduct,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// RegisterInput requests credentials for an approved application.
type RegisterInput struct {
	CustomerID string `json:"customerId"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// Registration links a username and issued user id back to an application.
type Registration struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	CustomerID string `json:"customerId"`
}

// LoginInput carries direct sign-in credentials.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is the signed-in identity used as the key for dashboard queries.
type Session struct {
	UserID            string            `json:"userId"`
	Username          string            `json:"username"`
	CustomerID        string            `json:"customerId"`
	FirstName         string            `json:"firstName,omitempty"`
	LastName          string            `json:"lastName,omitempty"`
	ApplicationStatus ApplicationStatus `json:"applicationStatus,omitempty"`
	CardProductID     string            `json:"cardProduct,omitempty"`
	Verified          bool              `json:"mfaVerified"`
}

// VerifyInput submits a one-time code for a user.
type VerifyInput struct {
	UserID string `json:"userId"`
	Code   string `json:"mfaCode"`
}

// Verification is the outcome of a code check. Verified=false is a normal outcome.
type Verification struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message,omitempty"`
}

// Account is the deposit account opened for a verified customer.
type Account struct {
	AccountID     string          `json:"accountId"`
	CustomerID    string          `json:"customerId"`
	AccountNumber string          `json:"accountNumber"`
	AccountType   string          `json:"accountType"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TransactionType distinguishes purchases from deposits.
type TransactionType string

const (
	Debit  TransactionType = "DEBIT"
	Credit TransactionType = "CREDIT"
)

// Transaction is a read-only ledger line for an account.
type Transaction struct {
	ID           string          `json:"id"`
	Type         TransactionType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Category     string          `json:"category,omitempty"`
	TransactedAt time.Time       `json:"transactedAt"`
}

// RewardType denominates a card's rewards.
type RewardType string

const (
	Points   RewardType = "POINTS"
	Cashback RewardType = "CASHBACK"
)

// UnmarshalJSON accepts any casing ("points", "CASHBACK").
func (t *RewardType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = RewardType(strings.ToUpper(strings.TrimSpace(raw)))
	return nil
}

// WildcardCategory holds the default multiplier for categories without their own entry.
const WildcardCategory = "*"

// RewardPolicy is the rule set mapping purchase categories to multipliers.
type RewardPolicy struct {
	Type              RewardType                 `json:"type"`
	Categories        map[string]decimal.Decimal `json:"categories"`
	PointValue        decimal.Decimal            `json:"pointValue"`
	WelcomeBonus      int64                      `json:"welcomeBonus"`
	WelcomeBonusLabel string                     `json:"welcomeBonusLabel,omitempty"`
}

// Offer is one marketing bullet on a card product.
type Offer struct {
	Icon string `json:"icon"`
	Text string `json:"text"`
}

// CardProduct is an immutable catalog entry identified by a stable slug id.
type CardProduct struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Tagline      string        `json:"tagline"`
	Network      string        `json:"network"`
	AnnualFee    string        `json:"annualFee"`
	APR          string        `json:"apr"`
	Gradient     string        `json:"gradient"`
	ChipColor    string        `json:"chipColor"`
	NumberSuffix string        `json:"numberSuffix"`
	Offers       []Offer       `json:"offers"`
	Rewards      *RewardPolicy `json:"rewards"`
}

// CardProductInput is the admin payload for a new card product.
type CardProductInput struct {
	Name              string                     `json:"name"`
	Tagline           string                     `json:"tagline"`
	Network           string                     `json:"network"`
	AnnualFee         string                     `json:"annualFee"`
	APR               string                     `json:"apr"`
	Gradient          string                     `json:"gradient"`
	ChipColor         string                     `json:"chipColor"`
	RewardsType       RewardType                 `json:"rewardsType"`
	RewardsCategories map[string]decimal.Decimal `json:"rewardsCategories"`
	PointValue        decimal.Decimal            `json:"pointValue"`
	WelcomeBonus      int64                      `json:"welcomeBonus"`
	WelcomeBonusLabel string                     `json:"welcomeBonusLabel,omitempty"`
	Offers            []Offer                    `json:"offers"`
}
