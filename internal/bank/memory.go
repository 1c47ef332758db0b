package bank

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexabank/onboarding/internal/validation"
)

// DefaultVerificationCode is the code MemoryBank accepts unless configured otherwise.
const DefaultVerificationCode = "9999"

type userRecord struct {
	id           string
	username     string
	passwordHash []byte
	customerID   string
	verified     bool
}

type accountRecord struct {
	account      Account
	transactions []Transaction
}

// MemoryBank is an in-process bank backend implementing Client. It stands in for
// the real bank API in development and tests.
type MemoryBank struct {
	mu           sync.RWMutex
	code         string
	decide       func() ApplicationStatus
	now          func() time.Time
	bcryptCost   int
	applications map[string]Application
	emails       map[string]string
	users        map[string]*userRecord
	usernames    map[string]string
	registered   map[string]string
	accounts     map[string]accountRecord
	cards        []CardProduct
}

// MemoryOption customises a MemoryBank.
type MemoryOption func(*MemoryBank)

// WithVerificationCode overrides the accepted one-time code.
func WithVerificationCode(code string) MemoryOption {
	return func(m *MemoryBank) { m.code = code }
}

// WithDecider overrides the application decision function.
func WithDecider(decide func() ApplicationStatus) MemoryOption {
	return func(m *MemoryBank) { m.decide = decide }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryBank) { m.now = now }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) MemoryOption {
	return func(m *MemoryBank) { m.bcryptCost = cost }
}

// NewMemoryBank builds a MemoryBank seeded with the default card catalog.
func NewMemoryBank(opts ...MemoryOption) *MemoryBank {
	m := &MemoryBank{
		code:         DefaultVerificationCode,
		decide:       func() ApplicationStatus { return decisionFor(rand.Float64()) },
		now:          func() time.Time { return time.Now().UTC() },
		bcryptCost:   bcrypt.DefaultCost,
		applications: make(map[string]Application),
		emails:       make(map[string]string),
		users:        make(map[string]*userRecord),
		usernames:    make(map[string]string),
		registered:   make(map[string]string),
		accounts:     make(map[string]accountRecord),
		cards:        DefaultCardProducts(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// decisionFor maps a uniform sample to 80% approved, 10% pending, 10% declined.
func decisionFor(r float64) ApplicationStatus {
	switch {
	case r < 0.80:
		return StatusApproved
	case r < 0.90:
		return StatusPending
	default:
		return StatusDeclined
	}
}

func maskSSN(ssn string) string {
	digits := strings.ReplaceAll(ssn, "-", "")
	if len(digits) < 4 {
		return "***-**-****"
	}
	return "***-**-" + digits[len(digits)-4:]
}

// SubmitApplication validates the payload, decides it and stores the record.
func (m *MemoryBank) SubmitApplication(_ context.Context, input ApplicationInput) (Application, error) {
	input = input.Trimmed()
	if errs := validation.Validate(validation.Application, input.Fields()); !errs.Empty() {
		return Application{}, &RemoteError{
			Status:      http.StatusBadRequest,
			Title:       "Validation Failed",
			Message:     "One or more fields contain invalid values",
			FieldErrors: errs,
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(input.Email)
	if _, exists := m.emails[email]; exists {
		return Application{}, newRemoteError(http.StatusConflict, fmt.Sprintf("A customer with email '%s' already exists", input.Email))
	}

	app := Application{
		ID:                uuid.NewString(),
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		DateOfBirth:       input.DateOfBirth,
		Email:             input.Email,
		Phone:             input.Phone,
		StreetAddress:     input.StreetAddress,
		City:              input.City,
		State:             input.State,
		ZipCode:           input.ZipCode,
		Country:           input.Country,
		EmploymentStatus:  input.EmploymentStatus,
		EmployerName:      input.EmployerName,
		JobTitle:          input.JobTitle,
		YearsEmployed:     input.YearsEmployed,
		AnnualSalary:      input.AnnualSalary,
		IncomeSource:      input.IncomeSource,
		AccountType:       input.AccountType,
		CreditScoreRange:  input.CreditScoreRange,
		SSNMasked:         maskSSN(input.SSN),
		ApplicationStatus: m.decide(),
		CardProductID:     input.CardProductID,
		CreatedAt:         m.now(),
	}
	m.applications[app.ID] = app
	m.emails[email] = app.ID
	return app, nil
}

// RegisterUser creates credentials for an approved application.
func (m *MemoryBank) RegisterUser(_ context.Context, input RegisterInput) (Registration, error) {
	if input.Username == "" || input.Password == "" {
		return Registration{}, newRemoteError(http.StatusBadRequest, "username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), m.bcryptCost)
	if err != nil {
		return Registration{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	app, ok := m.applications[input.CustomerID]
	if !ok {
		return Registration{}, newRemoteError(http.StatusNotFound, "Customer not found: "+input.CustomerID)
	}
	if app.ApplicationStatus != StatusApproved {
		return Registration{}, newRemoteError(http.StatusConflict, "Only approved applications can register")
	}
	if _, taken := m.usernames[input.Username]; taken {
		return Registration{}, newRemoteError(http.StatusConflict, fmt.Sprintf("Username '%s' is already taken", input.Username))
	}
	if _, exists := m.registered[input.CustomerID]; exists {
		return Registration{}, newRemoteError(http.StatusConflict, "An account already exists for this application")
	}

	user := &userRecord{
		id:           uuid.NewString(),
		username:     input.Username,
		passwordHash: hash,
		customerID:   input.CustomerID,
	}
	m.users[user.id] = user
	m.usernames[user.username] = user.id
	m.registered[input.CustomerID] = user.id

	return Registration{UserID: user.id, Username: user.username, CustomerID: user.customerID}, nil
}

// LoginUser checks credentials and returns the session record.
func (m *MemoryBank) LoginUser(_ context.Context, input LoginInput) (Session, error) {
	m.mu.RLock()
	id, ok := m.usernames[input.Username]
	var user userRecord
	if ok {
		user = *m.users[id]
	}
	app := m.applications[user.customerID]
	m.mu.RUnlock()

	if !ok {
		return Session{}, newRemoteError(http.StatusUnauthorized, "Invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(input.Password)); err != nil {
		return Session{}, newRemoteError(http.StatusUnauthorized, "Invalid username or password")
	}

	return Session{
		UserID:            user.id,
		Username:          user.username,
		CustomerID:        user.customerID,
		FirstName:         app.FirstName,
		LastName:          app.LastName,
		ApplicationStatus: app.ApplicationStatus,
		CardProductID:     app.CardProductID,
		Verified:          user.verified,
	}, nil
}

// VerifyCode checks the code; on first success it opens the customer's account.
func (m *MemoryBank) VerifyCode(_ context.Context, input VerifyInput) (Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[input.UserID]
	if !ok {
		return Verification{}, newRemoteError(http.StatusNotFound, "User not found: "+input.UserID)
	}
	if input.Code != m.code {
		return Verification{Verified: false, Message: "Invalid code. Please try again."}, nil
	}

	user.verified = true
	m.openAccountLocked(user.customerID)
	return Verification{Verified: true, Message: "Identity verified. Welcome to NexaBank!"}, nil
}

func (m *MemoryBank) openAccountLocked(customerID string) {
	if _, exists := m.accounts[customerID]; exists {
		return
	}
	now := m.now()
	accountType := m.applications[customerID].AccountType
	if strings.TrimSpace(accountType) == "" {
		accountType = "Checking"
	}

	balance := decimal.Zero
	txs := make([]Transaction, 0, len(demoTransactions))
	for _, s := range demoTransactions {
		amount := decimal.RequireFromString(s.amount)
		if s.kind == Credit {
			balance = balance.Add(amount)
		} else {
			balance = balance.Sub(amount)
		}
		txs = append(txs, Transaction{
			ID:           uuid.NewString(),
			Type:         s.kind,
			Amount:       amount,
			Description:  s.description,
			Category:     s.category,
			TransactedAt: now.AddDate(0, 0, -s.daysAgo),
		})
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].TransactedAt.After(txs[j].TransactedAt) })

	m.accounts[customerID] = accountRecord{
		account: Account{
			AccountID:     uuid.NewString(),
			CustomerID:    customerID,
			AccountNumber: fmt.Sprintf("NX-%04d-%04d", rand.Intn(10000), rand.Intn(10000)),
			AccountType:   accountType,
			Balance:       balance,
			Currency:      "USD",
			CreatedAt:     now,
		},
		transactions: txs,
	}
}

// GetAccount returns the customer's account.
func (m *MemoryBank) GetAccount(_ context.Context, customerID string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.accounts[customerID]
	if !ok {
		return Account{}, newRemoteError(http.StatusNotFound, "No bank account found for customer: "+customerID)
	}
	return rec.account, nil
}

// GetTransactions returns the customer's transactions, newest first.
func (m *MemoryBank) GetTransactions(_ context.Context, customerID string) ([]Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.accounts[customerID]
	if !ok {
		return nil, newRemoteError(http.StatusNotFound, "No bank account found for customer: "+customerID)
	}
	out := make([]Transaction, len(rec.transactions))
	copy(out, rec.transactions)
	return out, nil
}

// ListCardProducts returns the catalog in publication order.
func (m *MemoryBank) ListCardProducts(_ context.Context) ([]CardProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CardProduct, len(m.cards))
	copy(out, m.cards)
	return out, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// CreateCardProduct publishes a card product under a slug of its name.
func (m *MemoryBank) CreateCardProduct(_ context.Context, input CardProductInput) (CardProduct, error) {
	id := slugify(input.Name)
	if id == "" {
		return CardProduct{}, &RemoteError{
			Status:      http.StatusBadRequest,
			Title:       "Validation Failed",
			Message:     "One or more fields contain invalid values",
			FieldErrors: map[string]string{"name": "Name is required"},
		}
	}
	if input.RewardsType != Points && input.RewardsType != Cashback {
		return CardProduct{}, &RemoteError{
			Status:      http.StatusBadRequest,
			Title:       "Validation Failed",
			Message:     "One or more fields contain invalid values",
			FieldErrors: map[string]string{"rewardsType": "Rewards type must be points or cashback"},
		}
	}

	categories := make(map[string]decimal.Decimal, len(input.RewardsCategories)+1)
	for k, v := range input.RewardsCategories {
		categories[k] = v
	}
	if _, ok := categories[WildcardCategory]; !ok {
		categories[WildcardCategory] = decimal.NewFromInt(1)
	}
	pointValue := input.PointValue
	if !pointValue.IsPositive() {
		pointValue = defaultPointValue
	}
	annualFee := input.AnnualFee
	if annualFee == "" {
		annualFee = "$0"
	}
	chipColor := input.ChipColor
	if chipColor == "" {
		chipColor = "#e0e0e0"
	}

	card := CardProduct{
		ID:           id,
		Name:         input.Name,
		Tagline:      input.Tagline,
		Network:      input.Network,
		AnnualFee:    annualFee,
		APR:          input.APR,
		Gradient:     input.Gradient,
		ChipColor:    chipColor,
		NumberSuffix: fmt.Sprintf("%04d", rand.Intn(10000)),
		Offers:       input.Offers,
		Rewards: &RewardPolicy{
			Type:              input.RewardsType,
			Categories:        categories,
			PointValue:        pointValue,
			WelcomeBonus:      input.WelcomeBonus,
			WelcomeBonusLabel: input.WelcomeBonusLabel,
		},
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.cards {
		if existing.ID == id {
			return CardProduct{}, newRemoteError(http.StatusConflict, fmt.Sprintf("Card product '%s' already exists", id))
		}
	}
	m.cards = append(m.cards, card)
	return card, nil
}
