// Package auth registers ledger accounts and checks their credentials.
//
// Only bcrypt hashes are persisted. Login is a pure per-call check: it holds
// no session state, so the only durable state an account has is being registered.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"budget-tracker/internal/models"
	"budget-tracker/internal/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for new accounts.
const DefaultCost = 12

// HashPassword returns the bcrypt hash of password at DefaultCost.
func HashPassword(password string) ([]byte, error) {
	return hashPassword(password, DefaultCost)
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

func hashPassword(password string, cost int) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: password is longer than 72 bytes", models.ErrValidation)
	}
	return hash, err
}

// Authenticator registers accounts and validates logins against the ledger.
type Authenticator struct {
	db   *storage.DB
	cost int
	log  logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash []byte
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithCost overrides the bcrypt work factor.
func WithCost(cost int) Option {
	return func(a *Authenticator) { a.cost = cost }
}

// WithLogger sets the logger used for account events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Authenticator) { a.log = log }
}

// New creates an Authenticator backed by db.
func New(db *storage.DB, opts ...Option) *Authenticator {
	a := &Authenticator{db: db, cost: DefaultCost, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register creates an account for username storing only the hash of password.
// An existing username yields models.ErrDuplicateAccount.
func (a *Authenticator) Register(username, password string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", models.ErrValidation)
	}
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", models.ErrValidation)
	}

	hash, err := hashPassword(password, a.cost)
	if err != nil {
		return nil, err
	}

	account, err := a.db.CreateAccount(username, hash)
	if err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{"account_id": account.ID, "username": account.Username}).Info("account registered")
	return account, nil
}

// Login reports whether password is valid for username. An unknown username
// is not an error: it returns false exactly like a wrong password.
func (a *Authenticator) Login(username, password string) (bool, error) {
	account, err := a.db.GetAccountByUsername(strings.TrimSpace(username))
	if errors.Is(err, models.ErrNotFound) {
		// Spend the same bcrypt time as a real check.
		CheckPassword(password, a.dummy())
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return CheckPassword(password, account.PasswordHash), nil
}

func (a *Authenticator) dummy() []byte {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy password"), a.cost)
	})
	return a.dummyHash
}
