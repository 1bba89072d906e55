// Package user implements the identity/deck contract consumed by the match
// core: registration, login and deck persistence, each returning a user
// record. The match core never authenticates; it receives already-validated
// identities from here.
package user

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Capability names a handler the manager must be constructed with.
type Capability string

const (
	CapabilityRegister Capability = "register"
	CapabilityLogin    Capability = "login"
	CapabilitySaveDeck Capability = "save_deck"
)

var requiredCapabilities = []Capability{
	CapabilityRegister,
	CapabilityLogin,
	CapabilitySaveDeck,
}

// Record is the user record returned by every identity operation.
type Record struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Deck      []string  `json:"deck,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Handler executes one identity operation.
type Handler func(m *Manager, username, secret string, deck []string) (*Record, error)

// Manager holds user accounts and the handler set implementing the contract.
// Construction fails when a required capability is missing; a misconfigured
// collaborator must never fail at request time instead.
type Manager struct {
	handlers map[Capability]Handler
	accounts map[string]*account
	mu       sync.RWMutex
	logger   *zap.Logger
}

type account struct {
	record       Record
	passwordHash []byte
}

// NewManager creates a user manager from a handler set, verifying every
// required capability is present.
func NewManager(handlers map[Capability]Handler, logger *zap.Logger) (*Manager, error) {
	for _, c := range requiredCapabilities {
		if handlers[c] == nil {
			return nil, fmt.Errorf("user manager misconfigured: missing %s handler", c)
		}
	}
	return &Manager{
		handlers: handlers,
		accounts: make(map[string]*account),
		logger:   logger,
	}, nil
}

// NewDefaultManager creates a user manager wired with the in-process handlers.
func NewDefaultManager(logger *zap.Logger) (*Manager, error) {
	return NewManager(map[Capability]Handler{
		CapabilityRegister: registerHandler,
		CapabilityLogin:    loginHandler,
		CapabilitySaveDeck: saveDeckHandler,
	}, logger)
}

// Register creates an account and returns its record.
func (m *Manager) Register(username, password string) (*Record, error) {
	return m.handlers[CapabilityRegister](m, username, password, nil)
}

// Login verifies credentials and returns the account record.
func (m *Manager) Login(username, password string) (*Record, error) {
	return m.handlers[CapabilityLogin](m, username, password, nil)
}

// SaveDeck stores the user's deck card-id list and returns the updated record.
func (m *Manager) SaveDeck(username string, deck []string) (*Record, error) {
	return m.handlers[CapabilitySaveDeck](m, username, "", deck)
}

func registerHandler(m *Manager, username, password string, _ []string) (*Record, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < 4 {
		return nil, fmt.Errorf("password too short")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[username]; exists {
		return nil, fmt.Errorf("username %s already taken", username)
	}

	acct := &account{
		record: Record{
			ID:        uuid.New().String(),
			Username:  username,
			CreatedAt: time.Now(),
		},
		passwordHash: hash,
	}
	m.accounts[username] = acct

	m.logger.Info("user registered", zap.String("username", username))

	rec := acct.record
	return &rec, nil
}

func loginHandler(m *Manager, username, password string, _ []string) (*Record, error) {
	m.mu.RLock()
	acct, ok := m.accounts[strings.TrimSpace(username)]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown user %s", username)
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	rec := acct.record
	return &rec, nil
}

func saveDeckHandler(m *Manager, username, _ string, deck []string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[strings.TrimSpace(username)]
	if !ok {
		return nil, fmt.Errorf("unknown user %s", username)
	}
	acct.record.Deck = append([]string(nil), deck...)

	m.logger.Debug("deck saved",
		zap.String("username", username),
		zap.Int("cards", len(deck)),
	)

	rec := acct.record
	return &rec, nil
}
