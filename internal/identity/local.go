package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/token"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already in use")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrTokenRevoked       = errors.New("refresh token revoked")
)

const minPasswordLength = 6

var _ model.IdentityProvider = (*Local)(nil)

type account struct {
	id    uuid.UUID
	email string
	hash  []byte
}

// Local is an in-process IdentityProvider for development and tests.
// Accounts live in memory and tokens are HS256 JWTs.
type Local struct {
	mu       sync.Mutex
	accounts map[string]account
	byID     map[uuid.UUID]string
	revoked  map[string]struct{}
	issuer   *token.JWT
	cost     int
	logger   *logger.Logger
}

// NewLocal creates a Local provider signing tokens with issuer.
func NewLocal(issuer *token.JWT, logger *logger.Logger) *Local {
	return &Local{
		accounts: make(map[string]account),
		byID:     make(map[uuid.UUID]string),
		revoked:  make(map[string]struct{}),
		issuer:   issuer,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
	}
}

// SignInWithPassword verifies the password of an existing account.
func (l *Local) SignInWithPassword(_ context.Context, email, password string) (model.Credential, error) {
	email = normalizeEmail(email)

	l.mu.Lock()
	acc, ok := l.accounts[email]
	l.mu.Unlock()
	if !ok {
		return model.Credential{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return model.Credential{}, ErrInvalidCredentials
	}

	return l.issue(acc)
}

// CreateUser creates an account and signs it in.
func (l *Local) CreateUser(_ context.Context, email, password string) (model.Credential, error) {
	email = normalizeEmail(email)
	if len(password) < minPasswordLength {
		return model.Credential{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return model.Credential{}, fmt.Errorf("failed to hash password: %w", err)
	}

	l.mu.Lock()
	if _, exists := l.accounts[email]; exists {
		l.mu.Unlock()
		return model.Credential{}, ErrEmailExists
	}
	acc := account{id: uuid.New(), email: email, hash: hash}
	l.accounts[email] = acc
	l.byID[acc.id] = email
	l.mu.Unlock()

	l.logger.Info("Local identity: account created",
		"email", email,
		"uid", acc.id.String())

	return l.issue(acc)
}

// SignInWithFederated is not available without a real identity provider.
func (l *Local) SignInWithFederated(_ context.Context, _ model.FederatedAssertion) (model.Credential, error) {
	return model.Credential{}, model.ErrFederatedFlow
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair issued.
func (l *Local) Refresh(_ context.Context, refreshToken string) (model.Credential, error) {
	userID, jti, err := l.issuer.ParseRefreshToken(refreshToken)
	if err != nil {
		return model.Credential{}, err
	}

	l.mu.Lock()
	if _, revoked := l.revoked[jti]; revoked {
		l.mu.Unlock()
		return model.Credential{}, ErrTokenRevoked
	}
	email, ok := l.byID[userID]
	if !ok {
		l.mu.Unlock()
		return model.Credential{}, ErrInvalidCredentials
	}
	l.revoked[jti] = struct{}{}
	acc := l.accounts[email]
	l.mu.Unlock()

	return l.issue(acc)
}

// SignOut revokes the refresh token of the credential.
func (l *Local) SignOut(_ context.Context, credential model.Credential) error {
	if credential.RefreshToken == "" {
		return nil
	}

	_, jti, err := l.issuer.ParseRefreshToken(credential.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	l.mu.Lock()
	l.revoked[jti] = struct{}{}
	l.mu.Unlock()

	return nil
}

func (l *Local) issue(acc account) (model.Credential, error) {
	idToken, err := l.issuer.GenerateIDToken(acc.id, acc.email)
	if err != nil {
		return model.Credential{}, fmt.Errorf("issue id token: %w", err)
	}
	refreshToken, _, err := l.issuer.GenerateRefreshToken(acc.id)
	if err != nil {
		return model.Credential{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return model.Credential{IDToken: idToken, RefreshToken: refreshToken}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
