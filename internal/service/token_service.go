package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/token"
)

// TokenService keeps the credential of one session fresh. It asks the
// identity provider for a new pair shortly before the id token expires.
type TokenService struct {
	provider model.IdentityProvider
	store    *token.Store
	skew     time.Duration
	logger   *logger.Logger
}

func NewTokenService(provider model.IdentityProvider, store *token.Store, skew time.Duration, logger *logger.Logger) *TokenService {
	return &TokenService{provider: provider, store: store, skew: skew, logger: logger}
}

// NextRefresh returns how long to wait before refreshing credential.
func (s *TokenService) NextRefresh(credential model.Credential) (time.Duration, error) {
	exp, err := token.ExpiresAt(credential.IDToken)
	if err != nil {
		return 0, err
	}

	wait := time.Until(exp) - s.skew
	if wait < 0 {
		wait = 0
	}
	return wait, nil
}

// Refresh exchanges the stored refresh token for a new pair and swaps it in.
// If the stored credential changed meanwhile (logout, new login) the new pair
// is dropped and model.ErrStaleEpoch returned.
func (s *TokenService) Refresh(ctx context.Context) (model.Credential, error) {
	current := s.store.Get()
	if current.IsZero() || current.RefreshToken == "" {
		return model.Credential{}, model.ErrNoCredential
	}

	next, err := s.provider.Refresh(ctx, current.RefreshToken)
	if err != nil {
		s.logger.Error("Token service: failed to refresh credential",
			"error", err.Error())
		return model.Credential{}, fmt.Errorf("failed to refresh credential: %w", err)
	}
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}

	if !s.store.Swap(current, next) {
		s.logger.Debug("Token service: credential replaced during refresh, dropping result")
		return model.Credential{}, model.ErrStaleEpoch
	}

	if sub, err := token.Subject(next.IDToken); err == nil {
		s.logger.Debug("Token service: credential refreshed",
			"subject", sub)
	}

	return next, nil
}
