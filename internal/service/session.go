package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/token"
)

const backgroundTimeout = 30 * time.Second

// Session is the authentication state machine of one browser session.
//
// Every login, registration and logout starts a new epoch. Results of calls
// started under an older epoch are discarded instead of being written back.
type Session struct {
	mu        sync.Mutex
	state     model.SessionState
	lastErr   string
	user      model.UserProfile
	listeners []func(model.SessionStatus)
	timer     *time.Timer
	closed    bool

	epoch atomic.Uint64

	tokens    *token.Store
	provider  model.IdentityProvider
	resolver  *Resolver
	profiles  model.ProfileAPI
	refresher *TokenService
	logger    *logger.Logger
}

// NewSession creates an idle session writing its credential to tokens.
func NewSession(
	provider model.IdentityProvider,
	profiles model.ProfileAPI,
	tokens *token.Store,
	refreshSkew time.Duration,
	logger *logger.Logger,
) *Session {
	return &Session{
		state:     model.StateIdle,
		user:      model.Anonymous{},
		tokens:    tokens,
		provider:  provider,
		resolver:  NewResolver(profiles, logger),
		profiles:  profiles,
		refresher: NewTokenService(provider, tokens, refreshSkew, logger),
		logger:    logger,
	}
}

// Subscribe registers fn to receive the status after every change.
// fn runs outside the session lock and must not block.
func (s *Session) Subscribe(fn func(model.SessionStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Epoch returns the current session epoch.
func (s *Session) Epoch() uint64 {
	return s.epoch.Load()
}

// IDToken returns the bearer token of the held credential.
func (s *Session) IDToken() (string, error) {
	idToken := s.tokens.IDToken()
	if idToken == "" {
		return "", model.ErrNoCredential
	}
	return idToken, nil
}

// Status returns a snapshot of the session.
func (s *Session) Status() model.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Snapshot returns the persistable form of the session.
func (s *Session) Snapshot(id string) model.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.SessionSnapshot{
		ID:         id,
		State:      s.state,
		Credential: s.tokens.Get(),
		LastError:  s.lastErr,
		UpdatedAt:  time.Now(),
	}
	if p, ok := model.ProfileOf(s.user); ok {
		snap.Profile = &p
	}
	return snap
}

// Restore loads a persisted snapshot into an idle session. Snapshots that
// break the state invariants, or that were taken mid-operation, restore as idle.
func (s *Session) Restore(snap model.SessionSnapshot) {
	s.update(func() bool {
		s.resetLocked()

		switch snap.State {
		case model.StateAuthenticated:
			if snap.Credential.IsZero() || snap.Profile == nil {
				return true
			}
			s.user = model.Authenticated{Profile: *snap.Profile}
		case model.StateRegistrationRequired:
			if snap.Credential.IsZero() {
				return true
			}
		case model.StateUnauthenticated:
			s.state = model.StateUnauthenticated
			s.lastErr = snap.LastError
			return true
		default:
			return true
		}

		s.state = snap.State
		s.tokens.Set(snap.Credential)
		s.scheduleRefreshLocked(s.epoch.Load())
		return true
	})
}

// Login signs in with email and password and resolves the profile.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.logger.Debug("Session service: login started",
		"email", email)

	epoch := s.begin()
	credential, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return s.fail(epoch, "login", err)
	}
	return s.settle(ctx, epoch, "login", credential, true)
}

// LoginWithGoogle signs in with a federated Google assertion and resolves the profile.
func (s *Session) LoginWithGoogle(ctx context.Context, assertion model.FederatedAssertion) error {
	s.logger.Debug("Session service: federated login started",
		"provider", assertion.ProviderID)

	epoch := s.begin()
	credential, err := s.provider.SignInWithFederated(ctx, assertion)
	if err != nil {
		return s.fail(epoch, "google login", err)
	}
	return s.settle(ctx, epoch, "google login", credential, true)
}

// Register creates an identity account. A new account never has a profile,
// so the session always ends in registration_required on success.
func (s *Session) Register(ctx context.Context, email, password string) error {
	s.logger.Debug("Session service: registration started",
		"email", email)

	epoch := s.begin()
	credential, err := s.provider.CreateUser(ctx, email, password)
	if err != nil {
		return s.fail(epoch, "register", err)
	}
	return s.settle(ctx, epoch, "register", credential, false)
}

// CompleteRegistration creates the backend profile with the held credential.
// On failure the session stays in registration_required with the error recorded.
func (s *Session) CompleteRegistration(ctx context.Context, data model.RegistrationData) error {
	s.mu.Lock()
	if s.state != model.StateRegistrationRequired {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("complete registration in state %s: %w", state, model.ErrInvalidState)
	}
	epoch := s.epoch.Load()
	idToken, err := s.IDToken()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	profile, err := s.profiles.Register(ctx, idToken, data)
	if err != nil {
		s.logger.Error("Session service: failed to complete registration",
			"username", data.Username,
			"error", err.Error())
		s.updateIf(epoch, func() {
			s.lastErr = model.UserMessage(err)
		})
		return fmt.Errorf("failed to complete registration: %w", err)
	}

	if !s.updateIf(epoch, func() {
		s.state = model.StateAuthenticated
		s.user = model.Authenticated{Profile: profile}
		s.lastErr = ""
	}) {
		return model.ErrStaleEpoch
	}

	s.logger.Info("Session service: registration completed",
		"username", profile.Username)
	return nil
}

// Logout resets the session to idle and then revokes the provider session.
// The reset happens even when the revoke fails; the revoke error is returned.
func (s *Session) Logout(ctx context.Context) error {
	var credential model.Credential
	s.update(func() bool {
		credential = s.tokens.Get()
		s.epoch.Add(1)
		s.resetLocked()
		return true
	})

	s.logger.Info("Session service: logged out")

	if credential.IsZero() {
		return nil
	}
	if err := s.provider.SignOut(ctx, credential); err != nil {
		s.logger.Error("Session service: failed to revoke provider session",
			"error", err.Error())
		return &model.AuthError{Op: "logout", Err: err}
	}
	return nil
}

// RefreshUserProfile re-resolves the profile of the held credential. It does
// nothing without a credential; failures are logged and leave the state untouched.
func (s *Session) RefreshUserProfile(ctx context.Context) {
	idToken := s.tokens.IDToken()
	if idToken == "" {
		return
	}
	epoch := s.epoch.Load()

	res, err := s.resolver.Resolve(ctx, idToken)
	if err != nil {
		s.logger.Error("Session service: silent profile refresh failed",
			"error", err.Error())
		return
	}
	if !res.Exists {
		return
	}

	s.updateIf(epoch, func() {
		if s.state.HoldsCredential() {
			s.state = model.StateAuthenticated
			s.user = model.Authenticated{Profile: res.Profile}
		}
	})
}

// RefreshCredential refreshes the credential now and then re-resolves the
// profile. Listeners are notified of the rotated pair.
func (s *Session) RefreshCredential(ctx context.Context) error {
	epoch := s.epoch.Load()

	if _, err := s.refresher.Refresh(ctx); err != nil {
		return err
	}

	s.update(func() bool {
		if epoch != s.epoch.Load() || s.closed {
			return false
		}
		s.scheduleRefreshLocked(epoch)
		return true
	})

	s.RefreshUserProfile(ctx)
	return nil
}

// UpdateTokens replaces the credential pair, as after an external refresh.
// It is ignored unless the session holds a credential.
func (s *Session) UpdateTokens(credential model.Credential) bool {
	return s.update(func() bool {
		if !s.state.HoldsCredential() || credential.IsZero() {
			return false
		}
		s.tokens.Set(credential)
		s.scheduleRefreshLocked(s.epoch.Load())
		return true
	})
}

// UpdateUserInfo replaces the profile of an authenticated session.
// Profiles of other users are ignored.
func (s *Session) UpdateUserInfo(profile model.Profile) bool {
	return s.update(func() bool {
		current, ok := model.ProfileOf(s.user)
		if !ok || current.ID != profile.ID {
			return false
		}
		s.user = model.Authenticated{Profile: profile}
		return true
	})
}

// Close stops the refresh timer. The session keeps its state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// begin starts a credential-producing operation.
func (s *Session) begin() uint64 {
	var epoch uint64
	s.update(func() bool {
		epoch = s.epoch.Add(1)
		s.resetLocked()
		s.state = model.StateLoading
		return true
	})
	return epoch
}

func (s *Session) fail(epoch uint64, op string, err error) error {
	authErr := &model.AuthError{Op: op, Err: err}

	s.logger.Error("Session service: auth failed",
		"op", op,
		"error", err.Error())

	if !s.updateIf(epoch, func() {
		s.tokens.Clear()
		s.state = model.StateUnauthenticated
		s.user = model.Anonymous{}
		s.lastErr = model.UserMessage(authErr)
	}) {
		return model.ErrStaleEpoch
	}
	return authErr
}

// settle stores credential and moves the session to its terminal state.
// The credential is written before the profile lookup starts.
func (s *Session) settle(ctx context.Context, epoch uint64, op string, credential model.Credential, resolve bool) error {
	if !s.updateIf(epoch, func() {
		s.tokens.Set(credential)
	}) {
		return model.ErrStaleEpoch
	}

	if !resolve {
		if !s.updateIf(epoch, func() {
			s.state = model.StateRegistrationRequired
			s.scheduleRefreshLocked(epoch)
		}) {
			return model.ErrStaleEpoch
		}
		s.logger.Info("Session service: registration required",
			"op", op)
		return nil
	}

	res, err := s.resolver.Resolve(ctx, credential.IDToken)
	if err != nil {
		return s.fail(epoch, op, err)
	}

	if !s.updateIf(epoch, func() {
		if res.Exists {
			s.state = model.StateAuthenticated
			s.user = model.Authenticated{Profile: res.Profile}
		} else {
			s.state = model.StateRegistrationRequired
		}
		s.scheduleRefreshLocked(epoch)
	}) {
		return model.ErrStaleEpoch
	}

	s.logger.Info("Session service: auth settled",
		"op", op,
		"exists", res.Exists)
	return nil
}

func (s *Session) resetLocked() {
	s.stopTimerLocked()
	s.tokens.Clear()
	s.state = model.StateIdle
	s.user = model.Anonymous{}
	s.lastErr = ""
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) scheduleRefreshLocked(epoch uint64) {
	s.stopTimerLocked()
	if s.closed {
		return
	}

	wait, err := s.refresher.NextRefresh(s.tokens.Get())
	if err != nil {
		s.logger.Debug("Session service: credential refresh not scheduled",
			"error", err.Error())
		return
	}

	s.timer = time.AfterFunc(wait, func() {
		if s.epoch.Load() != epoch {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		err := s.RefreshCredential(ctx)
		if err != nil && !errors.Is(err, model.ErrStaleEpoch) {
			s.logger.Error("Session service: scheduled credential refresh failed",
				"error", err.Error())
		}
	})
}

func (s *Session) statusLocked() model.SessionStatus {
	return model.SessionStatus{
		State:     s.state,
		LastError: s.lastErr,
		User:      s.user,
		Epoch:     s.epoch.Load(),
	}
}

// update applies fn under the lock and notifies listeners when fn reports a change.
func (s *Session) update(fn func() bool) bool {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return false
	}
	status := s.statusLocked()
	listeners := append([]func(model.SessionStatus){}, s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(status)
	}
	return true
}

// updateIf applies fn only while epoch is still current.
func (s *Session) updateIf(epoch uint64, fn func()) bool {
	return s.update(func() bool {
		if s.epoch.Load() != epoch {
			return false
		}
		fn()
		return true
	})
}
