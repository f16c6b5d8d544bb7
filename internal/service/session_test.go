package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/gophfeed/internal/mocks"
	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/testutil"
	"github.com/dtroode/gophfeed/internal/token"
)

var (
	testCredential       = model.Credential{IDToken: "id-1", RefreshToken: "rt-1"}
	testProfile          = model.Profile{ID: "u1", Username: "ann", DisplayName: "Ann"}
	registrationRequired = &model.RequestError{
		Status: http.StatusForbidden,
		Body:   map[string]any{"error": "registration_required"},
	}
)

type sessionFixture struct {
	provider *mocks.IdentityProvider
	api      *mocks.BackendAPI
	tokens   *token.Store
	session  *Session
}

func newSessionFixture(t *testing.T) sessionFixture {
	t.Helper()
	f := sessionFixture{
		provider: mocks.NewIdentityProvider(t),
		api:      mocks.NewBackendAPI(t),
		tokens:   token.NewStore(),
	}
	f.session = NewSession(f.provider, f.api, f.tokens, 0, testutil.MakeNoopLogger())
	t.Cleanup(f.session.Close)
	return f
}

func TestSession_Login_Authenticated(t *testing.T) {
	f := newSessionFixture(t)

	f.provider.On("SignInWithPassword", mock.Anything, "a@b.com", "pw").Return(testCredential, nil).Once()
	f.api.On("GetMe", mock.Anything, "id-1").Return(testProfile, nil).Once()

	require.NoError(t, f.session.Login(testutil.Context(t), "a@b.com", "pw"))

	st := f.session.Status()
	assert.Equal(t, model.StateAuthenticated, st.State)
	assert.Empty(t, st.LastError)
	assert.Equal(t, model.Authenticated{Profile: testProfile}, st.User)
	assert.Equal(t, testCredential, f.tokens.Get())
}

func TestSession_Login_RegistrationRequired(t *testing.T) {
	f := newSessionFixture(t)

	f.provider.On("SignInWithPassword", mock.Anything, "a@b.com", "pw").Return(testCredential, nil).Once()
	f.api.On("GetMe", mock.Anything, "id-1").Return(model.Profile{}, registrationRequired).Once()

	require.NoError(t, f.session.Login(testutil.Context(t), "a@b.com", "pw"))

	st := f.session.Status()
	assert.Equal(t, model.StateRegistrationRequired, st.State)
	assert.Equal(t, model.Anonymous{}, st.User)
	assert.Equal(t, testCredential, f.tokens.Get())
}

func TestSession_Login_ProviderFailure(t *testing.T) {
	f := newSessionFixture(t)

	f.provider.On("SignInWithPassword", mock.Anything, "a@b.com", "bad").
		Return(model.Credential{}, errors.New("INVALID_PASSWORD")).Once()

	err := f.session.Login(testutil.Context(t), "a@b.com", "bad")

	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "login", authErr.Op)

	st := f.session.Status()
	assert.Equal(t, model.StateUnauthenticated, st.State)
	assert.Equal(t, "INVALID_PASSWORD", st.LastError)
	assert.True(t, f.tokens.Get().IsZero())
}

func TestSession_Login_ResolutionFailureIsNotRegistration(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"server error", &model.RequestError{Status: http.StatusInternalServerError, Body: map[string]any{"message": "boom"}}},
		{"forbidden with another code", &model.RequestError{Status: http.StatusForbidden, Body: map[string]any{"error": "banned"}}},
		{"network error", errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)

			f.provider.On("SignInWithPassword", mock.Anything, "a@b.com", "pw").Return(testCredential, nil).Once()
			f.api.On("GetMe", mock.Anything, "id-1").Return(model.Profile{}, tt.err).Once()

			err := f.session.Login(testutil.Context(t), "a@b.com", "pw")

			var authErr *model.AuthError
			require.True(t, errors.As(err, &authErr))
			var resErr *model.ResolutionError
			require.True(t, errors.As(err, &resErr))

			assert.Equal(t, model.StateUnauthenticated, f.session.Status().State)
			assert.True(t, f.tokens.Get().IsZero())
		})
	}
}

func TestSession_CredentialStoredBeforeResolution(t *testing.T) {
	f := newSessionFixture(t)

	f.provider.On("SignInWithPassword", mock.Anything, "a@b.com", "pw").Return(testCredential, nil).Once()
	f.api.On("GetMe", mock.Anything, "id-1").
		Run(func(mock.Arguments) {
			assert.Equal(t, testCredential, f.tokens.Get())
			assert.Equal(t, model.StateLoading, f.session.Status().State)
		}).
		Return(testProfile, nil).Once()

	require.NoError(t, f.session.Login(testutil.Context(t), "a@b.com", "pw"))
}

func TestSession_LoginWithGoogle(t *testing.T) {
	f := newSessionFixture(t)
	assertion := model.FederatedAssertion{ProviderID: "google.com", IDToken: "g"}

	f.provider.On("SignInWithFederated", mock.Anything, assertion).Return(testCredential, nil).Once()
	f.api.On("GetMe", mock.Anything, "id-1").Return(testProfile, nil).Once()

	require.NoError(t, f.session.LoginWithGoogle(testutil.Context(t), assertion))
	assert.Equal(t, model.StateAuthenticated, f.session.Status().State)
}

func TestSession_Register_AlwaysRequiresRegistration(t *testing.T) {
	f := newSessionFixture(t)

	f.provider.On("CreateUser", mock.Anything, "a@b.com", "pw").Return(testCredential, nil).Once()

	require.NoError(t, f.session.Register(testutil.Context(t), "a@b.com", "pw"))

	st := f.session.Status()
	assert.Equal(t, model.StateRegistrationRequired, st.State)
	assert.Equal(t, testCredential, f.tokens.Get())
	f.api.AssertNotCalled(t, "GetMe", mock.Anything, mock.Anything)
}

func TestSession_Register_Failure(t *testing.T) {
	f := newSessionFixture(t)

	f.provider.On("CreateUser", mock.Anything, "a@b.com", "pw").
		Return(model.Credential{}, errors.New("EMAIL_EXISTS")).Once()

	err := f.session.Register(testutil.Context(t), "a@b.com", "pw")
	require.Error(t, err)
	assert.Equal(t, model.StateUnauthenticated, f.session.Status().State)
}

func TestSession_CompleteRegistration(t *testing.T) {
	f := newSessionFixture(t)
	data := model.RegistrationData{Username: "ann", DisplayName: "Ann"}

	f.provider.On("CreateUser", mock.Anything, "a@b.com", "pw").Return(testCredential, nil).Once()
	require.NoError(t, f.session.Register(testutil.Context(t), "a@b.com", "pw"))

	f.api.On("Register", mock.Anything, "id-1", data).
		Return(model.Profile{}, &model.RequestError{Status: http.StatusConflict, Body: map[string]any{"message": "Username taken"}}).Once()

	err := f.session.CompleteRegistration(testutil.Context(t), data)
	require.Error(t, err)

	st := f.session.Status()
	assert.Equal(t, model.StateRegistrationRequired, st.State)
	assert.Equal(t, "Username taken", st.LastError)
	assert.Equal(t, testCredential, f.tokens.Get())

	f.api.On("Register", mock.Anything, "id-1", data).Return(testProfile, nil).Once()

	require.NoError(t, f.session.CompleteRegistration(testutil.Context(t), data))

	st = f.session.Status()
	assert.Equal(t, model.StateAuthenticated, st.State)
	assert.Empty(t, st.LastError)
	assert.Equal(t, model.Authenticated{Profile: testProfile}, st.User)
}

func TestSession_CompleteRegistration_WrongState(t *testing.T) {
	f := newSessionFixture(t)

	err := f.session.CompleteRegistration(testutil.Context(t), model.RegistrationData{Username: "ann"})
	require.ErrorIs(t, err, model.ErrInvalidState)
}

func TestSession_LogoutDuringCompleteRegistrationDiscardsProfile(t *testing.T) {
	f := newSessionFixture(t)
	data := model.RegistrationData{Username: "ann", DisplayName: "Ann"}

	f.provider.On("CreateUser", mock.Anything, "a@b.com", "pw").Return(testCredential, nil).Once()
	require.NoError(t, f.session.Register(testutil.Context(t), "a@b.com", "pw"))

	posting := make(chan struct{})
	release := make(chan struct{})
	f.api.On("Register", mock.Anything, "id-1", data).
		Run(func(mock.Arguments) {
			close(posting)
			<-release
		}).
		Return(testProfile, nil).Once()
	f.provider.On("SignOut", mock.Anything, testCredential).Return(nil).Once()

	done := make(chan error, 1)
	go func() {
		done <- f.session.CompleteRegistration(context.Background(), data)
	}()

	<-posting
	require.NoError(t, f.session.Logout(testutil.Context(t)))
	close(release)

	require.ErrorIs(t, <-done, model.ErrStaleEpoch)

	st := f.session.Status()
	assert.Equal(t, model.StateIdle, st.State)
	assert.Equal(t, model.Anonymous{}, st.User)
	assert.True(t, f.tokens.Get().IsZero())
}

func TestSession_Logout_ResetsEvenWhenRevokeFails(t *testing.T) {
	f := newSessionFixture(t)

	f.provider.On("SignInWithPassword", mock.Anything, "a@b.com", "pw").Return(testCredential, nil).Once()
	f.api.On("GetMe", mock.Anything, "id-1").Return(testProfile, nil).Once()
	require.NoError(t, f.session.Login(testutil.Context(t), "a@b.com", "pw"))

	f.provider.On("SignOut", mock.Anything, testCredential).Return(errors.New("network down")).Once()

	err := f.session.Logout(testutil.Context(t))
	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))

	st := f.session.Status()
	assert.Equal(t, model.StateIdle, st.State)
	assert.Equal(t, model.Anonymous{}, st.User)
	assert.Empty(t, st.LastError)
	assert.True(t, f.tokens.Get().IsZero())
}

func TestSession_Logout_WithoutCredential(t *testing.T) {
	f := newSessionFixture(t)

	require.NoError(t, f.session.Logout(testutil.Context(t)))
	assert.Equal(t, model.StateIdle, f.session.Status().State)
}

func TestSession_LogoutDuringLoginDiscardsResult(t *testing.T) {
	f := newSessionFixture(t)

	resolving := make(chan struct{})
	release := make(chan struct{})

	f.provider.On("SignInWithPassword", mock.Anything, "a@b.com", "pw").Return(testCredential, nil).Once()
	f.api.On("GetMe", mock.Anything, "id-1").
		Run(func(mock.Arguments) {
			close(resolving)
			<-release
		}).
		Return(testProfile, nil).Once()
	f.provider.On("SignOut", mock.Anything, testCredential).Return(nil).Once()

	done := make(chan error, 1)
	go func() {
		done <- f.session.Login(context.Background(), "a@b.com", "pw")
	}()

	<-resolving
	require.NoError(t, f.session.Logout(testutil.Context(t)))
	close(release)

	require.ErrorIs(t, <-done, model.ErrStaleEpoch)

	st := f.session.Status()
	assert.Equal(t, model.StateIdle, st.State)
	assert.Equal(t, model.Anonymous{}, st.User)
	assert.True(t, f.tokens.Get().IsZero())
}

func TestSession_RefreshUserProfile(t *testing.T) {
	t.Run("no credential is a no-op", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.RefreshUserProfile(testutil.Context(t))
		assert.Equal(t, model.StateIdle, f.session.Status().State)
	})

	t.Run("failure keeps state", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.Restore(model.SessionSnapshot{
			State:      model.StateAuthenticated,
			Credential: testCredential,
			Profile:    &testProfile,
		})

		f.api.On("GetMe", mock.Anything, "id-1").Return(model.Profile{}, errors.New("timeout")).Once()
		f.session.RefreshUserProfile(testutil.Context(t))

		st := f.session.Status()
		assert.Equal(t, model.StateAuthenticated, st.State)
		assert.Equal(t, model.Authenticated{Profile: testProfile}, st.User)
		assert.Empty(t, st.LastError)
	})

	t.Run("success replaces profile", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.Restore(model.SessionSnapshot{
			State:      model.StateAuthenticated,
			Credential: testCredential,
			Profile:    &testProfile,
		})

		updated := testProfile
		updated.Bio = "hello"
		f.api.On("GetMe", mock.Anything, "id-1").Return(updated, nil).Once()
		f.session.RefreshUserProfile(testutil.Context(t))

		assert.Equal(t, model.Authenticated{Profile: updated}, f.session.Status().User)
	})
}

func TestSession_RefreshCredential(t *testing.T) {
	authenticated := model.SessionSnapshot{
		State:      model.StateAuthenticated,
		Credential: testCredential,
		Profile:    &testProfile,
	}

	t.Run("rotates pair and re-resolves profile", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.Restore(authenticated)

		rotated := model.Credential{IDToken: "id-2", RefreshToken: "rt-2"}
		updated := testProfile
		updated.DisplayName = "Ann B."
		f.provider.On("Refresh", mock.Anything, "rt-1").Return(rotated, nil).Once()
		f.api.On("GetMe", mock.Anything, "id-2").Return(updated, nil).Once()

		require.NoError(t, f.session.RefreshCredential(testutil.Context(t)))

		assert.Equal(t, rotated, f.tokens.Get())
		assert.Equal(t, model.Authenticated{Profile: updated}, f.session.Status().User)
	})

	t.Run("provider failure keeps session", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.Restore(authenticated)

		f.provider.On("Refresh", mock.Anything, "rt-1").Return(model.Credential{}, errors.New("revoked")).Once()

		require.Error(t, f.session.RefreshCredential(testutil.Context(t)))
		assert.Equal(t, testCredential, f.tokens.Get())
		assert.Equal(t, model.StateAuthenticated, f.session.Status().State)
	})

	t.Run("subscribers see rotation without profile change", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.Restore(authenticated)

		var mu sync.Mutex
		var seen []model.SessionStatus
		f.session.Subscribe(func(st model.SessionStatus) {
			mu.Lock()
			seen = append(seen, st)
			mu.Unlock()
		})

		rotated := model.Credential{IDToken: "id-2", RefreshToken: "rt-2"}
		f.provider.On("Refresh", mock.Anything, "rt-1").Return(rotated, nil).Once()
		f.api.On("GetMe", mock.Anything, "id-2").Return(model.Profile{}, errors.New("timeout")).Once()

		require.NoError(t, f.session.RefreshCredential(testutil.Context(t)))

		mu.Lock()
		require.Len(t, seen, 1)
		assert.Equal(t, model.StateAuthenticated, seen[0].State)
		mu.Unlock()
		assert.Equal(t, rotated, f.session.Snapshot("s1").Credential)
	})
}

func TestSession_UpdateTokensAndUserInfo(t *testing.T) {
	f := newSessionFixture(t)

	assert.False(t, f.session.UpdateTokens(testCredential))
	assert.True(t, f.tokens.Get().IsZero())

	f.session.Restore(model.SessionSnapshot{
		State:      model.StateAuthenticated,
		Credential: testCredential,
		Profile:    &testProfile,
	})

	next := model.Credential{IDToken: "id-2", RefreshToken: "rt-2"}
	assert.True(t, f.session.UpdateTokens(next))
	assert.Equal(t, next, f.tokens.Get())

	other := model.Profile{ID: "u2"}
	assert.False(t, f.session.UpdateUserInfo(other))

	renamed := testProfile
	renamed.DisplayName = "Annie"
	assert.True(t, f.session.UpdateUserInfo(renamed))
	assert.Equal(t, model.Authenticated{Profile: renamed}, f.session.Status().User)
}

func TestSession_Restore(t *testing.T) {
	tests := []struct {
		name      string
		snap      model.SessionSnapshot
		wantState model.SessionState
		wantCred  bool
	}{
		{
			name:      "authenticated",
			snap:      model.SessionSnapshot{State: model.StateAuthenticated, Credential: testCredential, Profile: &testProfile},
			wantState: model.StateAuthenticated,
			wantCred:  true,
		},
		{
			name:      "authenticated without profile",
			snap:      model.SessionSnapshot{State: model.StateAuthenticated, Credential: testCredential},
			wantState: model.StateIdle,
		},
		{
			name:      "registration required",
			snap:      model.SessionSnapshot{State: model.StateRegistrationRequired, Credential: testCredential},
			wantState: model.StateRegistrationRequired,
			wantCred:  true,
		},
		{
			name:      "loading",
			snap:      model.SessionSnapshot{State: model.StateLoading, Credential: testCredential},
			wantState: model.StateIdle,
		},
		{
			name:      "unauthenticated keeps error",
			snap:      model.SessionSnapshot{State: model.StateUnauthenticated, LastError: "bad password"},
			wantState: model.StateUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			f.session.Restore(tt.snap)

			assert.Equal(t, tt.wantState, f.session.Status().State)
			assert.Equal(t, tt.wantCred, !f.tokens.Get().IsZero())

			snap := f.session.Snapshot("sid")
			assert.Equal(t, tt.wantState, snap.State)
		})
	}
}

func TestSession_SubscribersSeeTransitions(t *testing.T) {
	f := newSessionFixture(t)

	var mu sync.Mutex
	var states []model.SessionState
	f.session.Subscribe(func(st model.SessionStatus) {
		mu.Lock()
		defer mu.Unlock()
		if len(states) == 0 || states[len(states)-1] != st.State {
			states = append(states, st.State)
		}
	})

	f.provider.On("SignInWithPassword", mock.Anything, "a@b.com", "pw").Return(testCredential, nil).Once()
	f.api.On("GetMe", mock.Anything, "id-1").Return(testProfile, nil).Once()
	f.provider.On("SignOut", mock.Anything, testCredential).Return(nil).Once()

	require.NoError(t, f.session.Login(testutil.Context(t), "a@b.com", "pw"))
	require.NoError(t, f.session.Logout(testutil.Context(t)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []model.SessionState{
		model.StateLoading,
		model.StateAuthenticated,
		model.StateIdle,
	}, states)
}

func TestSession_EpochAdvances(t *testing.T) {
	f := newSessionFixture(t)
	start := f.session.Epoch()

	f.provider.On("CreateUser", mock.Anything, "a@b.com", "pw").Return(testCredential, nil).Once()
	f.provider.On("SignOut", mock.Anything, testCredential).Return(nil).Once()

	require.NoError(t, f.session.Register(testutil.Context(t), "a@b.com", "pw"))
	require.NoError(t, f.session.Logout(testutil.Context(t)))

	assert.Equal(t, start+2, f.session.Epoch())
}
