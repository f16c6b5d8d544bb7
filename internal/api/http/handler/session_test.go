package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	scopectx "github.com/dtroode/gophfeed/internal/api/http/context"
	"github.com/dtroode/gophfeed/internal/api/http/apitest"
	"github.com/dtroode/gophfeed/internal/guard"
	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/testutil"
)

func newSessionHandler() (*Session, *scopectx.Manager) {
	ctxMgr := scopectx.NewManager()
	return NewSession(ctxMgr, guard.DefaultPolicy(), testutil.MakeNoopLogger()), ctxMgr
}

func TestSession_Status(t *testing.T) {
	env := apitest.NewEnv(t)
	h, ctxMgr := newSessionHandler()
	scope := env.Scope(t, model.StateAuthenticated)

	w := httptest.NewRecorder()
	h.Status(w, newRequest(ctxMgr, scope, http.MethodGet, "/api/session", nil, nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp statusResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, model.StateAuthenticated, resp.State)
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestSession_StatusWithoutScope(t *testing.T) {
	h, ctxMgr := newSessionHandler()

	w := httptest.NewRecorder()
	h.Status(w, newRequest(ctxMgr, nil, http.MethodGet, "/api/session", nil, nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSession_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := apitest.NewEnv(t)
		h, ctxMgr := newSessionHandler()
		scope := env.Scope(t, model.StateIdle)

		env.Provider.On("SignInWithPassword", mock.Anything, "a@b.com", "secret").Return(apitest.Credential, nil).Once()
		env.API.On("GetMe", mock.Anything, apitest.Credential.IDToken).Return(apitest.Profile, nil).Once()

		w := httptest.NewRecorder()
		h.Login(w, newRequest(ctxMgr, scope, http.MethodPost, "/api/session/login", credentialsRequest{Email: "a@b.com", Password: "secret"}, nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp statusResponse
		decodeBody(t, w, &resp)
		assert.Equal(t, model.StateAuthenticated, resp.State)
	})

	t.Run("provider rejects", func(t *testing.T) {
		env := apitest.NewEnv(t)
		h, ctxMgr := newSessionHandler()
		scope := env.Scope(t, model.StateIdle)

		env.Provider.On("SignInWithPassword", mock.Anything, "a@b.com", "wrong").Return(model.Credential{}, errors.New("INVALID_PASSWORD")).Once()

		w := httptest.NewRecorder()
		h.Login(w, newRequest(ctxMgr, scope, http.MethodPost, "/api/session/login", credentialsRequest{Email: "a@b.com", Password: "wrong"}, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, model.StateUnauthenticated, scope.Session.Status().State)
	})

	t.Run("missing fields", func(t *testing.T) {
		env := apitest.NewEnv(t)
		h, ctxMgr := newSessionHandler()
		scope := env.Scope(t, model.StateIdle)

		w := httptest.NewRecorder()
		h.Login(w, newRequest(ctxMgr, scope, http.MethodPost, "/api/session/login", credentialsRequest{Email: "a@b.com"}, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.StateIdle, scope.Session.Status().State)
	})

	t.Run("malformed body", func(t *testing.T) {
		env := apitest.NewEnv(t)
		h, ctxMgr := newSessionHandler()
		scope := env.Scope(t, model.StateIdle)

		w := httptest.NewRecorder()
		h.Login(w, newRequest(ctxMgr, scope, http.MethodPost, "/api/session/login", "{", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSession_Register(t *testing.T) {
	env := apitest.NewEnv(t)
	h, ctxMgr := newSessionHandler()
	scope := env.Scope(t, model.StateIdle)

	env.Provider.On("CreateUser", mock.Anything, "new@b.com", "secret").Return(apitest.Credential, nil).Once()

	w := httptest.NewRecorder()
	h.Register(w, newRequest(ctxMgr, scope, http.MethodPost, "/api/session/register", credentialsRequest{Email: "new@b.com", Password: "secret"}, nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp statusResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, model.StateRegistrationRequired, resp.State)
	assert.Nil(t, resp.User)
}

func TestSession_CompleteRegistration(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := apitest.NewEnv(t)
		h, ctxMgr := newSessionHandler()
		scope := env.Scope(t, model.StateRegistrationRequired)

		data := model.RegistrationData{Username: "alice", DisplayName: "Alice"}
		env.API.On("Register", mock.Anything, apitest.Credential.IDToken, data).Return(apitest.Profile, nil).Once()

		w := httptest.NewRecorder()
		h.CompleteRegistration(w, newRequest(ctxMgr, scope, http.MethodPost, "/api/session/complete-registration", data, nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.StateAuthenticated, scope.Session.Status().State)
	})

	t.Run("wrong state", func(t *testing.T) {
		env := apitest.NewEnv(t)
		h, ctxMgr := newSessionHandler()
		scope := env.Scope(t, model.StateIdle)

		w := httptest.NewRecorder()
		h.CompleteRegistration(w, newRequest(ctxMgr, scope, http.MethodPost, "/api/session/complete-registration",
			model.RegistrationData{Username: "alice", DisplayName: "Alice"}, nil))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("blank username", func(t *testing.T) {
		env := apitest.NewEnv(t)
		h, ctxMgr := newSessionHandler()
		scope := env.Scope(t, model.StateRegistrationRequired)

		w := httptest.NewRecorder()
		h.CompleteRegistration(w, newRequest(ctxMgr, scope, http.MethodPost, "/api/session/complete-registration",
			model.RegistrationData{Username: "  ", DisplayName: "Alice"}, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.StateRegistrationRequired, scope.Session.Status().State)
	})
}

func TestSession_LogoutReportsRevokeFailure(t *testing.T) {
	env := apitest.NewEnv(t)
	h, ctxMgr := newSessionHandler()
	scope := env.Scope(t, model.StateAuthenticated)

	env.Provider.On("SignOut", mock.Anything, apitest.Credential).Return(errors.New("network down")).Once()

	w := httptest.NewRecorder()
	h.Logout(w, newRequest(ctxMgr, scope, http.MethodPost, "/api/session/logout", nil, nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp logoutResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, model.StateIdle, resp.State)
	assert.Equal(t, "network down", resp.Warning)
	assert.Nil(t, resp.User)

	_, err := scope.Session.IDToken()
	assert.ErrorIs(t, err, model.ErrNoCredential)
}

func TestSession_Navigate(t *testing.T) {
	env := apitest.NewEnv(t)
	h, ctxMgr := newSessionHandler()
	scope := env.Scope(t, model.StateRegistrationRequired)

	w := httptest.NewRecorder()
	h.Navigate(w, newRequest(ctxMgr, scope, http.MethodGet, "/api/session/navigate?path=/profile/u1", nil, nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp navigationResponse
	decodeBody(t, w, &resp)
	assert.False(t, resp.Allow)
	assert.Equal(t, "/complete-profile", resp.Redirect)

	w = httptest.NewRecorder()
	h.Navigate(w, newRequest(ctxMgr, scope, http.MethodGet, "/api/session/navigate?path=relative", nil, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_RefreshIsSilentWithoutCredential(t *testing.T) {
	env := apitest.NewEnv(t)
	h, ctxMgr := newSessionHandler()
	scope := env.Scope(t, model.StateIdle)

	w := httptest.NewRecorder()
	h.Refresh(w, newRequest(ctxMgr, scope, http.MethodPost, "/api/session/refresh", nil, nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StateIdle, scope.Session.Status().State)
}
