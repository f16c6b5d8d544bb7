// Package apitest builds session scopes in a chosen state for HTTP tests.
package apitest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/gophfeed/internal/mocks"
	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/repository/memory"
	"github.com/dtroode/gophfeed/internal/service"
	"github.com/dtroode/gophfeed/internal/testutil"
)

var (
	Credential = model.Credential{IDToken: "id-1", RefreshToken: "rt-1"}
	Profile    = model.Profile{ID: "u1", Username: "alice", DisplayName: "Alice"}
)

// Env is a registry backed by mocks and an in-memory snapshot store.
type Env struct {
	Registry *service.Registry
	Provider *mocks.IdentityProvider
	API      *mocks.BackendAPI
	Uploader *mocks.Uploader
	Store    *memory.SnapshotStore
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	env := &Env{
		Provider: mocks.NewIdentityProvider(t),
		API:      mocks.NewBackendAPI(t),
		Uploader: mocks.NewUploader(t),
		Store:    memory.NewSnapshotStore(),
	}
	env.Registry = service.NewRegistry(service.Deps{
		Provider: env.Provider,
		API:      env.API,
		Uploader: env.Uploader,
		Content:  service.ContentConfig{PageSize: 10, HydrateConcurrency: 1},
	}, env.Store, time.Hour, testutil.MakeNoopLogger())
	t.Cleanup(env.Registry.Close)
	return env
}

// Scope returns a registered scope restored into state. Loading is not a
// restorable state; use Loading for it.
func (e *Env) Scope(t *testing.T, state model.SessionState) *service.Scope {
	t.Helper()
	if state == model.StateIdle {
		return e.Registry.Create()
	}

	snap := model.SessionSnapshot{ID: uuid.NewString(), State: state, UpdatedAt: time.Now()}
	if state.HoldsCredential() {
		snap.Credential = Credential
	}
	if state == model.StateAuthenticated {
		p := Profile
		snap.Profile = &p
	}
	if state == model.StateUnauthenticated {
		snap.LastError = "INVALID_PASSWORD"
	}
	require.NoError(t, e.Store.Save(context.Background(), snap))

	scope, err := e.Registry.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	require.Equal(t, state, scope.Session.Status().State)
	return scope
}

// Loading returns a scope held in the loading state until the returned
// release func is called. The pending login then fails.
func (e *Env) Loading(t *testing.T) (*service.Scope, func()) {
	t.Helper()
	scope := e.Registry.Create()

	gate := make(chan time.Time)
	e.Provider.On("SignInWithPassword", mock.Anything, "slow@example.com", "pw").
		WaitUntil(gate).
		Return(model.Credential{}, errors.New("denied")).
		Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = scope.Session.Login(context.Background(), "slow@example.com", "pw")
	}()
	require.Eventually(t, func() bool {
		return scope.Session.Status().State == model.StateLoading
	}, time.Second, time.Millisecond)

	return scope, func() {
		close(gate)
		<-done
	}
}
