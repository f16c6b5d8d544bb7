package model

import (
	"context"
	"time"
)

// SessionState is the client-observed authentication phase.
type SessionState string

const (
	// StateIdle is the initial state and the state after logout.
	StateIdle SessionState = "idle"
	// StateLoading is held while a credential-producing operation is running.
	StateLoading SessionState = "loading"
	// StateAuthenticated means a credential and a resolved profile are held.
	StateAuthenticated SessionState = "authenticated"
	// StateUnauthenticated means the last auth attempt failed.
	StateUnauthenticated SessionState = "unauthenticated"
	// StateRegistrationRequired means a credential is held but the backend has no profile yet.
	StateRegistrationRequired SessionState = "registration_required"
)

// HoldsCredential reports whether a session in state s must hold a credential.
func (s SessionState) HoldsCredential() bool {
	return s == StateAuthenticated || s == StateRegistrationRequired
}

// SessionStatus is an immutable view of a session at one point in time.
type SessionStatus struct {
	State     SessionState
	LastError string
	User      UserProfile
	Epoch     uint64
}

// SessionSnapshot is the persisted form of a browser session.
type SessionSnapshot struct {
	ID         string
	State      SessionState
	Credential Credential
	Profile    *Profile
	LastError  string
	UpdatedAt  time.Time
}

// SnapshotStore persists session snapshots between process restarts.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot SessionSnapshot) error
	Get(ctx context.Context, id string) (SessionSnapshot, error)
	Delete(ctx context.Context, id string) error
}
