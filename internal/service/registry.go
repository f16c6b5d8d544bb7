package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/token"
)

// Scope is everything that belongs to one browser session. It is created by
// the Registry and torn down when the session expires.
type Scope struct {
	ID      string
	Session *Session
	Content *Content
}

// Deps are the collaborators shared by every Scope.
type Deps struct {
	Provider    model.IdentityProvider
	API         model.BackendAPI
	Uploader    model.Uploader
	Recorder    Recorder
	Content     ContentConfig
	RefreshSkew time.Duration
}

type expirer interface {
	DeleteOlderThan(ctx context.Context, t time.Time) (int64, error)
}

type scopeEntry struct {
	scope    *Scope
	lastSeen time.Time
}

// Registry owns the scopes of all browser sessions and persists their
// session snapshots so they survive a restart.
type Registry struct {
	mu     sync.Mutex
	scopes map[string]*scopeEntry
	deps   Deps
	store  model.SnapshotStore
	ttl    time.Duration
	logger *logger.Logger
}

func NewRegistry(deps Deps, store model.SnapshotStore, ttl time.Duration, logger *logger.Logger) *Registry {
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &Registry{
		scopes: make(map[string]*scopeEntry),
		deps:   deps,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// Create starts a new idle scope with a fresh id.
func (r *Registry) Create() *Scope {
	scope := r.newScope(uuid.NewString(), nil)

	r.mu.Lock()
	r.scopes[scope.ID] = &scopeEntry{scope: scope, lastSeen: time.Now()}
	n := len(r.scopes)
	r.mu.Unlock()
	r.deps.Recorder.ActiveSessions(n)

	r.logger.Debug("Session registry: scope created",
		"session_id", scope.ID)
	return scope
}

// Get returns the scope of id, restoring it from the snapshot store when it is
// not in memory. It returns model.ErrNotFound for unknown ids.
func (r *Registry) Get(ctx context.Context, id string) (*Scope, error) {
	r.mu.Lock()
	if e, ok := r.scopes[id]; ok {
		e.lastSeen = time.Now()
		r.mu.Unlock()
		return e.scope, nil
	}
	r.mu.Unlock()

	snap, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		r.logger.Error("Session registry: failed to load snapshot",
			"session_id", id,
			"error", err.Error())
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}

	scope := r.newScope(id, &snap)

	r.mu.Lock()
	// another request may have restored it meanwhile
	if e, ok := r.scopes[id]; ok {
		e.lastSeen = time.Now()
		r.mu.Unlock()
		scope.Session.Close()
		return e.scope, nil
	}
	r.scopes[id] = &scopeEntry{scope: scope, lastSeen: time.Now()}
	n := len(r.scopes)
	r.mu.Unlock()
	r.deps.Recorder.ActiveSessions(n)

	r.logger.Info("Session registry: scope restored",
		"session_id", id,
		"state", scope.Session.Status().State)
	return scope, nil
}

// Len returns the number of scopes in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}

// Sweep tears down scopes idle for longer than the ttl. Their snapshots stay
// in the store until the store expires them.
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	var expired []*Scope
	for id, e := range r.scopes {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.scope)
			delete(r.scopes, id)
		}
	}
	n := len(r.scopes)
	r.mu.Unlock()
	r.deps.Recorder.ActiveSessions(n)

	for _, scope := range expired {
		scope.Session.Close()
		scope.Content.Reset()
	}

	if ex, ok := r.store.(expirer); ok {
		if n, err := ex.DeleteOlderThan(ctx, cutoff); err != nil {
			r.logger.Error("Session registry: failed to expire snapshots",
				"error", err.Error())
		} else if n > 0 {
			r.logger.Debug("Session registry: snapshots expired",
				"count", n)
		}
	}

	if len(expired) > 0 {
		r.logger.Info("Session registry: scopes swept",
			"count", len(expired))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(ctx, now)
		}
	}
}

// Close stops the refresh timers of every scope.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.scopes {
		e.scope.Session.Close()
	}
}

// newScope builds a scope, restoring snap first when given. The restore is
// not persisted back, so it runs without touching the store.
func (r *Registry) newScope(id string, snap *model.SessionSnapshot) *Scope {
	log := r.logger.With("session_id", id)
	tokens := token.NewStore()
	session := NewSession(r.deps.Provider, r.deps.API, tokens, r.deps.RefreshSkew, log)
	content := NewContent(r.deps.API, session, r.deps.Uploader, r.deps.Recorder, r.deps.Content, log)
	if snap != nil {
		session.Restore(*snap)
	}

	scope := &Scope{ID: id, Session: session, Content: content}
	session.Subscribe(func(status model.SessionStatus) {
		r.onTransition(scope, status)
	})
	return scope
}

// onTransition tears content down when a new identity starts and persists
// terminal states.
func (r *Registry) onTransition(scope *Scope, status model.SessionStatus) {
	r.deps.Recorder.SessionTransition(status.State)

	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	switch status.State {
	case model.StateLoading:
		scope.Content.Reset()
	case model.StateIdle:
		scope.Content.Reset()
		if err := r.store.Delete(ctx, scope.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
			r.logger.Error("Session registry: failed to delete snapshot",
				"session_id", scope.ID,
				"error", err.Error())
		}
	default:
		if err := r.store.Save(ctx, scope.Session.Snapshot(scope.ID)); err != nil {
			r.logger.Error("Session registry: failed to save snapshot",
				"session_id", scope.ID,
				"error", err.Error())
		}
	}
}
