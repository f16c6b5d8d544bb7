package context

import (
	"context"

	"github.com/dtroode/gophfeed/internal/service"
)

type scopeKey struct{}

// Manager stores and retrieves the browser session scope of a request.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetScopeToContext returns a copy of ctx carrying scope.
func (m *Manager) SetScopeToContext(ctx context.Context, scope *service.Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// GetScopeFromContext returns the scope attached by SetScopeToContext.
func (m *Manager) GetScopeFromContext(ctx context.Context) (*service.Scope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(*service.Scope)
	if !ok || scope == nil {
		return nil, false
	}
	return scope, true
}
