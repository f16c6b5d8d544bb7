// Package guard decides where a browser may navigate given its session state.
package guard

import (
	"strings"

	"github.com/dtroode/gophfeed/internal/model"
)

// Decision is the outcome of evaluating a path against a session state.
// Exactly one of Allow, Pending or a non-empty Redirect holds.
type Decision struct {
	Allow    bool
	Pending  bool
	Redirect string
}

// Policy maps session states to the paths they may visit.
type Policy struct {
	LoginPath      string
	HomePath       string
	CompletionPath string
	// Public are the path prefixes reachable without a session, LoginPath included.
	Public []string
}

// DefaultPolicy is the navigation policy of the web client.
func DefaultPolicy() Policy {
	return Policy{
		LoginPath:      "/login",
		HomePath:       "/",
		CompletionPath: "/complete-profile",
		Public:         []string{"/login", "/register"},
	}
}

// Evaluate derives the allowed destination from state alone.
func (p Policy) Evaluate(state model.SessionState, path string) Decision {
	switch state {
	case model.StateLoading:
		return Decision{Pending: true}

	case model.StateRegistrationRequired:
		if matches(path, p.CompletionPath) {
			return Decision{Allow: true}
		}
		return Decision{Redirect: p.CompletionPath}

	case model.StateAuthenticated:
		if p.isPublic(path) || matches(path, p.CompletionPath) {
			return Decision{Redirect: p.HomePath}
		}
		return Decision{Allow: true}

	default:
		if p.isPublic(path) {
			return Decision{Allow: true}
		}
		return Decision{Redirect: p.LoginPath}
	}
}

func (p Policy) isPublic(path string) bool {
	for _, prefix := range p.Public {
		if matches(path, prefix) {
			return true
		}
	}
	return false
}

// matches reports whether path is prefix or lies below it.
func matches(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}
