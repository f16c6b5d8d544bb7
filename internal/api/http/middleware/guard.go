package middleware

import (
	"net/http"

	scopectx "github.com/dtroode/gophfeed/internal/api/http/context"
	"github.com/dtroode/gophfeed/internal/guard"
	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/service"
)

const retryAfterSeconds = "1"

// Guard enforces the navigation policy on page routes and requires an
// authenticated session on content API routes.
type Guard struct {
	policy guard.Policy
	ctxMgr *scopectx.Manager
	logger *logger.Logger
}

func NewGuard(policy guard.Policy, ctxMgr *scopectx.Manager, logger *logger.Logger) *Guard {
	return &Guard{
		policy: policy,
		ctxMgr: ctxMgr,
		logger: logger,
	}
}

// Pages redirects navigations the session state does not allow.
func (g *Guard) Pages(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, ok := g.ctxMgr.GetScopeFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "session_missing", "Session is not available")
			return
		}

		decision := g.policy.Evaluate(scope.Session.Status().State, r.URL.Path)
		switch {
		case decision.Pending:
			w.Header().Set("Retry-After", retryAfterSeconds)
			writeError(w, http.StatusServiceUnavailable, "session_pending", "Sign-in is in progress")
		case decision.Redirect != "":
			g.logger.Debug("Guard middleware: redirecting",
				"path", r.URL.Path,
				"to", decision.Redirect)
			http.Redirect(w, r, decision.Redirect, http.StatusFound)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// Authenticated rejects requests of sessions that are not authenticated.
func (g *Guard) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, ok := g.ctxMgr.GetScopeFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "session_missing", "Session is not available")
			return
		}

		switch scope.Session.Status().State {
		case model.StateAuthenticated:
			next.ServeHTTP(w, r)
		case model.StateLoading:
			w.Header().Set("Retry-After", retryAfterSeconds)
			writeError(w, http.StatusServiceUnavailable, "session_pending", "Sign-in is in progress")
		case model.StateRegistrationRequired:
			writeError(w, http.StatusForbidden, service.ReasonRegistrationRequired, "Complete your profile to continue")
		default:
			writeError(w, http.StatusUnauthorized, "unauthenticated", "Sign in to continue")
		}
	})
}
