package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	scopectx "github.com/dtroode/gophfeed/internal/api/http/context"
	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/service"
)

// ScopeRegistry creates and looks up browser session scopes.
type ScopeRegistry interface {
	Create() *service.Scope
	Get(ctx context.Context, id string) (*service.Scope, error)
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Session attaches the browser session scope named by the session cookie to
// the request context, starting a new scope when the cookie is missing or unknown.
type Session struct {
	registry ScopeRegistry
	ctxMgr   *scopectx.Manager
	cookie   CookieConfig
	logger   *logger.Logger
}

func NewSession(registry ScopeRegistry, ctxMgr *scopectx.Manager, cookie CookieConfig, logger *logger.Logger) *Session {
	return &Session{
		registry: registry,
		ctxMgr:   ctxMgr,
		cookie:   cookie,
		logger:   logger,
	}
}

func (s *Session) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, err := s.lookup(r)
		if err != nil {
			s.logger.Error("Session middleware: failed to load session",
				"error", err.Error())
			writeError(w, http.StatusInternalServerError, "session_unavailable", "Session could not be loaded")
			return
		}

		if scope == nil {
			scope = s.registry.Create()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cookie.Name,
				Value:    scope.ID,
				Path:     "/",
				MaxAge:   int(s.cookie.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   s.cookie.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(s.ctxMgr.SetScopeToContext(r.Context(), scope)))
	})
}

// lookup returns nil without error when the request carries no usable session.
func (s *Session) lookup(r *http.Request) (*service.Scope, error) {
	cookie, err := r.Cookie(s.cookie.Name)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	scope, err := s.registry.Get(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return scope, nil
}
