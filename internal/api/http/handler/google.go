package handler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	scopectx "github.com/dtroode/gophfeed/internal/api/http/context"
	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
)

const (
	oauthStateCookie    = "gophfeed_oauth_state"
	oauthVerifierCookie = "gophfeed_oauth_verifier"
	oauthCookiePath     = "/auth/google"
	oauthCookieMaxAge   = 10 * time.Minute
)

// OAuthFlow is an authorization code flow with PKCE yielding a federated assertion.
type OAuthFlow interface {
	NewVerifier() string
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (model.FederatedAssertion, error)
}

// Google runs the federated sign-in redirect dance.
type Google struct {
	base
	flow      OAuthFlow
	secure    bool
	loginPath string
	homePath  string
}

func NewGoogle(flow OAuthFlow, ctxMgr *scopectx.Manager, secure bool, loginPath, homePath string, logger *logger.Logger) *Google {
	return &Google{
		base:      base{ctxMgr: ctxMgr, logger: logger},
		flow:      flow,
		secure:    secure,
		loginPath: loginPath,
		homePath:  homePath,
	}
}

// Start handles GET /auth/google.
func (h *Google) Start(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	verifier := h.flow.NewVerifier()

	h.setCookie(w, oauthStateCookie, state, int(oauthCookieMaxAge.Seconds()))
	h.setCookie(w, oauthVerifierCookie, verifier, int(oauthCookieMaxAge.Seconds()))

	http.Redirect(w, r, h.flow.AuthCodeURL(state, verifier), http.StatusFound)
}

// Callback handles GET /auth/google/callback.
func (h *Google) Callback(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != q.Get("state") {
		h.logger.Warn("Google handler: oauth state mismatch")
		writeError(w, http.StatusBadRequest, "invalid_state", "Sign-in request could not be verified")
		return
	}
	verifierCookie, err := r.Cookie(oauthVerifierCookie)
	if err != nil || verifierCookie.Value == "" {
		writeError(w, http.StatusBadRequest, "invalid_state", "Sign-in request could not be verified")
		return
	}

	h.setCookie(w, oauthStateCookie, "", -1)
	h.setCookie(w, oauthVerifierCookie, "", -1)

	if reason := q.Get("error"); reason != "" {
		h.logger.Info("Google handler: consent not granted",
			"reason", reason)
		h.redirectToLogin(w, r, reason)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing authorization code")
		return
	}

	assertion, err := h.flow.Exchange(r.Context(), code, verifierCookie.Value)
	if err != nil {
		h.logger.Error("Google handler: code exchange failed",
			"error", err.Error())
		h.redirectToLogin(w, r, "exchange_failed")
		return
	}

	if err := scope.Session.LoginWithGoogle(r.Context(), assertion); err != nil {
		h.redirectToLogin(w, r, model.UserMessage(err))
		return
	}

	// the page guard sends registration_required sessions on to profile completion
	http.Redirect(w, r, h.homePath, http.StatusFound)
}

func (h *Google) redirectToLogin(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.loginPath+"?error="+url.QueryEscape(reason), http.StatusFound)
}

func (h *Google) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     oauthCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
