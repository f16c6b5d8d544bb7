package handler

import (
	"net/http"
	"strings"

	scopectx "github.com/dtroode/gophfeed/internal/api/http/context"
	"github.com/dtroode/gophfeed/internal/guard"
	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
)

type statusResponse struct {
	State model.SessionState `json:"state"`
	Error string             `json:"error,omitempty"`
	User  *model.Profile     `json:"user,omitempty"`
}

func toStatusResponse(status model.SessionStatus) statusResponse {
	resp := statusResponse{State: status.State, Error: status.LastError}
	if p, ok := model.ProfileOf(status.User); ok {
		resp.User = &p
	}
	return resp
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutResponse struct {
	statusResponse
	Warning string `json:"warning,omitempty"`
}

type navigationResponse struct {
	Allow    bool   `json:"allow"`
	Pending  bool   `json:"pending"`
	Redirect string `json:"redirect,omitempty"`
}

// Session exposes the session state machine actions.
type Session struct {
	base
	policy guard.Policy
}

func NewSession(ctxMgr *scopectx.Manager, policy guard.Policy, logger *logger.Logger) *Session {
	return &Session{
		base:   base{ctxMgr: ctxMgr, logger: logger},
		policy: policy,
	}
}

// Status handles GET /api/session.
func (h *Session) Status(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(scope.Session.Status()))
}

// Navigate handles GET /api/session/navigate?path=.
func (h *Session) Navigate(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	path := r.URL.Query().Get("path")
	if !strings.HasPrefix(path, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "path must be absolute")
		return
	}

	d := h.policy.Evaluate(scope.Session.Status().State, path)
	writeJSON(w, http.StatusOK, navigationResponse{Allow: d.Allow, Pending: d.Pending, Redirect: d.Redirect})
}

// Login handles POST /api/session/login.
func (h *Session) Login(w http.ResponseWriter, r *http.Request) {
	h.credentialAction(w, r, "login")
}

// Register handles POST /api/session/register.
func (h *Session) Register(w http.ResponseWriter, r *http.Request) {
	h.credentialAction(w, r, "register")
}

func (h *Session) credentialAction(w http.ResponseWriter, r *http.Request, op string) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	var err error
	if op == "register" {
		err = scope.Session.Register(r.Context(), req.Email, req.Password)
	} else {
		err = scope.Session.Login(r.Context(), req.Email, req.Password)
	}
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(scope.Session.Status()))
}

// CompleteRegistration handles POST /api/session/complete-registration.
func (h *Session) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req model.RegistrationData
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Username == "" || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and displayName are required")
		return
	}

	if err := scope.Session.CompleteRegistration(r.Context(), req); err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(scope.Session.Status()))
}

// Logout handles POST /api/session/logout. The session is reset even when the
// provider revoke fails; the failure is reported as a warning.
func (h *Session) Logout(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	resp := logoutResponse{}
	if err := scope.Session.Logout(r.Context()); err != nil {
		resp.Warning = model.UserMessage(err)
	}
	resp.statusResponse = toStatusResponse(scope.Session.Status())

	writeJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /api/session/refresh.
func (h *Session) Refresh(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	scope.Session.RefreshUserProfile(r.Context())
	writeJSON(w, http.StatusOK, toStatusResponse(scope.Session.Status()))
}
