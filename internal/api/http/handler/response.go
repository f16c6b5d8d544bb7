package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	scopectx "github.com/dtroode/gophfeed/internal/api/http/context"
	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/service"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON")
		return false
	}
	return true
}

// handleError maps service errors to JSON error responses.
func handleError(w http.ResponseWriter, err error) {
	var (
		resErr    *model.ResolutionError
		authErr   *model.AuthError
		reqErr    *model.RequestError
		uploadErr *model.UploadError
	)

	switch {
	case errors.As(err, &resErr):
		writeError(w, http.StatusBadGateway, "resolution_failed", "Your profile could not be loaded")
	case errors.As(err, &authErr):
		writeError(w, http.StatusUnauthorized, "auth_failed", model.UserMessage(err))
	case errors.As(err, &reqErr):
		code := reqErr.Code()
		if code == "" {
			code = "request_failed"
		}
		writeError(w, reqErr.Status, code, reqErr.Message())
	case errors.As(err, &uploadErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:   "upload_failed",
			Message: "The file could not be uploaded",
			Code:    uploadErr.Code,
		})
	case errors.Is(err, model.ErrNoCredential):
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Sign in to continue")
	case errors.Is(err, model.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", "This action is not available right now")
	case errors.Is(err, model.ErrStaleEpoch):
		writeError(w, http.StatusConflict, "session_changed", "Your session changed, try again")
	case errors.Is(err, model.ErrFetchInFlight):
		writeError(w, http.StatusConflict, "fetch_in_flight", "A page is already loading")
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Not found")
	case errors.Is(err, model.ErrFederatedFlow):
		writeError(w, http.StatusNotImplemented, "federated_unsupported", "Federated sign-in is not available")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "The request timed out")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "An unknown error occurred")
	}
}

type base struct {
	ctxMgr *scopectx.Manager
	logger *logger.Logger
}

func (b base) scope(w http.ResponseWriter, r *http.Request) (*service.Scope, bool) {
	scope, ok := b.ctxMgr.GetScopeFromContext(r.Context())
	if !ok {
		b.logger.Error("HTTP handler: request without session scope",
			"path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "session_missing", "Session is not available")
		return nil, false
	}
	return scope, true
}
