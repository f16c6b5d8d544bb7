package handler

import (
	"net/http"

	scopectx "github.com/dtroode/gophfeed/internal/api/http/context"
	"github.com/dtroode/gophfeed/internal/logger"
)

type pageResponse struct {
	Path    string         `json:"path"`
	Session statusResponse `json:"session"`
}

// Page answers navigations that passed the route guard with the session the
// page renders for.
type Page struct {
	base
}

func NewPage(ctxMgr *scopectx.Manager, logger *logger.Logger) *Page {
	return &Page{base: base{ctxMgr: ctxMgr, logger: logger}}
}

func (h *Page) Render(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Path:    r.URL.Path,
		Session: toStatusResponse(scope.Session.Status()),
	})
}
