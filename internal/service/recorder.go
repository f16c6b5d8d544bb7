package service

import "github.com/dtroode/gophfeed/internal/model"

// Recorder receives operational events for metrics.
type Recorder interface {
	SessionTransition(state model.SessionState)
	BackendFetch(resource string, err error)
	Upload(err error)
	ActiveSessions(n int)
}

type nopRecorder struct{}

func (nopRecorder) SessionTransition(model.SessionState) {}
func (nopRecorder) BackendFetch(string, error)           {}
func (nopRecorder) Upload(error)                         {}
func (nopRecorder) ActiveSessions(int)                   {}
