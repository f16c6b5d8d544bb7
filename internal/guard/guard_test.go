package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtroode/gophfeed/internal/model"
)

func TestPolicy_Evaluate(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name  string
		state model.SessionState
		path  string
		want  Decision
	}{
		{"idle on login", model.StateIdle, "/login", Decision{Allow: true}},
		{"idle on register", model.StateIdle, "/register", Decision{Allow: true}},
		{"idle on home", model.StateIdle, "/", Decision{Redirect: "/login"}},
		{"unauthenticated on profile", model.StateUnauthenticated, "/profile/u1", Decision{Redirect: "/login"}},
		{"unauthenticated on completion", model.StateUnauthenticated, "/complete-profile", Decision{Redirect: "/login"}},
		{"loginx is not public", model.StateIdle, "/loginx", Decision{Redirect: "/login"}},
		{"loading is pending", model.StateLoading, "/", Decision{Pending: true}},
		{"registration on completion", model.StateRegistrationRequired, "/complete-profile", Decision{Allow: true}},
		{"registration on home", model.StateRegistrationRequired, "/", Decision{Redirect: "/complete-profile"}},
		{"registration on login", model.StateRegistrationRequired, "/login", Decision{Redirect: "/complete-profile"}},
		{"authenticated on home", model.StateAuthenticated, "/", Decision{Allow: true}},
		{"authenticated on post", model.StateAuthenticated, "/post/p1", Decision{Allow: true}},
		{"authenticated on login", model.StateAuthenticated, "/login", Decision{Redirect: "/"}},
		{"authenticated on register", model.StateAuthenticated, "/register", Decision{Redirect: "/"}},
		{"authenticated on completion", model.StateAuthenticated, "/complete-profile", Decision{Redirect: "/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Evaluate(tt.state, tt.path))
		})
	}
}
