package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
)

// ReasonRegistrationRequired is the backend error code of a valid credential
// that has no profile yet.
const ReasonRegistrationRequired = "registration_required"

// Resolution is the outcome of a profile lookup. Profile is set iff Exists.
type Resolution struct {
	Exists  bool
	Profile model.Profile
	Reason  string
}

// Resolver decides whether a credential belongs to a registered profile.
type Resolver struct {
	profiles model.ProfileAPI
	logger   *logger.Logger
}

func NewResolver(profiles model.ProfileAPI, logger *logger.Logger) *Resolver {
	return &Resolver{profiles: profiles, logger: logger}
}

// Resolve looks up the profile of idToken. Only a 403 carrying the
// registration_required code resolves to a missing profile; every other
// failure is returned as *model.ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, idToken string) (Resolution, error) {
	profile, err := r.profiles.GetMe(ctx, idToken)
	if err == nil {
		return Resolution{Exists: true, Profile: profile}, nil
	}

	var reqErr *model.RequestError
	if errors.As(err, &reqErr) && reqErr.Status == http.StatusForbidden && reqErr.Code() == ReasonRegistrationRequired {
		r.logger.Debug("Resolver: profile not registered yet")
		return Resolution{Reason: ReasonRegistrationRequired}, nil
	}

	r.logger.Error("Resolver: failed to resolve profile",
		"error", err.Error())
	return Resolution{}, &model.ResolutionError{Err: err}
}
