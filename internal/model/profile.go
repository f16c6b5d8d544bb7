package model

import "time"

// Profile is the backend-owned user record.
type Profile struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	DisplayName       string    `json:"displayName"`
	ProfilePictureURL string    `json:"profilePictureUrl,omitempty"`
	Bio               string    `json:"bio,omitempty"`
	Email             string    `json:"email,omitempty"`
	Location          string    `json:"location,omitempty"`
	Website           string    `json:"website,omitempty"`
	CreatedAt         time.Time `json:"createdAt,omitempty"`
}

// UserProfile is either Anonymous or Authenticated.
type UserProfile interface {
	isUserProfile()
}

// Anonymous is the user of a session without a resolved profile.
type Anonymous struct{}

// Authenticated is the user of a session with a resolved profile.
type Authenticated struct {
	Profile Profile
}

func (Anonymous) isUserProfile()     {}
func (Authenticated) isUserProfile() {}

// ProfileOf returns the profile held by u, if any.
func ProfileOf(u UserProfile) (Profile, bool) {
	if a, ok := u.(Authenticated); ok {
		return a.Profile, true
	}
	return Profile{}, false
}

// RegistrationData is the payload that completes a registration.
type RegistrationData struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio,omitempty"`
}

// ProfileUpdate carries the profile fields to change. Nil fields are left untouched.
type ProfileUpdate struct {
	Username          *string `json:"username,omitempty"`
	DisplayName       *string `json:"displayName,omitempty"`
	Bio               *string `json:"bio,omitempty"`
	ProfilePictureURL *string `json:"profilePictureUrl,omitempty"`
	Location          *string `json:"location,omitempty"`
	Website           *string `json:"website,omitempty"`
}
