package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt reads the exp claim of an id token without verifying its signature.
// Verification is the backend's job; the client only needs to know when to refresh.
func ExpiresAt(idToken string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse id token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("id token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}


// Subject reads the sub claim of an id token without verifying its signature.
func Subject(idToken string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return "", fmt.Errorf("failed to parse id token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("id token has no sub claim")
	}
	return claims.Subject, nil
}
