package identity

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/dtroode/gophfeed/internal/model"
)

const (
	defaultGoogleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL = "https://oauth2.googleapis.com/token"

	// GoogleProviderID is the provider id the identity provider expects for Google assertions.
	GoogleProviderID = "google.com"
)

// GoogleConfig configures the Google OAuth2 code flow.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Overridable in tests.
	AuthURL  string
	TokenURL string
}

// GoogleFlow runs the OAuth2 authorization code flow with PKCE against Google
// and turns the result into a FederatedAssertion.
type GoogleFlow struct {
	config *oauth2.Config
}

// NewGoogleFlow creates a GoogleFlow.
func NewGoogleFlow(cfg GoogleConfig) *GoogleFlow {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultGoogleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultGoogleTokenURL
	}
	return &GoogleFlow{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"openid", "email", "profile"},
		},
	}
}

// NewVerifier returns a fresh PKCE code verifier.
func (g *GoogleFlow) NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL builds the consent page URL with state and the S256 challenge of verifier.
func (g *GoogleFlow) AuthCodeURL(state, verifier string) string {
	return g.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for a Google id token assertion.
func (g *GoogleFlow) Exchange(ctx context.Context, code, verifier string) (model.FederatedAssertion, error) {
	tok, err := g.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return model.FederatedAssertion{}, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return model.FederatedAssertion{}, fmt.Errorf("no id_token in token response")
	}

	return model.FederatedAssertion{
		ProviderID: GoogleProviderID,
		IDToken:    rawIDToken,
		RequestURI: g.config.RedirectURL,
	}, nil
}
