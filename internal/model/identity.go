package model

import "context"

// FederatedAssertion is the proof obtained from a federated identity provider
// (for example a Google id token) that is exchanged for a Credential.
type FederatedAssertion struct {
	ProviderID string
	IDToken    string
	RequestURI string
}

// IdentityProvider verifies user credentials and issues token pairs.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (Credential, error)
	CreateUser(ctx context.Context, email, password string) (Credential, error)
	SignInWithFederated(ctx context.Context, assertion FederatedAssertion) (Credential, error)
	Refresh(ctx context.Context, refreshToken string) (Credential, error)
	SignOut(ctx context.Context, credential Credential) error
}
