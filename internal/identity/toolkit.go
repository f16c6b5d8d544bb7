package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
)

const (
	defaultToolkitBaseURL  = "https://identitytoolkit.googleapis.com/v1"
	defaultToolkitTokenURL = "https://securetoken.googleapis.com/v1/token"
)

var _ model.IdentityProvider = (*Toolkit)(nil)

// ToolkitConfig configures the Identity Toolkit REST provider.
type ToolkitConfig struct {
	APIKey     string
	BaseURL    string
	TokenURL   string
	HTTPClient *http.Client
}

// Toolkit is an IdentityProvider backed by the Identity Toolkit REST API
// (the API behind Firebase Authentication).
type Toolkit struct {
	cfg    ToolkitConfig
	client *http.Client
	logger *logger.Logger
}

// NewToolkit creates a Toolkit provider.
func NewToolkit(cfg ToolkitConfig, logger *logger.Logger) *Toolkit {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultToolkitBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultToolkitTokenURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Toolkit{cfg: cfg, client: client, logger: logger}
}

// ProviderError is an error response of the identity provider.
type ProviderError struct {
	Status int
	Code   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider responded with status %d: %s", e.Status, e.Code)
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	LocalID      string `json:"localId"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithPassword signs an existing account in.
func (t *Toolkit) SignInWithPassword(ctx context.Context, email, password string) (model.Credential, error) {
	return t.signIn(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// CreateUser creates a new account and signs it in.
func (t *Toolkit) CreateUser(ctx context.Context, email, password string) (model.Credential, error) {
	return t.signIn(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// SignInWithFederated exchanges a federated provider's id token for a credential.
func (t *Toolkit) SignInWithFederated(ctx context.Context, assertion model.FederatedAssertion) (model.Credential, error) {
	postBody := url.Values{
		"id_token":   {assertion.IDToken},
		"providerId": {assertion.ProviderID},
	}
	return t.signIn(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          assertion.RequestURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	})
}

// Refresh exchanges a refresh token for a new credential pair.
func (t *Toolkit) Refresh(ctx context.Context, refreshToken string) (model.Credential, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	endpoint := t.cfg.TokenURL + "?key=" + url.QueryEscape(t.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return model.Credential{}, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out refreshResponse
	if err := t.do(req, &out); err != nil {
		return model.Credential{}, fmt.Errorf("failed to refresh token: %w", err)
	}
	if out.IDToken == "" {
		return model.Credential{}, fmt.Errorf("empty id token in refresh response")
	}

	return model.Credential{IDToken: out.IDToken, RefreshToken: out.RefreshToken}, nil
}

// SignOut ends the provider session. End-user sessions of the Identity Toolkit
// are client-side only, so there is nothing to revoke remotely.
func (t *Toolkit) SignOut(_ context.Context, _ model.Credential) error {
	t.logger.Debug("Identity toolkit: sign out is local only")
	return nil
}

func (t *Toolkit) signIn(ctx context.Context, method string, payload map[string]any) (model.Credential, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.Credential{}, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", t.cfg.BaseURL, method, url.QueryEscape(t.cfg.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Credential{}, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out signInResponse
	if err := t.do(req, &out); err != nil {
		t.logger.Debug("Identity toolkit: request failed",
			"method", method,
			"error", err.Error())
		return model.Credential{}, fmt.Errorf("failed to call %s: %w", method, err)
	}
	if out.IDToken == "" {
		return model.Credential{}, fmt.Errorf("empty id token in %s response", method)
	}

	return model.Credential{IDToken: out.IDToken, RefreshToken: out.RefreshToken}, nil
}

func (t *Toolkit) do(req *http.Request, out any) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		code := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			code = errResp.Error.Message
		}
		return &ProviderError{Status: resp.StatusCode, Code: code}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
