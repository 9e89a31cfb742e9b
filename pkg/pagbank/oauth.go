package pagbank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
)

// ConnectScopes is what the gateways need from a merchant account.
const ConnectScopes = "payments.read payments.create payments.refund"

// OAuthCredentials is a normalized token grant: expires_in has already been
// folded into an absolute expiration date.
type OAuthCredentials struct {
	ApplicationID  string            `json:"application_id"`
	Environment    enums.Environment `json:"environment"`
	AccessToken    string            `json:"access_token"`
	ExpirationDate time.Time         `json:"expiration_date"`
	RefreshToken   string            `json:"refresh_token"`
	Scope          string            `json:"scope"`
	AccountID      string            `json:"account_id"`
}

type oauthState struct {
	Verifier      string `json:"verifier"`
	ApplicationID string `json:"application_id"`
}

// AuthorizationURL builds the merchant consent URL and stashes the PKCE
// verifier under the state for the later code exchange. The state entry
// lives 15 minutes, same as the provider's consent window.
func (c *Client) AuthorizationURL(ctx context.Context, state string) (string, error) {
	if strings.TrimSpace(state) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "oauth state is required")
	}
	if c.redirectURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "connect redirect url is not configured")
	}

	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating pkce verifier")
	}

	stored, err := json.Marshal(oauthState{Verifier: verifier, ApplicationID: c.app.ID})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding oauth state")
	}
	if err := c.store.Set(ctx, c.store.OAuthStateKey(state), string(stored), oauthStateTTL); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing oauth state")
	}

	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", c.app.ID)
	query.Set("redirect_uri", c.redirectURL)
	query.Set("scope", ConnectScopes)
	query.Set("state", state)
	query.Set("code_challenge", CodeChallenge(verifier))
	query.Set("code_challenge_method", "S256")

	c.log(ctx, "request", "authorization_url", map[string]any{"state": state})
	return c.connectBase + "/oauth2/authorize?" + query.Encode(), nil
}

// ExchangeCode trades an authorization code for merchant credentials using
// the PKCE verifier stored under the state.
func (c *Client) ExchangeCode(ctx context.Context, state, code string) (*OAuthCredentials, error) {
	stateKey := c.store.OAuthStateKey(state)
	rawState, err := c.store.Get(ctx, stateKey)
	if err != nil || rawState == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "oauth state expired or unknown")
	}
	var pending oauthState
	if err := json.Unmarshal([]byte(rawState), &pending); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding oauth state")
	}

	app, ok := FindApplication(pending.ApplicationID)
	if !ok || app.Environment != c.environment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "oauth state references an unknown application")
	}

	body := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"redirect_uri":  c.redirectURL,
		"code_verifier": pending.Verifier,
	}

	c.log(ctx, "request", "exchange_code", map[string]any{"state": state})

	var token oauthTokenResponse
	err = c.do(ctx, http.MethodPost, c.connectBase+"/oauth2/token", "Pub "+app.AccessToken,
		body, http.StatusOK, &token, "exchange_code")
	if err != nil {
		return nil, err
	}

	// One exchange per consent.
	_ = c.store.Del(ctx, stateKey)

	creds := c.normalizeToken(app, token)
	c.log(ctx, "response", "exchange_code", map[string]any{"account_id": creds.AccountID})
	return creds, nil
}

// RefreshAccessToken trades a refresh token for a fresh grant.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*OAuthCredentials, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refresh token is required")
	}

	body := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}

	c.log(ctx, "request", "refresh_token", nil)

	var token oauthTokenResponse
	err := c.do(ctx, http.MethodPost, c.connectBase+"/oauth2/refresh", "Pub "+c.app.AccessToken,
		body, http.StatusOK, &token, "refresh_token")
	if err != nil {
		return nil, err
	}

	creds := c.normalizeToken(c.app, token)
	c.log(ctx, "response", "refresh_token", map[string]any{"account_id": creds.AccountID})
	return creds, nil
}

func (c *Client) normalizeToken(app Application, token oauthTokenResponse) *OAuthCredentials {
	return &OAuthCredentials{
		ApplicationID:  app.ID,
		Environment:    app.Environment,
		AccessToken:    token.AccessToken,
		ExpirationDate: time.Now().UTC().Add(time.Duration(token.ExpiresIn) * time.Second),
		RefreshToken:   token.RefreshToken,
		Scope:          token.Scope,
		AccountID:      token.AccountID,
	}
}
