// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package salesforce is the source-side adapter: it exchanges the
// credential bundle for an access token and pages through the org's
// published knowledge articles.
package salesforce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/kb-sync/pkg/types"
)

// loginBase is the OAuth2 token endpoint host. Declared as a var so tests
// can substitute an httptest server.
var loginBase = "https://login.salesforce.com"

const tokenPath = "/services/oauth2/token"

// tokenResponse is the org's answer to a password-grant request. On
// rejection the error fields are set instead of the token.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	InstanceURL      string `json:"instance_url"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Authenticate performs the OAuth2 password grant and returns the issued
// token with the org's instance URL. The security token, when present, is
// appended to the password as the grant requires. One outbound call, no
// retry: a rejected grant is fatal to the run.
func Authenticate(ctx context.Context, client *http.Client, creds types.Credentials, cfg types.HTTPConfig) (types.Token, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"username":      {creds.Username},
		"password":      {creds.Password + creds.SecurityToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginBase+tokenPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return types.Token{}, &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return types.Token{}, &AuthError{Err: err}
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return types.Token{}, &AuthError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK || tr.AccessToken == "" {
		detail := tr.ErrorDescription
		if detail == "" {
			detail = tr.Error
		}
		return types.Token{}, &AuthError{StatusCode: resp.StatusCode, Detail: detail}
	}

	return types.Token{
		AccessToken: tr.AccessToken,
		InstanceURL: tr.InstanceURL,
	}, nil
}
