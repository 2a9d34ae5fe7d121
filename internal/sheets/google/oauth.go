package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// OAuthConfig holds installed-app credentials, used instead of a service
// account when the spreadsheet belongs to a personal Google account.
type OAuthConfig struct {
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

// Enabled reports whether an OAuth client was configured.
func (c OAuthConfig) Enabled() bool {
	return strings.TrimSpace(c.ClientJSON) != "" || strings.TrimSpace(c.ClientFile) != ""
}

// LoadOAuthClient builds the OAuth2 config for the Sheets scope.
func LoadOAuthClient(c OAuthConfig) (*oauth2.Config, error) {
	var b []byte
	switch {
	case strings.TrimSpace(c.ClientJSON) != "":
		b = []byte(c.ClientJSON)
	case strings.TrimSpace(c.ClientFile) != "":
		var err error
		if b, err = os.ReadFile(c.ClientFile); err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
	default:
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	cfg, err := goauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// LoadOAuthToken reads the token saved by vozruta-oauth-init.
func LoadOAuthToken(c OAuthConfig) (*oauth2.Token, error) {
	var b []byte
	switch {
	case strings.TrimSpace(c.TokenJSON) != "":
		b = []byte(c.TokenJSON)
	case strings.TrimSpace(c.TokenFile) != "":
		var err error
		if b, err = os.ReadFile(c.TokenFile); err != nil {
			return nil, fmt.Errorf("read oauth token file: %w", err)
		}
	default:
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return &tok, nil
}

// SaveOAuthToken writes tok readable by the owner only.
func SaveOAuthToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// oauthTokenSource refreshes the saved token as needed.
func oauthTokenSource(ctx context.Context, c OAuthConfig) (oauth2.TokenSource, error) {
	cfg, err := LoadOAuthClient(c)
	if err != nil {
		return nil, err
	}
	tok, err := LoadOAuthToken(c)
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}
