package whoop

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
)

// OAuth2 endpoints for the vendor's authorization server.
const (
	defaultAuthURL  = "https://api.prod.whoop.com/oauth/oauth2/auth"
	defaultTokenURL = "https://api.prod.whoop.com/oauth/oauth2/token" //nolint:gosec // endpoint URL, not a credential

	// revokePath removes the integration's access grant for the current
	// token's user. Best effort — disconnect proceeds regardless.
	revokePath = "/v1/user/access"
)

// defaultScopes is the fixed scope set requested during authorization.
// offline yields a refresh token; the read scopes cover every fetcher.
var defaultScopes = []string{
	"offline",
	"read:workout",
	"read:recovery",
	"read:sleep",
	"read:cycles",
	"read:profile",
	"read:body_measurement",
}

// AuthConfig identifies the registered OAuth2 application.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// AuthURL/TokenURL override the production endpoints. Tests point these
	// at an httptest server.
	AuthURL  string
	TokenURL string
}

// Authenticator implements the authorization-code flow against the vendor:
// authorization URL construction, code exchange, and refresh-token grants.
type Authenticator struct {
	cfg    *oauth2.Config
	logger *slog.Logger
}

// NewAuthenticator builds an Authenticator from the app registration.
func NewAuthenticator(ac AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}

	authURL := ac.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}

	tokenURL := ac.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	return &Authenticator{
		cfg: &oauth2.Config{
			ClientID:     ac.ClientID,
			ClientSecret: ac.ClientSecret,
			RedirectURL:  ac.RedirectURL,
			Scopes:       defaultScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		logger: logger,
	}
}

// AuthorizationURL returns the URL the user visits to grant access.
// state is the caller-generated CSRF token, echoed back on the callback.
func (a *Authenticator) AuthorizationURL(state string) string {
	return a.cfg.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens.
func (a *Authenticator) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	tok, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		a.logger.Warn("code exchange failed", slog.String("error", err.Error()))
		return nil, newAPIError(0, "code exchange: "+err.Error())
	}

	a.logger.Info("code exchange succeeded", slog.Time("expiry", tok.Expiry))

	return fromOAuth2Token(tok), nil
}

// Refresh performs a refresh_token grant and returns the new token pair.
// The vendor rotates refresh tokens; callers must persist the returned
// RefreshToken, not reuse the old one.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	src := a.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		a.logger.Warn("token refresh failed", slog.String("error", err.Error()))
		return nil, newAPIError(0, "token refresh: "+err.Error())
	}

	a.logger.Info("token refreshed", slog.Time("expiry", tok.Expiry))

	return fromOAuth2Token(tok), nil
}

// Revoke asks the vendor to drop the integration's access grant.
// Best effort: callers log failures and continue.
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodDelete, accessToken, revokePath)
}

// fromOAuth2Token converts the library token to the package's own type so
// downstream packages never import oauth2.
func fromOAuth2Token(tok *oauth2.Token) *Token {
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
}
