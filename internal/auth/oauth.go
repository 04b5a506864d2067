package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"notepipe/internal/config"
	"notepipe/internal/domain"
)

// GraphScopes are the delegated permissions the pipeline needs on OneDrive.
var GraphScopes = []string{"Files.ReadWrite", "offline_access"}

// GraphOAuthConfig returns the OAuth2 client configuration for Microsoft identity.
func GraphOAuthConfig(cfg config.GraphConfig) *oauth2.Config {
	tenant := cfg.Tenant
	if tenant == "" {
		tenant = "common"
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     microsoft.AzureADEndpoint(tenant),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       GraphScopes,
	}
}

// GraphHTTPClient returns an HTTP client that authorises requests with access
// tokens minted from the configured refresh token. Tokens are cached and
// refreshed when they expire.
func GraphHTTPClient(ctx context.Context, cfg config.GraphConfig) (*http.Client, error) {
	if cfg.RefreshToken == "" {
		return nil, fmt.Errorf("graph refresh token is not configured: %w", domain.ErrAuth)
	}
	ts := GraphOAuthConfig(cfg).TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return oauth2.NewClient(ctx, ts), nil
}

// IsTokenError reports whether err stems from a failed token refresh.
func IsTokenError(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	return errors.As(err, &retrieveErr)
}
