package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// FacebookProvider wraps golang.org/x/oauth2 for the Facebook Login
// authorization-code flow that backs the Instagram connect operation.
//
// The connect handler accepts either an access token directly (for users
// who bring one from the Meta developer console) or a login code, which
// this provider exchanges server-to-server for a token. The scopes cover
// reading the linked Instagram business account and publishing content
// to it.
type FacebookProvider struct {
	config *oauth2.Config
}

// NewFacebookProvider creates a FacebookProvider. callbackURL must match
// the redirect URI registered on the Meta app exactly.
func NewFacebookProvider(clientID, clientSecret, callbackURL string) *FacebookProvider {
	return &FacebookProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"instagram_basic",
				"instagram_content_publish",
				"pages_show_list",
			},
			Endpoint: facebook.Endpoint,
		},
	}
}

// AuthURL returns the URL to send the user to for authorization. The
// state value must be verified on callback.
func (p *FacebookProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for an access token.
func (p *FacebookProvider) Exchange(ctx context.Context, code string) (string, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("auth: exchanging facebook code: %w", err)
	}
	return token.AccessToken, nil
}
