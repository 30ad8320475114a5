// Package oauth implements the client side of the authorization-code login
// flow against configured external providers.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"serwis-uzytkownikow/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

var (
	ErrUnknownProvider = errors.New("unknown oauth provider")
	ErrInvalidState    = errors.New("invalid or expired oauth state")
)

const defaultStateTTL = 15 * time.Minute

// Identity is the provider-verified assertion extracted from the userinfo
// endpoint after a successful code exchange.
type Identity struct {
	Provider string
	Subject  string
	Email    string
}

type Provider struct {
	Name        string
	Conf        *oauth2.Config
	UserInfoURL string
}

type Client struct {
	providers  map[string]*Provider
	states     *stateStore
	httpClient *http.Client
}

func NewClient(cfg config.OAuthConfig) *Client {
	providers := make(map[string]*Provider, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		providers[strings.ToLower(name)] = buildProvider(strings.ToLower(name), pc)
	}
	return &Client{
		providers:  providers,
		states:     newStateStore(defaultStateTTL),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func buildProvider(name string, pc config.OAuthProvider) *Provider {
	endpoint := oauth2.Endpoint{AuthURL: pc.AuthURL, TokenURL: pc.TokenURL}
	userInfoURL := pc.UserInfoURL
	scopes := pc.Scopes

	// Well-known providers need only credentials in the config file.
	switch name {
	case "google":
		if endpoint.AuthURL == "" {
			endpoint = endpoints.Google
		}
		if userInfoURL == "" {
			userInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
		}
		if len(scopes) == 0 {
			scopes = []string{"openid", "email"}
		}
	case "github":
		if endpoint.AuthURL == "" {
			endpoint = endpoints.GitHub
		}
		if userInfoURL == "" {
			userInfoURL = "https://api.github.com/user"
		}
		if len(scopes) == 0 {
			scopes = []string{"user:email"}
		}
	}

	return &Provider{
		Name: name,
		Conf: &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  pc.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		UserInfoURL: userInfoURL,
	}
}

// AuthCodeURL starts a login flow: it issues a one-time state token and
// returns the provider URL to redirect the client to.
func (c *Client) AuthCodeURL(providerName string) (string, error) {
	provider, ok := c.providers[strings.ToLower(providerName)]
	if !ok {
		return "", ErrUnknownProvider
	}

	state, err := c.states.Issue(provider.Name)
	if err != nil {
		return "", err
	}

	return provider.Conf.AuthCodeURL(state), nil
}

// Exchange completes the flow: validates the state, trades the code for a
// token and resolves the userinfo endpoint into an Identity.
func (c *Client) Exchange(ctx context.Context, providerName, state, code string) (*Identity, error) {
	provider, ok := c.providers[strings.ToLower(providerName)]
	if !ok {
		return nil, ErrUnknownProvider
	}

	if !c.states.Consume(state, provider.Name) {
		return nil, ErrInvalidState
	}

	token, err := provider.Conf.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	return c.fetchIdentity(ctx, provider, token.AccessToken)
}

func (c *Client) fetchIdentity(ctx context.Context, provider *Provider, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("userinfo request failed")
	}

	var payload struct {
		Sub   string      `json:"sub"`
		ID    json.Number `json:"id"`
		Email string      `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	subject := payload.Sub
	if subject == "" {
		subject = payload.ID.String()
	}
	if subject == "" {
		return nil, errors.New("userinfo response has no subject id")
	}

	return &Identity{
		Provider: provider.Name,
		Subject:  subject,
		Email:    payload.Email,
	}, nil
}

// HasProvider reports whether a provider with this name is configured.
func (c *Client) HasProvider(name string) bool {
	_, ok := c.providers[strings.ToLower(name)]
	return ok
}
