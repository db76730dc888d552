package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"strap/internal/auth"
	"strap/internal/logger"

	"golang.org/x/oauth2"
	githubendpoint "golang.org/x/oauth2/github"
)

const (
	providerName = "github"

	defaultAPIBaseURL = "https://api.github.com"
	userAgent         = "strap"

	// GitHub profile payloads are small; anything larger is not a profile.
	maxResponseSize = 64 * 1024
)

var (
	ErrExchange = errors.New("github: token exchange failed")
	ErrProfile  = errors.New("github: profile lookup failed")
)

// Provider implements the OAuth 2.0 web flow against GitHub.
// GitHub OAuth apps issue no ID token, so the identity is assembled
// from the REST API with the freshly issued access token.
type Provider struct {
	oauthConfig *oauth2.Config
	apiBaseURL  string
	httpClient  *http.Client
}

type Option func(*Provider)

// WithEndpoint overrides the authorize and token URLs.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(p *Provider) {
		p.oauthConfig.Endpoint = ep
	}
}

// WithAPIBaseURL overrides https://api.github.com.
func WithAPIBaseURL(u string) Option {
	return func(p *Provider) {
		p.apiBaseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the client used for the token exchange and API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// New builds the GitHub provider. redirectURL may be empty, in which case
// GitHub uses the callback URL registered on the OAuth app.
func New(
	clientID string,
	clientSecret string,
	redirectURL string,
	opts ...Option,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" {
		return nil, errors.New("github oauth config missing required fields")
	}

	p := &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     githubendpoint.Endpoint,
			Scopes: []string{
				"user:email",
				"repo",
			},
		},
		apiBaseURL: defaultAPIBaseURL,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.VerifierOption(codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchange, err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrExchange)
	}

	client := p.oauthConfig.Client(ctx, token)

	var user struct {
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := p.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, err
	}

	email := user.Email
	primary, err := p.primaryEmail(ctx, client)
	if err != nil {
		// user:email was not granted or the endpoint failed; the public
		// profile email is still usable.
		logger.Warn("github primary email lookup failed", map[string]any{
			"login": user.Login,
			"error": err.Error(),
		})
	} else if primary != "" {
		email = primary
	}

	logger.Info("github identity resolved", map[string]any{
		"login":         user.Login,
		"name_present":  user.Name != "",
		"email_present": email != "",
	})

	return &auth.Identity{
		Provider: providerName,
		Login:    user.Login,
		Name:     user.Name,
		Email:    email,
		Token:    token.AccessToken,
	}, nil
}

func (p *Provider) primaryEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func (p *Provider) getJSON(ctx context.Context, client *http.Client, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProfile, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProfile, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrProfile, path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrProfile, path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrProfile, path, err)
	}
	return nil
}
