package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
)

// UserInfoURL is Google's OpenID Connect userinfo endpoint.
const UserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Overrides for tests; zero values use Google's endpoints.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	HTTPClient  *http.Client
}

// Provider exchanges authorization codes with Google and reads the userinfo profile.
type Provider struct {
	oauth    *oauth2.Config
	userInfo string
	client   *http.Client
}

func NewProvider(cfg Config) *Provider {
	ep := cfg.Endpoint
	if ep.AuthURL == "" && ep.TokenURL == "" {
		ep = googleoauth.Endpoint
	}
	ui := cfg.UserInfoURL
	if ui == "" {
		ui = UserInfoURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     ep,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfo: ui,
		client:   hc,
	}
}

// Configured reports whether client credentials are present.
func (p *Provider) Configured() bool {
	return p != nil && p.oauth.ClientID != "" && p.oauth.ClientSecret != ""
}

func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// FetchIdentity exchanges code for a token and reads the caller's profile.
func (p *Provider) FetchIdentity(ctx context.Context, code string) (*entity.ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfo, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Google user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}

	var data struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode Google user response: %w", err)
	}
	if data.Email == "" || data.Sub == "" {
		return nil, errors.New("google userinfo missing email or sub")
	}
	return &entity.ExternalIdentity{
		Subject: data.Sub,
		Email:   data.Email,
		Name:    data.Name,
		Picture: data.Picture,
	}, nil
}
