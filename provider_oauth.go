package drive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

const (
	defaultOAuthAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultOAuthTokenURL    = "https://oauth2.googleapis.com/token"
	defaultOAuthUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// DefaultOAuthScopes returns the default scopes for the OAuth provider
func DefaultOAuthScopes() []string {
	return []string{"openid", "email", "profile"}
}

// OAuthProvider implements the oauth variant of the sign in set: an
// authorization code flow against an external identity provider. The
// exchanged profile is matched to a local account by email, registering
// one on first login.
type OAuthProvider struct {
	config     OAuthConfig
	users      Users
	httpClient *http.Client
	logger     Logger
}

var _ SignInProvider = (*OAuthProvider)(nil)

// NewOAuthProvider creates the oauth sign in provider
func NewOAuthProvider(cfg OAuthConfig, users Users) *OAuthProvider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultOAuthScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultOAuthAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultOAuthTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultOAuthUserInfoURL
	}

	return &OAuthProvider{
		config:     cfg,
		users:      users,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     defLogger{},
	}
}

func (p *OAuthProvider) WithHTTPClient(client *http.Client) *OAuthProvider {
	if client != nil {
		p.httpClient = client
	}
	return p
}

func (p *OAuthProvider) WithLogger(l Logger) *OAuthProvider {
	p.logger = l
	return p
}

func (p *OAuthProvider) Kind() ProviderKind {
	return ProviderOAuth
}

// Initiate returns the authorization URL the client must visit
func (p *OAuthProvider) Initiate(ctx context.Context, req SignInRequest) (*Initiation, error) {
	return &Initiation{RedirectURL: p.AuthCodeURL(req.State)}, nil
}

// AuthCodeURL builds the authorization URL carrying the CSRF state
func (p *OAuthProvider) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(p.config.Scopes, " ")},
		"state":         {state},
		"access_type":   {"offline"},
	}

	return p.config.AuthURL + "?" + params.Encode()
}

// Verify trades the authorization code for a profile and resolves it to a
// local identity
func (p *OAuthProvider) Verify(ctx context.Context, req SignInRequest) (Identity, error) {
	accessToken, err := p.exchange(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	profile, err := p.userInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if profile.Email == "" {
		return nil, errors.New("identity provider returned no email", errors.CategoryAuth).
			WithTextCode("OAUTH_NO_EMAIL")
	}

	user, err := p.users.GetOrRegister(ctx, &User{
		Email:          profile.Email,
		FirstName:      profile.GivenName,
		LastName:       profile.FamilyName,
		ProfilePicture: profile.Picture,
		EmailValidated: profile.EmailVerified,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve oauth account")
	}

	return identityFromUser(user), nil
}

type oauthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

type oauthUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (p *OAuthProvider) exchange(ctx context.Context, code string) (string, error) {
	data := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.config.CallbackURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryOperation, "token exchange request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var tokenResp oauthTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", errors.Wrap(err, errors.CategoryOperation, "failed to decode token response")
	}

	if resp.StatusCode != http.StatusOK || tokenResp.Error != "" {
		return "", errors.New("token exchange rejected", errors.CategoryAuth).
			WithTextCode("OAUTH_EXCHANGE_FAILED").
			WithMetadata(map[string]any{
				"status":      resp.StatusCode,
				"error":       tokenResp.Error,
				"description": tokenResp.ErrorDesc,
			})
	}

	if tokenResp.AccessToken == "" {
		return "", errors.New("token exchange returned no access token", errors.CategoryAuth).
			WithTextCode("OAUTH_EXCHANGE_FAILED")
	}

	return tokenResp.AccessToken, nil
}

func (p *OAuthProvider) userInfo(ctx context.Context, accessToken string) (*oauthUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "userinfo request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("userinfo request rejected", errors.CategoryAuth).
			WithTextCode("OAUTH_USERINFO_FAILED").
			WithMetadata(map[string]any{"status": resp.StatusCode})
	}

	var info oauthUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to decode userinfo response")
	}

	return &info, nil
}
