package drive

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// MailConfig holds the SMTP transport settings
type MailConfig struct {
	Host     string `json:"host" koanf:"host"`
	Port     int    `json:"port" koanf:"port"`
	Username string `json:"username" koanf:"username"`
	Password string `json:"password" koanf:"password"`
	From     string `json:"from" koanf:"from"`
}

// OAuthConfig holds the settings for the OAuth sign in provider
type OAuthConfig struct {
	ClientID     string   `json:"client_id" koanf:"client_id"`
	ClientSecret string   `json:"client_secret" koanf:"client_secret"`
	CallbackURL  string   `json:"callback_url" koanf:"callback_url"`
	Scopes       []string `json:"scopes" koanf:"scopes"`

	AuthURL     string `json:"auth_url" koanf:"auth_url"`
	TokenURL    string `json:"token_url" koanf:"token_url"`
	UserInfoURL string `json:"user_info_url" koanf:"user_info_url"`
}

// BillingConfig holds the payment processor settings
type BillingConfig struct {
	APIKey           string `json:"api_key" koanf:"api_key"`
	DefaultPlan      string `json:"default_plan" koanf:"default_plan"`
	PortalReturnPath string `json:"portal_return_path" koanf:"portal_return_path"`
}

// Config holds every external input the service needs. It is constructed
// once at startup and passed into the HTTP layer explicitly; there is no
// process wide configuration singleton.
type Config struct {
	// SigningKey signs session tokens
	SigningKey string `json:"signing_key" koanf:"signing_key"`
	// TokenExpiration is the session validity window in hours
	TokenExpiration int `json:"token_expiration" koanf:"token_expiration"`
	// ExtendedTokenExpiration is the cookie lifetime in hours for logins
	// that ask to be remembered; falls back to TokenExpiration
	ExtendedTokenExpiration int      `json:"extended_token_expiration" koanf:"extended_token_expiration"`
	Issuer                  string   `json:"issuer" koanf:"issuer"`
	Audience                []string `json:"audience" koanf:"audience"`
	// ContextKey names the cookie and the request local holding the session
	ContextKey string `json:"context_key" koanf:"context_key"`
	// RejectedRouteKey names the cookie remembering the route that rejected us
	RejectedRouteKey     string `json:"rejected_route_key" koanf:"rejected_route_key"`
	RejectedRouteDefault string `json:"rejected_route_default" koanf:"rejected_route_default"`

	// BaseURL is the site origin; the redirect guard falls back to it
	BaseURL string `json:"base_url" koanf:"base_url"`
	// SignOutPath is the sign out endpoint the redirect guard special cases
	SignOutPath string `json:"sign_out_path" koanf:"sign_out_path"`

	// MagicLinkPath is the endpoint that consumes emailed sign in links
	MagicLinkPath string `json:"magic_link_path" koanf:"magic_link_path"`
	// MagicLinkTTL is the verification token validity window, e.g. "24h"
	MagicLinkTTL string `json:"magic_link_ttl" koanf:"magic_link_ttl"`

	Mail    MailConfig    `json:"mail" koanf:"mail"`
	OAuth   OAuthConfig   `json:"oauth" koanf:"oauth"`
	Billing BillingConfig `json:"billing" koanf:"billing"`
}

// SessionTokenHours is the default session validity window: 90 days.
const SessionTokenHours = 24 * 90

// SetDefaults fills zero values with working defaults
func (c *Config) SetDefaults() *Config {
	if c.TokenExpiration == 0 {
		c.TokenExpiration = SessionTokenHours
	}
	if c.ContextKey == "" {
		c.ContextKey = "session"
	}
	if c.RejectedRouteKey == "" {
		c.RejectedRouteKey = "rejected_route"
	}
	if c.RejectedRouteDefault == "" {
		c.RejectedRouteDefault = "/"
	}
	if c.SignOutPath == "" {
		c.SignOutPath = "/logout"
	}
	if c.MagicLinkPath == "" {
		c.MagicLinkPath = "/auth/magic"
	}
	if c.MagicLinkTTL == "" {
		c.MagicLinkTTL = "24h"
	}
	return c
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.TokenExpiration, validation.Required, validation.Min(1)),
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.ContextKey, validation.Required),
	)
}
