package drive

import (
	"context"

	"github.com/goliatone/go-errors"
)

// ProviderKind tags a sign in provider. The set is closed: credentials,
// oauth, and email are the only variants.
type ProviderKind string

const (
	// ProviderCredentials is email + password sign in
	ProviderCredentials ProviderKind = "credentials"
	// ProviderOAuth is authorization code sign in through an external IdP
	ProviderOAuth ProviderKind = "oauth"
	// ProviderEmail is magic link sign in
	ProviderEmail ProviderKind = "email"
)

// SignInRequest carries every input a provider may need; each variant
// reads only its own fields.
type SignInRequest struct {
	Identifier string
	Password   string
	// Token is the magic link secret lifted from the emailed URL
	Token string
	// Code is the OAuth authorization code from the callback
	Code  string
	State string
}

// Initiation describes the side effect of starting a sign in
type Initiation struct {
	// RedirectURL is where the client must be sent to continue, if anywhere
	RedirectURL string
	// Delivered reports that an out of band message went out
	Delivered bool
}

// SignInProvider is the shared contract of the closed provider set
type SignInProvider interface {
	Kind() ProviderKind
	Initiate(ctx context.Context, req SignInRequest) (*Initiation, error)
	Verify(ctx context.Context, req SignInRequest) (Identity, error)
}

// ProviderSet holds the configured providers, closed at construction
type ProviderSet struct {
	providers map[ProviderKind]SignInProvider
}

// NewProviderSet indexes the given providers by kind
func NewProviderSet(providers ...SignInProvider) *ProviderSet {
	set := &ProviderSet{
		providers: make(map[ProviderKind]SignInProvider, len(providers)),
	}
	for _, p := range providers {
		if p != nil {
			set.providers[p.Kind()] = p
		}
	}
	return set
}

// Get returns the provider for the kind, or an error if not configured
func (s *ProviderSet) Get(kind ProviderKind) (SignInProvider, error) {
	p, ok := s.providers[kind]
	if !ok {
		return nil, errors.New("sign in provider not configured", errors.CategoryBadInput).
			WithTextCode("UNKNOWN_PROVIDER").
			WithMetadata(map[string]any{"provider": string(kind)})
	}
	return p, nil
}

// Kinds lists the configured provider kinds
func (s *ProviderSet) Kinds() []ProviderKind {
	kinds := make([]ProviderKind, 0, len(s.providers))
	for k := range s.providers {
		kinds = append(kinds, k)
	}
	return kinds
}

type credentialsProvider struct {
	identities IdentityProvider
}

// NewCredentialsProvider wraps an IdentityProvider as a sign in provider
func NewCredentialsProvider(identities IdentityProvider) SignInProvider {
	return &credentialsProvider{identities: identities}
}

func (p *credentialsProvider) Kind() ProviderKind {
	return ProviderCredentials
}

// Initiate is a no-op: credential sign in has no first leg
func (p *credentialsProvider) Initiate(ctx context.Context, req SignInRequest) (*Initiation, error) {
	return &Initiation{}, nil
}

func (p *credentialsProvider) Verify(ctx context.Context, req SignInRequest) (Identity, error) {
	return p.identities.VerifyIdentity(ctx, req.Identifier, req.Password)
}

type emailProvider struct {
	dispatcher *MagicLinkDispatcher
}

// NewEmailProvider wraps the magic link dispatcher as a sign in provider
func NewEmailProvider(dispatcher *MagicLinkDispatcher) SignInProvider {
	return &emailProvider{dispatcher: dispatcher}
}

func (p *emailProvider) Kind() ProviderKind {
	return ProviderEmail
}

func (p *emailProvider) Initiate(ctx context.Context, req SignInRequest) (*Initiation, error) {
	if err := p.dispatcher.Request(ctx, req.Identifier); err != nil {
		return nil, err
	}
	return &Initiation{Delivered: true}, nil
}

func (p *emailProvider) Verify(ctx context.Context, req SignInRequest) (Identity, error) {
	return p.dispatcher.Consume(ctx, req.Token)
}
