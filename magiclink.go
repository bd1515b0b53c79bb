package drive

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

// MagicLinkDispatcher issues one time sign in links over email. The
// cleartext secret is only ever embedded in the emailed URL; we persist
// its sha256 hash.
type MagicLinkDispatcher struct {
	repo   RepositoryManager
	mailer Mailer
	base   string
	path   string
	ttl    time.Duration
	logger Logger
}

// NewMagicLinkDispatcher builds a dispatcher from the service config
func NewMagicLinkDispatcher(repo RepositoryManager, mailer Mailer, cfg *Config) (*MagicLinkDispatcher, error) {
	ttl, err := time.ParseDuration(cfg.MagicLinkTTL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid magic link TTL")
	}

	return &MagicLinkDispatcher{
		repo:   repo,
		mailer: mailer,
		base:   strings.TrimSuffix(cfg.BaseURL, "/"),
		path:   cfg.MagicLinkPath,
		ttl:    ttl,
		logger: defLogger{},
	}, nil
}

func (d *MagicLinkDispatcher) WithLogger(l Logger) *MagicLinkDispatcher {
	d.logger = l
	return d
}

// Request generates and persists a verification token for the address and
// dispatches the sign in email. A rejected recipient fails the whole
// request.
func (d *MagicLinkDispatcher) Request(ctx context.Context, email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid email address").
			WithMetadata(map[string]any{"email": email})
	}
	email = addr.Address

	secret, err := newVerificationSecret()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to generate verification secret")
	}

	// opportunistic cleanup, the request does not depend on it
	if _, err := d.repo.VerificationTokens().PurgeExpired(ctx); err != nil {
		d.logger.Error("failed to purge expired verification tokens", "error", err)
	}

	record := &VerificationToken{
		Email:     email,
		TokenHash: hashVerificationSecret(secret),
		ExpiresAt: time.Now().Add(d.ttl),
	}

	if _, err := d.repo.VerificationTokens().Create(ctx, record); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist verification token")
	}

	signInURL := d.SignInURL(email, secret)
	host := hostLabel(d.base)

	html, text, err := renderMagicLinkEmail(signInURL, host)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to render sign in email")
	}

	msg := &MailMessage{
		To:      []string{email},
		Subject: "Sign in to " + host,
		Text:    text,
		HTML:    html,
	}

	if err := d.mailer.Send(ctx, msg); err != nil {
		d.logger.Error("magic link dispatch failed", "email", email, "error", err)
		return err
	}

	d.logger.Info("magic link dispatched", "email", email)
	return nil
}

// Consume spends a verification token. On success the matching account is
// loaded or registered, its email marked verified, and its identity
// returned so the caller can mint a session.
func (d *MagicLinkDispatcher) Consume(ctx context.Context, secret string) (Identity, error) {
	hash := hashVerificationSecret(secret)

	record, err := d.repo.VerificationTokens().Consume(ctx, hash)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to consume verification token")
		}

		// distinguish a stale link from one that never existed
		if _, lookupErr := d.repo.VerificationTokens().GetByHash(ctx, hash); lookupErr == nil {
			return nil, ErrVerificationExpired
		}
		return nil, ErrVerificationNotFound
	}

	user, err := d.repo.Users().GetOrRegister(ctx, &User{Email: record.Email})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve account for verified email")
	}

	if !user.EmailValidated {
		if err := d.repo.Users().MarkEmailVerified(ctx, user.ID); err != nil {
			d.logger.Warn("failed to mark email verified", "user_id", user.ID, "error", err)
		}
	}

	return identityFromUser(user), nil
}

// SignInURL builds the emailed link embedding the cleartext secret
func (d *MagicLinkDispatcher) SignInURL(email, secret string) string {
	q := url.Values{}
	q.Set("token", secret)
	q.Set("email", email)
	return d.base + d.path + "?" + q.Encode()
}

func newVerificationSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashVerificationSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func hostLabel(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	return u.Host
}
