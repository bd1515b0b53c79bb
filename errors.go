package drive

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrUnknownAccount is returned when no account matches the identifier
var ErrUnknownAccount = errors.New("no account matches that email", errors.CategoryAuth).
	WithTextCode("UNKNOWN_ACCOUNT").
	WithCode(errors.CodeUnauthorized)

// ErrMissingCredential is returned for accounts without a password hash,
// e.g. accounts created through an OAuth provider
var ErrMissingCredential = errors.New("account has no password credential", errors.CategoryAuth).
	WithTextCode("MISSING_CREDENTIAL").
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is returned when the password comparison fails
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned when an account is in its cool down window
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryAuth).
	WithTextCode("TOO_MANY_ATTEMPTS").
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation)

// ErrTokenExpired is returned for session tokens past their validity window
var ErrTokenExpired = errors.New("session token is expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens we cannot parse or verify
var ErrTokenMalformed = errors.New("session token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrVerificationNotFound is returned when a magic link token does not exist
var ErrVerificationNotFound = errors.New("verification token not found", errors.CategoryAuth).
	WithTextCode("VERIFICATION_NOT_FOUND").
	WithCode(errors.CodeUnauthorized)

// ErrVerificationExpired is returned for consumed or expired magic link tokens
var ErrVerificationExpired = errors.New("verification token expired or already used", errors.CategoryAuth).
	WithTextCode("VERIFICATION_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// NewDeliveryError reports a failed email dispatch together with every
// rejected recipient address
func NewDeliveryError(rejected []string, cause error) *errors.Error {
	err := errors.Wrap(cause, errors.CategoryOperation, "email delivery failed").
		WithTextCode("DELIVERY_FAILED").
		WithMetadata(map[string]any{
			"rejected": rejected,
		})
	return err
}

// RejectedRecipients extracts the rejected address list from a delivery error
func RejectedRecipients(err error) []string {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return nil
	}
	raw, ok := richErr.Metadata["rejected"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
