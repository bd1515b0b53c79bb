package drive

import (
	"net/url"
	"strings"
)

// RedirectGuard decides where a post authentication redirect may land.
// Same origin callbacks pass through unchanged, anything else falls back
// to the base URL. A callback that targets the sign out endpoint always
// resolves to the bare base URL, even when same origin: sign out must
// never honor an external redirect parameter.
type RedirectGuard struct {
	BaseURL     string
	SignOutPath string
}

// NewRedirectGuard builds a guard for the given site origin
func NewRedirectGuard(baseURL, signOutPath string) *RedirectGuard {
	if signOutPath == "" {
		signOutPath = "/logout"
	}
	return &RedirectGuard{
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		SignOutPath: signOutPath,
	}
}

// Resolve returns the final redirect target for a requested callback URL
func (g *RedirectGuard) Resolve(callback string) string {
	if callback == "" {
		return g.BaseURL
	}

	base, err := url.Parse(g.BaseURL)
	if err != nil {
		return g.BaseURL
	}

	// relative callbacks stay on our origin
	if strings.HasPrefix(callback, "/") {
		if g.targetsSignOut(callback) {
			return g.BaseURL
		}
		return g.BaseURL + callback
	}

	target, err := url.Parse(callback)
	if err != nil {
		return g.BaseURL
	}

	if g.targetsSignOut(target.Path) {
		return g.BaseURL
	}

	if sameOrigin(target, base) {
		return callback
	}

	return g.BaseURL
}

func (g *RedirectGuard) targetsSignOut(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.TrimSuffix(path, "/") == strings.TrimSuffix(g.SignOutPath, "/")
}

func sameOrigin(a, b *url.URL) bool {
	return a.Scheme == b.Scheme && a.Host == b.Host
}
