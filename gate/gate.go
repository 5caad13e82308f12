// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package gate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/capgate/oidc"
	"github.com/hashicorp/capgate/oidc/callback"
	"github.com/hashicorp/capgate/session"
)

// Provider is the OIDC provider the Gate logs users in with.  *oidc.Provider
// satisfies it.
type Provider interface {
	callback.Exchanger

	// AuthURL returns the provider's authorization URL for the State.
	AuthURL(s *oidc.State) (string, error)

	// RedirectURL is where the provider sends the browser back to.  Its
	// path is where the Gate handles callbacks.
	RedirectURL() string
}

var _ Provider = (*oidc.Provider)(nil)

// Gate is an authentication gate for http handlers.  It handles the login
// and callback requests of the OIDC authorization code flow itself, and
// attaches the authentication status of every other request to its context
// before passing it on.
//
// A Gate is safe for concurrent use.  It holds no state of its own: the
// login's State travels in cookies and the result is kept in the session.
type Gate struct {
	provider     Provider
	sessions     session.Store
	loginPath    string
	redirectPath string
	landingPath  string

	logger            hclog.Logger
	errorResponseFunc callback.ErrorResponseFunc
	trustProxyHeaders bool
	sameSite          http.SameSite

	callback http.HandlerFunc
}

// New creates a Gate.  The callback path is the path of the provider's
// RedirectURL.
//
// Supported options:
//   - WithLoginPath
//   - WithLandingPath
//   - WithLogger
//   - WithErrorResponseFunc
//   - WithTrustProxyHeaders
//   - WithStateCookieSameSite
func New(p Provider, sessions session.Store, opt ...Option) (*Gate, error) {
	const op = "gate.New"
	if p == nil {
		return nil, fmt.Errorf("%s: provider is nil: %w", op, ErrNilParameter)
	}
	if sessions == nil {
		return nil, fmt.Errorf("%s: session store is nil: %w", op, ErrNilParameter)
	}
	opts := getGateOpts(opt...)

	u, err := url.Parse(p.RedirectURL())
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse redirect URL: %s: %w", op, err, ErrInvalidParameter)
	}
	redirectPath := u.Path
	if redirectPath == "" {
		redirectPath = "/"
	}
	switch {
	case !strings.HasPrefix(opts.withLoginPath, "/"):
		return nil, fmt.Errorf("%s: login path %q must start with /: %w", op, opts.withLoginPath, ErrInvalidParameter)
	case !strings.HasPrefix(opts.withLandingPath, "/"):
		return nil, fmt.Errorf("%s: landing path %q must start with /: %w", op, opts.withLandingPath, ErrInvalidParameter)
	case opts.withLoginPath == redirectPath:
		return nil, fmt.Errorf("%s: login path and callback path are both %q: %w", op, redirectPath, ErrInvalidParameter)
	case opts.withLandingPath == redirectPath:
		return nil, fmt.Errorf("%s: landing path and callback path are both %q: %w", op, redirectPath, ErrInvalidParameter)
	}

	g := &Gate{
		provider:          p,
		sessions:          sessions,
		loginPath:         opts.withLoginPath,
		redirectPath:      redirectPath,
		landingPath:       opts.withLandingPath,
		logger:            opts.withLogger,
		errorResponseFunc: opts.withErrorResponseFunc,
		trustProxyHeaders: opts.withTrustProxyHeaders,
		sameSite:          opts.withStateCookieSameSite,
	}
	g.callback, err = callback.AuthCode(p, callback.CookieStateReader{}, g.loginSucceeded, g.loginFailed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

// requestKind classifies the requests the Gate sees.
type requestKind int

const (
	otherRequest requestKind = iota
	loginRequest
	callbackRequest
)

// classify is total and mutually exclusive over (method, path) as long as
// the login and callback paths differ, which New ensures.
func classify(method, path, loginPath, callbackPath string) requestKind {
	if method != http.MethodGet {
		return otherRequest
	}
	switch path {
	case loginPath:
		return loginRequest
	case callbackPath:
		return callbackRequest
	default:
		return otherRequest
	}
}

// Handler wraps next with the Gate.  Login and callback requests never reach
// next; every other request reaches it with an Authentication in its
// context.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch classify(r.Method, r.URL.Path, g.loginPath, g.redirectPath) {
		case loginRequest:
			g.login(w, r)
		case callbackRequest:
			g.callback(w, r)
		default:
			next.ServeHTTP(w, r.WithContext(g.authenticate(r)))
		}
	})
}

// authenticate returns r's context with the Authentication loaded from the
// session.  A session that can't be read is unauthenticated.
func (g *Gate) authenticate(r *http.Request) context.Context {
	result, err := session.LoadAuthentication(r, g.sessions)
	if err != nil {
		g.logger.Warn("unable to load session, treating request as unauthenticated", "path", r.URL.Path, "error", err)
	}
	if !result.IsAuthenticated || result.UserID == "" {
		return newContext(r.Context(), Authentication{})
	}
	return newContext(r.Context(), Authentication{
		IsAuthenticated: true,
		UserID:          result.UserID,
	})
}

// RequireAuthentication wraps a route that only logged in users may reach.
// Unauthenticated requests are redirected to the login path.  It must itself
// be wrapped by the Gate's Handler.
func (g *Gate) RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthenticated(r) {
			g.logger.Debug("authentication required", "path", r.URL.Path)
			http.Redirect(w, r, g.loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginPath returns the path that starts a login.
func (g *Gate) LoginPath() string { return g.loginPath }

// CallbackPath returns the path the provider redirects back to.
func (g *Gate) CallbackPath() string { return g.redirectPath }

// cookieOptions returns the state cookie attributes for a response to r.
func (g *Gate) cookieOptions(r *http.Request) callback.CookieOptions {
	secure := r.TLS != nil
	if !secure && g.trustProxyHeaders {
		secure = strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	}
	return callback.CookieOptions{
		Secure:   secure,
		SameSite: g.sameSite,
	}
}
