// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package gate

import (
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/capgate/oidc/callback"
)

const (
	// DefaultLoginPath is where a GET starts a login.
	DefaultLoginPath = "/login"

	// DefaultLandingPath is where the browser is sent after a successful
	// login.
	DefaultLandingPath = "/"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// gateOptions is the set of available options for Gate functions
type gateOptions struct {
	withLoginPath           string
	withLandingPath         string
	withLogger              hclog.Logger
	withErrorResponseFunc   callback.ErrorResponseFunc
	withTrustProxyHeaders   bool
	withStateCookieSameSite http.SameSite
}

// gateDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func gateDefaults() gateOptions {
	return gateOptions{
		withLoginPath:           DefaultLoginPath,
		withLandingPath:         DefaultLandingPath,
		withStateCookieSameSite: http.SameSiteStrictMode,
	}
}

// getGateOpts gets the gate defaults and applies the opt overrides passed in
func getGateOpts(opt ...Option) gateOptions {
	opts := gateDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	return opts
}

// WithLoginPath provides an optional path that starts a login.
func WithLoginPath(p string) Option {
	return func(o interface{}) {
		if o, ok := o.(*gateOptions); ok {
			o.withLoginPath = p
		}
	}
}

// WithLandingPath provides an optional path the browser is redirected to
// after a successful login.
func WithLandingPath(p string) Option {
	return func(o interface{}) {
		if o, ok := o.(*gateOptions); ok {
			o.withLandingPath = p
		}
	}
}

// WithLogger provides an optional logger.  Nothing is logged by default.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*gateOptions); ok {
			o.withLogger = l
		}
	}
}

// WithErrorResponseFunc provides an optional func to write the response when
// a callback fails.  See ErrorStatus for the status the default func uses.
func WithErrorResponseFunc(fn callback.ErrorResponseFunc) Option {
	return func(o interface{}) {
		if o, ok := o.(*gateOptions); ok {
			o.withErrorResponseFunc = fn
		}
	}
}

// WithTrustProxyHeaders provides an optional flag to trust the
// X-Forwarded-Proto header when deciding whether a request was made over
// TLS.  Only enable it behind a proxy that sets the header.
func WithTrustProxyHeaders(trust bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*gateOptions); ok {
			o.withTrustProxyHeaders = trust
		}
	}
}

// WithStateCookieSameSite provides an optional SameSite attribute for the
// state cookies.  The default is http.SameSiteStrictMode; some browsers
// won't send Strict cookies on the provider's redirect back to the callback,
// in which case http.SameSiteLaxMode is needed.
func WithStateCookieSameSite(s http.SameSite) Option {
	return func(o interface{}) {
		if o, ok := o.(*gateOptions); ok {
			o.withStateCookieSameSite = s
		}
	}
}
