// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp/capgate/oidc/internal/strutils"
	sdkHttp "github.com/hashicorp/capgate/sdk/http"
)

// ClientSecret is an oauth client Secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret.
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret.
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret.
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

const (
	// DefaultExpirySkew defines the clock skew allowed when checking an
	// id_token's expiry.
	DefaultExpirySkew = 5 * time.Second

	// openidScope is always requested and never needs to be configured.
	openidScope = oidc.ScopeOpenID
)

// Config represents the configuration for an OIDC relying party using the
// authorization code flow against a single provider.
type Config struct {
	// ClientID is the relying party ID.
	ClientID string

	// ClientSecret is the relying party secret.  It's redacted when logged.
	ClientSecret ClientSecret

	// Scopes is a list of additional oidc scopes to request of the provider.
	// The required "openid" scope is always requested and doesn't need to be
	// part of this list.
	Scopes []string

	// Issuer is a case-sensitive URL string using the https scheme that
	// contains scheme, host, and optionally, port number and path components
	// and no query or fragment components.
	Issuer string

	// SupportedSigningAlgs is a list of supported signing algorithms.  When
	// empty, the algorithms advertised by the provider's discovery document
	// are used (RS256 if it advertises none).
	SupportedSigningAlgs []Alg

	// RedirectURL is the URL the provider redirects the browser to after
	// authentication.  Its path is where callbacks are handled.
	RedirectURL string

	// Audiences is an optional list of case-sensitive strings.  When set, an
	// id_token must contain at least one of them in its "aud" claim in
	// addition to the ClientID.
	Audiences []string

	// ProviderCA is an optional CA certs (PEM encoded) to use when sending
	// requests to the provider.
	ProviderCA string

	// Timeout bounds every request made to the provider.  Zero means
	// sdk/http.DefaultTimeout.
	Timeout time.Duration

	// ExpirySkew is the clock skew allowed when checking an id_token's
	// expiry.
	ExpirySkew time.Duration

	// NowFunc is a time func that returns the current time.
	NowFunc func() time.Time
}

// NewConfig composes a new config for a provider.
//
// The "openid" scope will always be added to the list of scopes and doesn't
// need to be included in WithScopes(...).
//
// Supported options:
//   - WithScopes
//   - WithAudiences
//   - WithSupportedSigningAlgs
//   - WithProviderCA
//   - WithTimeout
//   - WithExpirySkew
//   - WithNow
func NewConfig(issuer, clientID string, clientSecret ClientSecret, redirectURL string, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Issuer:               issuer,
		ClientID:             clientID,
		ClientSecret:         clientSecret,
		RedirectURL:          redirectURL,
		SupportedSigningAlgs: opts.withSupportedSigningAlgs,
		Scopes:               strutils.RemoveDuplicatesStable(append([]string{openidScope}, opts.withScopes...), false),
		Audiences:            opts.withAudiences,
		ProviderCA:           opts.withProviderCA,
		Timeout:              opts.withTimeout,
		ExpirySkew:           opts.withExpirySkew,
		NowFunc:              opts.withNowFunc,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the provider configuration.  Among other validations, it verifies
// the issuer is not empty, but it doesn't verify the Issuer is discoverable via
// an http request.  Every problem found is reported; each one wraps
// ErrInvalidParameter.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client ID is empty: %w", op, ErrInvalidParameter))
	}
	if c.Issuer == "" {
		result = multierror.Append(result, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter))
	} else if u, err := url.Parse(c.Issuer); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: issuer %s is invalid (%s): %w: %w", op, c.Issuer, err, ErrInvalidIssuer, ErrInvalidParameter))
	} else if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) {
		result = multierror.Append(result, fmt.Errorf("%s: issuer %s schema is not http or https: %w: %w", op, c.Issuer, ErrInvalidIssuer, ErrInvalidParameter))
	}
	if c.RedirectURL == "" {
		result = multierror.Append(result, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter))
	} else if u, err := url.Parse(c.RedirectURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: redirect URL %s is invalid (%s): %w", op, c.RedirectURL, err, ErrInvalidParameter))
	} else if !u.IsAbs() || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("%s: redirect URL %s is not absolute: %w", op, c.RedirectURL, ErrInvalidParameter))
	}
	for _, a := range c.SupportedSigningAlgs {
		if !supportedAlgorithms[a] {
			result = multierror.Append(result, fmt.Errorf("%s: unsupported algorithm %q: %w", op, a, ErrInvalidParameter))
		}
	}
	if c.Timeout < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: timeout %s is negative: %w", op, c.Timeout, ErrInvalidParameter))
	}
	if c.ExpirySkew < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: expiry skew %s is negative: %w", op, c.ExpirySkew, ErrInvalidParameter))
	}
	if c.ProviderCA != "" {
		if _, err := sdkHttp.NewClient(c.ProviderCA, c.Timeout); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %s: %w", op, err, ErrInvalidCACert))
		}
	}
	return result.ErrorOrNil()
}

// Now will return the current time which can be overridden by the NowFunc
func (c *Config) Now() time.Time {
	if c.NowFunc != nil {
		return c.NowFunc()
	}
	return time.Now() // fallback to this default
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	client, err := sdkHttp.NewClient(c.ProviderCA, c.Timeout)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

// configOptions is the set of available options
type configOptions struct {
	withScopes               []string
	withAudiences            []string
	withSupportedSigningAlgs []Alg
	withProviderCA           string
	withTimeout              time.Duration
	withExpirySkew           time.Duration
	withNowFunc              func() time.Time
}

// configDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func configDefaults() configOptions {
	return configOptions{
		withExpirySkew: DefaultExpirySkew,
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides an optional list of scopes for: Config.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withScopes = append(v.withScopes, scopes...)
		}
	}
}

// WithAudiences provides an optional list of audiences for: Config.
func WithAudiences(auds ...string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withAudiences = append(v.withAudiences, auds...)
		}
	}
}

// WithSupportedSigningAlgs provides an optional list of signing algorithms
// for: Config.
func WithSupportedSigningAlgs(algs ...Alg) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withSupportedSigningAlgs = append(v.withSupportedSigningAlgs, algs...)
		}
	}
}

// WithProviderCA provides optional CA certs (PEM encoded) for: Config.
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withProviderCA = cert
		}
	}
}

// WithTimeout provides an optional timeout for requests to the provider for:
// Config.
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withTimeout = d
		}
	}
}
