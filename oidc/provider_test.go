// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRedirectURL = "https://example.com/callback"

// TestNewProvider does not repeat all the Config unit tests.  It just focuses
// on the additional tests that are unique to creating a new provider.
func TestNewProvider(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		setup          func(tp *TestProvider)
		config         func(tp *TestProvider) *Config
		wantErr        bool
		wantIsErr      error
		wantDiscovery  bool
		wantSigningAlg []Alg
	}{
		{
			name:           "valid",
			wantSigningAlg: []Alg{ES256},
		},
		{
			name: "valid-configured-algs",
			config: func(tp *TestProvider) *Config {
				return testNewConfig(t, tp, testRedirectURL, WithSupportedSigningAlgs(ES384, ES256))
			},
			wantSigningAlg: []Alg{ES384, ES256},
		},
		{
			name:      "nil-config",
			config:    func(*TestProvider) *Config { return nil },
			wantErr:   true,
			wantIsErr: ErrNilParameter,
		},
		{
			name: "invalid-config",
			config: func(tp *TestProvider) *Config {
				c := testNewConfig(t, tp, testRedirectURL)
				c.ClientID = ""
				return c
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:          "discovery-disabled",
			setup:         func(tp *TestProvider) { tp.SetDisableDiscovery(true) },
			wantErr:       true,
			wantDiscovery: true,
		},
		{
			name:          "missing-token-endpoint",
			setup:         func(tp *TestProvider) { tp.SetOmitTokenEndpoint(true) },
			wantErr:       true,
			wantIsErr:     ErrMissingEndpoint,
			wantDiscovery: true,
		},
		{
			name: "untrusted-provider",
			config: func(tp *TestProvider) *Config {
				c := testNewConfig(t, tp, testRedirectURL)
				c.ProviderCA = TestGenerateCA(t, []string{"localhost"})
				return c
			},
			wantErr:       true,
			wantDiscovery: true,
		},
		{
			name: "unreachable",
			config: func(tp *TestProvider) *Config {
				c := testNewConfig(t, tp, testRedirectURL)
				tp.Stop()
				return c
			},
			wantErr:       true,
			wantDiscovery: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			tp := StartTestProvider(t)
			if tt.setup != nil {
				tt.setup(tp)
			}
			var c *Config
			if tt.config != nil {
				c = tt.config(tp)
			} else {
				c = testNewConfig(t, tp, testRedirectURL)
			}

			p, err := NewProvider(context.Background(), c)
			defer p.Done()
			if tt.wantErr {
				require.Error(err)
				assert.Nil(p)
				if tt.wantIsErr != nil {
					assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				}
				var dErr *DiscoveryError
				assert.Equal(tt.wantDiscovery, errors.As(err, &dErr))
				return
			}
			require.NoError(err)
			pc := p.ProviderConfig()
			assert.Equal(tp.Addr(), pc.Issuer)
			assert.Equal(tp.Addr()+"/authorize", pc.AuthURL)
			assert.Equal(tp.Addr()+"/token", pc.TokenURL)
			assert.Equal(tp.Addr()+"/.well-known/jwks.json", pc.JWKSURL)
			assert.Equal(tp.Addr()+"/userinfo", pc.UserInfoURL)
			assert.Equal(tt.wantSigningAlg, pc.SupportedSigningAlgs)
			assert.Equal(testRedirectURL, p.RedirectURL())

			// copies can't change the provider
			pc.AuthURL = "https://evil.example.com"
			assert.Equal(tp.Addr()+"/authorize", p.ProviderConfig().AuthURL)
		})
	}
}

func TestProvider_Done(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)
	p := testNewProvider(t, tp)
	p.Done()
	p.Done() // safe to call twice
	assert.Error(t, p.backgroundCtx.Err())

	var nilProvider *Provider
	nilProvider.Done()
}

func TestProvider_AuthURL(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)
	p := testNewProvider(t, tp, WithScopes("email"))
	clientID, _ := tp.ClientCreds()

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s, err := NewState()
		require.NoError(err)

		got, err := p.AuthURL(s)
		require.NoError(err)
		u, err := url.Parse(got)
		require.NoError(err)
		assert.Equal(tp.Addr()+"/authorize", u.Scheme+"://"+u.Host+u.Path)

		q := u.Query()
		assert.Equal("code", q.Get("response_type"))
		assert.Equal(clientID, q.Get("client_id"))
		assert.Equal(testRedirectURL, q.Get("redirect_uri"))
		assert.Equal("openid email", q.Get("scope"))
		assert.Equal(s.ID(), q.Get("state"))
		assert.Equal(s.Nonce(), q.Get("nonce"))
	})
	t.Run("nil-state", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := p.AuthURL(nil)
		require.Error(err)
		assert.Empty(got)
		assert.ErrorIs(err, ErrNilParameter)
	})
	t.Run("equal-id-and-nonce", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := p.AuthURL(&State{id: "same", nonce: "same"})
		require.Error(err)
		assert.Empty(got)
		assert.ErrorIs(err, ErrInvalidParameter)
	})
	t.Run("empty-nonce", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := p.AuthURL(&State{id: "st_alice"})
		require.Error(err)
		assert.Empty(got)
		assert.ErrorIs(err, ErrInvalidParameter)
	})
	t.Run("config-literal-without-openid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, clientSecret := tp.ClientCreds()
		c := &Config{
			Issuer:       tp.Addr(),
			ClientID:     clientID,
			ClientSecret: ClientSecret(clientSecret),
			RedirectURL:  testRedirectURL,
			ProviderCA:   tp.CACert(),
			Scopes:       []string{"email"},
		}
		lp, err := NewProvider(context.Background(), c)
		require.NoError(err)
		t.Cleanup(lp.Done)

		s, err := NewState()
		require.NoError(err)
		got, err := lp.AuthURL(s)
		require.NoError(err)
		u, err := url.Parse(got)
		require.NoError(err)
		assert.Equal("openid email", u.Query().Get("scope"))
	})
}

func TestProvider_Exchange(t *testing.T) {
	t.Parallel()
	const nonce = "n_alice"

	tests := []struct {
		name          string
		setup         func(tp *TestProvider)
		opt           []Option
		ctx           func() context.Context
		code          func(tp *TestProvider) string
		nonce         string
		wantReason    ExchangeReason
		wantIsErr     error
		wantRetryable bool
		wantName      string
		wantEmail     string
	}{
		{
			name: "valid",
			setup: func(tp *TestProvider) {
				tp.SetCustomClaims(map[string]interface{}{
					"preferred_username": "alice",
					"email":              "alice@example.com",
				})
			},
			wantName:  "alice",
			wantEmail: "alice@example.com",
		},
		{
			name: "valid-name-wins",
			setup: func(tp *TestProvider) {
				tp.SetCustomClaims(map[string]interface{}{
					"name":               "Alice Eve",
					"preferred_username": "alice",
				})
			},
			wantName: "Alice Eve",
		},
		{
			name:       "rejected-code",
			code:       func(*TestProvider) string { return "not-the-code" },
			wantReason: InvalidCode,
			wantIsErr:  ErrInvalidCode,
		},
		{
			name:       "empty-code",
			code:       func(*TestProvider) string { return "" },
			wantReason: InvalidCode,
			wantIsErr:  ErrInvalidParameter,
		},
		{
			name:       "nonce-mismatch",
			setup:      func(tp *TestProvider) { tp.SetNonceOverride("n_eve") },
			wantReason: NonceMismatch,
			wantIsErr:  ErrInvalidNonce,
		},
		{
			name:       "empty-expected-nonce",
			nonce:      "-",
			wantReason: NonceMismatch,
			wantIsErr:  ErrInvalidParameter,
		},
		{
			name:       "invalid-signature",
			setup:      func(tp *TestProvider) { tp.SetInvalidSignature(true) },
			wantReason: SignatureInvalid,
			wantIsErr:  ErrInvalidSignature,
		},
		{
			name:       "wrong-audience",
			setup:      func(tp *TestProvider) { tp.SetCustomAudience("eve-rp") },
			wantReason: SignatureInvalid,
		},
		{
			name:       "expired",
			setup:      func(tp *TestProvider) { tp.SetExpectedExpiry(-time.Hour) },
			wantReason: TokenExpired,
			wantIsErr:  ErrExpiredToken,
		},
		{
			name:  "expired-within-skew",
			setup: func(tp *TestProvider) { tp.SetExpectedExpiry(-time.Second) },
			opt:   []Option{WithExpirySkew(time.Minute)},
		},
		{
			name:          "provider-failing",
			setup:         func(tp *TestProvider) { tp.SetTokenFailureStatus(http.StatusServiceUnavailable) },
			wantReason:    TransportFailure,
			wantIsErr:     ErrProviderUnreachable,
			wantRetryable: true,
		},
		{
			name:          "keys-failing",
			setup:         func(tp *TestProvider) { tp.SetJWKSFailureStatus(http.StatusServiceUnavailable) },
			wantReason:    TransportFailure,
			wantIsErr:     ErrProviderUnreachable,
			wantRetryable: true,
		},
		{
			name:          "keys-not-found",
			setup:         func(tp *TestProvider) { tp.SetJWKSFailureStatus(http.StatusNotFound) },
			wantReason:    TransportFailure,
			wantIsErr:     ErrProviderUnreachable,
			wantRetryable: true,
		},
		{
			name: "canceled",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantReason:    TransportFailure,
			wantRetryable: true,
		},
		{
			name:       "missing-id-token",
			setup:      func(tp *TestProvider) { tp.OmitIDTokens() },
			wantReason: MissingIDToken,
			wantIsErr:  ErrMissingIDToken,
		},
		{
			name:       "missing-subject",
			setup:      func(tp *TestProvider) { tp.SetSubject("") },
			wantReason: InvalidClaims,
			wantIsErr:  ErrMissingSubject,
		},
		{
			name:       "configured-audience-missing",
			opt:        []Option{WithAudiences("alice-api")},
			wantReason: InvalidClaims,
			wantIsErr:  ErrInvalidAudience,
		},
		{
			name: "configured-audience-present",
			setup: func(tp *TestProvider) {
				clientID, _ := tp.ClientCreds()
				tp.SetCustomAudience(clientID, "alice-api")
			},
			opt: []Option{WithAudiences("alice-api")},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			tp := StartTestProvider(t)
			p := testNewProvider(t, tp, tt.opt...)
			tp.SetExpectedAuthNonce(tp.ExpectedAuthCode(), nonce)
			if tt.setup != nil {
				tt.setup(tp)
			}

			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}
			code := tp.ExpectedAuthCode()
			if tt.code != nil {
				code = tt.code(tp)
			}
			expectedNonce := nonce
			if tt.nonce == "-" {
				expectedNonce = ""
			}

			claims, err := p.Exchange(ctx, code, expectedNonce)
			if tt.wantReason != ReasonUnknown {
				require.Error(err)
				assert.Nil(claims)
				var exErr *ExchangeError
				require.Truef(errors.As(err, &exErr), "wanted *ExchangeError but got %T", err)
				assert.Equalf(tt.wantReason, exErr.Reason, "wanted %s but got %s: %s", tt.wantReason, exErr.Reason, err)
				assert.Equal(tt.wantRetryable, exErr.Retryable())
				if tt.wantIsErr != nil {
					assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				}
				return
			}
			require.NoError(err)
			assert.Equal(TestDefaultSubject, claims.Subject())
			assert.Equal(tp.Addr(), claims.Issuer())
			assert.Equal(nonce, claims.Nonce())
			assert.Equal(tt.wantName, claims.Name())
			assert.Equal(tt.wantEmail, claims.Email())
			clientID, _ := tp.ClientCreds()
			assert.Contains(claims.Audience(), clientID)
			assert.False(claims.Expiry().IsZero())
		})
	}
}

func testNewProvider(t *testing.T, tp *TestProvider, opt ...Option) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), testNewConfig(t, tp, testRedirectURL, opt...))
	require.NoError(t, err)
	t.Cleanup(p.Done)
	return p
}
