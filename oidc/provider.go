// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/hashicorp/capgate/oidc/internal/strutils"
)

// Provider provides integration with a provider using the typical
// 3-legged OIDC authorization code flow.  Once created it's read-only and
// safe for concurrent use.
type Provider struct {
	config         *Config
	providerConfig *ProviderConfig
	client         *http.Client
	oauth2Config   oauth2.Config
	verifier       *oidc.IDTokenVerifier
	keyFetches     *keyFetchRecorder

	mu sync.Mutex

	// backgroundCtx is the context used by the provider for background
	// activities like: refreshing JWKs key sets.
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// NewProvider creates and initializes a Provider for the OIDC authorization
// code flow.  Initializing the provider includes a blocking http request to
// the provider's issuer for discovery, bounded by ctx.  There's no lazy
// discovery and no retries: any failure is returned as a *DiscoveryError.
//
// See Provider.Done() which must be called to release provider resources.
func NewProvider(ctx context.Context, c *Config) (*Provider, error) {
	const op = "NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	// initializing the Provider with it's background ctx/cancel will
	// allow us to use p.Done() to release any resources when returning errors
	// from this function.
	p := &Provider{
		config:              c,
		backgroundCtx:       bgCtx,
		backgroundCtxCancel: cancel,
	}

	client, err := c.HTTPClient()
	if err != nil {
		p.Done()
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	p.client = client

	discovered, err := oidc.NewProvider(HTTPClientContext(ctx, client), c.Issuer) // makes http req to issuer for discovery
	if err != nil {
		p.Done()
		return nil, &DiscoveryError{Issuer: c.Issuer, Err: fmt.Errorf("%s: %w", op, err)}
	}
	pc, err := newProviderConfig(c, discovered)
	if err != nil {
		p.Done()
		return nil, &DiscoveryError{Issuer: c.Issuer, Err: fmt.Errorf("%s: %w", op, err)}
	}
	p.providerConfig = pc

	p.oauth2Config = oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: string(c.ClientSecret),
		RedirectURL:  c.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  pc.AuthURL,
			TokenURL: pc.TokenURL,
		},
		// openid is required even when c wasn't made by NewConfig
		Scopes: strutils.RemoveDuplicatesStable(append([]string{openidScope}, c.Scopes...), false),
	}

	// the key set outlives ctx and refreshes with the provider's background
	// context.
	p.keyFetches = newKeyFetchRecorder(client.Transport)
	keySet := oidc.NewRemoteKeySet(HTTPClientContext(p.backgroundCtx, p.keyFetches.client(client)), pc.JWKSURL)
	p.verifier = oidc.NewVerifier(c.Issuer, keySet, &oidc.Config{
		ClientID:             c.ClientID,
		SupportedSigningAlgs: pc.algStrings(),
		SkipExpiryCheck:      true, // checked by Exchange with the configured skew
		Now:                  c.Now,
	})
	return p, nil
}

// Done with the provider's background resources and must be called for every
// Provider created
func (p *Provider) Done() {
	// checking for nil here prevents a panic when developers neglect to check
	// the for an error before deferring a call to p.Done():
	// p, err := NewProvider(...)
	// defer p.Done()
	// if err != nil { ... }
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
}

// ProviderConfig returns a copy of the provider's discovered configuration.
func (p *Provider) ProviderConfig() *ProviderConfig {
	return p.providerConfig.copy()
}

// RedirectURL returns the configured redirect URL.
func (p *Provider) RedirectURL() string {
	return p.config.RedirectURL
}

// AuthURL will generate a URL the caller can use to kick off an OIDC
// authorization code flow with the provider: the authorization endpoint with
// response_type=code, client_id, redirect_uri, scope, state and nonce.
//
// See NewState() to create a State with a valid ID and Nonce that will
// uniquely identify the user's authentication attempt.
func (p *Provider) AuthURL(s *State) (string, error) {
	const op = "Provider.AuthURL"
	if s == nil {
		return "", fmt.Errorf("%s: state is nil: %w", op, ErrNilParameter)
	}
	if s.ID() == "" || s.Nonce() == "" {
		return "", fmt.Errorf("%s: state id and nonce cannot be empty: %w", op, ErrInvalidParameter)
	}
	if s.ID() == s.Nonce() {
		return "", fmt.Errorf("%s: state id and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}
	return p.oauth2Config.AuthCodeURL(s.ID(), oidc.Nonce(s.Nonce())), nil
}

// Exchange trades an authorization code for tokens at the provider's token
// endpoint and verifies the returned id_token: its signature, issuer,
// audience, expiry and that its nonce equals expectedNonce.  Requests are
// bounded by ctx and the configured timeout.
//
// Every error returned is an *ExchangeError.  None of them may be retried
// with the same code.
func (p *Provider) Exchange(ctx context.Context, code, expectedNonce string) (*IdentityClaims, error) {
	const op = "Provider.Exchange"
	if code == "" {
		return nil, newExchangeError(op, InvalidCode, fmt.Errorf("authorization code is empty: %w", ErrInvalidParameter))
	}
	if expectedNonce == "" {
		return nil, newExchangeError(op, NonceMismatch, fmt.Errorf("expected nonce is empty: %w", ErrInvalidParameter))
	}

	oauth2Token, err := p.oauth2Config.Exchange(HTTPClientContext(ctx, p.client), code)
	if err != nil {
		reason := classifyTokenError(err)
		sentinel := ErrInvalidCode
		if reason == TransportFailure {
			sentinel = ErrProviderUnreachable
		}
		return nil, newExchangeError(op, reason, fmt.Errorf("%w: %w", sentinel, err))
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, newExchangeError(op, MissingIDToken, ErrMissingIDToken)
	}

	mark := p.keyFetches.mark()
	idToken, err := p.verifier.Verify(HTTPClientContext(ctx, p.client), rawIDToken)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, newExchangeError(op, TransportFailure, err)
		case p.keyFetches.failedSince(mark):
			return nil, newExchangeError(op, TransportFailure, fmt.Errorf("%s: %w", err, ErrProviderUnreachable))
		}
		return nil, newExchangeError(op, SignatureInvalid, fmt.Errorf("%s: %w", err, ErrInvalidSignature))
	}

	if p.config.Now().After(idToken.Expiry.Add(p.config.ExpirySkew)) {
		return nil, newExchangeError(op, TokenExpired, fmt.Errorf("expired at %s: %w", idToken.Expiry, ErrExpiredToken))
	}

	if subtle.ConstantTimeCompare([]byte(idToken.Nonce), []byte(expectedNonce)) != 1 {
		return nil, newExchangeError(op, NonceMismatch, ErrInvalidNonce)
	}

	if len(p.config.Audiences) > 0 && !audiencesMatch(idToken.Audience, p.config.Audiences) {
		return nil, newExchangeError(op, InvalidClaims, fmt.Errorf("%v: %w", idToken.Audience, ErrInvalidAudience))
	}

	claims, err := newIdentityClaims(idToken)
	if err != nil {
		return nil, newExchangeError(op, InvalidClaims, err)
	}
	return claims, nil
}

// classifyTokenError maps an error from the token endpoint round trip to an
// ExchangeReason.  The provider answering with a 4xx is a rejected code;
// anything else means the provider couldn't be used.
func classifyTokenError(err error) ExchangeReason {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= http.StatusInternalServerError {
			return TransportFailure
		}
		return InvalidCode
	}
	return TransportFailure
}

func audiencesMatch(tokenAudiences, allowed []string) bool {
	for _, a := range tokenAudiences {
		if strutils.StrListContains(allowed, a) {
			return true
		}
	}
	return false
}
