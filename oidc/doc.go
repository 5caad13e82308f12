// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
Package oidc is the relying party side of the OpenID Connect Authorization
Code Flow, as specified in OpenID Connect Core 1.0, for a single provider.

A Provider is created once at startup.  NewProvider discovers the provider's
endpoints and fails with a *DiscoveryError if it can't; there's no lazy
discovery.  After that the Provider is read-only and safe for concurrent use.

	cfg, err := oidc.NewConfig(issuer, clientID, clientSecret, redirectURL)
	// handle err
	p, err := oidc.NewProvider(ctx, cfg)
	// handle err
	defer p.Done()

Each login attempt gets a new State, whose ID is sent as the "state"
parameter and whose Nonce is bound into the id_token:

	s, err := oidc.NewState()
	// handle err
	authURL, err := p.AuthURL(s)

When the provider redirects back with a code, Exchange trades it for a
verified id_token and returns its IdentityClaims.  Failures are always an
*ExchangeError with a Reason:

	claims, err := p.Exchange(ctx, code, s.Nonce())
	var exErr *oidc.ExchangeError
	if errors.As(err, &exErr) && exErr.Retryable() {
		// start a new login
	}

The callback subpackage provides an http.HandlerFunc for the redirect.

TestProvider is an in-process provider for tests.
*/
package oidc
