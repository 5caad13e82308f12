// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// capgate puts an OpenID Connect login in front of a web application.
//
// The gate package is an http middleware which runs the OIDC Authorization
// Code flow: it redirects browsers from the login path to the provider,
// verifies the callback (CSRF state, authorization code exchange, id_token
// signature, expiry and nonce) and records the authenticated subject in a
// signed and encrypted session cookie.  Every downstream request is tagged
// with its authentication status, which handlers read with
// gate.FromContext.
//
// The supporting packages are:
//
//   - oidc: provider discovery, authorization URLs and the code exchange.
//   - oidc/callback: the callback handler and login state cookies.
//   - session: the session store the gate keeps results in.
//
// See gate/examples/webapp for a runnable app.
package capgate
