// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
Package gate is an authentication gate for net/http that logs users in with
the OpenID Connect authorization code flow.

Every request passes through the Gate first and is classified by method and
path:

  - GET on the login path (default /login) starts a login: the browser is
    redirected to the provider with a new oidc.State, which is also set in
    the openid_csrf and openid_nonce cookies.
  - GET on the callback path (the path of the provider's redirect URL)
    finishes it: the state is checked, the code exchanged, the subject saved
    in the session, the cookies cleared and the browser redirected to the
    landing path (default /).
  - Anything else is passed on with its Authentication in the context.

Routes that require a logged in user are wrapped with RequireAuthentication:

	g, err := gate.New(provider, store)
	// handle err
	mux := http.NewServeMux()
	mux.Handle("/profile", g.RequireAuthentication(profileHandler))
	http.ListenAndServe(":8080", g.Handler(mux))

Handlers read the result with IsAuthenticated and UserID.
*/
package gate
