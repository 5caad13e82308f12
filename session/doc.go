// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
Package session persists an authentication result for a browser session.

A Store gets and sets JSON values by key.  GorillaStore adapts any
github.com/gorilla/sessions store, and NewCookieStore builds one whose session
cookie is signed and encrypted with keys derived from a single secret:

	secret, err := session.GenerateSecret()
	// handle err
	store, err := session.NewCookieStore(secret, session.WithSecureCookies(true))
	// handle err
	err = session.SaveAuthentication(w, r, store, session.AuthenticationResult{
		IsAuthenticated: true,
		UserID:          sub,
	})

Invalidating a session (logout) is up to the application.
*/
package session
