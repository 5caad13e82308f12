// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package gate

import (
	"context"
	"net/http"
)

// Authentication is the authentication status of a request, attached to its
// context by the Gate before it's dispatched.
type Authentication struct {
	IsAuthenticated bool
	UserID          string
}

type authenticationKey struct{}

func newContext(ctx context.Context, a Authentication) context.Context {
	return context.WithValue(ctx, authenticationKey{}, a)
}

// FromContext returns the Authentication the Gate attached to ctx.  It
// panics if the Gate didn't handle the request: that's a wiring bug, and
// reporting such a request as unauthenticated would hide it.
func FromContext(ctx context.Context) Authentication {
	a, ok := ctx.Value(authenticationKey{}).(Authentication)
	if !ok {
		panic("gate: no authentication in context; the handler isn't wrapped by Gate.Handler")
	}
	return a
}

// IsAuthenticated reports whether the request's browser has logged in.  It
// panics if the Gate didn't handle the request.
func IsAuthenticated(r *http.Request) bool {
	return FromContext(r.Context()).IsAuthenticated
}

// UserID returns the subject of the logged in user, or "" if the request
// isn't authenticated.  It panics if the Gate didn't handle the request.
func UserID(r *http.Request) string {
	return FromContext(r.Context()).UserID
}
