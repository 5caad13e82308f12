// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/capgate/oidc"
)

// SuccessResponseFunc is used by Callbacks to create a http response when the
// callback is successful.
//
// The function state parameter is the state the login was started with; its
// cookies are still set.  The claims are the result of a successful token
// exchange with the provider.  The function should use the
// http.ResponseWriter to send back whatever content (headers, html, JSON, etc)
// it wishes to the client that originated the oidc flow.
type SuccessResponseFunc func(state *oidc.State, c *oidc.IdentityClaims, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by Callbacks to create a http response when the
// callback fails.
//
// The function gets either the provider's authentication error response
// (respErr) or the error raised while processing the request (e): one of
// ErrMissingState, ErrMalformedCallback, ErrCsrfMismatch or an
// *oidc.ExchangeError.  The function should use the http.ResponseWriter to send
// back whatever content (headers, html, JSON, etc) it wishes to the client
// that originated the oidc flow.
type ErrorResponseFunc func(respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthenErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
}

func (r *AuthenErrorResponse) String() string {
	if r.Description == "" {
		return r.Error
	}
	return fmt.Sprintf("%s: %s", r.Error, r.Description)
}
