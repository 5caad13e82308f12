// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package gate

import (
	"errors"
	"net/http"

	"github.com/hashicorp/capgate/oidc"
	"github.com/hashicorp/capgate/oidc/callback"
	"github.com/hashicorp/capgate/session"
)

// loginSucceeded is the callback's SuccessResponseFunc.  The result is saved
// before the state cookies are cleared, so a failed save leaves the browser
// as it was.
func (g *Gate) loginSucceeded(_ *oidc.State, c *oidc.IdentityClaims, w http.ResponseWriter, r *http.Request) {
	result := session.AuthenticationResult{
		IsAuthenticated: true,
		UserID:          c.Subject(),
	}
	if err := session.SaveAuthentication(w, r, g.sessions, result); err != nil {
		g.logger.Error("unable to save session", "user_id", result.UserID, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	callback.ClearStateCookies(w, g.cookieOptions(r))
	g.logger.Info("login succeeded", "user_id", result.UserID)
	http.Redirect(w, r, g.landingPath, http.StatusFound)
}

// loginFailed is the callback's ErrorResponseFunc.  Nothing is written to the
// session.
func (g *Gate) loginFailed(respErr *callback.AuthenErrorResponse, e error, w http.ResponseWriter, r *http.Request) {
	status := ErrorStatus(respErr, e)
	if respErr != nil {
		g.logger.Warn("provider returned an error", "status", status, "error", respErr.String())
	} else {
		g.logger.Warn("callback rejected", "status", status, "error", e)
	}
	if g.errorResponseFunc != nil {
		g.errorResponseFunc(respErr, e, w, r)
		return
	}
	http.Error(w, errorReason(respErr, e), status)
}

// ErrorStatus is the http status the Gate responds with when a callback
// fails:
//
//   - 400 when the state cookies are missing or the request is malformed
//   - 403 when the state doesn't match
//   - 401 when the provider returned an error or the exchange failed
//   - 502 when the provider couldn't be used
//   - 500 otherwise
func ErrorStatus(respErr *callback.AuthenErrorResponse, e error) int {
	if respErr != nil {
		return http.StatusUnauthorized
	}
	var exErr *oidc.ExchangeError
	switch {
	case errors.Is(e, callback.ErrMissingState), errors.Is(e, callback.ErrMalformedCallback):
		return http.StatusBadRequest
	case errors.Is(e, callback.ErrCsrfMismatch):
		return http.StatusForbidden
	case errors.As(e, &exErr):
		if exErr.Retryable() {
			return http.StatusBadGateway
		}
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// errorReason is a human readable reason that doesn't leak internals.
func errorReason(respErr *callback.AuthenErrorResponse, e error) string {
	if respErr != nil {
		return "login failed: the provider returned " + respErr.Error
	}
	var exErr *oidc.ExchangeError
	switch {
	case errors.Is(e, callback.ErrMissingState):
		return "login failed: no login in progress, please log in again"
	case errors.Is(e, callback.ErrMalformedCallback):
		return "login failed: malformed callback"
	case errors.Is(e, callback.ErrCsrfMismatch):
		return "login failed: state mismatch"
	case errors.As(e, &exErr):
		if exErr.Retryable() {
			return "login failed: the provider is unavailable, please try again"
		}
		return "login failed: " + exErr.Reason.String()
	default:
		return http.StatusText(http.StatusInternalServerError)
	}
}
