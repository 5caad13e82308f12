// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/capgate/oidc"
)

const (
	// CSRFCookieName is the cookie carrying the State's ID.
	CSRFCookieName = "openid_csrf"

	// NonceCookieName is the cookie carrying the State's Nonce.
	NonceCookieName = "openid_nonce"
)

// CookieOptions are the attributes of the state cookies.
type CookieOptions struct {
	// Secure should be true iff the request was made over TLS.
	Secure bool

	// SameSite defaults to http.SameSiteStrictMode.
	SameSite http.SameSite
}

func (o CookieOptions) newCookie(name, value string) *http.Cookie {
	sameSite := o.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteStrictMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Secure:   o.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	}
}

// SetStateCookies attaches the State to the response as two browser session
// cookies.  There's no server side record of it.
func SetStateCookies(w http.ResponseWriter, s *oidc.State, opts CookieOptions) {
	http.SetCookie(w, opts.newCookie(CSRFCookieName, s.ID()))
	http.SetCookie(w, opts.newCookie(NonceCookieName, s.Nonce()))
}

// ClearStateCookies overwrites both state cookies with an empty value that
// expires immediately.
func ClearStateCookies(w http.ResponseWriter, opts CookieOptions) {
	for _, name := range []string{CSRFCookieName, NonceCookieName} {
		c := opts.newCookie(name, "")
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// CookieStateReader implements the StateReader interface by reading the
// cookies set by SetStateCookies.  It's concurrently safe.
type CookieStateReader struct{}

var _ StateReader = CookieStateReader{}

// Read returns the State carried by the request's cookies.  If either is
// missing or empty it returns an error wrapping ErrMissingState.
func (CookieStateReader) Read(req *http.Request) (*oidc.State, error) {
	const op = "CookieStateReader.Read"
	csrf, err := req.Cookie(CSRFCookieName)
	if err != nil || csrf.Value == "" {
		return nil, fmt.Errorf("%s: %s cookie: %w", op, CSRFCookieName, ErrMissingState)
	}
	nonce, err := req.Cookie(NonceCookieName)
	if err != nil || nonce.Value == "" {
		return nil, fmt.Errorf("%s: %s cookie: %w", op, NonceCookieName, ErrMissingState)
	}
	s, err := oidc.NewStateFromValues(csrf.Value, nonce.Value)
	if err != nil {
		return nil, fmt.Errorf("%s: unusable state cookies (%s): %w", op, err, ErrMissingState)
	}
	return s, nil
}
