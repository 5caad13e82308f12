// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package gate

import (
	"net/http"

	"github.com/hashicorp/capgate/oidc"
	"github.com/hashicorp/capgate/oidc/callback"
)

// login starts a login: it sends the browser to the provider with a new
// State, which it also sets in cookies for the callback.  The session isn't
// touched.
func (g *Gate) login(w http.ResponseWriter, r *http.Request) {
	s, err := oidc.NewState()
	if err != nil {
		g.logger.Error("unable to create login state", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	authURL, err := g.provider.AuthURL(s)
	if err != nil {
		g.logger.Error("unable to create authorization URL", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	callback.SetStateCookies(w, s, g.cookieOptions(r))
	g.logger.Debug("starting login")
	http.Redirect(w, r, authURL, http.StatusFound)
}
