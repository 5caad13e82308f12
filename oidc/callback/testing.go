// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/capgate/oidc"
)

// testRedirectURL is allowed by the oidc.TestProvider by default.
const testRedirectURL = "https://example.com/callback"

// testSuccessFn is a test SuccessResponseFunc
func testSuccessFn(_ *oidc.State, c *oidc.IdentityClaims, w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(c.Subject()))
}

// testFailFn is a test ErrorResponseFunc
func testFailFn(r *AuthenErrorResponse, e error, w http.ResponseWriter, _ *http.Request) {
	if e != nil {
		w.WriteHeader(http.StatusInternalServerError)
		j, _ := json.Marshal(&AuthenErrorResponse{
			Error:       "internal-callback-error",
			Description: e.Error(),
		})
		_, _ = w.Write(j)
		return
	}
	if r != nil {
		w.WriteHeader(http.StatusUnauthorized)
		j, _ := json.Marshal(r)
		_, _ = w.Write(j)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	j, _ := json.Marshal(&AuthenErrorResponse{
		Error: "unknown-callback-error",
	})
	_, _ = w.Write(j)
}

// testNewProvider creates a new Provider for the TestProvider (tp), using its
// client credentials and certificate.  This is helpful internally, but
// intentionally not exported.
func testNewProvider(t *testing.T, tp *oidc.TestProvider) *oidc.Provider {
	t.Helper()
	require := require.New(t)

	clientID, clientSecret := tp.ClientCreds()
	c, err := oidc.NewConfig(tp.Addr(), clientID, oidc.ClientSecret(clientSecret), testRedirectURL, oidc.WithProviderCA(tp.CACert()))
	require.NoError(err)
	p, err := oidc.NewProvider(context.Background(), c)
	require.NoError(err)
	t.Cleanup(p.Done)
	return p
}
