// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/capgate/oidc"
)

func TestSetStateCookies(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		opts         CookieOptions
		wantSameSite http.SameSite
	}{
		{name: "defaults", wantSameSite: http.SameSiteStrictMode},
		{name: "secure", opts: CookieOptions{Secure: true}, wantSameSite: http.SameSiteStrictMode},
		{name: "lax", opts: CookieOptions{SameSite: http.SameSiteLaxMode}, wantSameSite: http.SameSiteLaxMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			s, err := oidc.NewState()
			require.NoError(err)

			rec := httptest.NewRecorder()
			SetStateCookies(rec, s, tt.opts)
			cookies := rec.Result().Cookies()
			require.Len(cookies, 2)

			got := map[string]string{}
			for _, c := range cookies {
				got[c.Name] = c.Value
				assert.Equal("/", c.Path)
				assert.True(c.HttpOnly)
				assert.Equal(tt.opts.Secure, c.Secure)
				assert.Equal(tt.wantSameSite, c.SameSite)
				assert.Zero(c.MaxAge)
			}
			assert.Equal(s.ID(), got[CSRFCookieName])
			assert.Equal(s.Nonce(), got[NonceCookieName])

			// round trip
			req := httptest.NewRequest(http.MethodGet, "/callback", nil)
			for _, c := range cookies {
				req.AddCookie(c)
			}
			read, err := CookieStateReader{}.Read(req)
			require.NoError(err)
			assert.Equal(s, read)
		})
	}
}

func TestClearStateCookies(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	rec := httptest.NewRecorder()
	ClearStateCookies(rec, CookieOptions{Secure: true})
	cookies := rec.Result().Cookies()
	require.Len(cookies, 2)
	for _, c := range cookies {
		assert.Contains([]string{CSRFCookieName, NonceCookieName}, c.Name)
		assert.Empty(c.Value)
		assert.Less(c.MaxAge, 0)
		assert.True(c.HttpOnly)
		assert.True(c.Secure)
	}
}

func TestCookieStateReader_Read(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cookies []*http.Cookie
	}{
		{name: "none"},
		{name: "csrf-only", cookies: []*http.Cookie{{Name: CSRFCookieName, Value: "st_alice"}}},
		{name: "nonce-only", cookies: []*http.Cookie{{Name: NonceCookieName, Value: "n_alice"}}},
		{name: "empty-csrf", cookies: []*http.Cookie{{Name: CSRFCookieName, Value: ""}, {Name: NonceCookieName, Value: "n_alice"}}},
		{name: "equal-values", cookies: []*http.Cookie{{Name: CSRFCookieName, Value: "same"}, {Name: NonceCookieName, Value: "same"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			req := httptest.NewRequest(http.MethodGet, "/callback", nil)
			for _, c := range tt.cookies {
				req.AddCookie(c)
			}
			got, err := CookieStateReader{}.Read(req)
			require.Error(err)
			assert.Nil(got)
			assert.ErrorIs(err, ErrMissingState)
		})
	}
}
