// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCookieStore(t *testing.T) {
	t.Parallel()
	secret := testSecret(t)
	tests := []struct {
		name      string
		secret    []byte
		opt       []Option
		wantErr   bool
		wantIsErr error
	}{
		{name: "valid", secret: secret},
		{name: "valid-with-options", secret: secret, opt: []Option{WithSessionName("alice"), WithSecureCookies(true), WithMaxAge(time.Hour)}},
		{name: "short-secret", secret: secret[:MinSecretLength-1], wantErr: true, wantIsErr: ErrInvalidParameter},
		{name: "empty-name", secret: secret, opt: []Option{WithSessionName("")}, wantErr: true, wantIsErr: ErrInvalidParameter},
		{name: "negative-max-age", secret: secret, opt: []Option{WithMaxAge(-time.Second)}, wantErr: true, wantIsErr: ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewCookieStore(tt.secret, tt.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Nil(got)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.NotNil(got)
		})
	}
}

func TestNewGorillaStore(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	got, err := NewGorillaStore(nil)
	require.Error(err)
	assert.Nil(got)
	assert.ErrorIs(err, ErrNilParameter)

	got, err = NewGorillaStore(sessions.NewCookieStore(testSecret(t)), WithSessionName("alice"))
	require.NoError(err)
	assert.Equal("alice", got.name)
}

func TestAuthentication_RoundTrip(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	store, err := NewCookieStore(testSecret(t), WithSecureCookies(true))
	require.NoError(err)

	// nothing saved yet
	got, err := LoadAuthentication(httptest.NewRequest(http.MethodGet, "/", nil), store)
	require.NoError(err)
	assert.Equal(AuthenticationResult{}, got)

	want := AuthenticationResult{IsAuthenticated: true, UserID: "alice@example.com"}
	rec := httptest.NewRecorder()
	require.NoError(SaveAuthentication(rec, httptest.NewRequest(http.MethodGet, "/callback", nil), store, want))

	cookies := rec.Result().Cookies()
	require.Len(cookies, 1)
	c := cookies[0]
	assert.Equal(DefaultSessionName, c.Name)
	assert.True(c.HttpOnly)
	assert.True(c.Secure)
	assert.Equal(http.SameSiteLaxMode, c.SameSite)
	assert.Equal(int(DefaultMaxAge.Seconds()), c.MaxAge)
	assert.NotContains(c.Value, "alice")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	got, err = LoadAuthentication(req, store)
	require.NoError(err)
	assert.Equal(want, got)
}

func TestAuthentication_Tampered(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	store, err := NewCookieStore(testSecret(t))
	require.NoError(err)
	otherStore, err := NewCookieStore(testSecret(t))
	require.NoError(err)

	rec := httptest.NewRecorder()
	require.NoError(SaveAuthentication(rec, httptest.NewRequest(http.MethodGet, "/", nil), otherStore,
		AuthenticationResult{IsAuthenticated: true, UserID: "eve"}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	got, err := LoadAuthentication(req, store)
	require.Error(err)
	assert.Equal(AuthenticationResult{}, got)

	// a bad cookie is replaced on save
	rec = httptest.NewRecorder()
	require.NoError(SaveAuthentication(rec, req, store, AuthenticationResult{IsAuthenticated: true, UserID: "alice"}))
	assert.Len(rec.Result().Cookies(), 1)
}

func TestGorillaStore_Get(t *testing.T) {
	t.Parallel()
	store, err := NewGorillaStore(sessions.NewCookieStore(testSecret(t)))
	require.NoError(t, err)

	t.Run("undecodable-value", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		require.NoError(store.Set(rec, req, "alice", "not an object"))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(rec.Result().Cookies()[0])
		var v AuthenticationResult
		found, err := store.Get(req, "alice", &v)
		require.Error(err)
		assert.False(found)
		assert.ErrorIs(err, ErrDecode)
	})
	t.Run("nil-value", func(t *testing.T) {
		found, err := store.Get(httptest.NewRequest(http.MethodGet, "/", nil), "alice", nil)
		require.Error(t, err)
		assert.False(t, found)
		assert.ErrorIs(t, err, ErrNilParameter)
	})
	t.Run("unencodable-value", func(t *testing.T) {
		err := store.Set(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "alice", func() {})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEncode)
	})
}

func TestDeriveKeys(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	secret := testSecret(t)

	hash, block, err := deriveKeys(secret, []byte("capgate"))
	require.NoError(err)
	assert.Len(hash, hashKeyLength)
	assert.Len(block, blockKeyLength)
	assert.False(bytes.Equal(hash[:blockKeyLength], block))

	// deterministic
	hash2, block2, err := deriveKeys(secret, []byte("capgate"))
	require.NoError(err)
	assert.Equal(hash, hash2)
	assert.Equal(block, block2)

	// salted
	hash3, _, err := deriveKeys(secret, []byte("alice"))
	require.NoError(err)
	assert.NotEqual(hash, hash3)
}

func TestNilStore(t *testing.T) {
	t.Parallel()
	_, err := LoadAuthentication(httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.ErrorIs(t, err, ErrNilParameter)
	err = SaveAuthentication(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil, AuthenticationResult{})
	assert.ErrorIs(t, err, ErrNilParameter)
}

func testSecret(t *testing.T) []byte {
	t.Helper()
	secret, err := GenerateSecret()
	require.NoError(t, err)
	require.Len(t, secret, hashKeyLength)
	return secret
}
