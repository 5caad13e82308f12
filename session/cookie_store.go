// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
)

const (
	// MinSecretLength is the shortest secret NewCookieStore accepts.
	MinSecretLength = 32

	hashKeyLength  = 64 // HMAC-SHA256 key, as recommended by securecookie
	blockKeyLength = 32 // AES-256
)

// NewCookieStore returns a Store that keeps the whole session in a cookie,
// signed and encrypted with keys derived from secret.  Every process sharing
// the secret can read the sessions.  Supports the WithSessionName,
// WithSecureCookies and WithMaxAge options.
func NewCookieStore(secret []byte, opt ...Option) (*GorillaStore, error) {
	const op = "session.NewCookieStore"
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%s: secret must be at least %d bytes: %w", op, MinSecretLength, ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	if opts.withMaxAge < 0 {
		return nil, fmt.Errorf("%s: max age is negative: %w", op, ErrInvalidParameter)
	}

	// the session name salts the derivation so each named session has its
	// own keys
	hashKey, blockKey, err := deriveKeys(secret, []byte(opts.withSessionName))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cs := sessions.NewCookieStore(hashKey, blockKey)
	cs.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.withSecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	cs.MaxAge(int(opts.withMaxAge.Seconds()))
	return NewGorillaStore(cs, opt...)
}

// deriveKeys derives a hash and block key from the secret with HKDF-SHA512.
// The info parameter binds each key to its use.
func deriveKeys(secret, salt []byte) (hashKey, blockKey []byte, err error) {
	const op = "session.deriveKeys"
	prk := hkdf.Extract(sha512.New, secret, salt)

	hashKey = make([]byte, hashKeyLength)
	if _, err := io.ReadFull(hkdf.Expand(sha512.New, prk, []byte("INTEGRITY")), hashKey); err != nil {
		return nil, nil, fmt.Errorf("%s: unable to derive hash key: %w", op, err)
	}
	blockKey = make([]byte, blockKeyLength)
	if _, err := io.ReadFull(hkdf.Expand(sha512.New, prk, []byte("ENCRYPTION")), blockKey); err != nil {
		return nil, nil, fmt.Errorf("%s: unable to derive block key: %w", op, err)
	}
	return hashKey, blockKey, nil
}

// GenerateSecret returns a random secret suitable for NewCookieStore.
func GenerateSecret() ([]byte, error) {
	const op = "session.GenerateSecret"
	secret := securecookie.GenerateRandomKey(hashKeyLength)
	if secret == nil {
		return nil, fmt.Errorf("%s: %w", op, errors.New("unable to read random bytes"))
	}
	return secret, nil
}
