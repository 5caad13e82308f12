// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"fmt"
	"net/http"
)

// AuthenticationKey is the session key the AuthenticationResult is stored
// at.
const AuthenticationKey = "openid_auth"

// AuthenticationResult is what a successful login leaves in the session.
type AuthenticationResult struct {
	IsAuthenticated bool   `json:"is_authenticated"`
	UserID          string `json:"user_id"`
}

// LoadAuthentication returns the session's AuthenticationResult, which is the
// zero value when the session doesn't have one.  The zero value is also
// returned along with any error.
func LoadAuthentication(r *http.Request, s Store) (AuthenticationResult, error) {
	const op = "session.LoadAuthentication"
	if s == nil {
		return AuthenticationResult{}, fmt.Errorf("%s: store is nil: %w", op, ErrNilParameter)
	}
	var result AuthenticationResult
	if _, err := s.Get(r, AuthenticationKey, &result); err != nil {
		return AuthenticationResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SaveAuthentication stores result in the session.
func SaveAuthentication(w http.ResponseWriter, r *http.Request, s Store, result AuthenticationResult) error {
	const op = "session.SaveAuthentication"
	if s == nil {
		return fmt.Errorf("%s: store is nil: %w", op, ErrNilParameter)
	}
	if err := s.Set(w, r, AuthenticationKey, result); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
