// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"

	"github.com/hashicorp/capgate/oidc"
)

// StateReader defines an interface for reading the oidc.State a login was
// started with from the callback's request.  Implementations must be
// concurrently safe, since the reader will likely be used within a concurrent
// http.Handler.
type StateReader interface {
	// Read the State carried by req.  It must return an error wrapping
	// ErrMissingState when there isn't one.
	Read(req *http.Request) (*oidc.State, error)
}

// SingleStateReader implements the StateReader interface for a single state.
// It's handy for tests.
type SingleStateReader struct {
	State *oidc.State
}

// Read returns its single State, or ErrMissingState if it's nil.
func (s *SingleStateReader) Read(_ *http.Request) (*oidc.State, error) {
	if s.State == nil {
		return nil, ErrMissingState
	}
	return s.State, nil
}
