// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import "errors"

var (
	// ErrMissingState is returned when the callback's request doesn't carry
	// the state cookies.  The login was never started by this browser, or
	// the callback has already been processed.
	ErrMissingState = errors.New("missing state")

	// ErrMalformedCallback is returned when the callback's query is missing
	// its code or state.
	ErrMalformedCallback = errors.New("malformed callback")

	// ErrCsrfMismatch is returned when the callback's state doesn't match the
	// state cookie: a forged callback or a stale link.
	ErrCsrfMismatch = errors.New("state does not match csrf token")

	ErrNilParameter = errors.New("nil parameter")
)
