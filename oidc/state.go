// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
)

// State represents one OIDC authentication flow for a user.  ID() is the
// anti-forgery token passed as the "state" parameter and compared when the
// provider redirects back; Nonce() is bound into the id_token to prevent its
// replay.  They're generated independently and can never be equal.
//
// A State isn't kept server side: it's carried by the browser between the
// login redirect and the callback.
type State struct {
	// id is a unique identifier and an opaque value used to maintain state
	// between the oidc request and the callback.
	id string

	// nonce is a unique nonce and suitable for use as an oidc nonce.
	nonce string
}

// NewState creates a new State with a random ID and Nonce.
func NewState() (*State, error) {
	const op = "NewState"
	nonce, err := NewID(WithPrefix("n"))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a state's nonce: %w", op, err)
	}
	id, err := NewID(WithPrefix("st"))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a state's id: %w", op, err)
	}
	return NewStateFromValues(id, nonce)
}

// NewStateFromValues rebuilds a State from values that were previously
// handed to the browser.
func NewStateFromValues(id, nonce string) (*State, error) {
	const op = "NewStateFromValues"
	switch {
	case id == "":
		return nil, fmt.Errorf("%s: id is empty: %w", op, ErrInvalidParameter)
	case nonce == "":
		return nil, fmt.Errorf("%s: nonce is empty: %w", op, ErrInvalidParameter)
	case id == nonce:
		return nil, fmt.Errorf("%s: id and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}
	return &State{
		id:    id,
		nonce: nonce,
	}, nil
}

func (s *State) ID() string    { return s.id }    // ID is the anti-forgery token
func (s *State) Nonce() string { return s.nonce } // Nonce is the id_token nonce
