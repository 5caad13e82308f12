// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

// DefaultSessionName is the name of the session (and its cookie, for cookie
// stores).
const DefaultSessionName = "capgate"

// Store gets and sets JSON-serializable values, by key, in the session of
// the browser making a request.  Implementations must be concurrently safe.
type Store interface {
	// Get decodes the value stored at key into v.  It returns false when the
	// session has no value at key.
	Get(r *http.Request, key string, v interface{}) (bool, error)

	// Set stores v at key and saves the session to w.
	Set(w http.ResponseWriter, r *http.Request, key string, v interface{}) error
}

// GorillaStore is a Store backed by a github.com/gorilla/sessions store.
// Values are kept as JSON strings so any sessions.Store codec can carry them.
type GorillaStore struct {
	store sessions.Store
	name  string
}

var _ Store = (*GorillaStore)(nil)

// NewGorillaStore wraps s.  Supports the WithSessionName option.
func NewGorillaStore(s sessions.Store, opt ...Option) (*GorillaStore, error) {
	const op = "session.NewGorillaStore"
	if s == nil {
		return nil, fmt.Errorf("%s: sessions store is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	if opts.withSessionName == "" {
		return nil, fmt.Errorf("%s: session name is empty: %w", op, ErrInvalidParameter)
	}
	return &GorillaStore{
		store: s,
		name:  opts.withSessionName,
	}, nil
}

// Get implements the Store interface.  An existing session that can't be
// decoded (tampered with, or from another secret) is an error.
func (g *GorillaStore) Get(r *http.Request, key string, v interface{}) (bool, error) {
	const op = "GorillaStore.Get"
	if v == nil {
		return false, fmt.Errorf("%s: value is nil: %w", op, ErrNilParameter)
	}
	s, err := g.store.Get(r, g.name)
	if err != nil {
		return false, fmt.Errorf("%s: unable to load session %q: %w", op, g.name, err)
	}
	raw, ok := s.Values[key].(string)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("%s: key %q: %s: %w", op, key, err, ErrDecode)
	}
	return true, nil
}

// Set implements the Store interface.  A session that can't be decoded is
// replaced.
func (g *GorillaStore) Set(w http.ResponseWriter, r *http.Request, key string, v interface{}) error {
	const op = "GorillaStore.Set"
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: key %q: %s: %w", op, key, err, ErrEncode)
	}
	s, err := g.store.Get(r, g.name)
	if err != nil || s == nil {
		if s, err = g.store.New(r, g.name); s == nil {
			return fmt.Errorf("%s: unable to create session %q: %w", op, g.name, err)
		}
	}
	s.Values[key] = string(b)
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("%s: unable to save session %q: %w", op, g.name, err)
	}
	return nil
}
