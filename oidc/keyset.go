// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"net/http"
	"sync"
)

// keyFetchRecorder is the transport of the client the remote key set fetches
// the provider's JWKS with.  go-oidc reports a failed fetch as a formatted
// string inside its verification error, so Exchange asks the recorder whether
// a fetch failed while it was verifying instead.
type keyFetchRecorder struct {
	next http.RoundTripper

	mu         sync.Mutex
	fetches    uint64
	lastFailed uint64
}

func newKeyFetchRecorder(next http.RoundTripper) *keyFetchRecorder {
	if next == nil {
		next = http.DefaultTransport
	}
	return &keyFetchRecorder{next: next}
}

// RoundTrip implements http.RoundTripper.  Transport errors and non-200
// responses are recorded as failed fetches.
func (r *keyFetchRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	r.fetches++
	n := r.fetches
	r.mu.Unlock()

	resp, err := r.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		r.mu.Lock()
		if n > r.lastFailed {
			r.lastFailed = n
		}
		r.mu.Unlock()
	}
	return resp, err
}

// mark returns the number of fetches started so far, for failedSince.
func (r *keyFetchRecorder) mark() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches
}

// failedSince reports whether a fetch started after mark failed.
func (r *keyFetchRecorder) failedSince(mark uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastFailed > mark
}

// client returns a copy of c whose requests are recorded.
func (r *keyFetchRecorder) client(c *http.Client) *http.Client {
	cp := *c
	cp.Transport = r
	return &cp
}
