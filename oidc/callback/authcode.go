// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/hashicorp/capgate/oidc"
)

// Exchanger trades an authorization code for verified identity claims.
// *oidc.Provider satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, code, expectedNonce string) (*oidc.IdentityClaims, error)
}

var _ Exchanger = (*oidc.Provider)(nil)

// AuthCode creates an oidc authorization code callback handler which uses a
// StateReader to read the oidc.State the login was started with.
//
// Each step is a hard gate, in order: the state must be readable, the
// provider must not have returned an error, the request must carry a code and
// a state equal to the State's ID, and the code must be exchanged for claims
// whose nonce equals the State's Nonce.  Only then is the SuccessResponseFunc
// called; any failure goes to the ErrorResponseFunc.
func AuthCode(ex Exchanger, sr StateReader, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	switch {
	case ex == nil:
		return nil, fmt.Errorf("%s: exchanger is nil: %w", op, ErrNilParameter)
	case sr == nil:
		return nil, fmt.Errorf("%s: state reader is nil: %w", op, ErrNilParameter)
	case sFn == nil:
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, ErrNilParameter)
	case eFn == nil:
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, ErrNilParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		state, err := sr.Read(req)
		if err != nil {
			eFn(nil, fmt.Errorf("%s: unable to read auth code state: %w", op, err), w, req)
			return
		}

		q := req.URL.Query()
		if reqErr := q.Get("error"); reqErr != "" {
			eFn(&AuthenErrorResponse{
				Error:       reqErr,
				Description: q.Get("error_description"),
				URI:         q.Get("error_uri"),
			}, nil, w, req)
			return
		}

		reqState, reqCode := q.Get("state"), q.Get("code")
		if reqState == "" || reqCode == "" {
			eFn(nil, fmt.Errorf("%s: code and state are required: %w", op, ErrMalformedCallback), w, req)
			return
		}

		if subtle.ConstantTimeCompare([]byte(reqState), []byte(state.ID())) != 1 {
			eFn(nil, fmt.Errorf("%s: %w", op, ErrCsrfMismatch), w, req)
			return
		}

		claims, err := ex.Exchange(req.Context(), reqCode, state.Nonce())
		if err != nil {
			eFn(nil, fmt.Errorf("%s: unable to exchange authorization code: %w", op, err), w, req)
			return
		}
		sFn(state, claims, w, req)
	}, nil
}
