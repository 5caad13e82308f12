// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrNilParameter        = errors.New("nil parameter")
	ErrInvalidCACert       = errors.New("invalid CA certificate")
	ErrInvalidIssuer       = errors.New("invalid issuer")
	ErrIDGeneratorFailed   = errors.New("id generation failed")
	ErrMissingEndpoint     = errors.New("provider metadata is missing a required endpoint")
	ErrMissingIDToken      = errors.New("id_token is missing")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidAudience     = errors.New("invalid audience")
	ErrInvalidNonce        = errors.New("invalid nonce")
	ErrExpiredToken        = errors.New("token is expired")
	ErrMissingSubject      = errors.New("id_token is missing a subject")
	ErrInvalidCode         = errors.New("authorization code was rejected")
	ErrProviderUnreachable = errors.New("provider could not be reached")
)

// DiscoveryError is returned by NewProvider when the provider's metadata is
// unreachable, malformed or incomplete.  It's fatal: a Provider is never
// returned alongside it.
type DiscoveryError struct {
	Issuer string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for issuer %q: %s", e.Issuer, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExchangeReason classifies why an authorization code exchange failed.
type ExchangeReason int

const (
	ReasonUnknown ExchangeReason = iota

	// InvalidCode means the provider rejected the code (unknown, used, or
	// issued to another client/redirect).
	InvalidCode

	// NonceMismatch means the id_token's nonce didn't match the nonce
	// created when the login started.
	NonceMismatch

	// SignatureInvalid means the id_token couldn't be verified against the
	// provider's keys, or its issuer/audience didn't match.
	SignatureInvalid

	// TokenExpired means the id_token was verified but is past its expiry.
	TokenExpired

	// TransportFailure means the provider couldn't be reached, timed out or
	// failed on its side.  It's the only reason worth retrying, and only by
	// starting a new login.
	TransportFailure

	// MissingIDToken means the token response had no id_token.
	MissingIDToken

	// InvalidClaims means the id_token was verified but its claims are
	// unusable (no subject, or none of the configured audiences).
	InvalidClaims
)

func (r ExchangeReason) String() string {
	switch r {
	case InvalidCode:
		return "invalid code"
	case NonceMismatch:
		return "nonce mismatch"
	case SignatureInvalid:
		return "signature invalid"
	case TokenExpired:
		return "token expired"
	case TransportFailure:
		return "transport failure"
	case MissingIDToken:
		return "missing id_token"
	case InvalidClaims:
		return "invalid claims"
	default:
		return "unknown"
	}
}

// ExchangeError is returned by Provider.Exchange.  Use errors.As to get the
// Reason.
type ExchangeError struct {
	Op     string
	Reason ExchangeReason
	Err    error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Reason, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether starting a new login could succeed where this
// exchange failed.  The same authorization code must never be retried.
func (e *ExchangeError) Retryable() bool {
	return e != nil && e.Reason == TransportFailure
}

func newExchangeError(op string, reason ExchangeReason, err error) *ExchangeError {
	return &ExchangeError{Op: op, Reason: reason, Err: err}
}
