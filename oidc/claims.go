// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// IdentityClaims are the verified claims of an id_token.  They can only be
// created by Provider.Exchange.
type IdentityClaims struct {
	subject  string
	name     string
	email    string
	issuer   string
	audience []string
	expiry   time.Time
	nonce    string
}

// Subject is the stable identifier of the user at the provider.
func (c *IdentityClaims) Subject() string { return c.subject }

// Name is the user's name, or their preferred_username when the provider
// didn't send a name.  It may be empty.
func (c *IdentityClaims) Name() string { return c.name }

// Email may be empty.
func (c *IdentityClaims) Email() string { return c.email }

func (c *IdentityClaims) Issuer() string { return c.issuer }

// Audience returns a copy of the id_token's audiences.
func (c *IdentityClaims) Audience() []string { return append([]string(nil), c.audience...) }

func (c *IdentityClaims) Expiry() time.Time { return c.expiry }

func (c *IdentityClaims) Nonce() string { return c.nonce }

func newIdentityClaims(t *oidc.IDToken) (*IdentityClaims, error) {
	const op = "newIdentityClaims"
	if t.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingSubject)
	}
	var profile struct {
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
	}
	if err := t.Claims(&profile); err != nil {
		return nil, fmt.Errorf("%s: unable to parse claims: %w", op, err)
	}
	name := profile.Name
	if name == "" {
		name = profile.PreferredUsername
	}
	return &IdentityClaims{
		subject:  t.Subject,
		name:     name,
		email:    profile.Email,
		issuer:   t.Issuer,
		audience: append([]string(nil), t.Audience...),
		expiry:   t.Expiry,
		nonce:    t.Nonce,
	}, nil
}
