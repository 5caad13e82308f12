// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ProviderConfig is what's known about a provider once discovery has
// completed.  It's immutable, and the Provider only ever hands out copies.
type ProviderConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret ClientSecret
	RedirectURL  string

	// AuthURL, TokenURL and JWKSURL are required; discovery fails without
	// them.  UserInfoURL is optional.
	AuthURL     string
	TokenURL    string
	JWKSURL     string
	UserInfoURL string

	// SupportedSigningAlgs are the algorithms accepted when verifying an
	// id_token.
	SupportedSigningAlgs []Alg
}

// discoveryDoc is the subset of the provider's metadata that the relying
// party depends on.
type discoveryDoc struct {
	AuthURL     string   `json:"authorization_endpoint"`
	TokenURL    string   `json:"token_endpoint"`
	JWKSURL     string   `json:"jwks_uri"`
	UserInfoURL string   `json:"userinfo_endpoint"`
	Algorithms  []string `json:"id_token_signing_alg_values_supported"`
}

// newProviderConfig builds the ProviderConfig from the discovered provider
// and the relying party's config.
func newProviderConfig(c *Config, p *oidc.Provider) (*ProviderConfig, error) {
	const op = "newProviderConfig"
	var doc discoveryDoc
	if err := p.Claims(&doc); err != nil {
		return nil, fmt.Errorf("%s: unable to parse provider metadata: %w", op, err)
	}
	switch {
	case doc.AuthURL == "":
		return nil, fmt.Errorf("%s: authorization_endpoint: %w", op, ErrMissingEndpoint)
	case doc.TokenURL == "":
		return nil, fmt.Errorf("%s: token_endpoint: %w", op, ErrMissingEndpoint)
	case doc.JWKSURL == "":
		return nil, fmt.Errorf("%s: jwks_uri: %w", op, ErrMissingEndpoint)
	}

	algs := c.SupportedSigningAlgs
	if len(algs) == 0 {
		for _, a := range doc.Algorithms {
			if supportedAlgorithms[Alg(a)] {
				algs = append(algs, Alg(a))
			}
		}
	}
	if len(algs) == 0 {
		algs = []Alg{RS256}
	}

	return &ProviderConfig{
		Issuer:               c.Issuer,
		ClientID:             c.ClientID,
		ClientSecret:         c.ClientSecret,
		RedirectURL:          c.RedirectURL,
		AuthURL:              doc.AuthURL,
		TokenURL:             doc.TokenURL,
		JWKSURL:              doc.JWKSURL,
		UserInfoURL:          doc.UserInfoURL,
		SupportedSigningAlgs: algs,
	}, nil
}

func (pc *ProviderConfig) copy() *ProviderConfig {
	cp := *pc
	cp.SupportedSigningAlgs = append([]Alg(nil), pc.SupportedSigningAlgs...)
	return &cp
}

func (pc *ProviderConfig) algStrings() []string {
	algs := make([]string, 0, len(pc.SupportedSigningAlgs))
	for _, a := range pc.SupportedSigningAlgs {
		algs = append(algs, string(a))
	}
	return algs
}
