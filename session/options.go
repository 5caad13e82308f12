// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package session

import "time"

// DefaultMaxAge is how long a cookie session lasts.
const DefaultMaxAge = 12 * time.Hour

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// options = how options are represented
type options struct {
	withSessionName   string
	withSecureCookies bool
	withMaxAge        time.Duration
}

func getDefaultOptions() options {
	return options{
		withSessionName: DefaultSessionName,
		withMaxAge:      DefaultMaxAge,
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithSessionName provides an optional session name (the cookie name for
// cookie stores).
func WithSessionName(name string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withSessionName = name
		}
	}
}

// WithSecureCookies provides an optional flag to only send the session
// cookie over TLS.  Enable it whenever the app is served over https.
func WithSecureCookies(secure bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withSecureCookies = secure
		}
	}
}

// WithMaxAge provides an optional session lifetime.  Zero makes the cookie
// last for the browser session only.
func WithMaxAge(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withMaxAge = d
		}
	}
}
