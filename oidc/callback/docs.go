// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides a callback (in the form of an
http.HandlerFunc) for handling OIDC provider responses to authorization code
flow authentication attempts.

The State a login was started with travels in two cookies (see
SetStateCookies) and is read back with a StateReader.  Nothing is kept server
side.
*/
package callback
