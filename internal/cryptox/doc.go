// Package cryptox implements the key-custody core of TeamVault: password key
// derivation, per-user identity envelopes, per-member team-key wrapping, and
// the credential cipher.
//
// Every function is a pure, request-scoped computation: nothing here touches
// the network or disk, and no key material is retained between calls.
// Callers own the lifetime of derived keys, private keys, and team keys and
// are expected to wipe them (common.WipeByteArray) when the request ends.
package cryptox
