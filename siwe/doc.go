// Package siwe builds and verifies the sign-in-with-wallet challenge
// message.
//
// The message text is reconstructed server-side from stored fields on both
// the issuing and the verifying path; a client-supplied message string is
// never trusted. [Build] must therefore be byte-deterministic: identical
// inputs always produce identical text, with no locale- or timezone-
// dependent formatting.
//
// Verification follows the EIP-191 personal-message scheme: the signed
// payload is the textual prefix plus the decimal message length plus the
// message, hashed with Keccak-256 and recovered over secp256k1 to an
// address rendered in EIP-55 checksum form.
package siwe
