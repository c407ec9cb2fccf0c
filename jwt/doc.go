// Package jwt mints and parses the stateless bearer credential issued after
// a successful wallet verification.
//
// Tokens are HS256-signed and carry the verified wallet address as subject,
// the chain identifier, and the fixed "wallet_auth" scope. No server-side
// session backs a token: it is valid until its embedded expiry.
//
// # What this package must NOT do
//
//   - Persist anything. Revocation is explicitly out of scope.
//   - Import walletConsent or any sibling package.
package jwt
