// Package middleware exposes an HTTP middleware adapter for wallet-token
// enforcement built on top of walletConsent.Engine validation.
//
// # Guards
//
//   - [Guard] — validates the Bearer access token and injects the wallet
//     identity into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.ValidateToken.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from
//     Engine.ValidateToken.
package middleware
