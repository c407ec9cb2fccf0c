// Package walletConsent provides wallet-native authentication and consent
// negotiation for data/algorithm marketplaces: nonce challenges signed with an
// Ethereum wallet, EIP-191 signature verification, JWT access tokens, and
// bitmask-encoded permission consents between asset owners.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// walletConsent is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (ChallengeResult, VerifyResult, ConsentView,
// etc.). All internal coordination — record encoding, Redis transactions,
// audit dispatch — lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its
//     public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports walletConsent (no import
//     cycles).
//
// # Trust model
//
// Asset ownership is resolved through the configured [AssetRegistry] on every
// consent creation; caller-supplied owner addresses are never trusted.
// Challenge verification consumes the nonce exactly once: a signature replay
// after a successful verification fails.
package walletConsent
