// Package stores contains the Redis-backed persistence used by the consent
// engine: the single-record-per-address nonce store and the consent/response
// store.
//
// Records are encoded as versioned binary blobs. Every multi-step mutation
// that carries an invariant (one-time nonce consumption, at-most-one
// response per consent) runs inside a WATCH transaction so concurrent
// callers cannot both succeed.
//
// # What this package must NOT do
//
//   - Perform signature verification or status derivation; it stores and
//     guards records, nothing more.
//   - Import the root package or any subsystem package.
package stores
