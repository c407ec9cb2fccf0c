// Package aquarius is a minimal read-only client for an Aquarius metadata
// cache. walletConsent uses it for one thing: resolving the NFT owner of a
// DID so consent ownership checks run against on-chain truth rather than
// caller-supplied addresses.
//
// # Architecture boundaries
//
// This package performs plain HTTP GETs against a configured base URL. It
// holds no state beyond the client configuration and never writes to the
// metadata cache.
//
// # What this package must NOT do
//
//   - No caching of resolved owners. Ownership can change on-chain;
//     staleness decisions belong to the caller.
//   - No retry loops. The engine surfaces resolution failures to its
//     caller, which owns retry policy.
package aquarius
