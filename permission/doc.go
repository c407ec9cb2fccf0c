// Package permission implements the named-flag bitmask layer used by the
// consent negotiation engine.
//
// A [Registry] pins an ordered, append-only list of flag names to bit
// positions: the position of a name in the list is its bit index, and bit
// assignments are stable for the lifetime of the process. A [Codec] built on
// a frozen registry converts between the internal [Mask] integer and the
// external object-of-booleans form.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. It provides
// the parse/encode/decode path used wherever flag sets cross the API
// boundary.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import walletConsent, jwt, or siwe.
//   - Reorder or remove registered flags: every stored mask is interpreted
//     against the pinned list, so the list may only grow.
//   - Emit raw integers to external callers. The canonical wire form is the
//     object-of-true-booleans produced by [Codec.Marshal].
package permission
