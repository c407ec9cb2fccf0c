// Package internal holds cryptographic identifier helpers shared by the
// root package and the stores. Nothing here is part of the public API.
package internal
