package siwe

import (
	"strconv"
	"strings"
)

// Params carries the structured fields the challenge message is built from.
// Address must already be in EIP-55 checksum form; IssuedAt and ExpiresAt
// must already be ISO-8601 formatted.
type Params struct {
	Domain    string
	Address   string
	Statement string
	URI       string
	Version   string
	ChainID   uint64
	Nonce     string
	IssuedAt  string
	ExpiresAt string
}

// Build produces the fixed-layout, line-oriented challenge text. The output
// is byte-identical for identical inputs.
func Build(p Params) string {
	lines := []string{
		p.Domain + " wants you to sign in with your account:",
		p.Address,
		"",
		strings.TrimSpace(p.Statement),
		"",
		"URI: " + p.URI,
		"Version: " + p.Version,
		"Chain ID: " + strconv.FormatUint(p.ChainID, 10),
		"Nonce: " + p.Nonce,
		"Issued At: " + p.IssuedAt,
		"Expiration Time: " + p.ExpiresAt,
	}

	return strings.Join(lines, "\n")
}
