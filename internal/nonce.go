package internal

import (
	"crypto/rand"
	"encoding/base64"
)

const nonceRawSize = 16

// NewNonce returns a cryptographically unguessable nonce encoded as compact
// unpadded base64url.
func NewNonce() (string, error) {
	var raw [nonceRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
