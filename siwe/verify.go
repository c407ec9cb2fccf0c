package siwe

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const signatureLength = 65

var (
	// ErrMalformedSignature is returned for signatures that cannot be
	// decoded: bad hex, wrong byte length, or an invalid recovery parameter.
	ErrMalformedSignature = errors.New("malformed signature")
	// ErrSignerMismatch is returned when a well-formed signature recovers
	// to an address other than the claimed one.
	ErrSignerMismatch = errors.New("recovered signer does not match claimed address")
	// ErrInvalidAddress is returned when the claimed address is not a valid
	// hex-encoded account address.
	ErrInvalidAddress = errors.New("invalid account address")
)

// ChecksumAddress parses a hex account address and renders it in canonical
// EIP-55 mixed-case checksum form. Fails with [ErrInvalidAddress] for
// anything that is not a 20-byte hex address.
func ChecksumAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// RecoverAndCompare checks that signatureHex is a valid personal-message
// signature over message produced by the claimed address. The claimed
// address must be in checksum form (see [ChecksumAddress]).
//
// Decoding failures return [ErrMalformedSignature]; a valid signature from
// the wrong key returns [ErrSignerMismatch]. The distinction maps to 400 vs
// 401 at the API boundary.
func RecoverAndCompare(message, signatureHex, claimedAddress string) error {
	sig, err := decodeSignature(signatureHex)
	if err != nil {
		return err
	}

	pubKey, err := crypto.SigToPub(personalHash(message), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}

	recovered := crypto.PubkeyToAddress(*pubKey).Hex()
	if recovered != claimedAddress {
		return fmt.Errorf("%w: recovered %s", ErrSignerMismatch, recovered)
	}

	return nil
}

// personalHash applies the EIP-191 personal-message envelope: the payload
// actually signed is the fixed prefix, the decimal length of the message,
// and the message itself, hashed with Keccak-256.
func personalHash(message string) []byte {
	payload := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message)) + message
	return crypto.Keccak256([]byte(payload))
}

func decodeSignature(signatureHex string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(signatureHex), "0x")

	sig, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != signatureLength {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedSignature, len(sig), signatureLength)
	}

	// Wallets emit V as 27/28; secp256k1 recovery expects 0/1.
	switch sig[64] {
	case 27, 28:
		sig[64] -= 27
	case 0, 1:
	default:
		return nil, fmt.Errorf("%w: invalid recovery id %d", ErrMalformedSignature, sig[64])
	}

	return sig, nil
}
