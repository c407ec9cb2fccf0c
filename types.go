package walletConsent

import (
	"context"
	"time"
)

// ConsentStatus defines a public type used by walletConsent APIs.
//
// ConsentStatus instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ConsentStatus int

const (
	// StatusPending is an exported constant or variable used by the consent engine.
	StatusPending ConsentStatus = iota
	// StatusAccepted is an exported constant or variable used by the consent engine.
	StatusAccepted
	// StatusDenied is an exported constant or variable used by the consent engine.
	StatusDenied
	// StatusResolved is an exported constant or variable used by the consent engine.
	StatusResolved
)

// String describes the string operation and its observable behavior.
//
// String may return an error when input validation, dependency calls, or security checks fail.
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s ConsentStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusDenied:
		return "denied"
	case StatusResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// ChallengeResult defines a public type used by walletConsent APIs.
//
// ChallengeResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChallengeResult struct {
	Address        string `json:"address"`
	ChainID        uint64 `json:"chainId"`
	Nonce          string `json:"nonce"`
	IssuedAt       string `json:"issuedAt"`
	ExpirationTime string `json:"expirationTime"`
	Message        string `json:"message"`
}

// VerifyResult defines a public type used by walletConsent APIs.
//
// VerifyResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerifyResult struct {
	AccessToken   string `json:"accessToken"`
	WalletAddress string `json:"walletAddress"`
	ChainID       uint64 `json:"chainId"`
	ExpiresIn     int64  `json:"expiresIn"`
}

// ConsentView defines a public type used by walletConsent APIs.
//
// ConsentView instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ConsentView struct {
	ID             string          `json:"id"`
	DatasetDID     string          `json:"datasetDid"`
	AlgorithmDID   string          `json:"algorithmDid"`
	DatasetOwner   string          `json:"datasetOwner"`
	AlgorithmOwner string          `json:"algorithmOwner"`
	Solicitor      string          `json:"solicitor"`
	Request        map[string]bool `json:"request"`
	Permitted      map[string]bool `json:"permitted,omitempty"`
	Status         string          `json:"status"`
	Reason         string          `json:"reason,omitempty"`
	ResponseReason string          `json:"responseReason,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	RespondedAt    *time.Time      `json:"respondedAt,omitempty"`
}

// Identity defines a public type used by walletConsent APIs.
//
// Identity instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Identity struct {
	Address   string    `json:"address"`
	FirstSeen time.Time `json:"firstSeen"`
}

// AssetRegistry resolves the on-chain owner of an asset DID. The aquarius
// client satisfies this; tests and other deployments may inject their own.
type AssetRegistry interface {
	ResolveOwner(ctx context.Context, did string) (string, error)
}

// IdentityProvider tracks wallet identities by checksummed address. The
// default provider is Redis-backed; callers with an external identity system
// inject their own implementation through the Builder.
type IdentityProvider interface {
	GetOrCreate(ctx context.Context, address string) (Identity, bool, error)
}
