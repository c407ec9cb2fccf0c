package walletConsent

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/walletConsent/internal"
	"github.com/MrEthical07/walletConsent/internal/stores"
	"github.com/MrEthical07/walletConsent/siwe"
)

// IssueChallenge describes the issuechallenge operation and its observable behavior.
//
// IssueChallenge may return an error when input validation, dependency calls, or security checks fail.
// IssueChallenge does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IssueChallenge(ctx context.Context, address string, chainID uint64) (*ChallengeResult, error) {
	if e == nil || e.nonceStore == nil {
		return nil, ErrEngineNotReady
	}

	checksummed, err := siwe.ChecksumAddress(address)
	if err != nil {
		return nil, ErrInvalidAddress
	}

	if chainID == 0 {
		chainID = e.config.Challenge.DefaultChainID
	}

	nonce, err := internal.NewNonce()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(e.config.Challenge.NonceTTL)

	// One live challenge per address: issuing again overwrites any
	// outstanding one.
	superseded := false
	if _, fetchErr := e.nonceStore.Fetch(ctx, checksummed); fetchErr == nil {
		superseded = true
	}

	record := &stores.NonceRecord{
		Address:   checksummed,
		Nonce:     nonce,
		ChainID:   chainID,
		Domain:    e.config.Challenge.Domain,
		URI:       e.config.Challenge.URI,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}
	if err := e.nonceStore.Issue(ctx, record, e.config.Challenge.NonceTTL); err != nil {
		return nil, ErrBackendUnavailable
	}

	result := &ChallengeResult{
		Address:        checksummed,
		ChainID:        chainID,
		Nonce:          nonce,
		IssuedAt:       now.Format(time.RFC3339),
		ExpirationTime: expiresAt.Format(time.RFC3339),
		Message:        e.challengeMessage(record),
	}

	e.metricInc(MetricChallengeIssued)
	if superseded {
		e.metricInc(MetricChallengeSuperseded)
	}
	e.emitAudit(ctx, auditEventChallengeIssued, true, checksummed, "", nil, func() map[string]string {
		return map[string]string{"superseded": boolString(superseded)}
	})

	return result, nil
}

// VerifyChallenge describes the verifychallenge operation and its observable behavior.
//
// VerifyChallenge may return an error when input validation, dependency calls, or security checks fail.
// VerifyChallenge does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyChallenge(ctx context.Context, address, signature string) (*VerifyResult, error) {
	if e == nil || e.nonceStore == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()

	checksummed, err := siwe.ChecksumAddress(address)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, ErrInvalidAddress
	}

	record, err := e.nonceStore.Fetch(ctx, checksummed)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrNonceExpired):
			e.metricInc(MetricVerifyExpired)
			e.emitAudit(ctx, auditEventVerifyExpired, false, checksummed, "", ErrChallengeExpired, nil)
			return nil, ErrChallengeExpired
		case errors.Is(err, stores.ErrNonceNotFound):
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventVerifyFailure, false, checksummed, "", ErrChallengeNotFound, nil)
			return nil, ErrChallengeNotFound
		default:
			return nil, ErrBackendUnavailable
		}
	}

	message := e.challengeMessage(record)
	if err := siwe.RecoverAndCompare(message, signature, checksummed); err != nil {
		// A failed verification leaves the challenge intact: the wallet may
		// retry signing until the nonce expires.
		switch {
		case errors.Is(err, siwe.ErrMalformedSignature):
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventVerifyFailure, false, checksummed, "", ErrMalformedSignature, nil)
			return nil, ErrMalformedSignature
		default:
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventVerifyFailure, false, checksummed, "", ErrSignatureMismatch, nil)
			return nil, ErrSignatureMismatch
		}
	}

	// Consume is a compare-and-delete on the nonce value: a concurrent
	// verification of the same signature loses the race here and surfaces
	// as a replay.
	if err := e.nonceStore.Consume(ctx, checksummed, record.Nonce); err != nil {
		if errors.Is(err, stores.ErrNonceNotFound) {
			e.metricInc(MetricVerifyReplay)
			e.emitAudit(ctx, auditEventVerifyReplay, false, checksummed, "", ErrChallengeNotFound, nil)
			return nil, ErrChallengeNotFound
		}
		return nil, ErrBackendUnavailable
	}

	// Identity is created lazily on the first proven ownership of the
	// address: issuing a challenge alone must not mint identity records.
	if e.identity != nil {
		if _, _, err := e.identity.GetOrCreate(ctx, checksummed); err != nil {
			return nil, ErrBackendUnavailable
		}
	}

	token, err := e.jwtManager.CreateAccess(checksummed, record.ChainID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricVerifySuccess)
	e.metricObserve(MetricVerifyLatency, time.Since(start))
	e.emitAudit(ctx, auditEventVerifySuccess, true, checksummed, "", nil, nil)

	return &VerifyResult{
		AccessToken:   token,
		WalletAddress: checksummed,
		ChainID:       record.ChainID,
		ExpiresIn:     int64(e.jwtManager.AccessTTL().Seconds()),
	}, nil
}

// challengeMessage rebuilds the signed message from the stored record. The
// statement and version come from config, everything else from the record,
// so the reconstruction is byte-identical to the message the wallet signed.
func (e *Engine) challengeMessage(record *stores.NonceRecord) string {
	return siwe.Build(siwe.Params{
		Domain:    record.Domain,
		Address:   record.Address,
		Statement: e.config.Challenge.Statement,
		URI:       record.URI,
		Version:   e.config.Challenge.Version,
		ChainID:   record.ChainID,
		Nonce:     record.Nonce,
		IssuedAt:  time.Unix(record.IssuedAt, 0).UTC().Format(time.RFC3339),
		ExpiresAt: time.Unix(record.ExpiresAt, 0).UTC().Format(time.RFC3339),
	})
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
