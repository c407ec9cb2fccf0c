package walletConsent

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventChallengeIssued  = "challenge_issued"
	auditEventVerifySuccess    = "verify_success"
	auditEventVerifyFailure    = "verify_failure"
	auditEventVerifyExpired    = "verify_expired"
	auditEventVerifyReplay     = "verify_replay"
	auditEventConsentCreated   = "consent_created"
	auditEventConsentDuplicate = "consent_duplicate"
	auditEventConsentResponded = "consent_responded"
	auditEventConsentConflict  = "consent_conflict"
	auditEventConsentRetracted = "consent_retracted"
	auditEventConsentDeleted   = "consent_deleted"
	auditEventAuthzDenied      = "authz_denied"
)

// AuditErrorCode defines a public type used by walletConsent APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidAddress     AuditErrorCode = "invalid_address"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrChallengeNotFound  AuditErrorCode = "challenge_not_found"
	auditErrChallengeExpired   AuditErrorCode = "challenge_expired"
	auditErrMalformedSignature AuditErrorCode = "malformed_signature"
	auditErrSignatureMismatch  AuditErrorCode = "signature_mismatch"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrConflict           AuditErrorCode = "conflict"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	address string,
	consentID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["user_agent"] = ua
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Address:   address,
		ConsentID: consentID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidAddress):
		return auditErrInvalidAddress
	case errors.Is(err, ErrInvalidDID),
		errors.Is(err, ErrInvalidFlags),
		errors.Is(err, ErrGrantExceedsRequest),
		errors.Is(err, ErrAssetNotFound):
		return auditErrInvalidInput
	case errors.Is(err, ErrChallengeNotFound):
		return auditErrChallengeNotFound
	case errors.Is(err, ErrChallengeExpired):
		return auditErrChallengeExpired
	case errors.Is(err, ErrMalformedSignature):
		return auditErrMalformedSignature
	case errors.Is(err, ErrSignatureMismatch):
		return auditErrSignatureMismatch
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrNotDatasetOwner),
		errors.Is(err, ErrNotSolicitor):
		return auditErrForbidden
	case errors.Is(err, ErrConsentNotFound),
		errors.Is(err, ErrResponseNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrAlreadyResponded),
		errors.Is(err, ErrConsentAnswered):
		return auditErrConflict
	case errors.Is(err, ErrRegistryUnavailable),
		errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
