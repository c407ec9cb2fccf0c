package walletConsent

import (
	"errors"
	"net/http"
)

var (
	// ErrEngineNotReady is an exported constant or variable used by the consent engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidAddress is an exported constant or variable used by the consent engine.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrInvalidDID is an exported constant or variable used by the consent engine.
	ErrInvalidDID = errors.New("invalid asset did")
	// ErrInvalidFlags is an exported constant or variable used by the consent engine.
	ErrInvalidFlags = errors.New("invalid permission flags")
	// ErrGrantExceedsRequest is an exported constant or variable used by the consent engine.
	ErrGrantExceedsRequest = errors.New("granted flags exceed requested flags")
	// ErrChallengeNotFound is an exported constant or variable used by the consent engine.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeExpired is an exported constant or variable used by the consent engine.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrMalformedSignature is an exported constant or variable used by the consent engine.
	ErrMalformedSignature = errors.New("malformed signature")
	// ErrSignatureMismatch is an exported constant or variable used by the consent engine.
	ErrSignatureMismatch = errors.New("signature does not match address")
	// ErrTokenInvalid is an exported constant or variable used by the consent engine.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrNotParticipant is an exported constant or variable used by the consent engine.
	ErrNotParticipant = errors.New("address is not a participant of this consent")
	// ErrNotDatasetOwner is an exported constant or variable used by the consent engine.
	ErrNotDatasetOwner = errors.New("only the dataset owner may respond")
	// ErrNotSolicitor is an exported constant or variable used by the consent engine.
	ErrNotSolicitor = errors.New("only the solicitor may delete the consent")
	// ErrConsentNotFound is an exported constant or variable used by the consent engine.
	ErrConsentNotFound = errors.New("consent not found")
	// ErrResponseNotFound is an exported constant or variable used by the consent engine.
	ErrResponseNotFound = errors.New("consent response not found")
	// ErrAlreadyResponded is an exported constant or variable used by the consent engine.
	ErrAlreadyResponded = errors.New("consent already responded")
	// ErrConsentAnswered is an exported constant or variable used by the consent engine.
	ErrConsentAnswered = errors.New("answered consent cannot be deleted")
	// ErrAssetNotFound is an exported constant or variable used by the consent engine.
	ErrAssetNotFound = errors.New("asset not found in registry")
	// ErrRegistryUnavailable is an exported constant or variable used by the consent engine.
	ErrRegistryUnavailable = errors.New("asset registry unavailable")
	// ErrBackendUnavailable is an exported constant or variable used by the consent engine.
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)

// HTTPStatus describes the httpstatus operation and its observable behavior.
//
// HTTPStatus may return an error when input validation, dependency calls, or security checks fail.
// HTTPStatus does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidAddress),
		errors.Is(err, ErrInvalidDID),
		errors.Is(err, ErrInvalidFlags),
		errors.Is(err, ErrGrantExceedsRequest),
		errors.Is(err, ErrChallengeNotFound),
		errors.Is(err, ErrChallengeExpired),
		errors.Is(err, ErrMalformedSignature),
		errors.Is(err, ErrAssetNotFound):
		return http.StatusBadRequest
	case errors.Is(err, ErrSignatureMismatch),
		errors.Is(err, ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrNotDatasetOwner),
		errors.Is(err, ErrNotSolicitor):
		return http.StatusForbidden
	case errors.Is(err, ErrConsentNotFound),
		errors.Is(err, ErrResponseNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyResponded),
		errors.Is(err, ErrConsentAnswered):
		return http.StatusConflict
	case errors.Is(err, ErrRegistryUnavailable),
		errors.Is(err, ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
