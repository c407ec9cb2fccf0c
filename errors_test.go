package walletConsent

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrInvalidAddress, http.StatusBadRequest},
		{ErrInvalidDID, http.StatusBadRequest},
		{ErrInvalidFlags, http.StatusBadRequest},
		{ErrGrantExceedsRequest, http.StatusBadRequest},
		{ErrChallengeNotFound, http.StatusBadRequest},
		{ErrChallengeExpired, http.StatusBadRequest},
		{ErrMalformedSignature, http.StatusBadRequest},
		{ErrAssetNotFound, http.StatusBadRequest},
		{ErrSignatureMismatch, http.StatusUnauthorized},
		{ErrTokenInvalid, http.StatusUnauthorized},
		{ErrNotParticipant, http.StatusForbidden},
		{ErrNotDatasetOwner, http.StatusForbidden},
		{ErrNotSolicitor, http.StatusForbidden},
		{ErrConsentNotFound, http.StatusNotFound},
		{ErrResponseNotFound, http.StatusNotFound},
		{ErrAlreadyResponded, http.StatusConflict},
		{ErrConsentAnswered, http.StatusConflict},
		{ErrRegistryUnavailable, http.StatusServiceUnavailable},
		{ErrBackendUnavailable, http.StatusServiceUnavailable},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHTTPStatusUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("%w: unknown flags [foo]", ErrInvalidFlags)
	if got := HTTPStatus(wrapped); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrapped ErrInvalidFlags, got %d", got)
	}
}

func TestConsentStatusString(t *testing.T) {
	tests := []struct {
		status ConsentStatus
		want   string
	}{
		{StatusPending, "pending"},
		{StatusAccepted, "accepted"},
		{StatusDenied, "denied"},
		{StatusResolved, "resolved"},
		{ConsentStatus(99), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.status.String(); got != tc.want {
			t.Errorf("ConsentStatus(%d).String() = %q, want %q", tc.status, got, tc.want)
		}
	}
}
