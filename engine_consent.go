package walletConsent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/walletConsent/aquarius"
	"github.com/MrEthical07/walletConsent/internal/stores"
	"github.com/MrEthical07/walletConsent/permission"
	"github.com/MrEthical07/walletConsent/siwe"
	"github.com/google/uuid"
)

// CreateConsent describes the createconsent operation and its observable behavior.
//
// CreateConsent may return an error when input validation, dependency calls, or security checks fail.
// CreateConsent does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CreateConsent(
	ctx context.Context,
	solicitor string,
	datasetDID string,
	algorithmDID string,
	request any,
	reason string,
) (*ConsentView, bool, error) {
	if e == nil || e.store == nil || e.assets == nil {
		return nil, false, ErrEngineNotReady
	}

	solicitorAddr, err := siwe.ChecksumAddress(solicitor)
	if err != nil {
		return nil, false, ErrInvalidAddress
	}

	datasetDID = strings.TrimSpace(datasetDID)
	algorithmDID = strings.TrimSpace(algorithmDID)
	if datasetDID == "" || algorithmDID == "" {
		return nil, false, ErrInvalidDID
	}

	requestMask, err := e.codec.Parse(request)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidFlags, err)
	}

	datasetOwner, err := e.resolveOwner(ctx, datasetDID)
	if err != nil {
		return nil, false, err
	}
	algorithmOwner, err := e.resolveOwner(ctx, algorithmDID)
	if err != nil {
		return nil, false, err
	}

	if e.identity != nil {
		for _, addr := range []string{solicitorAddr, datasetOwner, algorithmOwner} {
			if _, _, err := e.identity.GetOrCreate(ctx, addr); err != nil {
				return nil, false, ErrBackendUnavailable
			}
		}
	}

	record := &stores.ConsentRecord{
		ID:             uuid.NewString(),
		DatasetDID:     datasetDID,
		AlgorithmDID:   algorithmDID,
		DatasetOwner:   datasetOwner,
		AlgorithmOwner: algorithmOwner,
		Solicitor:      solicitorAddr,
		Request:        requestMask.Raw(),
		Reason:         strings.TrimSpace(reason),
		CreatedAt:      time.Now().Unix(),
	}

	stored, created, err := e.store.Create(ctx, record)
	if err != nil {
		return nil, false, ErrBackendUnavailable
	}

	if created {
		e.metricInc(MetricConsentCreated)
		e.emitAudit(ctx, auditEventConsentCreated, true, solicitorAddr, stored.ID, nil, func() map[string]string {
			return map[string]string{
				"dataset":   datasetDID,
				"algorithm": algorithmDID,
			}
		})
	} else {
		e.metricInc(MetricConsentDuplicate)
		e.emitAudit(ctx, auditEventConsentDuplicate, false, solicitorAddr, stored.ID, nil, nil)
	}

	view, err := e.view(ctx, stored)
	if err != nil {
		return nil, false, err
	}
	return view, created, nil
}

// GetConsent describes the getconsent operation and its observable behavior.
//
// GetConsent may return an error when input validation, dependency calls, or security checks fail.
// GetConsent does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetConsent(ctx context.Context, caller, consentID string) (*ConsentView, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	callerAddr, err := siwe.ChecksumAddress(caller)
	if err != nil {
		return nil, ErrInvalidAddress
	}

	record, err := e.fetchConsent(ctx, consentID)
	if err != nil {
		return nil, err
	}

	if err := e.authorize(ActionViewConsent, callerAddr, record); err != nil {
		return nil, err
	}

	return e.view(ctx, record)
}

// Respond describes the respond operation and its observable behavior.
//
// Respond may return an error when input validation, dependency calls, or security checks fail.
// Respond does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Respond(
	ctx context.Context,
	responder string,
	consentID string,
	permitted any,
	reason string,
) (*ConsentView, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	responderAddr, err := siwe.ChecksumAddress(responder)
	if err != nil {
		return nil, ErrInvalidAddress
	}

	record, err := e.fetchConsent(ctx, consentID)
	if err != nil {
		return nil, err
	}

	if err := e.authorize(ActionRespondConsent, responderAddr, record); err != nil {
		e.emitAudit(ctx, auditEventAuthzDenied, false, responderAddr, record.ID, err, nil)
		return nil, err
	}

	permittedMask, err := e.codec.Parse(permitted)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFlags, err)
	}

	// Granting flags outside the request is rejected outright rather than
	// silently truncated.
	if !permittedMask.Subset(permission.Mask(record.Request)) {
		return nil, ErrGrantExceedsRequest
	}

	response := &stores.ResponseRecord{
		ConsentID:   record.ID,
		Permitted:   permittedMask.Raw(),
		Reason:      strings.TrimSpace(reason),
		RespondedAt: time.Now().Unix(),
	}
	if err := e.store.CreateResponse(ctx, response); err != nil {
		switch {
		case errors.Is(err, stores.ErrResponseExists):
			e.metricInc(MetricConsentConflict)
			e.emitAudit(ctx, auditEventConsentConflict, false, responderAddr, record.ID, ErrAlreadyResponded, nil)
			return nil, ErrAlreadyResponded
		case errors.Is(err, stores.ErrConsentNotFound):
			return nil, ErrConsentNotFound
		default:
			return nil, ErrBackendUnavailable
		}
	}

	e.metricInc(MetricConsentResponded)
	e.emitAudit(ctx, auditEventConsentResponded, true, responderAddr, record.ID, nil, func() map[string]string {
		return map[string]string{
			"status": deriveStatus(permission.Mask(record.Request), permittedMask).String(),
		}
	})

	return e.viewWithResponse(record, response), nil
}

// RetractResponse describes the retractresponse operation and its observable behavior.
//
// RetractResponse may return an error when input validation, dependency calls, or security checks fail.
// RetractResponse does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RetractResponse(ctx context.Context, responder, consentID string) (*ConsentView, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	responderAddr, err := siwe.ChecksumAddress(responder)
	if err != nil {
		return nil, ErrInvalidAddress
	}

	record, err := e.fetchConsent(ctx, consentID)
	if err != nil {
		return nil, err
	}

	if err := e.authorize(ActionRetractResponse, responderAddr, record); err != nil {
		e.emitAudit(ctx, auditEventAuthzDenied, false, responderAddr, record.ID, err, nil)
		return nil, err
	}

	if err := e.store.DeleteResponse(ctx, record.ID); err != nil {
		if errors.Is(err, stores.ErrResponseNotFound) {
			return nil, ErrResponseNotFound
		}
		return nil, ErrBackendUnavailable
	}

	e.metricInc(MetricConsentRetracted)
	e.emitAudit(ctx, auditEventConsentRetracted, true, responderAddr, record.ID, nil, nil)

	return e.viewWithResponse(record, nil), nil
}

// DeleteConsent describes the deleteconsent operation and its observable behavior.
//
// DeleteConsent may return an error when input validation, dependency calls, or security checks fail.
// DeleteConsent does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DeleteConsent(ctx context.Context, caller, consentID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	callerAddr, err := siwe.ChecksumAddress(caller)
	if err != nil {
		return ErrInvalidAddress
	}

	record, err := e.fetchConsent(ctx, consentID)
	if err != nil {
		return err
	}

	if err := e.authorize(ActionDeleteConsent, callerAddr, record); err != nil {
		e.emitAudit(ctx, auditEventAuthzDenied, false, callerAddr, record.ID, err, nil)
		return err
	}

	if err := e.store.Delete(ctx, record.ID); err != nil {
		switch {
		case errors.Is(err, stores.ErrResponseExists):
			return ErrConsentAnswered
		case errors.Is(err, stores.ErrConsentNotFound):
			return ErrConsentNotFound
		default:
			return ErrBackendUnavailable
		}
	}

	e.metricInc(MetricConsentDeleted)
	e.emitAudit(ctx, auditEventConsentDeleted, true, callerAddr, record.ID, nil, nil)

	return nil
}

// IncomingConsents lists consents targeting datasets the caller owns.
func (e *Engine) IncomingConsents(ctx context.Context, owner string, pendingOnly bool) ([]*ConsentView, error) {
	return e.list(ctx, stores.ListByDatasetOwner, owner, pendingOnly)
}

// OutgoingConsents lists consents covering algorithms the caller owns.
func (e *Engine) OutgoingConsents(ctx context.Context, owner string, pendingOnly bool) ([]*ConsentView, error) {
	return e.list(ctx, stores.ListByAlgorithmOwner, owner, pendingOnly)
}

// SolicitedConsents lists consents the caller created.
func (e *Engine) SolicitedConsents(ctx context.Context, solicitor string, pendingOnly bool) ([]*ConsentView, error) {
	return e.list(ctx, stores.ListBySolicitor, solicitor, pendingOnly)
}

func (e *Engine) list(ctx context.Context, kind stores.ListKind, address string, pendingOnly bool) ([]*ConsentView, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	addr, err := siwe.ChecksumAddress(address)
	if err != nil {
		return nil, ErrInvalidAddress
	}

	records, err := e.store.List(ctx, kind, addr, pendingOnly)
	if err != nil {
		return nil, ErrBackendUnavailable
	}

	views := make([]*ConsentView, 0, len(records))
	for _, record := range records {
		view, err := e.view(ctx, record)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	return views, nil
}

func (e *Engine) fetchConsent(ctx context.Context, consentID string) (*stores.ConsentRecord, error) {
	record, err := e.store.Get(ctx, consentID)
	if err != nil {
		if errors.Is(err, stores.ErrConsentNotFound) {
			return nil, ErrConsentNotFound
		}
		return nil, ErrBackendUnavailable
	}
	return record, nil
}

func (e *Engine) resolveOwner(ctx context.Context, did string) (string, error) {
	owner, err := e.assets.ResolveOwner(ctx, did)
	if err != nil {
		if errors.Is(err, aquarius.ErrAssetNotFound) || errors.Is(err, aquarius.ErrNoOwner) {
			return "", ErrAssetNotFound
		}
		return "", ErrRegistryUnavailable
	}

	checksummed, err := siwe.ChecksumAddress(owner)
	if err != nil {
		return "", ErrRegistryUnavailable
	}
	return checksummed, nil
}

func (e *Engine) view(ctx context.Context, record *stores.ConsentRecord) (*ConsentView, error) {
	response, err := e.store.GetResponse(ctx, record.ID)
	if err != nil {
		if errors.Is(err, stores.ErrResponseNotFound) {
			return e.viewWithResponse(record, nil), nil
		}
		return nil, ErrBackendUnavailable
	}
	return e.viewWithResponse(record, response), nil
}

func (e *Engine) viewWithResponse(record *stores.ConsentRecord, response *stores.ResponseRecord) *ConsentView {
	view := &ConsentView{
		ID:             record.ID,
		DatasetDID:     record.DatasetDID,
		AlgorithmDID:   record.AlgorithmDID,
		DatasetOwner:   record.DatasetOwner,
		AlgorithmOwner: record.AlgorithmOwner,
		Solicitor:      record.Solicitor,
		Request:        e.codec.Marshal(permission.Mask(record.Request)),
		Status:         StatusPending.String(),
		Reason:         record.Reason,
		CreatedAt:      time.Unix(record.CreatedAt, 0).UTC(),
	}

	if response != nil {
		respondedAt := time.Unix(response.RespondedAt, 0).UTC()
		view.Permitted = e.codec.Marshal(permission.Mask(response.Permitted))
		view.Status = deriveStatus(permission.Mask(record.Request), permission.Mask(response.Permitted)).String()
		view.ResponseReason = response.Reason
		view.RespondedAt = &respondedAt
	}

	return view
}

// deriveStatus is never stored: status is recomputed from the request and
// response masks on every read. An exact grant (including the empty request)
// is Accepted, a zero grant against a non-empty request is Denied, anything
// in between is Resolved.
func deriveStatus(request, permitted permission.Mask) ConsentStatus {
	switch {
	case permitted == request:
		return StatusAccepted
	case permitted == 0:
		return StatusDenied
	default:
		return StatusResolved
	}
}
