package walletConsent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

const (
	testDatasetDID   = "did:op:1f0a9ce4b8ackd01"
	testAlgorithmDID = "did:op:77e1c3a0ffbb4202"
)

// consentTestSetup wires an engine with a static asset registry: dataset
// owned by key A's wallet, algorithm owned by key B's wallet.
func consentTestSetup(t *testing.T) (*miniredis.Miniredis, *Engine, string, string) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)
	t.Cleanup(func() { _ = rdb.Close() })

	datasetOwner := keyAddress(t, testKeyA)
	algorithmOwner := keyAddress(t, testKeyB)

	registry := &staticRegistry{owners: map[string]string{
		testDatasetDID:   strings.ToLower(datasetOwner),
		testAlgorithmDID: algorithmOwner,
	}}

	engine := newTestEngine(t, rdb, registry)
	return mr, engine, datasetOwner, algorithmOwner
}

func TestCreateConsent(t *testing.T) {
	_, engine, datasetOwner, algorithmOwner := consentTestSetup(t)
	ctx := context.Background()

	request := map[string]bool{
		"trusted_algorithm":           true,
		"trusted_algorithm_publisher": true,
	}

	view, created, err := engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, request, "training run")
	if err != nil {
		t.Fatalf("CreateConsent failed: %v", err)
	}
	if !created {
		t.Fatal("expected created == true")
	}
	if view.ID == "" {
		t.Fatal("expected a consent id")
	}
	// Registry-resolved owners come back checksummed regardless of the
	// registry's own casing.
	if view.DatasetOwner != datasetOwner {
		t.Fatalf("expected dataset owner %q, got %q", datasetOwner, view.DatasetOwner)
	}
	if view.AlgorithmOwner != algorithmOwner {
		t.Fatalf("expected algorithm owner %q, got %q", algorithmOwner, view.AlgorithmOwner)
	}
	if view.Status != "pending" {
		t.Fatalf("expected pending status, got %q", view.Status)
	}
	if len(view.Request) != 2 || !view.Request["trusted_algorithm"] || !view.Request["trusted_algorithm_publisher"] {
		t.Fatalf("unexpected request form: %v", view.Request)
	}
	if view.Permitted != nil {
		t.Fatalf("unanswered consent must not carry permitted flags: %v", view.Permitted)
	}
}

func TestCreateConsentDuplicatePair(t *testing.T) {
	_, engine, _, algorithmOwner := consentTestSetup(t)
	ctx := context.Background()

	first, created, err := engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, uint64(0b11), "")
	if err != nil || !created {
		t.Fatalf("first CreateConsent: created=%v err=%v", created, err)
	}

	second, created, err := engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, uint64(0b01), "again")
	if err != nil {
		t.Fatalf("duplicate CreateConsent failed: %v", err)
	}
	if created {
		t.Fatal("expected created == false for an existing (dataset, algorithm) pair")
	}
	if second.ID != first.ID {
		t.Fatalf("expected the original consent back, got %q", second.ID)
	}
}

func TestCreateConsentValidation(t *testing.T) {
	_, engine, _, algorithmOwner := consentTestSetup(t)
	ctx := context.Background()

	if _, _, err := engine.CreateConsent(ctx, "nope", testDatasetDID, testAlgorithmDID, uint64(1), ""); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if _, _, err := engine.CreateConsent(ctx, algorithmOwner, " ", testAlgorithmDID, uint64(1), ""); !errors.Is(err, ErrInvalidDID) {
		t.Fatalf("expected ErrInvalidDID, got %v", err)
	}
	if _, _, err := engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, map[string]bool{"no_such_flag": true}, ""); !errors.Is(err, ErrInvalidFlags) {
		t.Fatalf("expected ErrInvalidFlags, got %v", err)
	}
	if _, _, err := engine.CreateConsent(ctx, algorithmOwner, "did:op:unknown", testAlgorithmDID, uint64(1), ""); !errors.Is(err, ErrRegistryUnavailable) {
		t.Fatalf("expected ErrRegistryUnavailable for unresolvable did, got %v", err)
	}
}

func TestRespondDerivesStatus(t *testing.T) {
	tests := []struct {
		name       string
		request    any
		permitted  any
		wantStatus string
	}{
		{"full grant accepted", uint64(0b111), uint64(0b111), "accepted"},
		{"zero grant denied", uint64(0b111), uint64(0), "denied"},
		{"partial grant resolved", uint64(0b111), uint64(0b010), "resolved"},
		{"empty request accepted", uint64(0), uint64(0), "accepted"},
		{
			"object forms",
			map[string]bool{"trusted_algorithm": true, "allow_network_access": true},
			map[string]bool{"trusted_algorithm": true},
			"resolved",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, engine, datasetOwner, algorithmOwner := consentTestSetup(t)
			ctx := context.Background()

			view, _, err := engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, tc.request, "")
			if err != nil {
				t.Fatalf("CreateConsent failed: %v", err)
			}

			responded, err := engine.Respond(ctx, datasetOwner, view.ID, tc.permitted, "reviewed")
			if err != nil {
				t.Fatalf("Respond failed: %v", err)
			}
			if responded.Status != tc.wantStatus {
				t.Fatalf("expected status %q, got %q", tc.wantStatus, responded.Status)
			}
			if responded.RespondedAt == nil {
				t.Fatal("expected RespondedAt to be set")
			}
			if responded.ResponseReason != "reviewed" {
				t.Fatalf("unexpected response reason %q", responded.ResponseReason)
			}
		})
	}
}

func TestRespondGrantExceedsRequest(t *testing.T) {
	_, engine, datasetOwner, algorithmOwner := consentTestSetup(t)
	ctx := context.Background()

	view, _, err := engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, uint64(0b001), "")
	if err != nil {
		t.Fatalf("CreateConsent failed: %v", err)
	}

	if _, err := engine.Respond(ctx, datasetOwner, view.ID, uint64(0b011), ""); !errors.Is(err, ErrGrantExceedsRequest) {
		t.Fatalf("expected ErrGrantExceedsRequest, got %v", err)
	}

	// The rejected grant leaves the consent unanswered.
	got, err := engine.GetConsent(ctx, datasetOwner, view.ID)
	if err != nil {
		t.Fatalf("GetConsent failed: %v", err)
	}
	if got.Status != "pending" {
		t.Fatalf("expected pending after rejected grant, got %q", got.Status)
	}
}

func TestRespondConflict(t *testing.T) {
	_, engine, datasetOwner, algorithmOwner := consentTestSetup(t)
	ctx := context.Background()

	view, _, err := engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, uint64(0b11), "")
	if err != nil {
		t.Fatalf("CreateConsent failed: %v", err)
	}

	if _, err := engine.Respond(ctx, datasetOwner, view.ID, uint64(0b11), ""); err != nil {
		t.Fatalf("first Respond failed: %v", err)
	}
	if _, err := engine.Respond(ctx, datasetOwner, view.ID, uint64(0b01), ""); !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("expected ErrAlreadyResponded, got %v", err)
	}
}

func TestConsentAuthorization(t *testing.T) {
	_, engine, datasetOwner, algorithmOwner := consentTestSetup(t)
	ctx := context.Background()
	stranger := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

	view, _, err := engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, uint64(0b1), "")
	if err != nil {
		t.Fatalf("CreateConsent failed: %v", err)
	}

	// Only the dataset owner responds.
	if _, err := engine.Respond(ctx, algorithmOwner, view.ID, uint64(0b1), ""); !errors.Is(err, ErrNotDatasetOwner) {
		t.Fatalf("expected ErrNotDatasetOwner, got %v", err)
	}

	// Only participants view.
	if _, err := engine.GetConsent(ctx, stranger, view.ID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	for _, participant := range []string{datasetOwner, algorithmOwner} {
		if _, err := engine.GetConsent(ctx, participant, view.ID); err != nil {
			t.Fatalf("participant %q view failed: %v", participant, err)
		}
	}

	// Only the solicitor deletes.
	if err := engine.DeleteConsent(ctx, datasetOwner, view.ID); !errors.Is(err, ErrNotSolicitor) {
		t.Fatalf("expected ErrNotSolicitor, got %v", err)
	}

	if got := engine.MetricsSnapshot().Counters[MetricAuthzDenied]; got != 3 {
		t.Fatalf("expected 3 authz denials, got %d", got)
	}
}

func TestRetractResponse(t *testing.T) {
	_, engine, datasetOwner, algorithmOwner := consentTestSetup(t)
	ctx := context.Background()

	view, _, err := engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, uint64(0b1), "")
	if err != nil {
		t.Fatalf("CreateConsent failed: %v", err)
	}

	if _, err := engine.RetractResponse(ctx, datasetOwner, view.ID); !errors.Is(err, ErrResponseNotFound) {
		t.Fatalf("expected ErrResponseNotFound before responding, got %v", err)
	}

	if _, err := engine.Respond(ctx, datasetOwner, view.ID, uint64(0), "no"); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	retracted, err := engine.RetractResponse(ctx, datasetOwner, view.ID)
	if err != nil {
		t.Fatalf("RetractResponse failed: %v", err)
	}
	if retracted.Status != "pending" {
		t.Fatalf("expected pending after retract, got %q", retracted.Status)
	}

	// Reopened consent takes a fresh response.
	if _, err := engine.Respond(ctx, datasetOwner, view.ID, uint64(0b1), "changed my mind"); err != nil {
		t.Fatalf("Respond after retract failed: %v", err)
	}
}

func TestDeleteConsent(t *testing.T) {
	_, engine, datasetOwner, algorithmOwner := consentTestSetup(t)
	ctx := context.Background()

	view, _, err := engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, uint64(0b1), "")
	if err != nil {
		t.Fatalf("CreateConsent failed: %v", err)
	}

	if err := engine.DeleteConsent(ctx, algorithmOwner, view.ID); err != nil {
		t.Fatalf("DeleteConsent failed: %v", err)
	}
	if _, err := engine.GetConsent(ctx, algorithmOwner, view.ID); !errors.Is(err, ErrConsentNotFound) {
		t.Fatalf("expected ErrConsentNotFound after delete, got %v", err)
	}

	// Answered consents cannot be deleted.
	view, _, err = engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, uint64(0b1), "")
	if err != nil {
		t.Fatalf("recreate failed: %v", err)
	}
	if _, err := engine.Respond(ctx, datasetOwner, view.ID, uint64(0b1), ""); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if err := engine.DeleteConsent(ctx, algorithmOwner, view.ID); !errors.Is(err, ErrConsentAnswered) {
		t.Fatalf("expected ErrConsentAnswered, got %v", err)
	}
}

func TestConsentListings(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	datasetOwner := keyAddress(t, testKeyA)
	algorithmOwner := keyAddress(t, testKeyB)

	registry := &staticRegistry{owners: map[string]string{
		"did:op:ds1":  datasetOwner,
		"did:op:ds2":  datasetOwner,
		"did:op:alg1": algorithmOwner,
		"did:op:alg2": algorithmOwner,
	}}

	engine := newTestEngine(t, rdb, registry)
	ctx := context.Background()

	first, _, err := engine.CreateConsent(ctx, algorithmOwner, "did:op:ds1", "did:op:alg1", uint64(0b1), "")
	if err != nil {
		t.Fatalf("CreateConsent failed: %v", err)
	}
	if _, _, err := engine.CreateConsent(ctx, algorithmOwner, "did:op:ds2", "did:op:alg2", uint64(0b1), ""); err != nil {
		t.Fatalf("CreateConsent failed: %v", err)
	}

	if _, err := engine.Respond(ctx, datasetOwner, first.ID, uint64(0b1), ""); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	incoming, err := engine.IncomingConsents(ctx, datasetOwner, false)
	if err != nil {
		t.Fatalf("IncomingConsents failed: %v", err)
	}
	if len(incoming) != 2 {
		t.Fatalf("expected 2 incoming consents, got %d", len(incoming))
	}

	pending, err := engine.IncomingConsents(ctx, datasetOwner, true)
	if err != nil {
		t.Fatalf("pending IncomingConsents failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID == first.ID {
		t.Fatalf("expected only the unanswered consent, got %d", len(pending))
	}

	outgoing, err := engine.OutgoingConsents(ctx, algorithmOwner, false)
	if err != nil {
		t.Fatalf("OutgoingConsents failed: %v", err)
	}
	if len(outgoing) != 2 {
		t.Fatalf("expected 2 outgoing consents, got %d", len(outgoing))
	}

	solicited, err := engine.SolicitedConsents(ctx, algorithmOwner, false)
	if err != nil {
		t.Fatalf("SolicitedConsents failed: %v", err)
	}
	if len(solicited) != 2 {
		t.Fatalf("expected 2 solicited consents, got %d", len(solicited))
	}

	empty, err := engine.IncomingConsents(ctx, algorithmOwner, false)
	if err != nil {
		t.Fatalf("empty IncomingConsents failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no incoming consents for the algorithm owner, got %d", len(empty))
	}
}

func TestConsentAuditEvents(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	datasetOwner := keyAddress(t, testKeyA)
	algorithmOwner := keyAddress(t, testKeyB)

	registry := &staticRegistry{owners: map[string]string{
		testDatasetDID:   datasetOwner,
		testAlgorithmDID: algorithmOwner,
	}}

	sink := NewChannelSink(16)
	cfg := testConfig()
	cfg.Audit.Enabled = true

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAssetRegistry(registry).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	view, _, err := engine.CreateConsent(ctx, algorithmOwner, testDatasetDID, testAlgorithmDID, uint64(0b1), "")
	if err != nil {
		t.Fatalf("CreateConsent failed: %v", err)
	}
	engine.Close()

	event := <-sink.Events()
	if event.EventType != auditEventConsentCreated {
		t.Fatalf("expected consent_created event, got %q", event.EventType)
	}
	if event.ConsentID != view.ID || event.Address != algorithmOwner {
		t.Fatalf("unexpected event identity: %+v", event)
	}
	if event.IP != "203.0.113.9" {
		t.Fatalf("expected client ip in event, got %q", event.IP)
	}
	if !event.Success {
		t.Fatal("expected success event")
	}
}
