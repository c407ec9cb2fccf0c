package internaldefs

import (
	walletConsent "github.com/MrEthical07/walletConsent"
)

// CounterDef defines a public type used by walletConsent APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   walletConsent.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by walletConsent APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   walletConsent.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the consent engine.
var CounterDefs = []CounterDef{
	{ID: walletConsent.MetricChallengeIssued, Name: "walletconsent_challenge_issued_total", Help: "Issued authentication challenges."},
	{ID: walletConsent.MetricChallengeSuperseded, Name: "walletconsent_challenge_superseded_total", Help: "Challenges replaced by a newer challenge for the same address."},
	{ID: walletConsent.MetricVerifySuccess, Name: "walletconsent_verify_success_total", Help: "Successful challenge verifications."},
	{ID: walletConsent.MetricVerifyFailure, Name: "walletconsent_verify_failure_total", Help: "Failed challenge verifications."},
	{ID: walletConsent.MetricVerifyExpired, Name: "walletconsent_verify_expired_total", Help: "Verifications rejected because the challenge expired."},
	{ID: walletConsent.MetricVerifyReplay, Name: "walletconsent_verify_replay_total", Help: "Verifications that lost the nonce consumption race."},
	{ID: walletConsent.MetricConsentCreated, Name: "walletconsent_consent_created_total", Help: "Created consents."},
	{ID: walletConsent.MetricConsentDuplicate, Name: "walletconsent_consent_duplicate_total", Help: "Consent creations resolved to an existing pair."},
	{ID: walletConsent.MetricConsentResponded, Name: "walletconsent_consent_responded_total", Help: "Consent responses recorded."},
	{ID: walletConsent.MetricConsentConflict, Name: "walletconsent_consent_conflict_total", Help: "Responses rejected because the consent was already answered."},
	{ID: walletConsent.MetricConsentRetracted, Name: "walletconsent_consent_retracted_total", Help: "Retracted consent responses."},
	{ID: walletConsent.MetricConsentDeleted, Name: "walletconsent_consent_deleted_total", Help: "Deleted consents."},
	{ID: walletConsent.MetricAuthzDenied, Name: "walletconsent_authz_denied_total", Help: "Operations denied by the capability table."},
}

// HistogramDefs is an exported constant or variable used by the consent engine.
var HistogramDefs = []HistogramDef{
	{ID: walletConsent.MetricVerifyLatency, Name: "walletconsent_verify_latency_seconds", Help: "Challenge verification latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the consent engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the consent engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
