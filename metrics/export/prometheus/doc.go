// Package prometheus provides Prometheus collectors for walletConsent metrics.
//
// [NewPrometheusExporter] accepts a [walletConsent.Engine] and exposes an
// [http.Handler] that renders all walletConsent counters and histograms in
// Prometheus text exposition format. Counter names are prefixed
// walletconsent_*_total; the single histogram is
// walletconsent_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
