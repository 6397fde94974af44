// Package prometheus provides Prometheus collectors for goBiometric metrics.
//
// [NewPrometheusExporter] accepts a [goBiometric.Broker] and exposes an [http.Handler]
// that renders all goBiometric counters and histograms in Prometheus text exposition
// format. Counter names are prefixed gobiometric_*_total; the histograms are
// gobiometric_auth_latency_seconds and gobiometric_confirm_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate broker state.
package prometheus
